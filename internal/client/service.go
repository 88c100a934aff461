// Package client はクライアントとクライアントメンバーの管理、クライアントポータルの参照を提供する。
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/retainerkit/internal/authz"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
	"github.com/hitoshi/retainerkit/internal/security"
)

const (
	// MaxNameLength はクライアント名の最大文字数。
	MaxNameLength = 120
	// MaxEmailLength はメンバー追加時のメールアドレスの最大文字数。
	MaxEmailLength = 320
)

// UserFinder はメールアドレスでユーザーを検索するインターフェース。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Service はクライアントとクライアントメンバーのCRUDを提供する。
// すべての操作は契約者ロールに限られる。
type Service struct {
	clients   repository.ClientRepository
	users     UserFinder
	sanitizer security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(clients repository.ClientRepository, users UserFinder, sanitizer security.TextSanitizer) *Service {
	return &Service{clients: clients, users: users, sanitizer: sanitizer}
}

// List はワークスペースのクライアント一覧を返す。
func (s *Service) List(ctx context.Context, ws *model.ActiveWorkspace) ([]*model.Client, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	clients, err := s.clients.List(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("クライアント一覧の取得に失敗しました: %w", err)
	}
	return clients, nil
}

// Get は指定IDのクライアントを返す。
func (s *Service) Get(ctx context.Context, ws *model.ActiveWorkspace, id string) (*model.Client, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	return s.find(ctx, ws.ID, id)
}

// Create はクライアントを作成する。
func (s *Service) Create(ctx context.Context, ws *model.ActiveWorkspace, name string) (*model.Client, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	name, err := s.cleanName(name)
	if err != nil {
		return nil, err
	}

	c, err := s.clients.Create(ctx, ws.ID, name)
	if err != nil {
		return nil, fmt.Errorf("クライアントの作成に失敗しました: %w", err)
	}

	slog.Info("client created",
		slog.String("workspace_id", ws.ID),
		slog.String("client_id", c.ID),
	)
	return c, nil
}

// Rename はクライアント名を変更する。
func (s *Service) Rename(ctx context.Context, ws *model.ActiveWorkspace, id, name string) (*model.Client, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	name, err := s.cleanName(name)
	if err != nil {
		return nil, err
	}
	if !model.IsValidID(id) {
		return nil, model.NewValidationError("Invalid client id.")
	}

	c, err := s.clients.Rename(ctx, ws.ID, id, name)
	if err != nil {
		return nil, fmt.Errorf("クライアント名の更新に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewNotFoundError("Client")
	}
	return c, nil
}

// Delete はクライアントを削除する。契約・ワークログ・請求書も削除される。
func (s *Service) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if err := authz.RequireContractorScope(ws); err != nil {
		return err
	}
	if !model.IsValidID(id) {
		return model.NewValidationError("Invalid client id.")
	}

	deleted, err := s.clients.Delete(ctx, ws.ID, id)
	if err != nil {
		return fmt.Errorf("クライアントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("Client")
	}

	slog.Info("client deleted",
		slog.String("workspace_id", ws.ID),
		slog.String("client_id", id),
	)
	return nil
}

// ListMembers はクライアントのメンバー一覧を返す。
func (s *Service) ListMembers(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.ClientMember, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if !model.IsValidID(clientID) {
		return nil, model.NewValidationError("clientId is required (UUID)")
	}
	if _, err := s.find(ctx, ws.ID, clientID); err != nil {
		return nil, err
	}

	members, err := s.clients.ListMembers(ctx, ws.ID, clientID)
	if err != nil {
		return nil, fmt.Errorf("クライアントメンバー一覧の取得に失敗しました: %w", err)
	}
	return members, nil
}

// AddMember は登録済みユーザーをメールアドレスで指定してクライアントに追加する。
// roleが空の場合はclient_user。既にメンバーの場合はロールを更新する。
func (s *Service) AddMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, email string, role model.ClientRole) (*model.ClientMember, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if !model.IsValidID(clientID) {
		return nil, model.NewValidationError("clientId must be a UUID")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || utf8.RuneCountInString(email) > MaxEmailLength {
		return nil, model.NewValidationError("email is required")
	}
	if role == "" {
		role = model.ClientRoleUser
	}
	if !authz.IsClientRole(role) {
		return nil, model.NewValidationError("clientRole must be client_admin or client_user")
	}

	if _, err := s.find(ctx, ws.ID, clientID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, &model.APIError{
			Code:     model.ErrCodeNotFound,
			Message:  "No user found with that email. Ask the client to register first, then add them here.",
			Category: model.CategoryNotFound,
			Action:   "クライアントに先にアカウント登録を依頼してください。",
		}
	}

	if err := s.clients.UpsertMember(ctx, ws.ID, clientID, user.ID, role); err != nil {
		return nil, fmt.Errorf("クライアントメンバーの追加に失敗しました: %w", err)
	}

	slog.Info("client member added",
		slog.String("workspace_id", ws.ID),
		slog.String("client_id", clientID),
		slog.String("user_id", user.ID),
		slog.String("client_role", string(role)),
	)
	return &model.ClientMember{
		ClientID: clientID,
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     role,
	}, nil
}

// RemoveMember はユーザーをクライアントから外す。
func (s *Service) RemoveMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, userID string) error {
	if err := authz.RequireContractorScope(ws); err != nil {
		return err
	}
	if !model.IsValidID(clientID) || !model.IsValidID(userID) {
		return model.NewValidationError("clientId and userId must be UUIDs")
	}
	if _, err := s.find(ctx, ws.ID, clientID); err != nil {
		return err
	}

	removed, err := s.clients.RemoveMember(ctx, ws.ID, clientID, userID)
	if err != nil {
		return fmt.Errorf("クライアントメンバーの削除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewNotFoundError("Client member")
	}

	slog.Info("client member removed",
		slog.String("workspace_id", ws.ID),
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
	)
	return nil
}

func (s *Service) find(ctx context.Context, workspaceID, id string) (*model.Client, error) {
	if !model.IsValidID(id) {
		return nil, model.NewValidationError("Invalid client id.")
	}
	c, err := s.clients.FindByID(ctx, workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewNotFoundError("Client")
	}
	return c, nil
}

// cleanName はマークアップを除去し、文字数を検証する。
func (s *Service) cleanName(raw string) (string, error) {
	name := s.sanitizer.Clean(raw)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		return "", model.NewValidationError(fmt.Sprintf("Client name must be 1–%d characters.", MaxNameLength))
	}
	return name, nil
}
