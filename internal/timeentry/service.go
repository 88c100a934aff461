// Package timeentry はワークログ（作業時間の記録）の管理を提供する。
package timeentry

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/retainerkit/internal/authz"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
	"github.com/hitoshi/retainerkit/internal/security"
)

const (
	// MaxMinutes は1件のワークログに記録できる最大分数（1日分）。
	MaxMinutes = 24 * 60
	// MaxDescriptionLength は作業内容の最大文字数。
	MaxDescriptionLength = 4000
	// UnscopedListLimit は契約を指定しない一覧の最大件数。
	UnscopedListLimit = 200
)

// ContractFinder は契約をワークスペース内で取得するインターフェース。
type ContractFinder interface {
	FindByID(ctx context.Context, workspaceID, id string) (*model.Contract, error)
}

// CreateInput はワークログ作成の入力。
type CreateInput struct {
	ContractID  string
	WorkDate    model.Date
	Minutes     int
	Description string
}

// Service はワークログの一覧・作成・削除を提供する。すべての操作は契約者ロールに限られる。
type Service struct {
	entries   repository.TimeEntryRepository
	contracts ContractFinder
	sanitizer security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(entries repository.TimeEntryRepository, contracts ContractFinder, sanitizer security.TextSanitizer) *Service {
	return &Service{entries: entries, contracts: contracts, sanitizer: sanitizer}
}

// List はワークログを作業日の降順で返す。
// contractIDが空の場合は直近UnscopedListLimit件に限る。
func (s *Service) List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.TimeEntry, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}

	limit := 0
	if contractID == "" {
		limit = UnscopedListLimit
	} else if !model.IsValidID(contractID) {
		return nil, model.NewValidationError("Invalid contractId")
	}

	entries, err := s.entries.List(ctx, ws.ID, contractID, limit)
	if err != nil {
		return nil, fmt.Errorf("ワークログ一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Create はワークログを記録する。契約は同じワークスペースに存在する必要がある。
func (s *Service) Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in CreateInput) (*model.TimeEntry, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if !model.IsValidID(in.ContractID) {
		return nil, model.NewValidationError("contractId is required and must be a UUID.")
	}
	if in.WorkDate.IsZero() {
		return nil, model.NewValidationError("workDate is required and must be YYYY-MM-DD.")
	}
	if in.Minutes < 1 || in.Minutes > MaxMinutes {
		return nil, model.NewValidationError(fmt.Sprintf("minutes must be an integer from 1 to %d.", MaxMinutes))
	}
	description := s.sanitizer.Clean(in.Description)
	if n := utf8.RuneCountInString(description); n < 1 || n > MaxDescriptionLength {
		return nil, model.NewValidationError(fmt.Sprintf("description must be 1–%d characters.", MaxDescriptionLength))
	}

	contract, err := s.contracts.FindByID(ctx, ws.ID, in.ContractID)
	if err != nil {
		return nil, fmt.Errorf("契約の取得に失敗しました: %w", err)
	}
	if contract == nil {
		return nil, model.NewNotFoundError("Contract")
	}

	entry, err := s.entries.Create(ctx, &model.TimeEntry{
		WorkspaceID:     ws.ID,
		ContractID:      contract.ID,
		WorkDate:        in.WorkDate,
		Minutes:         in.Minutes,
		Description:     description,
		CreatedByUserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークログの作成に失敗しました: %w", err)
	}

	slog.Info("time entry created",
		slog.String("workspace_id", ws.ID),
		slog.String("contract_id", contract.ID),
		slog.Int("minutes", entry.Minutes),
	)
	return entry, nil
}

// Delete はワークログを削除する。
func (s *Service) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if err := authz.RequireContractorScope(ws); err != nil {
		return err
	}
	if !model.IsValidID(id) {
		return model.NewValidationError("Invalid work log id.")
	}

	deleted, err := s.entries.Delete(ctx, ws.ID, id)
	if err != nil {
		return fmt.Errorf("ワークログの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("Work log")
	}
	return nil
}
