// Package user はアカウント管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// Store はアカウント削除に必要なユーザー永続化の操作。
type Store interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	users Store
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users Store) *Service {
	return &Service{users: users}
}

// Withdraw はユーザーの退会処理を実行する。
// ユーザー行の削除により、accounts・sessions・所有ワークスペース（配下のクライアント、契約、
// ワークログ、請求書を含む）・メンバーシップがCASCADE削除される。
// 他ワークスペースの請求書・ワークログの作成者はNULLになる。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewNotFoundError("user")
	}

	slog.Info("退会処理を開始します", slog.String("user_id", userID))

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}

var _ Store = (repository.UserRepository)(nil)
