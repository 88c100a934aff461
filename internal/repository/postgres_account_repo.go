package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用した外部IdPアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// Link はアカウントを紐付ける。同じ(provider, provider_account_id)が既にあれば何もしない。
func (r *PostgresAccountRepo) Link(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			user_id, type, provider, provider_account_id,
			refresh_token, access_token, expires_at, token_type, scope, id_token, session_state
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (provider, provider_account_id) DO NOTHING`,
		account.UserID, account.Type, account.Provider, account.ProviderAccountID,
		account.RefreshToken, account.AccessToken, account.ExpiresAt, account.TokenType,
		account.Scope, account.IDToken, account.SessionState,
	)
	if err != nil {
		return fmt.Errorf("外部アカウントの連携に失敗しました: %w", err)
	}
	return nil
}

// Unlink は紐付けを解除する。
func (r *PostgresAccountRepo) Unlink(ctx context.Context, provider, providerAccountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	)
	if err != nil {
		return fmt.Errorf("外部アカウントの連携解除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
