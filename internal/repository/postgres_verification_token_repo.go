package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/retainerkit/internal/model"
)

// PostgresVerificationTokenRepo はPostgreSQLを使用した検証トークンリポジトリ。
type PostgresVerificationTokenRepo struct {
	db *sql.DB
}

// NewPostgresVerificationTokenRepo はPostgresVerificationTokenRepoを生成する。
func NewPostgresVerificationTokenRepo(db *sql.DB) *PostgresVerificationTokenRepo {
	return &PostgresVerificationTokenRepo{db: db}
}

// Create は検証トークンを保存する。
func (r *PostgresVerificationTokenRepo) Create(ctx context.Context, token *model.VerificationToken) (*model.VerificationToken, error) {
	created := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO verification_tokens (identifier, token, expires)
		 VALUES ($1, $2, $3)
		 RETURNING identifier, token, expires`,
		token.Identifier, token.Token, token.Expires,
	).Scan(&created.Identifier, &created.Token, &created.Expires)
	if err != nil {
		return nil, fmt.Errorf("確認トークンの作成に失敗しました: %w", err)
	}
	return created, nil
}

// Use はトークンを削除し、削除した行を返す。
// DELETE ... RETURNINGで取得と削除を1文で行うため、並行して使われても成功するのは1回だけ。
func (r *PostgresVerificationTokenRepo) Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	used := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM verification_tokens
		 WHERE identifier = $1 AND token = $2
		 RETURNING identifier, token, expires`,
		identifier, token,
	).Scan(&used.Identifier, &used.Token, &used.Expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("確認トークンの使用に失敗しました: %w", err)
	}
	return used, nil
}

// DeleteExpired はbefore時点で期限切れのトークンを削除し、削除件数を返す。
func (r *PostgresVerificationTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires <= $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れ確認トークンの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ VerificationTokenRepository = (*PostgresVerificationTokenRepo)(nil)
