package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/retainerkit/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成し、保存された行を返す。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	created := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sessions (session_token, user_id, expires)
		 VALUES ($1, $2, $3)
		 RETURNING session_token, user_id, expires`,
		session.SessionToken, session.UserID, session.Expires,
	).Scan(&created.SessionToken, &created.UserID, &created.Expires)
	if err != nil {
		return nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}
	return created, nil
}

// FindWithUser はセッションと所有ユーザーを1回のクエリで取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindWithUser(ctx context.Context, sessionToken string) (*model.SessionAndUser, error) {
	su := &model.SessionAndUser{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.session_token, s.user_id, s.expires,
		        u.id, u.name, u.email, u.email_verified, u.image, u.password_hash
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.session_token = $1`,
		sessionToken,
	).Scan(
		&su.Session.SessionToken, &su.Session.UserID, &su.Session.Expires,
		&su.User.ID, &su.User.Name, &su.User.Email, &su.User.EmailVerified, &su.User.Image, &su.User.PasswordHash,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	return su, nil
}

// Update はセッションの有効期限・所有ユーザーを部分更新する。トークンが存在しない場合はnilを返す。
func (r *PostgresSessionRepo) Update(ctx context.Context, patch *model.SessionPatch) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET
			expires = COALESCE($2, expires),
			user_id = COALESCE($3::uuid, user_id)
		 WHERE session_token = $1
		 RETURNING session_token, user_id, expires`,
		patch.SessionToken, patch.Expires, patch.UserID,
	).Scan(&session.SessionToken, &session.UserID, &session.Expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの更新に失敗しました: %w", err)
	}
	return session, nil
}

// Delete は指定トークンのセッションを削除する。
func (r *PostgresSessionRepo) Delete(ctx context.Context, sessionToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_token = $1`,
		sessionToken,
	)
	if err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires <= $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れセッションの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
