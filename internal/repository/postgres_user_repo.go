package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/retainerkit/internal/model"
)

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, email_verified, image, password_hash`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// NormalizeEmail はメールアドレスを保存・検索用の形式（前後空白除去・小文字）に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.Image, &user.PasswordHash)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create はユーザーを作成し、保存された行を返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	created, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, email_verified, image, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		user.Name, NormalizeEmail(user.Email), user.EmailVerified, user.Image, user.PasswordHash,
	))
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return created, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		NormalizeEmail(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// FindByAccount は外部IdPのアカウントに紐づくユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.email_verified, u.image, u.password_hash
		 FROM accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = $1 AND a.provider_account_id = $2`,
		provider, providerAccountID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("外部アカウントによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// Update はnilでないフィールドのみ更新する。ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) Update(ctx context.Context, patch *model.UserPatch) (*model.User, error) {
	var email *string
	if patch.Email != nil {
		normalized := NormalizeEmail(*patch.Email)
		email = &normalized
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			email_verified = COALESCE($4, email_verified),
			image = COALESCE($5, image),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		patch.ID, patch.Name, email, patch.EmailVerified, patch.Image,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
// 関連するaccounts、sessions、所有ワークスペースはCASCADE削除される。
func (r *PostgresUserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
