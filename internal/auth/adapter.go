package auth

import (
	"context"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// Adapter は認証フレームワークが要求するユーザー・アカウント・セッション・検証トークンの永続化契約。
// 見つからない場合はnilを返し、エラーにはしない。
type Adapter interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error)
	UpdateUser(ctx context.Context, patch *model.UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	LinkAccount(ctx context.Context, account *model.Account) error
	UnlinkAccount(ctx context.Context, provider, providerAccountID string) error

	CreateSession(ctx context.Context, session *model.Session) (*model.Session, error)
	GetSessionAndUser(ctx context.Context, sessionToken string) (*model.SessionAndUser, error)
	UpdateSession(ctx context.Context, patch *model.SessionPatch) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionToken string) error

	CreateVerificationToken(ctx context.Context, token *model.VerificationToken) (*model.VerificationToken, error)
	UseVerificationToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error)
}

// RepositoryAdapter はPostgreSQLリポジトリを組み合わせたAdapter実装。
type RepositoryAdapter struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	tokens   repository.VerificationTokenRepository
}

// NewRepositoryAdapter はRepositoryAdapterを生成する。
func NewRepositoryAdapter(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	tokens repository.VerificationTokenRepository,
) *RepositoryAdapter {
	return &RepositoryAdapter{users: users, accounts: accounts, sessions: sessions, tokens: tokens}
}

// CreateUser はユーザーを作成する。メールアドレスは小文字に正規化される。
func (a *RepositoryAdapter) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	return a.users.Create(ctx, user)
}

// GetUser は指定IDのユーザーを返す。
func (a *RepositoryAdapter) GetUser(ctx context.Context, id string) (*model.User, error) {
	return a.users.FindByID(ctx, id)
}

// GetUserByEmail はメールアドレスでユーザーを返す。
func (a *RepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return a.users.FindByEmail(ctx, email)
}

// GetUserByAccount は外部IdPアカウントに紐づくユーザーを返す。
func (a *RepositoryAdapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error) {
	return a.users.FindByAccount(ctx, provider, providerAccountID)
}

// UpdateUser はユーザーを部分更新する。IDは必須。存在しない場合はNotFoundエラー。
func (a *RepositoryAdapter) UpdateUser(ctx context.Context, patch *model.UserPatch) (*model.User, error) {
	if patch == nil || patch.ID == "" {
		return nil, model.NewValidationError("user id is required")
	}
	user, err := a.users.Update(ctx, patch)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewNotFoundError("User")
	}
	return user, nil
}

// DeleteUser はユーザーを削除する。
func (a *RepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.users.Delete(ctx, id)
}

// LinkAccount はアカウントを紐付ける。既に紐付いていれば何もしない。
func (a *RepositoryAdapter) LinkAccount(ctx context.Context, account *model.Account) error {
	if account.UserID == "" || account.Provider == "" || account.ProviderAccountID == "" {
		return fmt.Errorf("account requires user id, provider and provider account id")
	}
	return a.accounts.Link(ctx, account)
}

// UnlinkAccount はアカウントの紐付けを解除する。
func (a *RepositoryAdapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	return a.accounts.Unlink(ctx, provider, providerAccountID)
}

// CreateSession はセッションを作成する。
func (a *RepositoryAdapter) CreateSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	return a.sessions.Create(ctx, session)
}

// GetSessionAndUser はセッションと所有ユーザーを返す。期限の判定は呼び出し側で行う。
func (a *RepositoryAdapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*model.SessionAndUser, error) {
	return a.sessions.FindWithUser(ctx, sessionToken)
}

// UpdateSession はセッションを部分更新する。トークンが存在しない場合はnilを返す。
func (a *RepositoryAdapter) UpdateSession(ctx context.Context, patch *model.SessionPatch) (*model.Session, error) {
	return a.sessions.Update(ctx, patch)
}

// DeleteSession はセッションを削除する。
func (a *RepositoryAdapter) DeleteSession(ctx context.Context, sessionToken string) error {
	return a.sessions.Delete(ctx, sessionToken)
}

// CreateVerificationToken は検証トークンを保存する。
func (a *RepositoryAdapter) CreateVerificationToken(ctx context.Context, token *model.VerificationToken) (*model.VerificationToken, error) {
	return a.tokens.Create(ctx, token)
}

// UseVerificationToken は検証トークンを消費する。既に使われている場合はnilを返す。
func (a *RepositoryAdapter) UseVerificationToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	return a.tokens.Use(ctx, identifier, token)
}

// compile-time interface check
var _ Adapter = (*RepositoryAdapter)(nil)
