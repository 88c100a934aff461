// Package auth は認証フレームワークとのアダプター、セッションCookie、パスワード・OAuthによるログインを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/hitoshi/retainerkit/internal/database"
	"github.com/hitoshi/retainerkit/internal/metrics"
	"github.com/hitoshi/retainerkit/internal/model"
)

// MinPasswordLength はパスワード登録時の最小文字数。
const MinPasswordLength = 8

// DefaultSessionMaxAge はセッションの既定有効期間（30日）。
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	adapter   Adapter
	hasher    PasswordHasher
	providers map[string]OAuthProvider
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。providersは設定済みのプロバイダーのみ渡す。
func NewService(
	adapter Adapter,
	hasher PasswordHasher,
	providers []OAuthProvider,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	byName := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{
		adapter:   adapter,
		hasher:    hasher,
		providers: byName,
		metrics:   metrics.OrNop(collector),
		config:    config,
		now:       time.Now,
	}
}

// RegisterInput は新規登録の入力。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register はメールアドレスとパスワードでユーザーを登録する。
// 登録済みのメールアドレスの場合はConflictエラーを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, model.NewValidationError("A valid email is required.")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	existing, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailInUseError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: &hash}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = &name
	}

	created, err := s.adapter.CreateUser(ctx, user)
	if err != nil {
		// 同時登録で事前確認をすり抜けた場合
		if database.IsUniqueViolation(err) {
			return nil, model.NewEmailInUseError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", created.ID))
	return created, nil
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// メールアドレスの有無とパスワード不一致は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.adapter.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		s.metrics.RecordLogin("password", false)
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(*user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordLogin("password", false)
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin("password", true)
	slog.Info("user logged in", slog.String("user_id", user.ID), slog.String("method", "password"))
	return session, nil
}

// Provider は指定名のOAuthプロバイダーを返す。未設定の場合はNotFoundエラー。
func (s *Service) Provider(name string) (OAuthProvider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, model.NewUnknownProviderError(name)
	}
	return p, nil
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return "", err
	}
	return p.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// アカウント紐付け済みならそのユーザー、確認済みの同じメールアドレスのユーザーがいればそのユーザーに紐付け、
// いなければユーザーを新規作成してから紐付ける。未確認のメールアドレスでは既存ユーザーに紐付けない。
func (s *Service) HandleCallback(ctx context.Context, provider, code string) (*model.Session, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordLogin(provider, false)
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. 紐付け済みアカウントで既存ユーザーを検索
	user, err := s.adapter.GetUserByAccount(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by account: %w", err)
	}

	if user == nil {
		user, err = s.findOrCreateOAuthUser(ctx, info)
		if err != nil {
			s.metrics.RecordLogin(provider, false)
			return nil, err
		}
		if err := s.adapter.LinkAccount(ctx, s.accountFromInfo(user.ID, info)); err != nil {
			return nil, fmt.Errorf("failed to link account: %w", err)
		}
		slog.Info("account linked",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(provider, true)
	slog.Info("user logged in", slog.String("user_id", user.ID), slog.String("method", provider))
	return session, nil
}

func (s *Service) findOrCreateOAuthUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	if info.Email == "" {
		return nil, model.NewValidationError("The sign-in provider did not return an email address.")
	}

	user, err := s.adapter.GetUserByEmail(ctx, info.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user != nil {
		if !info.EmailVerified {
			slog.Warn("refused to link unverified email to existing user",
				slog.String("user_id", user.ID),
				slog.String("provider", info.Provider),
			)
			return nil, model.NewOAuthAccountNotLinkedError()
		}
		return user, nil
	}

	newUser := &model.User{Email: info.Email}
	if info.Name != "" {
		name := info.Name
		newUser.Name = &name
	}
	if info.Image != "" {
		image := info.Image
		newUser.Image = &image
	}
	if info.EmailVerified {
		verified := s.now()
		newUser.EmailVerified = &verified
	}

	created, err := s.adapter.CreateUser(ctx, newUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("new user created",
		slog.String("user_id", created.ID),
		slog.String("provider", info.Provider),
	)
	return created, nil
}

func (s *Service) accountFromInfo(userID string, info *OAuthUserInfo) *model.Account {
	account := &model.Account{
		UserID:            userID,
		Type:              "oauth",
		Provider:          info.Provider,
		ProviderAccountID: info.ProviderUserID,
		AccessToken:       optional(info.AccessToken),
		RefreshToken:      optional(info.RefreshToken),
		TokenType:         optional(info.TokenType),
		Scope:             optional(info.Scope),
		IDToken:           optional(info.IDToken),
	}
	if info.ExpiresIn > 0 {
		expiresAt := s.now().Unix() + info.ExpiresIn
		account.ExpiresAt = &expiresAt
	}
	return account
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := s.adapter.DeleteSession(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッショントークンから現在のユーザーを取得する。
// セッションが存在しないか期限切れの場合はUnauthorizedエラーを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionToken string) (*model.User, error) {
	if sessionToken == "" {
		return nil, model.NewUnauthorizedError()
	}

	su, err := s.adapter.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if su == nil {
		return nil, model.NewUnauthorizedError()
	}
	if su.Session.Expired(s.now()) {
		if err := s.adapter.DeleteSession(ctx, sessionToken); err != nil {
			slog.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return nil, model.NewUnauthorizedError()
	}

	return &su.User, nil
}

func (s *Service) sessionMaxAge() time.Duration {
	if s.config.SessionMaxAge <= 0 {
		return DefaultSessionMaxAge
	}
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session, err := s.adapter.CreateSession(ctx, &model.Session{
		SessionToken: token,
		UserID:       userID,
		Expires:      s.now().Add(s.sessionMaxAge()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
