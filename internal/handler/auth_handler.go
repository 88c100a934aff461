package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/auth"
	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/model"
)

const oauthStateCookie = "retainerkit.oauth-state"

// AuthService は認証ハンドラーが必要とするサービスインターフェース。
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	GetLoginURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionToken string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// BaseURL はOAuthログイン後のリダイレクト先。
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

func (c AuthHandlerConfig) cookieOptions() auth.CookieOptions {
	return auth.CookieOptions{Secure: c.CookieSecure, Domain: c.CookieDomain}
}

// AuthHandler は登録・ログイン・OAuthフローのHTTPハンドラー。
type AuthHandler struct {
	service AuthService
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{service: service, config: config}
}

type registerRequest struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=200"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register はメールアドレスとパスワードでユーザーを登録する。
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email})
}

// Login はパスワードを検証してセッションCookieを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.SessionToken, session.Expires, h.config.cookieOptions())
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Logout はセッションを破棄し、両方の名前のセッションCookieを失効させる。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.ExtractToken(r); ok {
		// 削除に失敗してもCookieはクリアする
		if err := h.service.Logout(r.Context(), token); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	auth.ClearSessionCookies(w, h.config.cookieOptions())
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// OAuthLogin はOAuthフローを開始する。
// GET /auth/{provider}/login
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	loginURL, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// OAuthCallback はOAuthコールバックを処理し、セッションCookieを発行してBaseURLへ戻す。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	// 1. stateの検証
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch", slog.String("provider", provider))
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid OAuth state."))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コード
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Missing authorization code."))
		return
	}

	// 3. ユーザーの解決とセッション発行
	session, err := h.service.HandleCallback(r.Context(), provider, code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.SessionToken, session.Expires, h.config.cookieOptions())
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// generateState はOAuthのstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
