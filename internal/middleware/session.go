// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/retainerkit/internal/auth"
	"github.com/hitoshi/retainerkit/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// userContextKey は認証済みユーザーを格納するためのキー。
	userContextKey = contextKey("user")
	// sessionTokenContextKey はセッショントークンを格納するためのキー。
	sessionTokenContextKey = contextKey("session_token")
)

// SessionFinder はセッションと所有ユーザーの検索に必要なインターフェース。
// auth.Adapterの部分集合として定義する。
type SessionFinder interface {
	GetSessionAndUser(ctx context.Context, sessionToken string) (*model.SessionAndUser, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入する。
// 未認証・期限切れのリクエストには401 Unauthorizedを返し、cookieOptsの属性でセッションCookieを消す。
func NewSessionMiddleware(sessionFinder SessionFinder, cookieOpts auth.CookieOptions) func(next http.Handler) http.Handler {
	return newSessionMiddleware(sessionFinder, cookieOpts, time.Now)
}

func newSessionMiddleware(sessionFinder SessionFinder, cookieOpts auth.CookieOptions, now func() time.Time) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからセッショントークンを取得
			token, ok := auth.ExtractToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションの有効性を検証
			su, err := sessionFinder.GetSessionAndUser(r.Context(), token)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if su == nil || su.Session.Expired(now()) {
				auth.ClearSessionCookies(w, cookieOpts)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みユーザーをコンテキストに注入
			user := su.User
			recordUserID(r.Context(), user.ID)
			ctx := context.WithValue(r.Context(), userIDContextKey, user.ID)
			ctx = context.WithValue(ctx, userContextKey, &user)
			ctx = context.WithValue(ctx, sessionTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UserFromContext は認証済みユーザーを取得する。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userContextKey).(*model.User)
	return u, ok && u != nil
}

// SessionTokenFromContext は検証済みのセッショントークンを取得する。
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenContextKey).(string)
	return token, ok && token != ""
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithUser はコンテキストにユーザーとユーザーIDを注入する。テスト用。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, user.ID)
	return context.WithValue(ctx, userContextKey, user)
}
