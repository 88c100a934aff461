package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/retainerkit/internal/model"
)

var workspaceContextKey = contextKey("workspace")

// WorkspaceResolver はユーザーのアクティブワークスペースを解決するインターフェース。
type WorkspaceResolver interface {
	ResolveActiveWorkspace(ctx context.Context, userID string) (*model.ActiveWorkspace, error)
}

// NewWorkspaceMiddleware はアクティブワークスペースを解決してコンテキストに注入するミドルウェアを返す。
// SessionMiddlewareの後に配置する。初回アクセス時はワークスペースが作成される。
func NewWorkspaceMiddleware(resolver WorkspaceResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ws, err := resolver.ResolveActiveWorkspace(r.Context(), userID)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, StatusCodeFor(apiErr), apiErr)
					return
				}
				slog.Error("failed to resolve workspace",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			recordWorkspaceID(r.Context(), ws.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithWorkspace(r.Context(), ws)))
		})
	}
}

// WorkspaceFromContext はアクティブワークスペースを取得する。
func WorkspaceFromContext(ctx context.Context) (*model.ActiveWorkspace, bool) {
	ws, ok := ctx.Value(workspaceContextKey).(*model.ActiveWorkspace)
	return ws, ok && ws != nil
}

// ContextWithWorkspace はコンテキストにアクティブワークスペースを注入する。
func ContextWithWorkspace(ctx context.Context, ws *model.ActiveWorkspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey, ws)
}
