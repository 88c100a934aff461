package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/retainerkit/internal/auth"
	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/model"
)

// AccountService はアカウント削除のインターフェース。
type AccountService interface {
	Withdraw(ctx context.Context, userID string) error
}

type meResponse struct {
	User      userResponse      `json:"user"`
	Workspace workspaceResponse `json:"workspace"`
}

// Me は現在のユーザーとアクティブワークスペースを返す。
// GET /api/me
func Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:      toUserResponse(user),
		Workspace: workspaceResponse{ID: ws.ID, Name: ws.Name, Role: ws.Role},
	})
}

// NewWithdrawHandler は退会ハンドラーを返す。成功時はセッションCookieも失効させる。
// DELETE /api/me
func NewWithdrawHandler(service AccountService, config AuthHandlerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}

		if err := service.Withdraw(r.Context(), user.ID); err != nil {
			handleServiceError(w, r, err)
			return
		}

		auth.ClearSessionCookies(w, config.cookieOptions())
		writeJSON(w, http.StatusOK, deletedResponse{Deleted: true, ID: user.ID})
	}
}
