// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットのレスポンスに変換する。
// APIError以外は内部エラーとして詳細をログのみに記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusCodeFor(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// decodeJSON はリクエストボディを読み取り、validateタグで検証する。
// 失敗した場合はエラーレスポンスを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidBodyError())
		return false
	}
	if err := validateRequest(dst); err != nil {
		handleServiceError(w, r, err)
		return false
	}
	return true
}

func newInvalidBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "Invalid JSON body.",
		Category: model.CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// requestScope はセッションとワークスペースのミドルウェアが注入した値を取り出す。
// ルーター外から呼ばれた場合は401を書き込みfalseを返す。
func requestScope(w http.ResponseWriter, r *http.Request) (string, *model.ActiveWorkspace, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", nil, false
	}
	ws, ok := middleware.WorkspaceFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", nil, false
	}
	return userID, ws, true
}

// deletedResponse は削除系エンドポイントの共通レスポンス。
type deletedResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
