package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/timeentry"
)

// TimeEntryService はワークログハンドラーが必要とするサービスインターフェース。
type TimeEntryService interface {
	List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.TimeEntry, error)
	Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in timeentry.CreateInput) (*model.TimeEntry, error)
	Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

// WorkLogHandler はワークログのHTTPハンドラー。
type WorkLogHandler struct {
	service TimeEntryService
}

// NewWorkLogHandler はWorkLogHandlerを生成する。
func NewWorkLogHandler(service TimeEntryService) *WorkLogHandler {
	return &WorkLogHandler{service: service}
}

type createWorkLogRequest struct {
	ContractID  string     `json:"contractId"`
	WorkDate    model.Date `json:"workDate"`
	Minutes     int        `json:"minutes"`
	Description string     `json:"description"`
}

// List はワークログ一覧を返す。
// GET /api/work-logs?contractId=
func (h *WorkLogHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	entries, err := h.service.List(r.Context(), ws, r.URL.Query().Get("contractId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workLogs": mapSlice(entries, toWorkLogResponse)})
}

// Create はワークログを記録する。
// POST /api/work-logs
func (h *WorkLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req createWorkLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.service.Create(r.Context(), ws, userID, timeentry.CreateInput{
		ContractID:  req.ContractID,
		WorkDate:    req.WorkDate,
		Minutes:     req.Minutes,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"workLog": toWorkLogResponse(entry)})
}

// Delete はワークログを削除する。
// DELETE /api/work-logs/{id}
func (h *WorkLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), ws, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true, ID: id})
}
