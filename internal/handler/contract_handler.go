package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/contract"
	"github.com/hitoshi/retainerkit/internal/model"
)

// ContractService は契約ハンドラーが必要とするサービスインターフェース。
type ContractService interface {
	List(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.Contract, error)
	Create(ctx context.Context, ws *model.ActiveWorkspace, in contract.CreateInput) (*model.Contract, error)
	Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in contract.UpdateInput) (*model.Contract, error)
	Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

// ContractHandler は契約のHTTPハンドラー。
type ContractHandler struct {
	service ContractService
}

// NewContractHandler はContractHandlerを生成する。
func NewContractHandler(service ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

type createContractRequest struct {
	ClientID             string               `json:"clientId"`
	Title                string               `json:"title"`
	Status               model.ContractStatus `json:"status" validate:"omitempty,oneof=draft active paused closed"`
	HourlyRateCents      *int64               `json:"hourlyRateCents"`
	MonthlyRetainerCents *int64               `json:"monthlyRetainerCents"`
	Currency             string               `json:"currency"`
}

// updateContractRequest は部分更新のボディ。単価にnullを指定すると解除する。
type updateContractRequest struct {
	Title                *string               `json:"title"`
	Status               *model.ContractStatus `json:"status" validate:"omitempty,oneof=draft active paused closed"`
	HourlyRateCents      model.NullableInt64   `json:"hourlyRateCents"`
	MonthlyRetainerCents model.NullableInt64   `json:"monthlyRetainerCents"`
	Currency             *string               `json:"currency"`
}

// List は契約一覧を返す。
// GET /api/contracts?clientId=
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	contracts, err := h.service.List(r.Context(), ws, r.URL.Query().Get("clientId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": mapSlice(contracts, toContractResponse)})
}

// Create は契約を作成する。
// POST /api/contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req createContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.service.Create(r.Context(), ws, contract.CreateInput{
		ClientID:             req.ClientID,
		Title:                req.Title,
		Status:               req.Status,
		HourlyRateCents:      req.HourlyRateCents,
		MonthlyRetainerCents: req.MonthlyRetainerCents,
		Currency:             req.Currency,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"contract": toContractResponse(c)})
}

// Update は契約を部分更新する。
// PATCH /api/contracts/{id}
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req updateContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.service.Update(r.Context(), ws, chi.URLParam(r, "id"), contract.UpdateInput{
		Title:                req.Title,
		Status:               req.Status,
		HourlyRateCents:      req.HourlyRateCents,
		MonthlyRetainerCents: req.MonthlyRetainerCents,
		Currency:             req.Currency,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contract": toContractResponse(c)})
}

// Delete は契約を削除する。
// DELETE /api/contracts/{id}
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
