package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/model"
)

// InvoiceService は請求書CRUDのサービスインターフェース。
type InvoiceService interface {
	List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.Invoice, error)
	Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in billing.CreateInvoiceInput) (*model.Invoice, error)
	Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in billing.UpdateInvoiceInput) (*model.Invoice, error)
	Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

// InvoiceGenerator はワークログから請求書を生成するインターフェース。
type InvoiceGenerator interface {
	Generate(ctx context.Context, ws *model.ActiveWorkspace, userID string, req billing.GenerateRequest) (*billing.GenerateResult, error)
}

// InvoiceHandler は請求書のHTTPハンドラー。
type InvoiceHandler struct {
	service   InvoiceService
	generator InvoiceGenerator
}

// NewInvoiceHandler はInvoiceHandlerを生成する。
func NewInvoiceHandler(service InvoiceService, generator InvoiceGenerator) *InvoiceHandler {
	return &InvoiceHandler{service: service, generator: generator}
}

type createInvoiceRequest struct {
	ContractID  string              `json:"contractId"`
	PeriodStart model.Date          `json:"periodStart"`
	PeriodEnd   model.Date          `json:"periodEnd"`
	AmountCents int64               `json:"amountCents"`
	Currency    string              `json:"currency"`
	Status      model.InvoiceStatus `json:"status" validate:"omitempty,oneof=draft sent paid void"`
}

type updateInvoiceRequest struct {
	PeriodStart *model.Date          `json:"periodStart"`
	PeriodEnd   *model.Date          `json:"periodEnd"`
	AmountCents *int64               `json:"amountCents"`
	Currency    *string              `json:"currency"`
	Status      *model.InvoiceStatus `json:"status" validate:"omitempty,oneof=draft sent paid void"`
}

type generateInvoiceRequest struct {
	ContractID      string     `json:"contractId" validate:"required,uuid"`
	PeriodStart     model.Date `json:"periodStart" validate:"required"`
	PeriodEnd       model.Date `json:"periodEnd" validate:"required"`
	HourlyRateCents *int64     `json:"hourlyRateCents"`
	Currency        *string    `json:"currency"`
	Preview         bool       `json:"preview"`
}

type previewResponse struct {
	Preview breakdownResponse `json:"preview"`
}

type generatedResponse struct {
	Invoice   invoiceResponse   `json:"invoice"`
	Breakdown breakdownResponse `json:"breakdown"`
}

// List は請求書一覧を返す。
// GET /api/invoices?contractId=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	invoices, err := h.service.List(r.Context(), ws, r.URL.Query().Get("contractId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": mapSlice(invoices, toInvoiceResponse)})
}

// Create は請求書を手動で作成する。
// POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.service.Create(r.Context(), ws, userID, billing.CreateInvoiceInput{
		ContractID:  req.ContractID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Status:      req.Status,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"invoice": toInvoiceResponse(inv)})
}

// Update は請求書を部分更新する。
// PATCH /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req updateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.service.Update(r.Context(), ws, chi.URLParam(r, "id"), billing.UpdateInvoiceInput{
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Status:      req.Status,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": toInvoiceResponse(inv)})
}

// Delete は請求書を削除する。
// DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Generate は期間内のワークログから請求額を計算し、プレビューを返すか請求書を作成する。
// POST /api/invoices/generate
// プレビューは200 {preview}、作成は201 {invoice, breakdown}、期間重複は409。
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req generateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.generator.Generate(r.Context(), ws, userID, billing.GenerateRequest{
		ContractID:              req.ContractID,
		PeriodStart:             req.PeriodStart,
		PeriodEnd:               req.PeriodEnd,
		HourlyRateCentsOverride: req.HourlyRateCents,
		CurrencyOverride:        req.Currency,
		Preview:                 req.Preview,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	breakdown := toBreakdownResponse(res.Breakdown)
	if res.Invoice == nil {
		writeJSON(w, http.StatusOK, previewResponse{Preview: breakdown})
		return
	}
	writeJSON(w, http.StatusCreated, generatedResponse{
		Invoice:   toInvoiceResponse(res.Invoice),
		Breakdown: breakdown,
	})
}
