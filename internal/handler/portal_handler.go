package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/retainerkit/internal/client"
	"github.com/hitoshi/retainerkit/internal/model"
)

// PortalService はクライアントポータルの読み取りインターフェース。
type PortalService interface {
	Overview(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*client.Overview, error)
	Invoices(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*model.ActiveClient, []*model.ClientInvoice, error)
}

// PortalHandler はクライアントユーザー向けのHTTPハンドラー。
type PortalHandler struct {
	service PortalService
}

// NewPortalHandler はPortalHandlerを生成する。
func NewPortalHandler(service PortalService) *PortalHandler {
	return &PortalHandler{service: service}
}

type portalOverviewResponse struct {
	Client    activeClientResponse     `json:"client"`
	Contracts []contractCountResponse  `json:"contracts"`
	Invoices  []invoiceSummaryResponse `json:"invoices"`
}

type portalInvoicesResponse struct {
	Client   activeClientResponse `json:"client"`
	Invoices []invoiceResponse    `json:"invoices"`
}

// Overview はアクティブクライアントの契約件数と請求書集計を返す。
// GET /api/portal/overview
func (h *PortalHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	ov, err := h.service.Overview(r.Context(), ws, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portalOverviewResponse{
		Client:    toActiveClientResponse(ov.Client),
		Contracts: toContractCounts(ov.Contracts),
		Invoices:  toInvoiceSummaries(ov.Invoices),
	})
}

// Invoices はアクティブクライアントの請求書を契約名付きで返す。
// GET /api/portal/invoices
func (h *PortalHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	userID, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	active, invoices, err := h.service.Invoices(r.Context(), ws, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portalInvoicesResponse{
		Client: toActiveClientResponse(active),
		Invoices: mapSlice(invoices, func(ci *model.ClientInvoice) invoiceResponse {
			resp := toInvoiceResponse(&ci.Invoice)
			resp.ContractTitle = ci.ContractTitle
			return resp
		}),
	})
}
