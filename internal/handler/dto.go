package handler

import (
	"time"

	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// --- レスポンス ---

type userResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Image *string `json:"image,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Image}
}

type workspaceResponse struct {
	ID   string              `json:"id"`
	Name string              `json:"name"`
	Role model.WorkspaceRole `json:"role"`
}

type clientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toClientResponse(c *model.Client) clientResponse {
	return clientResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

type clientMemberResponse struct {
	ClientID   string           `json:"client_id"`
	UserID     string           `json:"user_id"`
	Email      string           `json:"email"`
	Name       *string          `json:"name"`
	ClientRole model.ClientRole `json:"client_role"`
	CreatedAt  time.Time        `json:"created_at"`
}

func toClientMemberResponse(m *model.ClientMember) clientMemberResponse {
	return clientMemberResponse{
		ClientID:   m.ClientID,
		UserID:     m.UserID,
		Email:      m.Email,
		Name:       m.Name,
		ClientRole: m.Role,
		CreatedAt:  m.CreatedAt,
	}
}

type contractResponse struct {
	ID                   string               `json:"id"`
	ClientID             string               `json:"client_id"`
	Title                string               `json:"title"`
	Status               model.ContractStatus `json:"status"`
	HourlyRateCents      *int64               `json:"hourly_rate_cents"`
	MonthlyRetainerCents *int64               `json:"monthly_retainer_cents"`
	Currency             string               `json:"currency"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func toContractResponse(c *model.Contract) contractResponse {
	return contractResponse{
		ID:                   c.ID,
		ClientID:             c.ClientID,
		Title:                c.Title,
		Status:               c.Status,
		HourlyRateCents:      c.HourlyRateCents,
		MonthlyRetainerCents: c.MonthlyRetainerCents,
		Currency:             c.Currency,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

type workLogResponse struct {
	ID              string     `json:"id"`
	ContractID      string     `json:"contract_id"`
	WorkDate        model.Date `json:"work_date"`
	Minutes         int        `json:"minutes"`
	Description     string     `json:"description"`
	CreatedByUserID string     `json:"created_by_user_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toWorkLogResponse(e *model.TimeEntry) workLogResponse {
	return workLogResponse{
		ID:              e.ID,
		ContractID:      e.ContractID,
		WorkDate:        e.WorkDate,
		Minutes:         e.Minutes,
		Description:     e.Description,
		CreatedByUserID: e.CreatedByUserID,
		CreatedAt:       e.CreatedAt,
	}
}

type invoiceResponse struct {
	ID            string              `json:"id"`
	ContractID    string              `json:"contract_id"`
	ContractTitle string              `json:"contract_title,omitempty"`
	PeriodStart   model.Date          `json:"period_start"`
	PeriodEnd     model.Date          `json:"period_end"`
	AmountCents   int64               `json:"amount_cents"`
	Currency      string              `json:"currency"`
	Status        model.InvoiceStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toInvoiceResponse(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		ContractID:  inv.ContractID,
		PeriodStart: inv.PeriodStart,
		PeriodEnd:   inv.PeriodEnd,
		AmountCents: inv.AmountCents,
		Currency:    inv.Currency,
		Status:      inv.Status,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

// breakdownResponse は請求額の計算内訳。リクエストと同じcamelCaseで返す。
type breakdownResponse struct {
	ContractID      string     `json:"contractId"`
	PeriodStart     model.Date `json:"periodStart"`
	PeriodEnd       model.Date `json:"periodEnd"`
	TotalMinutes    int64      `json:"totalMinutes"`
	HourlyRateCents int64      `json:"hourlyRateCents"`
	AmountCents     int64      `json:"amountCents"`
	Currency        string     `json:"currency"`
}

func toBreakdownResponse(b billing.Breakdown) breakdownResponse {
	return breakdownResponse{
		ContractID:      b.ContractID,
		PeriodStart:     b.PeriodStart,
		PeriodEnd:       b.PeriodEnd,
		TotalMinutes:    b.TotalMinutes,
		HourlyRateCents: b.HourlyRateCents,
		AmountCents:     b.AmountCents,
		Currency:        b.Currency,
	}
}

type activeClientResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	ClientRole model.ClientRole `json:"client_role"`
}

func toActiveClientResponse(c *model.ActiveClient) activeClientResponse {
	return activeClientResponse{ID: c.ID, Name: c.Name, ClientRole: c.Role}
}

type contractCountResponse struct {
	Status model.ContractStatus `json:"status"`
	Count  int                  `json:"count"`
}

type invoiceSummaryResponse struct {
	Status      model.InvoiceStatus `json:"status"`
	Currency    string              `json:"currency"`
	Count       int                 `json:"count"`
	AmountCents int64               `json:"amount_cents"`
}

func toContractCounts(counts []repository.ContractStatusCount) []contractCountResponse {
	out := make([]contractCountResponse, 0, len(counts))
	for _, c := range counts {
		out = append(out, contractCountResponse{Status: c.Status, Count: c.Count})
	}
	return out
}

func toInvoiceSummaries(sums []repository.InvoiceStatusSummary) []invoiceSummaryResponse {
	out := make([]invoiceSummaryResponse, 0, len(sums))
	for _, s := range sums {
		out = append(out, invoiceSummaryResponse{Status: s.Status, Currency: s.Currency, Count: s.Count, AmountCents: s.AmountCents})
	}
	return out
}

// mapSlice はスライスの各要素をレスポンス型に変換する。nilの場合も空配列を返す。
func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
