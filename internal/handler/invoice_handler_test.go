package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/model"
)

const januaryGenerateBody = `{"contractId":"` + testContractID + `","periodStart":"2024-01-01","periodEnd":"2024-01-31"}`

func januaryBreakdown() billing.Breakdown {
	return billing.Breakdown{
		ContractID:      testContractID,
		PeriodStart:     model.NewDate(2024, 1, 1),
		PeriodEnd:       model.NewDate(2024, 1, 31),
		TotalMinutes:    90,
		HourlyRateCents: 10000,
		Currency:        "USD",
		AmountCents:     15000,
	}
}

func TestInvoiceHandler_GeneratePreview(t *testing.T) {
	var got billing.GenerateRequest
	h := NewInvoiceHandler(&mockInvoiceService{}, &mockInvoiceGenerator{
		generateFn: func(_ context.Context, _ *model.ActiveWorkspace, _ string, req billing.GenerateRequest) (*billing.GenerateResult, error) {
			got = req
			return &billing.GenerateResult{Breakdown: januaryBreakdown()}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Generate(w, newScopedRequest(http.MethodPost, "/api/invoices/generate",
		`{"contractId":"`+testContractID+`","periodStart":"2024-01-01","periodEnd":"2024-01-31","hourlyRateCents":12000,"currency":"eur","preview":true}`, ownerWS))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !got.Preview || got.HourlyRateCentsOverride == nil || *got.HourlyRateCentsOverride != 12000 || *got.CurrencyOverride != "eur" {
		t.Errorf("request = %+v", got)
	}
	body := decodeBody[map[string]map[string]any](t, w)
	preview, ok := body["preview"]
	if !ok {
		t.Fatalf("body has no preview: %v", body)
	}
	if preview["amountCents"] != float64(15000) || preview["totalMinutes"] != float64(90) || preview["periodEnd"] != "2024-01-31" {
		t.Errorf("preview = %v", preview)
	}
}

func TestInvoiceHandler_GeneratePersisted(t *testing.T) {
	var gotUser string
	h := NewInvoiceHandler(&mockInvoiceService{}, &mockInvoiceGenerator{
		generateFn: func(_ context.Context, _ *model.ActiveWorkspace, userID string, req billing.GenerateRequest) (*billing.GenerateResult, error) {
			gotUser = userID
			b := januaryBreakdown()
			return &billing.GenerateResult{
				Breakdown: b,
				Invoice: &model.Invoice{
					ID:          testInvoiceID,
					ContractID:  b.ContractID,
					PeriodStart: b.PeriodStart,
					PeriodEnd:   b.PeriodEnd,
					AmountCents: b.AmountCents,
					Currency:    b.Currency,
					Status:      model.InvoiceStatusDraft,
				},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Generate(w, newScopedRequest(http.MethodPost, "/api/invoices/generate", januaryGenerateBody, ownerWS))

	if w.Code != http.StatusCreated || gotUser != testUserID {
		t.Fatalf("status = %d, user = %q", w.Code, gotUser)
	}
	body := decodeBody[generatedResponse](t, w)
	if body.Invoice.ID != testInvoiceID || body.Invoice.Status != model.InvoiceStatusDraft {
		t.Errorf("invoice = %+v", body.Invoice)
	}
	if body.Invoice.AmountCents != body.Breakdown.AmountCents {
		t.Errorf("invoice amount %d != breakdown %d", body.Invoice.AmountCents, body.Breakdown.AmountCents)
	}
}

func TestInvoiceHandler_GenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		ws         *model.ActiveWorkspace
		genErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "overlap",
			body:       januaryGenerateBody,
			ws:         ownerWS,
			genErr:     model.NewInvoiceOverlapError(model.NewDate(2024, 1, 15), model.NewDate(2024, 2, 14)),
			wantStatus: http.StatusConflict,
			wantCode:   model.ErrCodeInvoiceOverlap,
		},
		{
			name:       "rate missing",
			body:       januaryGenerateBody,
			ws:         ownerWS,
			genErr:     model.NewHourlyRateMissingError(),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeRateMissing,
		},
		{
			name:       "client role",
			body:       januaryGenerateBody,
			ws:         clientWS,
			genErr:     model.NewForbiddenError(),
			wantStatus: http.StatusForbidden,
			wantCode:   model.ErrCodeForbidden,
		},
		{
			name:       "contract id not a uuid",
			body:       `{"contractId":"abc","periodStart":"2024-01-01","periodEnd":"2024-01-31"}`,
			ws:         ownerWS,
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "missing period end",
			body:       `{"contractId":"` + testContractID + `","periodStart":"2024-01-01"}`,
			ws:         ownerWS,
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidation,
		},
		{
			name:       "impossible date",
			body:       `{"contractId":"` + testContractID + `","periodStart":"2024-02-30","periodEnd":"2024-03-01"}`,
			ws:         ownerWS,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInvoiceHandler(&mockInvoiceService{}, &mockInvoiceGenerator{
				generateFn: func(context.Context, *model.ActiveWorkspace, string, billing.GenerateRequest) (*billing.GenerateResult, error) {
					if tt.genErr == nil {
						t.Error("generator reached")
					}
					return nil, tt.genErr
				},
			})
			w := httptest.NewRecorder()
			h.Generate(w, newScopedRequest(http.MethodPost, "/api/invoices/generate", tt.body, tt.ws))
			assertErrorCode(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestInvoiceHandler_CRUD(t *testing.T) {
	var (
		created billing.CreateInvoiceInput
		updated billing.UpdateInvoiceInput
	)
	h := NewInvoiceHandler(&mockInvoiceService{
		listFn: func(_ context.Context, _ *model.ActiveWorkspace, contractID string) ([]*model.Invoice, error) {
			return []*model.Invoice{{ID: testInvoiceID, ContractID: contractID, Status: model.InvoiceStatusSent}}, nil
		},
		createFn: func(_ context.Context, _ *model.ActiveWorkspace, _ string, in billing.CreateInvoiceInput) (*model.Invoice, error) {
			created = in
			return &model.Invoice{ID: testInvoiceID, ContractID: in.ContractID}, nil
		},
		updateFn: func(_ context.Context, _ *model.ActiveWorkspace, id string, in billing.UpdateInvoiceInput) (*model.Invoice, error) {
			updated = in
			return &model.Invoice{ID: id, Status: *in.Status}, nil
		},
	}, &mockInvoiceGenerator{})

	w := httptest.NewRecorder()
	h.List(w, newScopedRequest(http.MethodGet, "/api/invoices?contractId="+testContractID, nil, ownerWS))
	body := decodeBody[struct {
		Invoices []invoiceResponse `json:"invoices"`
	}](t, w)
	if len(body.Invoices) != 1 || body.Invoices[0].ContractID != testContractID {
		t.Errorf("invoices = %+v", body.Invoices)
	}

	w = httptest.NewRecorder()
	h.Create(w, newScopedRequest(http.MethodPost, "/api/invoices",
		`{"contractId":"`+testContractID+`","periodStart":"2024-04-01","periodEnd":"2024-04-30","amountCents":99900}`, ownerWS))
	if w.Code != http.StatusCreated || created.AmountCents != 99900 || !created.PeriodEnd.Equal(model.NewDate(2024, 4, 30)) {
		t.Fatalf("status = %d, input = %+v", w.Code, created)
	}

	w = httptest.NewRecorder()
	h.Update(w, withChiURLParam(newScopedRequest(http.MethodPatch, "/api/invoices/"+testInvoiceID, `{"status":"paid"}`, ownerWS), "id", testInvoiceID))
	if w.Code != http.StatusOK || updated.Status == nil || *updated.Status != model.InvoiceStatusPaid || updated.AmountCents != nil {
		t.Fatalf("status = %d, input = %+v", w.Code, updated)
	}

	w = httptest.NewRecorder()
	h.Update(w, withChiURLParam(newScopedRequest(http.MethodPatch, "/api/invoices/"+testInvoiceID, `{"status":"overdue"}`, ownerWS), "id", testInvoiceID))
	assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)

	w = httptest.NewRecorder()
	h.Delete(w, withChiURLParam(newScopedRequest(http.MethodDelete, "/api/invoices/"+testInvoiceID, nil, ownerWS), "id", testInvoiceID))
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
}
