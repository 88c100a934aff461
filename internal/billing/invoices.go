package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retainerkit/internal/authz"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// CreateInvoiceInput は手動作成する請求書の入力。
type CreateInvoiceInput struct {
	ContractID  string
	PeriodStart model.Date
	PeriodEnd   model.Date
	AmountCents int64
	// Currency が空の場合は契約の通貨を使う。
	Currency string
	// Status が空の場合はdraft。
	Status model.InvoiceStatus
}

// UpdateInvoiceInput は請求書の部分更新内容。nilのフィールドは変更しない。
type UpdateInvoiceInput struct {
	PeriodStart *model.Date
	PeriodEnd   *model.Date
	AmountCents *int64
	Currency    *string
	Status      *model.InvoiceStatus
}

func (in UpdateInvoiceInput) empty() bool {
	return in.PeriodStart == nil && in.PeriodEnd == nil && in.AmountCents == nil &&
		in.Currency == nil && in.Status == nil
}

// InvoiceService は請求書の一覧・手動作成・更新・削除を提供する。
// すべての操作は契約者ロールに限られ、ワークスペースでスコープされる。
type InvoiceService struct {
	invoices  repository.InvoiceRepository
	contracts ContractFinder
}

// NewInvoiceService はInvoiceServiceを生成する。
func NewInvoiceService(invoices repository.InvoiceRepository, contracts ContractFinder) *InvoiceService {
	return &InvoiceService{invoices: invoices, contracts: contracts}
}

// List は請求書を期間終了日の降順で返す。contractIDが空でなければその契約に絞る。
func (s *InvoiceService) List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.Invoice, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if contractID != "" && !model.IsValidID(contractID) {
		return nil, model.NewValidationError("Invalid contract id.")
	}

	invoices, err := s.invoices.List(ctx, ws.ID, contractID)
	if err != nil {
		return nil, fmt.Errorf("請求書一覧の取得に失敗しました: %w", err)
	}
	return invoices, nil
}

// Create は請求書を手動で作成する。
func (s *InvoiceService) Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in CreateInvoiceInput) (*model.Invoice, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}

	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return nil, model.NewValidationError("periodStart and periodEnd are required (YYYY-MM-DD).")
	}
	if err := validatePeriod(in.PeriodStart, in.PeriodEnd); err != nil {
		return nil, err
	}
	if err := validateAmount(in.AmountCents); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.InvoiceStatusDraft
	}
	if _, err := model.ParseInvoiceStatus(string(status)); err != nil {
		return nil, model.NewValidationError("Invalid invoice status.")
	}

	if !model.IsValidID(in.ContractID) {
		return nil, model.NewValidationError("Invalid contract id.")
	}
	contract, err := s.contracts.FindByID(ctx, ws.ID, in.ContractID)
	if err != nil {
		return nil, fmt.Errorf("契約の取得に失敗しました: %w", err)
	}
	if contract == nil {
		return nil, model.NewNotFoundError("Contract")
	}

	currency := in.Currency
	if currency == "" {
		currency = contract.Currency
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	currency, err = NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.Create(ctx, &model.Invoice{
		WorkspaceID:     ws.ID,
		ContractID:      contract.ID,
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		AmountCents:     in.AmountCents,
		Currency:        currency,
		Status:          status,
		CreatedByUserID: userID,
	})
	if err != nil {
		return nil, mapInvoiceError(err, "請求書の作成に失敗しました")
	}

	slog.Info("invoice created",
		slog.String("workspace_id", ws.ID),
		slog.String("invoice_id", invoice.ID),
	)
	return invoice, nil
}

// Update は請求書を部分更新する。期間は変更後の値の組で再検証する。
func (s *InvoiceService) Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in UpdateInvoiceInput) (*model.Invoice, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, model.NewNoUpdatesError()
	}
	if !model.IsValidID(id) {
		return nil, model.NewValidationError("Invalid invoice id.")
	}

	current, err := s.invoices.FindByID(ctx, ws.ID, id)
	if err != nil {
		return nil, fmt.Errorf("請求書の取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewNotFoundError("Invoice")
	}

	next := *current
	if in.PeriodStart != nil {
		next.PeriodStart = *in.PeriodStart
	}
	if in.PeriodEnd != nil {
		next.PeriodEnd = *in.PeriodEnd
	}
	if err := validatePeriod(next.PeriodStart, next.PeriodEnd); err != nil {
		return nil, err
	}
	if in.AmountCents != nil {
		if err := validateAmount(*in.AmountCents); err != nil {
			return nil, err
		}
		next.AmountCents = *in.AmountCents
	}
	if in.Currency != nil {
		c, err := NormalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		next.Currency = c
	}
	if in.Status != nil {
		if _, err := model.ParseInvoiceStatus(string(*in.Status)); err != nil {
			return nil, model.NewValidationError("Invalid invoice status.")
		}
		next.Status = *in.Status
	}

	updated, err := s.invoices.Update(ctx, &next)
	if err != nil {
		return nil, mapInvoiceError(err, "請求書の更新に失敗しました")
	}
	if updated == nil {
		return nil, model.NewNotFoundError("Invoice")
	}
	return updated, nil
}

// Delete は請求書を削除する。
func (s *InvoiceService) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if err := authz.RequireContractorScope(ws); err != nil {
		return err
	}
	if !model.IsValidID(id) {
		return model.NewValidationError("Invalid invoice id.")
	}

	deleted, err := s.invoices.Delete(ctx, ws.ID, id)
	if err != nil {
		return fmt.Errorf("請求書の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("Invoice")
	}

	slog.Info("invoice deleted",
		slog.String("workspace_id", ws.ID),
		slog.String("invoice_id", id),
	)
	return nil
}

func validatePeriod(start, end model.Date) error {
	if start.After(end) {
		return model.NewValidationError("periodStart must be on or before periodEnd.")
	}
	return nil
}

func validateAmount(amount int64) error {
	if amount < 0 || amount > MaxAmountCents {
		return model.NewValidationError(fmt.Sprintf("amountCents must be between 0 and %d.", MaxAmountCents))
	}
	return nil
}

// mapInvoiceError は期間重複をConflictエラーに変換する。
func mapInvoiceError(err error, msg string) error {
	var overlap *repository.InvoiceOverlapError
	if errors.As(err, &overlap) {
		return model.NewInvoiceOverlapError(overlap.Start, overlap.End)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
