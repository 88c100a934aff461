package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retainerkit/internal/authz"
	"github.com/hitoshi/retainerkit/internal/metrics"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// ContractFinder は契約をワークスペース内で取得するインターフェース。
type ContractFinder interface {
	FindByID(ctx context.Context, workspaceID, id string) (*model.Contract, error)
}

// MinutesSummer は契約の期間内の作業分数を合計するインターフェース。
type MinutesSummer interface {
	SumMinutes(ctx context.Context, workspaceID, contractID string, start, end model.Date) (int64, error)
}

// GeneratedInvoiceCreator は重複確認付きで生成請求書を保存するインターフェース。
type GeneratedInvoiceCreator interface {
	CreateGenerated(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)
}

// GenerateRequest は請求書生成の入力。
type GenerateRequest struct {
	ContractID  string
	PeriodStart model.Date
	PeriodEnd   model.Date
	// HourlyRateCentsOverride は契約の時間単価の代わりに使う単価。nilなら契約の単価。
	HourlyRateCentsOverride *int64
	// CurrencyOverride は契約の通貨の代わりに使う通貨。nilなら契約の通貨。
	CurrencyOverride *string
	// Preview がtrueの場合は計算結果のみ返し、保存しない。
	Preview bool
}

// Breakdown は請求額の計算内訳。プレビューと保存で同じ値になる。
type Breakdown struct {
	ContractID      string
	PeriodStart     model.Date
	PeriodEnd       model.Date
	TotalMinutes    int64
	HourlyRateCents int64
	Currency        string
	AmountCents     int64
}

// GenerateResult は請求書生成の結果。プレビューの場合Invoiceはnil。
type GenerateResult struct {
	Breakdown Breakdown
	Invoice   *model.Invoice
}

// Engine は契約の作業時間から請求書を生成する。
type Engine struct {
	contracts ContractFinder
	entries   MinutesSummer
	invoices  GeneratedInvoiceCreator
	metrics   metrics.MetricsCollector
}

// NewEngine はEngineを生成する。
func NewEngine(
	contracts ContractFinder,
	entries MinutesSummer,
	invoices GeneratedInvoiceCreator,
	collector metrics.MetricsCollector,
) *Engine {
	return &Engine{
		contracts: contracts,
		entries:   entries,
		invoices:  invoices,
		metrics:   metrics.OrNop(collector),
	}
}

// Generate は指定期間の作業時間から請求額を計算し、Previewでなければ下書き請求書として保存する。
// 同じ契約で期間（両端を含む）が1日でも重なる請求書がある場合はConflictエラーを返す。
func (e *Engine) Generate(ctx context.Context, ws *model.ActiveWorkspace, userID string, req GenerateRequest) (*GenerateResult, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}

	breakdown, err := e.compute(ctx, ws, req)
	if err != nil {
		return nil, err
	}

	if req.Preview {
		e.metrics.RecordInvoicePreview()
		return &GenerateResult{Breakdown: *breakdown}, nil
	}

	invoice, err := e.invoices.CreateGenerated(ctx, &model.Invoice{
		WorkspaceID:     ws.ID,
		ContractID:      breakdown.ContractID,
		PeriodStart:     breakdown.PeriodStart,
		PeriodEnd:       breakdown.PeriodEnd,
		AmountCents:     breakdown.AmountCents,
		Currency:        breakdown.Currency,
		Status:          model.InvoiceStatusDraft,
		CreatedByUserID: userID,
	})
	if err != nil {
		var overlap *repository.InvoiceOverlapError
		switch {
		case errors.As(err, &overlap):
			e.metrics.RecordInvoiceOverlap()
			return nil, model.NewInvoiceOverlapError(overlap.Start, overlap.End)
		case errors.Is(err, repository.ErrContractNotFound):
			// 計算後に契約が削除された場合
			return nil, model.NewNotFoundError("Contract")
		default:
			return nil, fmt.Errorf("請求書の保存に失敗しました: %w", err)
		}
	}

	e.metrics.RecordInvoiceGenerated(invoice.Currency, invoice.AmountCents)
	slog.Info("invoice generated",
		slog.String("workspace_id", ws.ID),
		slog.String("contract_id", invoice.ContractID),
		slog.String("invoice_id", invoice.ID),
		slog.String("period_start", invoice.PeriodStart.String()),
		slog.String("period_end", invoice.PeriodEnd.String()),
		slog.Int64("amount_cents", invoice.AmountCents),
	)

	return &GenerateResult{Breakdown: *breakdown, Invoice: invoice}, nil
}

// compute はプレビューと保存の両方で使う計算処理。
func (e *Engine) compute(ctx context.Context, ws *model.ActiveWorkspace, req GenerateRequest) (*Breakdown, error) {
	// 1. 期間の検証
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return nil, model.NewValidationError("periodStart and periodEnd are required (YYYY-MM-DD).")
	}
	if req.PeriodStart.After(req.PeriodEnd) {
		return nil, model.NewValidationError("periodStart must be on or before periodEnd.")
	}

	// 2. 契約の取得
	if !model.IsValidID(req.ContractID) {
		return nil, model.NewValidationError("Invalid contract id.")
	}
	contract, err := e.contracts.FindByID(ctx, ws.ID, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("契約の取得に失敗しました: %w", err)
	}
	if contract == nil {
		return nil, model.NewNotFoundError("Contract")
	}

	// 3. 時間単価の決定
	rate := contract.HourlyRateCents
	if req.HourlyRateCentsOverride != nil {
		rate = req.HourlyRateCentsOverride
	}
	if rate == nil {
		return nil, model.NewHourlyRateMissingError()
	}
	if *rate <= 0 || *rate > MaxHourlyRateCents {
		return nil, model.NewValidationError(fmt.Sprintf("Hourly rate must be between 1 and %d.", MaxHourlyRateCents))
	}

	// 4. 通貨の決定
	currency := DefaultCurrency
	if contract.Currency != "" {
		currency = contract.Currency
	}
	if req.CurrencyOverride != nil {
		currency = *req.CurrencyOverride
	}
	currency, err = NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	// 5. 作業分数の集計と金額計算
	minutes, err := e.entries.SumMinutes(ctx, ws.ID, contract.ID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("作業時間の集計に失敗しました: %w", err)
	}

	return &Breakdown{
		ContractID:      contract.ID,
		PeriodStart:     req.PeriodStart,
		PeriodEnd:       req.PeriodEnd,
		TotalMinutes:    minutes,
		HourlyRateCents: *rate,
		Currency:        currency,
		AmountCents:     ComputeAmountCents(minutes, *rate),
	}, nil
}
