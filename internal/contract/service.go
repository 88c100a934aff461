// Package contract は契約の管理を提供する。
package contract

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/retainerkit/internal/authz"
	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
	"github.com/hitoshi/retainerkit/internal/security"
)

const (
	// MaxTitleLength は契約名の最大文字数。
	MaxTitleLength = 160
	// MaxHourlyRateCents は契約に保存できる時間単価の上限。
	MaxHourlyRateCents int64 = 100_000_000
	// MaxMonthlyRetainerCents は月額リテイナーの上限。
	MaxMonthlyRetainerCents int64 = 1_000_000_000
)

// ClientFinder はクライアントをワークスペース内で取得するインターフェース。
type ClientFinder interface {
	FindByID(ctx context.Context, workspaceID, id string) (*model.Client, error)
}

// CreateInput は契約作成の入力。
type CreateInput struct {
	ClientID string
	Title    string
	// Status が空の場合はactive。
	Status               model.ContractStatus
	HourlyRateCents      *int64
	MonthlyRetainerCents *int64
	// Currency が空の場合はUSD。
	Currency string
}

// UpdateInput は契約の部分更新内容。
// 単価はSet=trueかつValue=nilで解除する。
type UpdateInput struct {
	Title                *string
	Status               *model.ContractStatus
	HourlyRateCents      model.NullableInt64
	MonthlyRetainerCents model.NullableInt64
	Currency             *string
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Status == nil && !in.HourlyRateCents.Set &&
		!in.MonthlyRetainerCents.Set && in.Currency == nil
}

// Service は契約のCRUDを提供する。すべての操作は契約者ロールに限られる。
type Service struct {
	contracts repository.ContractRepository
	clients   ClientFinder
	sanitizer security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(contracts repository.ContractRepository, clients ClientFinder, sanitizer security.TextSanitizer) *Service {
	return &Service{contracts: contracts, clients: clients, sanitizer: sanitizer}
}

// List は契約一覧を作成日時の降順で返す。clientIDが空でなければそのクライアントに絞る。
func (s *Service) List(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.Contract, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if clientID != "" && !model.IsValidID(clientID) {
		return nil, model.NewValidationError("Invalid clientId")
	}

	contracts, err := s.contracts.List(ctx, ws.ID, clientID)
	if err != nil {
		return nil, fmt.Errorf("契約一覧の取得に失敗しました: %w", err)
	}
	return contracts, nil
}

// Create は契約を作成する。クライアントは同じワークスペースに存在する必要がある。
func (s *Service) Create(ctx context.Context, ws *model.ActiveWorkspace, in CreateInput) (*model.Contract, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if !model.IsValidID(in.ClientID) {
		return nil, model.NewValidationError("clientId is required and must be a UUID.")
	}
	title, err := s.cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.ContractStatusActive
	}
	if _, err := model.ParseContractStatus(string(status)); err != nil {
		return nil, model.NewValidationError("Invalid status.")
	}
	currency := in.Currency
	if currency == "" {
		currency = billing.DefaultCurrency
	}
	if currency, err = billing.NormalizeCurrency(currency); err != nil {
		return nil, err
	}
	if err := validateRates(in.HourlyRateCents, in.MonthlyRetainerCents); err != nil {
		return nil, err
	}

	c, err := s.clients.FindByID(ctx, ws.ID, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewNotFoundError("Client")
	}

	contract, err := s.contracts.Create(ctx, &model.Contract{
		WorkspaceID:          ws.ID,
		ClientID:             c.ID,
		Title:                title,
		Status:               status,
		HourlyRateCents:      in.HourlyRateCents,
		MonthlyRetainerCents: in.MonthlyRetainerCents,
		Currency:             currency,
	})
	if err != nil {
		return nil, fmt.Errorf("契約の作成に失敗しました: %w", err)
	}

	slog.Info("contract created",
		slog.String("workspace_id", ws.ID),
		slog.String("contract_id", contract.ID),
		slog.String("client_id", c.ID),
	)
	return contract, nil
}

// Update は契約を部分更新する。
func (s *Service) Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in UpdateInput) (*model.Contract, error) {
	if err := authz.RequireContractorScope(ws); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, model.NewNoUpdatesError()
	}
	if !model.IsValidID(id) {
		return nil, model.NewValidationError("Invalid contract id.")
	}

	current, err := s.contracts.FindByID(ctx, ws.ID, id)
	if err != nil {
		return nil, fmt.Errorf("契約の取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewNotFoundError("Contract")
	}

	next := *current
	if in.Title != nil {
		if next.Title, err = s.cleanTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if _, err := model.ParseContractStatus(string(*in.Status)); err != nil {
			return nil, model.NewValidationError("Invalid status.")
		}
		next.Status = *in.Status
	}
	if in.Currency != nil {
		if next.Currency, err = billing.NormalizeCurrency(*in.Currency); err != nil {
			return nil, err
		}
	}
	if in.HourlyRateCents.Set {
		next.HourlyRateCents = in.HourlyRateCents.Value
	}
	if in.MonthlyRetainerCents.Set {
		next.MonthlyRetainerCents = in.MonthlyRetainerCents.Value
	}
	if err := validateRates(next.HourlyRateCents, next.MonthlyRetainerCents); err != nil {
		return nil, err
	}

	updated, err := s.contracts.Update(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("契約の更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewNotFoundError("Contract")
	}
	return updated, nil
}

// Delete は契約を削除する。ワークログと請求書も削除される。
func (s *Service) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if err := authz.RequireContractorScope(ws); err != nil {
		return err
	}
	if !model.IsValidID(id) {
		return model.NewValidationError("Invalid contract id.")
	}

	deleted, err := s.contracts.Delete(ctx, ws.ID, id)
	if err != nil {
		return fmt.Errorf("契約の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("Contract")
	}

	slog.Info("contract deleted",
		slog.String("workspace_id", ws.ID),
		slog.String("contract_id", id),
	)
	return nil
}

func (s *Service) cleanTitle(raw string) (string, error) {
	title := s.sanitizer.Clean(raw)
	if n := utf8.RuneCountInString(title); n < 1 || n > MaxTitleLength {
		return "", model.NewValidationError(fmt.Sprintf("Title must be 1–%d characters.", MaxTitleLength))
	}
	return title, nil
}

func validateRates(hourly, retainer *int64) error {
	if hourly != nil && (*hourly < 0 || *hourly > MaxHourlyRateCents) {
		return model.NewValidationError(fmt.Sprintf("hourlyRateCents must be an integer from 0 to %d.", MaxHourlyRateCents))
	}
	if retainer != nil && (*retainer < 0 || *retainer > MaxMonthlyRetainerCents) {
		return model.NewValidationError(fmt.Sprintf("monthlyRetainerCents must be an integer from 0 to %d.", MaxMonthlyRetainerCents))
	}
	return nil
}
