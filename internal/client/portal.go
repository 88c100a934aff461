package client

import (
	"context"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// ActiveClientResolver はユーザーのアクティブクライアントを解決するインターフェース。
type ActiveClientResolver interface {
	ResolveActiveClient(ctx context.Context, userID, workspaceID string) (*model.ActiveClient, error)
}

// PortalReader はクライアントポータル向けの集計と一覧を取得するインターフェース。
type PortalReader interface {
	CountContractsByStatus(ctx context.Context, workspaceID, clientID string) ([]repository.ContractStatusCount, error)
	SummarizeInvoices(ctx context.Context, workspaceID, clientID string) ([]repository.InvoiceStatusSummary, error)
	ListInvoices(ctx context.Context, workspaceID, clientID string) ([]*model.ClientInvoice, error)
}

// Overview はクライアントポータルのダッシュボード内容。
type Overview struct {
	Client    *model.ActiveClient
	Contracts []repository.ContractStatusCount
	Invoices  []repository.InvoiceStatusSummary
}

// Portal はクライアントユーザー向けの読み取り専用ビューを提供する。
// 参照できるのはアクティブクライアントに紐づく契約と請求書だけ。
type Portal struct {
	resolver ActiveClientResolver
	reader   PortalReader
}

// NewPortal はPortalを生成する。
func NewPortal(resolver ActiveClientResolver, reader PortalReader) *Portal {
	return &Portal{resolver: resolver, reader: reader}
}

// Overview はアクティブクライアントの契約件数と請求書集計を返す。
func (p *Portal) Overview(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*Overview, error) {
	ac, err := p.activeClient(ctx, ws, userID)
	if err != nil {
		return nil, err
	}

	contracts, err := p.reader.CountContractsByStatus(ctx, ws.ID, ac.ID)
	if err != nil {
		return nil, fmt.Errorf("契約件数の取得に失敗しました: %w", err)
	}
	invoices, err := p.reader.SummarizeInvoices(ctx, ws.ID, ac.ID)
	if err != nil {
		return nil, fmt.Errorf("請求書集計の取得に失敗しました: %w", err)
	}
	return &Overview{Client: ac, Contracts: contracts, Invoices: invoices}, nil
}

// Invoices はアクティブクライアントの請求書を契約名付きで返す。
func (p *Portal) Invoices(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*model.ActiveClient, []*model.ClientInvoice, error) {
	ac, err := p.activeClient(ctx, ws, userID)
	if err != nil {
		return nil, nil, err
	}

	invoices, err := p.reader.ListInvoices(ctx, ws.ID, ac.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("請求書一覧の取得に失敗しました: %w", err)
	}
	return ac, invoices, nil
}

// activeClient はclientロールのワークスペースでのみクライアントを解決する。
func (p *Portal) activeClient(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*model.ActiveClient, error) {
	if ws == nil || ws.Role != model.WorkspaceRoleClient {
		return nil, model.NewClientNotAssignedError()
	}
	ac, err := p.resolver.ResolveActiveClient(ctx, userID, ws.ID)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, model.NewClientNotAssignedError()
	}
	return ac, nil
}
