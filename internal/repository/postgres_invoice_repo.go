package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/database"
	"github.com/hitoshi/retainerkit/internal/model"
)

const invoiceColumns = `id, workspace_id, contract_id, period_start, period_end, amount_cents, currency, status,
	COALESCE(created_by_user_id::text, ''), created_at, updated_at`

const invoiceColumnsQualified = `i.id, i.workspace_id, i.contract_id, i.period_start, i.period_end, i.amount_cents,
	i.currency, i.status, COALESCE(i.created_by_user_id::text, ''), i.created_at, i.updated_at`

// PostgresInvoiceRepo はPostgreSQLを使用した請求書リポジトリ。
type PostgresInvoiceRepo struct {
	db *sql.DB
}

// NewPostgresInvoiceRepo はPostgresInvoiceRepoを生成する。
func NewPostgresInvoiceRepo(db *sql.DB) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{db: db}
}

func invoiceScanDest(inv *model.Invoice) []any {
	return []any{
		&inv.ID, &inv.WorkspaceID, &inv.ContractID, &inv.PeriodStart, &inv.PeriodEnd, &inv.AmountCents,
		&inv.Currency, &inv.Status, &inv.CreatedByUserID, &inv.CreatedAt, &inv.UpdatedAt,
	}
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	inv := &model.Invoice{}
	if err := row.Scan(invoiceScanDest(inv)...); err != nil {
		return nil, err
	}
	return inv, nil
}

// mapInvoiceWriteError は排他制約違反を*InvoiceOverlapErrorに変換する。
func mapInvoiceWriteError(err error, op string) error {
	if database.IsExclusionViolation(err) {
		return &InvoiceOverlapError{}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List はワークスペースの請求書を期間終了日の降順で返す。
func (r *PostgresInvoiceRepo) List(ctx context.Context, workspaceID, contractID string) ([]*model.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE workspace_id = $1 AND ($2 = '' OR contract_id::text = $2)
		 ORDER BY period_end DESC, created_at DESC`,
		workspaceID, contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("請求書一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	invoices := []*model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("請求書のスキャンに失敗しました: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("請求書一覧の読み取りに失敗しました: %w", err)
	}
	return invoices, nil
}

// FindByID は指定IDの請求書を取得する。見つからない場合はnilを返す。
func (r *PostgresInvoiceRepo) FindByID(ctx context.Context, workspaceID, id string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("請求書の取得に失敗しました: %w", err)
	}
	return inv, nil
}

const insertInvoiceSQL = `INSERT INTO invoices
	(workspace_id, contract_id, period_start, period_end, amount_cents, currency, status, created_by_user_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid)
	RETURNING ` + invoiceColumns

// Create は請求書をそのまま作成する。期間が重なる場合は*InvoiceOverlapErrorを返す。
func (r *PostgresInvoiceRepo) Create(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, insertInvoiceSQL,
		invoice.WorkspaceID, invoice.ContractID, invoice.PeriodStart, invoice.PeriodEnd,
		invoice.AmountCents, invoice.Currency, invoice.Status, invoice.CreatedByUserID,
	))
	if err != nil {
		return nil, mapInvoiceWriteError(err, "請求書の作成に失敗しました")
	}
	return inv, nil
}

// CreateGenerated は契約行をFOR UPDATEでロックしてから期間の重複を確認し、請求書を作成する。
// 同じ契約への並行した生成は契約行のロックで直列化されるため、重複確認と作成の間に
// 他の請求書が割り込むことはない。
func (r *PostgresInvoiceRepo) CreateGenerated(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	var created *model.Invoice
	err := database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var lockedID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM contracts WHERE workspace_id = $1 AND id = $2 FOR UPDATE`,
			invoice.WorkspaceID, invoice.ContractID,
		).Scan(&lockedID)
		if err == sql.ErrNoRows {
			return ErrContractNotFound
		}
		if err != nil {
			return fmt.Errorf("契約行のロックに失敗しました: %w", err)
		}

		var existingStart, existingEnd model.Date
		err = tx.QueryRowContext(ctx,
			`SELECT period_start, period_end
			 FROM invoices
			 WHERE workspace_id = $1 AND contract_id = $2
			   AND NOT (period_end < $3::date OR period_start > $4::date)
			 ORDER BY period_start
			 LIMIT 1`,
			invoice.WorkspaceID, invoice.ContractID, invoice.PeriodStart, invoice.PeriodEnd,
		).Scan(&existingStart, &existingEnd)
		if err == nil {
			return &InvoiceOverlapError{Start: existingStart, End: existingEnd}
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("請求期間の重複確認に失敗しました: %w", err)
		}

		inv, err := scanInvoice(tx.QueryRowContext(ctx, insertInvoiceSQL,
			invoice.WorkspaceID, invoice.ContractID, invoice.PeriodStart, invoice.PeriodEnd,
			invoice.AmountCents, invoice.Currency, invoice.Status, invoice.CreatedByUserID,
		))
		if err != nil {
			return mapInvoiceWriteError(err, "請求書の作成に失敗しました")
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update は請求書の期間・金額・通貨・ステータスを書き換える。見つからない場合はnilを返す。
func (r *PostgresInvoiceRepo) Update(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx,
		`UPDATE invoices SET
			period_start = $3,
			period_end = $4,
			amount_cents = $5,
			currency = $6,
			status = $7,
			updated_at = now()
		 WHERE workspace_id = $1 AND id = $2
		 RETURNING `+invoiceColumns,
		invoice.WorkspaceID, invoice.ID, invoice.PeriodStart, invoice.PeriodEnd,
		invoice.AmountCents, invoice.Currency, invoice.Status,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapInvoiceWriteError(err, "請求書の更新に失敗しました")
	}
	return inv, nil
}

// Delete は請求書を削除する。
func (r *PostgresInvoiceRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return false, fmt.Errorf("請求書の削除に失敗しました: %w", err)
	}
	return affected(result)
}

// compile-time interface check
var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)
