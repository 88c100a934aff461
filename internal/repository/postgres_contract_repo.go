package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
)

const contractColumns = `id, workspace_id, client_id, title, status,
	hourly_rate_cents, monthly_retainer_cents, currency, created_at, updated_at`

// PostgresContractRepo はPostgreSQLを使用した契約リポジトリ。
type PostgresContractRepo struct {
	db *sql.DB
}

// NewPostgresContractRepo はPostgresContractRepoを生成する。
func NewPostgresContractRepo(db *sql.DB) *PostgresContractRepo {
	return &PostgresContractRepo{db: db}
}

func scanContract(row rowScanner) (*model.Contract, error) {
	c := &model.Contract{}
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.ClientID, &c.Title, &c.Status,
		&c.HourlyRateCents, &c.MonthlyRetainerCents, &c.Currency, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List はワークスペースの契約一覧を作成日時の降順で返す。clientIDが空でなければ絞り込む。
func (r *PostgresContractRepo) List(ctx context.Context, workspaceID, clientID string) ([]*model.Contract, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts
		 WHERE workspace_id = $1 AND ($2 = '' OR client_id::text = $2)
		 ORDER BY created_at DESC, id`,
		workspaceID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("契約一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	contracts := []*model.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("契約のスキャンに失敗しました: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("契約一覧の読み取りに失敗しました: %w", err)
	}
	return contracts, nil
}

// FindByID は指定IDの契約を取得する。見つからない場合はnilを返す。
func (r *PostgresContractRepo) FindByID(ctx context.Context, workspaceID, id string) (*model.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("契約の取得に失敗しました: %w", err)
	}
	return c, nil
}

// Create は契約を作成する。
func (r *PostgresContractRepo) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx,
		`INSERT INTO contracts (workspace_id, client_id, title, status, hourly_rate_cents, monthly_retainer_cents, currency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+contractColumns,
		contract.WorkspaceID, contract.ClientID, contract.Title, contract.Status,
		contract.HourlyRateCents, contract.MonthlyRetainerCents, contract.Currency,
	))
	if err != nil {
		return nil, fmt.Errorf("契約の作成に失敗しました: %w", err)
	}
	return c, nil
}

// Update は契約の全項目を書き換える。見つからない場合はnilを返す。
func (r *PostgresContractRepo) Update(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx,
		`UPDATE contracts SET
			title = $3,
			status = $4,
			hourly_rate_cents = $5,
			monthly_retainer_cents = $6,
			currency = $7,
			updated_at = now()
		 WHERE workspace_id = $1 AND id = $2
		 RETURNING `+contractColumns,
		contract.WorkspaceID, contract.ID, contract.Title, contract.Status,
		contract.HourlyRateCents, contract.MonthlyRetainerCents, contract.Currency,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("契約の更新に失敗しました: %w", err)
	}
	return c, nil
}

// Delete は契約を削除する。ワークログ・請求書はCASCADE削除される。
func (r *PostgresContractRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contracts WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return false, fmt.Errorf("契約の削除に失敗しました: %w", err)
	}
	return affected(result)
}

// compile-time interface check
var _ ContractRepository = (*PostgresContractRepo)(nil)
