package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
)

const timeEntryColumns = `id, workspace_id, contract_id, work_date, minutes, description,
	COALESCE(created_by_user_id::text, ''), created_at, updated_at`

// PostgresTimeEntryRepo はPostgreSQLを使用したワークログリポジトリ。
type PostgresTimeEntryRepo struct {
	db *sql.DB
}

// NewPostgresTimeEntryRepo はPostgresTimeEntryRepoを生成する。
func NewPostgresTimeEntryRepo(db *sql.DB) *PostgresTimeEntryRepo {
	return &PostgresTimeEntryRepo{db: db}
}

func scanTimeEntry(row rowScanner) (*model.TimeEntry, error) {
	e := &model.TimeEntry{}
	err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.ContractID, &e.WorkDate, &e.Minutes, &e.Description,
		&e.CreatedByUserID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List はワークログを作業日の降順で返す。contractIDが空でなければその契約に絞る。
func (r *PostgresTimeEntryRepo) List(ctx context.Context, workspaceID, contractID string, limit int) ([]*model.TimeEntry, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timeEntryColumns+`
		 FROM work_logs
		 WHERE workspace_id = $1 AND ($2 = '' OR contract_id::text = $2)
		 ORDER BY work_date DESC, created_at DESC
		 LIMIT $3`,
		workspaceID, contractID, limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("ワークログ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []*model.TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ワークログのスキャンに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ワークログ一覧の読み取りに失敗しました: %w", err)
	}
	return entries, nil
}

// Create はワークログを作成する。
func (r *PostgresTimeEntryRepo) Create(ctx context.Context, entry *model.TimeEntry) (*model.TimeEntry, error) {
	e, err := scanTimeEntry(r.db.QueryRowContext(ctx,
		`INSERT INTO work_logs (workspace_id, contract_id, work_date, minutes, description, created_by_user_id)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
		 RETURNING `+timeEntryColumns,
		entry.WorkspaceID, entry.ContractID, entry.WorkDate, entry.Minutes, entry.Description, entry.CreatedByUserID,
	))
	if err != nil {
		return nil, fmt.Errorf("ワークログの作成に失敗しました: %w", err)
	}
	return e, nil
}

// Delete はワークログを削除する。
func (r *PostgresTimeEntryRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM work_logs WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return false, fmt.Errorf("ワークログの削除に失敗しました: %w", err)
	}
	return affected(result)
}

// SumMinutes は契約の期間内（両端を含む）の作業分数の合計を返す。該当なしは0。
func (r *PostgresTimeEntryRepo) SumMinutes(ctx context.Context, workspaceID, contractID string, start, end model.Date) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(minutes), 0)
		 FROM work_logs
		 WHERE workspace_id = $1 AND contract_id = $2
		   AND work_date BETWEEN $3::date AND $4::date`,
		workspaceID, contractID, start, end,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("作業分数の集計に失敗しました: %w", err)
	}
	return total, nil
}

// compile-time interface check
var _ TimeEntryRepository = (*PostgresTimeEntryRepo)(nil)
