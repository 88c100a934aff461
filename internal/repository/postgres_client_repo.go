package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/database"
	"github.com/hitoshi/retainerkit/internal/model"
)

// PostgresClientRepo はPostgreSQLを使用したクライアントリポジトリ。
type PostgresClientRepo struct {
	db *sql.DB
}

// NewPostgresClientRepo はPostgresClientRepoを生成する。
func NewPostgresClientRepo(db *sql.DB) *PostgresClientRepo {
	return &PostgresClientRepo{db: db}
}

func scanClient(row rowScanner) (*model.Client, error) {
	c := &model.Client{}
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// List はワークスペースのクライアント一覧を作成日時の降順で返す。
func (r *PostgresClientRepo) List(ctx context.Context, workspaceID string) ([]*model.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, created_at
		 FROM clients
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC, id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("クライアント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	clients := []*model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("クライアントのスキャンに失敗しました: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("クライアント一覧の読み取りに失敗しました: %w", err)
	}
	return clients, nil
}

// FindByID は指定IDのクライアントを取得する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) FindByID(ctx context.Context, workspaceID, id string) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, created_at
		 FROM clients
		 WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クライアントの取得に失敗しました: %w", err)
	}
	return c, nil
}

// Create はクライアントを作成する。
func (r *PostgresClientRepo) Create(ctx context.Context, workspaceID, name string) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`INSERT INTO clients (workspace_id, name)
		 VALUES ($1, $2)
		 RETURNING id, workspace_id, name, created_at`,
		workspaceID, name,
	))
	if err != nil {
		return nil, fmt.Errorf("クライアントの作成に失敗しました: %w", err)
	}
	return c, nil
}

// Rename はクライアント名を変更する。見つからない場合はnilを返す。
func (r *PostgresClientRepo) Rename(ctx context.Context, workspaceID, id, name string) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`UPDATE clients SET name = $3, updated_at = now()
		 WHERE workspace_id = $1 AND id = $2
		 RETURNING id, workspace_id, name, created_at`,
		workspaceID, id, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クライアント名の更新に失敗しました: %w", err)
	}
	return c, nil
}

// Delete はクライアントを削除する。契約・ワークログ・請求書はCASCADE削除される。
func (r *PostgresClientRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM clients WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return false, fmt.Errorf("クライアントの削除に失敗しました: %w", err)
	}
	return affected(result)
}

// ListMembers はクライアントのメンバー一覧を追加日時の昇順で返す。
func (r *PostgresClientRepo) ListMembers(ctx context.Context, workspaceID, clientID string) ([]*model.ClientMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cm.client_id, cm.user_id, u.email, u.name, cm.client_role, cm.created_at
		 FROM client_members cm
		 JOIN clients c ON c.id = cm.client_id
		 JOIN users u ON u.id = cm.user_id
		 WHERE c.workspace_id = $1 AND cm.client_id = $2
		 ORDER BY cm.created_at, cm.user_id`,
		workspaceID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("クライアントメンバー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	members := []*model.ClientMember{}
	for rows.Next() {
		m := &model.ClientMember{}
		if err := rows.Scan(&m.ClientID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("クライアントメンバーのスキャンに失敗しました: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("クライアントメンバー一覧の読み取りに失敗しました: %w", err)
	}
	return members, nil
}

// UpsertMember はメンバーを追加する。既に所属している場合はロールを更新する。
// 同じトランザクションでワークスペースにclientロールで参加させる。
// 既に別ロールで所属している場合はワークスペース側のロールを変えない。
func (r *PostgresClientRepo) UpsertMember(ctx context.Context, workspaceID, clientID, userID string, role model.ClientRole) error {
	return database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO client_members (client_id, user_id, client_role)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (client_id, user_id) DO UPDATE SET client_role = EXCLUDED.client_role`,
			clientID, userID, role,
		)
		if err != nil {
			return fmt.Errorf("クライアントメンバーの追加に失敗しました: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO workspace_members (workspace_id, user_id, role)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (workspace_id, user_id) DO NOTHING`,
			workspaceID, userID, model.WorkspaceRoleClient,
		)
		if err != nil {
			return fmt.Errorf("ワークスペースへのクライアント参加に失敗しました: %w", err)
		}
		return nil
	})
}

// RemoveMember はメンバーを外す。クライアントがワークスペース外の場合は何もしない。
// ワークスペース内のどのクライアントにも所属しなくなった場合はclientロールの所属も外す。
func (r *PostgresClientRepo) RemoveMember(ctx context.Context, workspaceID, clientID, userID string) (bool, error) {
	var removed bool
	err := database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM client_members cm
			 USING clients c
			 WHERE c.id = cm.client_id AND c.workspace_id = $1
			   AND cm.client_id = $2 AND cm.user_id = $3`,
			workspaceID, clientID, userID,
		)
		if err != nil {
			return fmt.Errorf("クライアントメンバーの削除に失敗しました: %w", err)
		}
		removed, err = affected(result)
		if err != nil || !removed {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM workspace_members wm
			 WHERE wm.workspace_id = $1 AND wm.user_id = $2 AND wm.role = $3
			   AND NOT EXISTS (
			     SELECT 1 FROM client_members cm
			     JOIN clients c ON c.id = cm.client_id
			     WHERE c.workspace_id = $1 AND cm.user_id = $2
			   )`,
			workspaceID, userID, model.WorkspaceRoleClient,
		)
		if err != nil {
			return fmt.Errorf("ワークスペースからのクライアント脱退に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ResolveActive はユーザーが所属する最初のクライアントを返す。
// 所属日時、クライアント作成日時、クライアントIDの順で決定的に1件を選ぶ。
func (r *PostgresClientRepo) ResolveActive(ctx context.Context, userID, workspaceID string) (*model.ActiveClient, error) {
	ac := &model.ActiveClient{}
	err := r.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, cm.client_role
		 FROM client_members cm
		 JOIN clients c ON c.id = cm.client_id
		 WHERE cm.user_id = $1 AND c.workspace_id = $2
		 ORDER BY cm.created_at, c.created_at, c.id
		 LIMIT 1`,
		userID, workspaceID,
	).Scan(&ac.ID, &ac.Name, &ac.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クライアントの解決に失敗しました: %w", err)
	}
	return ac, nil
}

// CountContractsByStatus はクライアントの契約件数をステータスごとに返す。
func (r *PostgresClientRepo) CountContractsByStatus(ctx context.Context, workspaceID, clientID string) ([]ContractStatusCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*)
		 FROM contracts
		 WHERE workspace_id = $1 AND client_id = $2
		 GROUP BY status
		 ORDER BY status`,
		workspaceID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("契約件数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := []ContractStatusCount{}
	for rows.Next() {
		var c ContractStatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("契約件数のスキャンに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("契約件数の読み取りに失敗しました: %w", err)
	}
	return counts, nil
}

// SummarizeInvoices はクライアントの請求書をステータス・通貨ごとに集計する。
func (r *PostgresClientRepo) SummarizeInvoices(ctx context.Context, workspaceID, clientID string) ([]InvoiceStatusSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.status, i.currency, COUNT(*), COALESCE(SUM(i.amount_cents), 0)
		 FROM invoices i
		 JOIN contracts ct ON ct.id = i.contract_id
		 WHERE i.workspace_id = $1 AND ct.client_id = $2
		 GROUP BY i.status, i.currency
		 ORDER BY i.status, i.currency`,
		workspaceID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("請求書の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	summaries := []InvoiceStatusSummary{}
	for rows.Next() {
		var s InvoiceStatusSummary
		if err := rows.Scan(&s.Status, &s.Currency, &s.Count, &s.AmountCents); err != nil {
			return nil, fmt.Errorf("請求書集計のスキャンに失敗しました: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("請求書集計の読み取りに失敗しました: %w", err)
	}
	return summaries, nil
}

// ListInvoices はクライアントの請求書を契約名付きで期間終了日の降順に返す。
func (r *PostgresClientRepo) ListInvoices(ctx context.Context, workspaceID, clientID string) ([]*model.ClientInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumnsQualified+`, ct.title
		 FROM invoices i
		 JOIN contracts ct ON ct.id = i.contract_id
		 WHERE i.workspace_id = $1 AND ct.client_id = $2
		 ORDER BY i.period_end DESC, i.created_at DESC`,
		workspaceID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("クライアント向け請求書一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	invoices := []*model.ClientInvoice{}
	for rows.Next() {
		ci := &model.ClientInvoice{}
		if err := rows.Scan(append(invoiceScanDest(&ci.Invoice), &ci.ContractTitle)...); err != nil {
			return nil, fmt.Errorf("請求書のスキャンに失敗しました: %w", err)
		}
		invoices = append(invoices, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("クライアント向け請求書一覧の読み取りに失敗しました: %w", err)
	}
	return invoices, nil
}

// affected は削除・更新の影響行数が1以上かどうかを返す。
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ ClientRepository = (*PostgresClientRepo)(nil)
