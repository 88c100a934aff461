package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/database"
	"github.com/hitoshi/retainerkit/internal/model"
)

// PostgresWorkspaceRepo はPostgreSQLを使用したワークスペースリポジトリ。
type PostgresWorkspaceRepo struct {
	db *sql.DB
}

// NewPostgresWorkspaceRepo はPostgresWorkspaceRepoを生成する。
func NewPostgresWorkspaceRepo(db *sql.DB) *PostgresWorkspaceRepo {
	return &PostgresWorkspaceRepo{db: db}
}

// ListMemberships はユーザーが所属する全ワークスペースとロールを返す。
func (r *PostgresWorkspaceRepo) ListMemberships(ctx context.Context, userID string) ([]model.WorkspaceMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT wm.workspace_id, w.name, wm.role
		 FROM workspace_members wm
		 JOIN workspaces w ON w.id = wm.workspace_id
		 WHERE wm.user_id = $1
		 ORDER BY wm.workspace_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ワークスペース所属の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var memberships []model.WorkspaceMembership
	for rows.Next() {
		var m model.WorkspaceMembership
		if err := rows.Scan(&m.WorkspaceID, &m.WorkspaceName, &m.Role); err != nil {
			return nil, fmt.Errorf("ワークスペース所属の読み取りに失敗しました: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ワークスペース所属の走査に失敗しました: %w", err)
	}

	return memberships, nil
}

// Provision は所有者の既定ワークスペースとownerメンバーシップを1トランザクションで作成する。
// owner_user_idの一意制約で競合を吸収するため、同時に呼ばれても作られるワークスペースは1つだけ。
// 既存の場合はDO UPDATEで同じ行を返し、名前は変更しない。
func (r *PostgresWorkspaceRepo) Provision(ctx context.Context, ownerUserID, name string) (*model.Workspace, error) {
	ws := &model.Workspace{}
	err := database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO workspaces (name, owner_user_id)
			 VALUES ($1, $2)
			 ON CONFLICT (owner_user_id) DO UPDATE SET name = workspaces.name
			 RETURNING id, name, owner_user_id, created_at`,
			name, ownerUserID,
		).Scan(&ws.ID, &ws.Name, &ws.OwnerUserID, &ws.CreatedAt)
		if err != nil {
			return fmt.Errorf("ワークスペースの作成に失敗しました: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO workspace_members (workspace_id, user_id, role)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (workspace_id, user_id) DO NOTHING`,
			ws.ID, ownerUserID, model.WorkspaceRoleOwner,
		)
		if err != nil {
			return fmt.Errorf("オーナー所属の作成に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// compile-time interface check
var _ WorkspaceRepository = (*PostgresWorkspaceRepo)(nil)
