// Package workspace はリクエストごとのワークスペース・クライアントスコープを解決する。
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/retainerkit/internal/metrics"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/repository"
)

// UserFinder はユーザーをIDで取得するインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver はユーザーのアクティブワークスペースを解決する。
// 所属が1つもない場合は既定ワークスペースを作成してownerとして返す。
type Resolver struct {
	users      UserFinder
	workspaces repository.WorkspaceRepository
	metrics    metrics.MetricsCollector
}

// NewResolver はResolverを生成する。
func NewResolver(users UserFinder, workspaces repository.WorkspaceRepository, collector metrics.MetricsCollector) *Resolver {
	return &Resolver{
		users:      users,
		workspaces: workspaces,
		metrics:    metrics.OrNop(collector),
	}
}

// ResolveActiveWorkspace はユーザーのアクティブワークスペースを返す。
// フロー: 所属一覧取得 → あればロール優先度で選択 → なければユーザー確認 → 既定ワークスペース作成
func (r *Resolver) ResolveActiveWorkspace(ctx context.Context, userID string) (*model.ActiveWorkspace, error) {
	// 1. 所属一覧
	memberships, err := r.workspaces.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ワークスペース所属の取得に失敗しました: %w", err)
	}
	if active := SelectActive(memberships); active != nil {
		return active, nil
	}

	// 2. 所属なし: ユーザーの存在を確認
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("User")
	}

	// 3. 既定ワークスペースを作成（同時実行時も1つに収束する）
	ws, err := r.workspaces.Provision(ctx, user.ID, DefaultWorkspaceName(user))
	if err != nil {
		return nil, fmt.Errorf("既定ワークスペースの作成に失敗しました: %w", err)
	}

	r.metrics.RecordWorkspaceProvisioned()
	slog.Info("default workspace provisioned",
		slog.String("user_id", user.ID),
		slog.String("workspace_id", ws.ID),
	)

	return &model.ActiveWorkspace{
		ID:   ws.ID,
		Name: ws.Name,
		Role: model.WorkspaceRoleOwner,
	}, nil
}

// SelectActive はロール優先度（owner > contractor > client）が最も高い所属を返す。
// 同順位の場合はワークスペースIDの昇順で先のものを選ぶ。空の場合はnil。
func SelectActive(memberships []model.WorkspaceMembership) *model.ActiveWorkspace {
	var best *model.WorkspaceMembership
	for i := range memberships {
		m := &memberships[i]
		if best == nil {
			best = m
			continue
		}
		rank, bestRank := m.Role.Rank(), best.Role.Rank()
		if rank > bestRank || (rank == bestRank && m.WorkspaceID < best.WorkspaceID) {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	return &model.ActiveWorkspace{
		ID:   best.WorkspaceID,
		Name: best.WorkspaceName,
		Role: best.Role,
	}
}

// DefaultWorkspaceName は既定ワークスペース名を返す。
// 表示名（前後の空白を除く）、なければメールアドレスの@より前を使う。
func DefaultWorkspaceName(user *model.User) string {
	base := strings.TrimSpace(user.DisplayName())
	if base == "" {
		base, _, _ = strings.Cut(user.Email, "@")
	}
	return base + "'s Workspace"
}
