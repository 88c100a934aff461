package workspace

import (
	"context"
	"fmt"

	"github.com/hitoshi/retainerkit/internal/model"
)

// ClientFinder はクライアントユーザーの所属クライアントを取得するインターフェース。
// repository.ClientRepositoryが満たす。
type ClientFinder interface {
	ResolveActive(ctx context.Context, userID, workspaceID string) (*model.ActiveClient, error)
}

// ClientResolver はクライアントユーザーのアクティブクライアントを解決する。
// ワークスペースと異なり、所属がない場合に作成は行わない。
type ClientResolver struct {
	clients ClientFinder
}

// NewClientResolver はClientResolverを生成する。
func NewClientResolver(clients ClientFinder) *ClientResolver {
	return &ClientResolver{clients: clients}
}

// ResolveActiveClient はワークスペース内でユーザーが最初に追加されたクライアントを返す。
// 所属がない場合はnilを返す。
func (r *ClientResolver) ResolveActiveClient(ctx context.Context, userID, workspaceID string) (*model.ActiveClient, error) {
	client, err := r.clients.ResolveActive(ctx, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("所属クライアントの取得に失敗しました: %w", err)
	}
	return client, nil
}
