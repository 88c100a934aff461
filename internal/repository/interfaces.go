// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/retainerkit/internal/model"
)

// ErrContractNotFound はトランザクション内で契約行を取得できなかった場合に返る。
var ErrContractNotFound = errors.New("contract not found")

// InvoiceOverlapError は同一契約で請求期間（両端を含む）が重なる請求書が既に存在する場合のエラー。
// 排他制約違反から変換された場合は既存期間が分からないためStart/Endはゼロ値になる。
type InvoiceOverlapError struct {
	Start model.Date
	End   model.Date
}

// Error はerrorインターフェースを実装する。
func (e *InvoiceOverlapError) Error() string {
	if e.Start.IsZero() {
		return "overlapping invoice exists"
	}
	return fmt.Sprintf("overlapping invoice exists (%s - %s)", e.Start, e.End)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、保存された行を返す。メールアドレスは小文字で保存する。
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByAccount は外部IdPのアカウントに紐づくユーザーを取得する。見つからない場合はnilを返す。
	FindByAccount(ctx context.Context, provider, providerAccountID string) (*model.User, error)

	// Update はnilでないフィールドのみ更新する。ユーザーが存在しない場合はnilを返す。
	Update(ctx context.Context, patch *model.UserPatch) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。accounts、sessionsはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// AccountRepository は外部IdP紐付け情報の永続化インターフェース。
type AccountRepository interface {
	// Link はアカウントを紐付ける。同じ(provider, providerAccountID)が既にあれば何もしない。
	Link(ctx context.Context, account *model.Account) error

	// Unlink は紐付けを解除する。
	Unlink(ctx context.Context, provider, providerAccountID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成し、保存された行を返す。
	Create(ctx context.Context, session *model.Session) (*model.Session, error)

	// FindWithUser はセッションと所有ユーザーを1回のクエリで取得する。
	// 見つからない場合はnilを返す。期限切れの判定は呼び出し側で行う。
	FindWithUser(ctx context.Context, sessionToken string) (*model.SessionAndUser, error)

	// Update はセッションの有効期限・所有ユーザーを部分更新する。トークンが存在しない場合はnilを返す。
	Update(ctx context.Context, patch *model.SessionPatch) (*model.Session, error)

	// Delete は指定トークンのセッションを削除する。
	Delete(ctx context.Context, sessionToken string) error

	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// VerificationTokenRepository は検証トークンの永続化インターフェース。
type VerificationTokenRepository interface {
	// Create は検証トークンを保存する。
	Create(ctx context.Context, token *model.VerificationToken) (*model.VerificationToken, error)

	// Use はトークンを削除し、削除した行を返す。同じトークンは一度しか使えない。
	// 見つからない場合はnilを返す。
	Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error)

	// DeleteExpired はbefore時点で期限切れのトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// WorkspaceRepository はワークスペースと所属情報の永続化インターフェース。
type WorkspaceRepository interface {
	// ListMemberships はユーザーが所属する全ワークスペースとロールを返す。
	ListMemberships(ctx context.Context, userID string) ([]model.WorkspaceMembership, error)

	// Provision は所有者の既定ワークスペースとownerメンバーシップを1トランザクションで作成する。
	// 既に存在する場合は既存のワークスペースを返し、名前は変更しない。
	Provision(ctx context.Context, ownerUserID, name string) (*model.Workspace, error)
}

// ContractStatusCount は契約ステータスごとの件数。
type ContractStatusCount struct {
	Status model.ContractStatus
	Count  int
}

// InvoiceStatusSummary は請求書のステータス・通貨ごとの件数と合計金額。
type InvoiceStatusSummary struct {
	Status      model.InvoiceStatus
	Currency    string
	Count       int
	AmountCents int64
}

// ClientRepository はクライアントとクライアントメンバーの永続化インターフェース。
// すべての操作はワークスペースIDでスコープされる。
type ClientRepository interface {
	// List はワークスペースのクライアント一覧を作成日時の降順で返す。
	List(ctx context.Context, workspaceID string) ([]*model.Client, error)

	// FindByID は指定IDのクライアントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, workspaceID, id string) (*model.Client, error)

	// Create はクライアントを作成する。
	Create(ctx context.Context, workspaceID, name string) (*model.Client, error)

	// Rename はクライアント名を変更する。見つからない場合はnilを返す。
	Rename(ctx context.Context, workspaceID, id, name string) (*model.Client, error)

	// Delete はクライアントを削除する。削除した場合trueを返す。
	Delete(ctx context.Context, workspaceID, id string) (bool, error)

	// ListMembers はクライアントのメンバー一覧を返す。
	ListMembers(ctx context.Context, workspaceID, clientID string) ([]*model.ClientMember, error)

	// UpsertMember はメンバーを追加する。既に所属している場合はロールを更新する。
	// ワークスペースに未所属のユーザーはclientロールで参加させる。
	UpsertMember(ctx context.Context, workspaceID, clientID, userID string, role model.ClientRole) error

	// RemoveMember はメンバーを外す。外した場合trueを返す。
	// ワークスペース内のどのクライアントにも所属しなくなった場合はclientロールの所属も外す。
	RemoveMember(ctx context.Context, workspaceID, clientID, userID string) (bool, error)

	// ResolveActive はユーザーが所属する最初のクライアントをワークスペース内から返す。
	// 所属がない場合はnilを返す。
	ResolveActive(ctx context.Context, userID, workspaceID string) (*model.ActiveClient, error)

	// CountContractsByStatus はクライアントの契約件数をステータスごとに返す。
	CountContractsByStatus(ctx context.Context, workspaceID, clientID string) ([]ContractStatusCount, error)

	// SummarizeInvoices はクライアントの請求書をステータス・通貨ごとに集計する。
	SummarizeInvoices(ctx context.Context, workspaceID, clientID string) ([]InvoiceStatusSummary, error)

	// ListInvoices はクライアントの請求書を契約名付きで期間終了日の降順に返す。
	ListInvoices(ctx context.Context, workspaceID, clientID string) ([]*model.ClientInvoice, error)
}

// ContractRepository は契約の永続化インターフェース。
type ContractRepository interface {
	// List はワークスペースの契約一覧を返す。clientIDが空でなければそのクライアントに絞る。
	List(ctx context.Context, workspaceID, clientID string) ([]*model.Contract, error)

	// FindByID は指定IDの契約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, workspaceID, id string) (*model.Contract, error)

	// Create は契約を作成する。クライアントが同じワークスペースにない場合は外部キー違反になる。
	Create(ctx context.Context, contract *model.Contract) (*model.Contract, error)

	// Update は契約の全項目を書き換える。見つからない場合はnilを返す。
	Update(ctx context.Context, contract *model.Contract) (*model.Contract, error)

	// Delete は契約を削除する。削除した場合trueを返す。
	Delete(ctx context.Context, workspaceID, id string) (bool, error)
}

// TimeEntryRepository はワークログの永続化インターフェース。
type TimeEntryRepository interface {
	// List はワークログを作業日の降順で返す。contractIDが空でなければその契約に絞る。
	// limitが0以下の場合は上限なし。
	List(ctx context.Context, workspaceID, contractID string, limit int) ([]*model.TimeEntry, error)

	// Create はワークログを作成する。
	Create(ctx context.Context, entry *model.TimeEntry) (*model.TimeEntry, error)

	// Delete はワークログを削除する。削除した場合trueを返す。
	Delete(ctx context.Context, workspaceID, id string) (bool, error)

	// SumMinutes は契約の期間内（両端を含む）の作業分数の合計を返す。該当なしは0。
	SumMinutes(ctx context.Context, workspaceID, contractID string, start, end model.Date) (int64, error)
}

// InvoiceRepository は請求書の永続化インターフェース。
type InvoiceRepository interface {
	// List はワークスペースの請求書を期間終了日の降順で返す。contractIDが空でなければ絞り込む。
	List(ctx context.Context, workspaceID, contractID string) ([]*model.Invoice, error)

	// FindByID は指定IDの請求書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, workspaceID, id string) (*model.Invoice, error)

	// Create は請求書をそのまま作成する。期間が重なる場合は*InvoiceOverlapErrorを返す。
	Create(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)

	// CreateGenerated は契約行をロックし、期間の重複がないことを確認してから請求書を作成する。
	// 重複がある場合は既存期間を含む*InvoiceOverlapErrorを返す。
	// 契約が存在しない場合はErrContractNotFoundを返す。
	CreateGenerated(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)

	// Update は請求書の期間・金額・通貨・ステータスを書き換える。見つからない場合はnilを返す。
	Update(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)

	// Delete は請求書を削除する。削除した場合trueを返す。
	Delete(ctx context.Context, workspaceID, id string) (bool, error)
}
