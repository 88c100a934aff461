// Package model はドメインモデルを定義する。
package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// WorkspaceRole はワークスペース内のロール。
type WorkspaceRole string

const (
	// WorkspaceRoleOwner はワークスペースの所有者。
	WorkspaceRoleOwner WorkspaceRole = "owner"
	// WorkspaceRoleContractor は所有者以外の受注側メンバー。
	WorkspaceRoleContractor WorkspaceRole = "contractor"
	// WorkspaceRoleClient は発注側（クライアント）のメンバー。
	WorkspaceRoleClient WorkspaceRole = "client"
)

// ParseWorkspaceRole は文字列をWorkspaceRoleに変換する。未知の値はエラー。
func ParseWorkspaceRole(s string) (WorkspaceRole, error) {
	switch WorkspaceRole(s) {
	case WorkspaceRoleOwner, WorkspaceRoleContractor, WorkspaceRoleClient:
		return WorkspaceRole(s), nil
	default:
		return "", fmt.Errorf("unknown workspace role: %q", s)
	}
}

// Rank はロールの優先度を返す。owner(3) > contractor(2) > client(1)。
func (r WorkspaceRole) Rank() int {
	switch r {
	case WorkspaceRoleOwner:
		return 3
	case WorkspaceRoleContractor:
		return 2
	case WorkspaceRoleClient:
		return 1
	default:
		return 0
	}
}

// Scan はDBの値をWorkspaceRoleとして読み取る。
func (r *WorkspaceRole) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	role, err := ParseWorkspaceRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value はWorkspaceRoleをDBの値に変換する。
func (r WorkspaceRole) Value() (driver.Value, error) {
	return string(r), nil
}

// ClientRole はクライアント内のロール。
type ClientRole string

const (
	// ClientRoleAdmin はクライアント側の管理者。
	ClientRoleAdmin ClientRole = "client_admin"
	// ClientRoleUser はクライアント側の一般ユーザー。
	ClientRoleUser ClientRole = "client_user"
)

// ParseClientRole は文字列をClientRoleに変換する。未知の値はエラー。
func ParseClientRole(s string) (ClientRole, error) {
	switch ClientRole(s) {
	case ClientRoleAdmin, ClientRoleUser:
		return ClientRole(s), nil
	default:
		return "", fmt.Errorf("unknown client role: %q", s)
	}
}

// Scan はDBの値をClientRoleとして読み取る。
func (r *ClientRole) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	role, err := ParseClientRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value はClientRoleをDBの値に変換する。
func (r ClientRole) Value() (driver.Value, error) {
	return string(r), nil
}

// Workspace はテナント境界を表す。
type Workspace struct {
	ID          string
	Name        string
	OwnerUserID string
	CreatedAt   time.Time
}

// WorkspaceMembership はユーザーが所属するワークスペースとそのロールの組。
type WorkspaceMembership struct {
	WorkspaceID   string
	WorkspaceName string
	Role          WorkspaceRole
}

// ActiveWorkspace はリクエスト処理で使うテナントスコープ。
type ActiveWorkspace struct {
	ID   string
	Name string
	Role WorkspaceRole
}

// ActiveClient はクライアントユーザーが参照できるクライアントスコープ。
type ActiveClient struct {
	ID   string
	Name string
	Role ClientRole
}

// scanString はScan用にDBの値を文字列として取り出す。
func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("cannot scan NULL into enum")
	default:
		return "", fmt.Errorf("cannot scan %T into enum", src)
	}
}
