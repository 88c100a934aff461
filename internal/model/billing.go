package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ContractStatus は契約のライフサイクル状態。
type ContractStatus string

const (
	ContractStatusDraft  ContractStatus = "draft"
	ContractStatusActive ContractStatus = "active"
	ContractStatusPaused ContractStatus = "paused"
	ContractStatusClosed ContractStatus = "closed"
)

// ParseContractStatus は文字列をContractStatusに変換する。未知の値はエラー。
func ParseContractStatus(s string) (ContractStatus, error) {
	switch ContractStatus(s) {
	case ContractStatusDraft, ContractStatusActive, ContractStatusPaused, ContractStatusClosed:
		return ContractStatus(s), nil
	default:
		return "", fmt.Errorf("unknown contract status: %q", s)
	}
}

// Scan はDBの値をContractStatusとして読み取る。
func (s *ContractStatus) Scan(src any) error {
	v, err := scanString(src)
	if err != nil {
		return err
	}
	status, err := ParseContractStatus(v)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value はContractStatusをDBの値に変換する。
func (s ContractStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// InvoiceStatus は請求書のライフサイクル状態。
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// ParseInvoiceStatus は文字列をInvoiceStatusに変換する。未知の値はエラー。
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusVoid:
		return InvoiceStatus(s), nil
	default:
		return "", fmt.Errorf("unknown invoice status: %q", s)
	}
}

// Scan はDBの値をInvoiceStatusとして読み取る。
func (s *InvoiceStatus) Scan(src any) error {
	v, err := scanString(src)
	if err != nil {
		return err
	}
	status, err := ParseInvoiceStatus(v)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value はInvoiceStatusをDBの値に変換する。
func (s InvoiceStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Client は請求先（発注者）を表す。ワークスペースに属する。
type Client struct {
	ID          string
	WorkspaceID string
	Name        string
	CreatedAt   time.Time
}

// ClientMember はクライアントに紐づくユーザーを表す。
type ClientMember struct {
	ClientID  string
	UserID    string
	Email     string
	Name      *string
	Role      ClientRole
	CreatedAt time.Time
}

// Contract は契約を表す。時間単価と月額リテイナーはどちらも任意。
type Contract struct {
	ID                   string
	WorkspaceID          string
	ClientID             string
	Title                string
	Status               ContractStatus
	HourlyRateCents      *int64
	MonthlyRetainerCents *int64
	Currency             string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TimeEntry は作業時間の記録（ワークログ）を表す。
type TimeEntry struct {
	ID              string
	WorkspaceID     string
	ContractID      string
	WorkDate        Date
	Minutes         int
	Description     string
	CreatedByUserID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Invoice は請求書を表す。期間は両端を含む閉区間。
type Invoice struct {
	ID              string
	WorkspaceID     string
	ContractID      string
	PeriodStart     Date
	PeriodEnd       Date
	AmountCents     int64
	Currency        string
	Status          InvoiceStatus
	CreatedByUserID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ClientInvoice はクライアント向け一覧で使う、契約名付きの請求書。
type ClientInvoice struct {
	Invoice
	ContractTitle string
}
