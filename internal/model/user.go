// Package model はドメインモデルを定義する。
package model

import "time"

// User はポータルの利用ユーザーを表す。
// 認証フレームワークが扱うユーザーモデルと1対1で対応する。
type User struct {
	ID            string
	Name          *string
	Email         string
	EmailVerified *time.Time
	Image         *string
	// PasswordHash はパスワード登録ユーザーのみ設定される。外部IdPのみのユーザーはnil。
	PasswordHash *string
}

// DisplayName は表示名を返す。未設定の場合は空文字列。
func (u *User) DisplayName() string {
	if u.Name == nil {
		return ""
	}
	return *u.Name
}

// UserPatch はユーザーの部分更新内容を表す。
// nilのフィールドは既存の値を維持する。
type UserPatch struct {
	ID            string
	Name          *string
	Email         *string
	EmailVerified *time.Time
	Image         *string
}

// Account は外部IdPとの紐付け情報を表す。
// (Provider, ProviderAccountID) の組は全体で一意。
type Account struct {
	UserID            string
	Type              string // "oauth", "oidc", "email" 等
	Provider          string
	ProviderAccountID string
	RefreshToken      *string
	AccessToken       *string
	ExpiresAt         *int64
	TokenType         *string
	Scope             *string
	IDToken           *string
	SessionState      *string
}

// Session はブラウザセッションを表す。
type Session struct {
	SessionToken string
	UserID       string
	Expires      time.Time
}

// Expired は指定時刻時点でセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.Expires.After(now)
}

// SessionPatch はセッションの部分更新内容を表す。
type SessionPatch struct {
	SessionToken string
	Expires      *time.Time
	UserID       *string
}

// SessionAndUser はセッションと所有ユーザーの組。
type SessionAndUser struct {
	Session Session
	User    User
}

// VerificationToken はメール検証などで使う一回限りのトークンを表す。
type VerificationToken struct {
	Identifier string
	Token      string
	Expires    time.Time
}
