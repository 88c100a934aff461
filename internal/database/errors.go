package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATE
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateExclusionViolation  = "23P01"
)

// IsUniqueViolation は一意制約違反かどうかを返す。
func IsUniqueViolation(err error) bool {
	return hasCode(err, sqlStateUniqueViolation)
}

// IsForeignKeyViolation は外部キー制約違反かどうかを返す。
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, sqlStateForeignKeyViolation)
}

// IsExclusionViolation は排他制約違反かどうかを返す。
// 請求期間の重複はinvoicesテーブルの排他制約で検出される。
func IsExclusionViolation(err error) bool {
	return hasCode(err, sqlStateExclusionViolation)
}

// ConstraintName は制約違反エラーの制約名を返す。制約違反でなければ空文字列。
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
