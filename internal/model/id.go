package model

import "github.com/google/uuid"

// IsValidID はIDがハイフン区切りのUUID形式かどうかを返す。
// 形式が不正なIDはDBに問い合わせずValidationErrorとして扱う。
func IsValidID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
