// Package authz はワークスペースロールによる操作の可否判定を提供する。
package authz

import "github.com/hitoshi/retainerkit/internal/model"

// IsContractorRole は契約者側（owner, contractor）のロールかどうかを返す。
func IsContractorRole(role model.WorkspaceRole) bool {
	switch role {
	case model.WorkspaceRoleOwner, model.WorkspaceRoleContractor:
		return true
	case model.WorkspaceRoleClient:
		return false
	default:
		return false
	}
}

// IsClientRole はクライアント側のロールかどうかを返す。
func IsClientRole(role model.ClientRole) bool {
	switch role {
	case model.ClientRoleAdmin, model.ClientRoleUser:
		return true
	default:
		return false
	}
}

// RequireContractorScope は契約者専用操作の入口で呼ぶ。
// 契約者ロールでなければ、対象の検索より前にForbiddenエラーを返す。
func RequireContractorScope(ws *model.ActiveWorkspace) error {
	if ws == nil || !IsContractorRole(ws.Role) {
		return model.NewForbiddenError()
	}
	return nil
}
