// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, conflict, auth, forbidden, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategoryAuth       = "auth"
	CategoryForbidden  = "forbidden"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailInUse         = "EMAIL_IN_USE"
	ErrCodeInvoiceOverlap     = "INVOICE_PERIOD_OVERLAP"
	ErrCodeDuplicate          = "DUPLICATE"
	ErrCodeClientNotAssigned  = "CLIENT_NOT_ASSIGNED"
	ErrCodeUnknownProvider    = "UNKNOWN_PROVIDER"
	ErrCodeRateMissing        = "HOURLY_RATE_MISSING"
	ErrCodeNoUpdates          = "NO_UPDATES"
	ErrCodeOAuthNotLinked     = "OAUTH_ACCOUNT_NOT_LINKED"
)

// ForbiddenMessage は契約者専用操作をクライアントユーザーが呼んだ場合の固定メッセージ。
const ForbiddenMessage = "client users cannot access contractor endpoints"

// NewValidationError は入力値不正エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewNotFoundError は対象が存在しない（またはワークスペース外）場合のエラーを生成する。
// 存在しない場合と他テナントの場合は区別しない。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found in your workspace", resource),
		Category: CategoryNotFound,
		Action:   "IDを確認してください。",
	}
}

// NewForbiddenError はロールゲートによる拒否エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  ForbiddenMessage,
		Category: CategoryForbidden,
		Action:   "契約者アカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password.",
		Category: CategoryAuth,
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewEmailInUseError は登録済みメールアドレスでの新規登録エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "Email already in use.",
		Category: CategoryConflict,
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvoiceOverlapError は請求期間の重複エラーを生成する。
// existingStart/existingEndが空の場合は期間を含めない。
func NewInvoiceOverlapError(existingStart, existingEnd Date) *APIError {
	msg := "Overlapping invoice exists for this contract."
	if !existingStart.IsZero() && !existingEnd.IsZero() {
		msg = fmt.Sprintf("Overlapping invoice exists (%s → %s).", existingStart, existingEnd)
	}
	return &APIError{
		Code:     ErrCodeInvoiceOverlap,
		Message:  msg,
		Category: CategoryConflict,
		Action:   "既存の請求書と重ならない期間を指定してください。",
	}
}

// NewDuplicateError は一意制約違反エラーを生成する。
func NewDuplicateError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicate,
		Message:  fmt.Sprintf("%s already exists", resource),
		Category: CategoryConflict,
		Action:   "入力内容を変更して再度お試しください。",
	}
}

// NewClientNotAssignedError はクライアントユーザーがどのクライアントにも紐づいていない場合のエラーを生成する。
func NewClientNotAssignedError() *APIError {
	return &APIError{
		Code:     ErrCodeClientNotAssigned,
		Message:  "You are not assigned to a client yet.",
		Category: CategoryNotFound,
		Action:   "契約者にクライアントへの追加を依頼してください。",
	}
}

// NewUnknownProviderError は未設定のOAuthプロバイダーが指定された場合のエラーを生成する。
func NewUnknownProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("unknown sign-in provider: %s", provider),
		Category: CategoryNotFound,
		Action:   "利用可能なログイン方法を選択してください。",
	}
}

// NewHourlyRateMissingError は時間単価が契約にも上書き指定にもない場合のエラーを生成する。
func NewHourlyRateMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeRateMissing,
		Message:  "No hourly rate is set for this contract. Set the contract hourly rate or provide an override.",
		Category: CategoryValidation,
		Action:   "契約に時間単価を設定するか、単価を指定してください。",
	}
}

// NewNoUpdatesError は部分更新で変更項目が1つもない場合のエラーを生成する。
func NewNoUpdatesError() *APIError {
	return &APIError{
		Code:     ErrCodeNoUpdates,
		Message:  "No updates provided.",
		Category: CategoryValidation,
		Action:   "変更する項目を指定してください。",
	}
}

// NewOAuthAccountNotLinkedError は未確認のメールアドレスで既存ユーザーへの紐付けを求められた場合のエラーを生成する。
func NewOAuthAccountNotLinkedError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthNotLinked,
		Message:  "This email is already registered with another sign-in method.",
		Category: CategoryConflict,
		Action:   "最初に使用した方法でログインしてください。",
	}
}
