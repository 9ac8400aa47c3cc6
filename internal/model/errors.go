// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, share, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	ErrCodeBookmarkNotFound   = "BOOKMARK_NOT_FOUND"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodePasswordRequired   = "SHARE_PASSWORD_REQUIRED"
	ErrCodePasswordNotAllowed = "SHARE_PASSWORD_NOT_ALLOWED"
	ErrCodeShareVerifyFailed  = "SHARE_VERIFY_FAILED"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewCollectionNotFoundError はコレクション未検出エラーを生成する。
// アクセス拒否をnot foundとして提示する場合にも使用する（存在の秘匿）。
func NewCollectionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCollectionNotFound,
		Message:  "指定されたコレクションが見つかりません。",
		Category: "share",
		Action:   "URLまたはコレクションIDを確認してください。",
	}
}

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
func NewBookmarkNotFoundError(bookmarkID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  fmt.Sprintf("指定されたブックマークが見つかりません: %s", bookmarkID),
		Category: "share",
		Action:   "ブックマークIDを確認してください。",
	}
}

// NewAccessDeniedError はアクセス拒否エラーを生成する。
// 拒否の理由は含めない。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "コレクションのオーナーとしてログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewPasswordRequiredError はパスワード保護モードへの遷移で
// パスワードが未指定の場合のエラーを生成する。
func NewPasswordRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordRequired,
		Message:  "パスワード保護モードにはパスワードの指定が必要です。",
		Category: "validation",
		Action:   "共有パスワードを入力してください。",
	}
}

// NewPasswordNotAllowedError はパスワード保護モード以外への遷移で
// パスワードが指定された場合のエラーを生成する。黙って無視はしない。
func NewPasswordNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordNotAllowed,
		Message:  "このモードではパスワードは指定できません。",
		Category: "validation",
		Action:   "パスワードを外すか、パスワード保護モードを選択してください。",
	}
}

// NewShareVerifyFailedError はパスワード検証失敗エラーを生成する。
// コレクション不存在・モード不一致・パスワード不一致のいずれでも
// 必ず同一のペイロードを返す（列挙攻撃への耐性）。
func NewShareVerifyFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeShareVerifyFailed,
		Message:  "ページが見つからないか、パスワードが正しくありません。",
		Category: "share",
		Action:   "URLとパスワードを確認して再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// メールアドレス不存在とパスワード不一致を区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
