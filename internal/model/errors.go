// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, application, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeUsernameTaken        = "USERNAME_TAKEN"
	ErrCodeWeakPassword         = "WEAK_PASSWORD"
	ErrCodeAccessDenied         = "ACCESS_DENIED"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeUnknownPosition      = "UNKNOWN_POSITION"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeInvalidFilter        = "INVALID_FILTER"
	ErrCodeInvalidSort          = "INVALID_SORT"
	ErrCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeConfirmationNotFound = "CONFIRMATION_NOT_FOUND"
	ErrCodeConfirmationExpired  = "CONFIRMATION_EXPIRED"
	ErrCodeDeliveryFailed       = "DELIVERY_FAILED"
	ErrCodeOAuthFailed          = "OAUTH_FAILED"
	ErrCodeCSRFFailed           = "CSRF_FAILED"
	ErrCodeRateLimited          = "RATE_LIMITED"
)

// NewCSRFFailedError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
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

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メール未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上である必要があります。",
		Category: "validation",
		Action:   "8文字以上のパスワードを指定してください。",
	}
}

// NewAccessDeniedError はダッシュボードへのアクセス拒否エラーを生成する。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "このページへのアクセス権限がありません。",
		Category: "auth",
		Action:   "レビュアー権限を持つアカウントでログインしてください。",
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

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewUnknownPositionError は未知の応募ポジションエラーを生成する。
func NewUnknownPositionError(position string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownPosition,
		Message:  fmt.Sprintf("未知の応募ポジションです: %s", position),
		Category: "validation",
		Action:   "competitive、creator、editor、designer、coach、management、other のいずれかを指定してください。",
	}
}

// NewValidationFailedError は入力検証エラーを生成する。
func NewValidationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", detail),
		Category: "validation",
		Action:   "必須項目を入力して再度お試しください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには all、pending、accepted、denied のいずれかを指定してください。",
	}
}

// NewInvalidSortError は無効なソートエラーを生成する。
func NewInvalidSortError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効なソート指定です: %s", sort),
		Category: "validation",
		Action:   "ソートには newest、oldest、role、name のいずれかを指定してください。",
	}
}

// NewApplicationNotFoundError は応募未検出エラーを生成する。
func NewApplicationNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された応募が見つかりません: %s", applicationID),
		Category: "application",
		Action:   "応募IDを確認してください。既に削除されている可能性があります。",
	}
}

// NewInvalidTransitionError はステータス遷移違反エラーを生成する。
// 許可される遷移は pending→accepted と pending→denied のみ。
func NewInvalidTransitionError(from, to ApplicationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("ステータスを %s から %s へ変更することはできません。", from, to),
		Category: "application",
		Action:   "審査済みの応募のステータスは変更できません。",
	}
}

// NewConfirmationNotFoundError は確認トークン未検出エラーを生成する。
func NewConfirmationNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationNotFound,
		Message:  "確認トークンが見つかりません。",
		Category: "application",
		Action:   "操作をやり直してください。",
	}
}

// NewConfirmationExpiredError は確認トークン期限切れエラーを生成する。
func NewConfirmationExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationExpired,
		Message:  "確認トークンの有効期限が切れています。",
		Category: "application",
		Action:   "操作をやり直してください。",
	}
}

// NewDeliveryFailedError は応募の転送が全経路で失敗した場合のエラーを生成する。
func NewDeliveryFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeliveryFailed,
		Message:  "応募の送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。問題が続く場合はDiscordで直接ご連絡ください。",
	}
}

// NewOAuthFailedError は外部IdP認証失敗エラーを生成する。
func NewOAuthFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeOAuthFailed,
		Message:  fmt.Sprintf("Discord認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度ログインをお試しください。",
	}
}
