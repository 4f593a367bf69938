// Package model はドメインモデルを定義する。
package model

// IdentityKind はリクエスト主体の種別を表す。
type IdentityKind string

const (
	// IdentityGuest は未認証の訪問者。エラーではなく正常な値として扱う。
	IdentityGuest IdentityKind = "guest"
	// IdentityAuthenticated は認証済みユーザー。
	IdentityAuthenticated IdentityKind = "authenticated"
)

// Identity はリクエスト主体を表すタグ付きユニオン。
// Guestの場合Userはnil。AuthenticatedならUserは必ず非nil。
type Identity struct {
	Kind     IdentityKind
	User     *User
	Provider string // 認証経路: session, legacy_token, bearer。Guestでは空。
}

// Guest は未認証のIdentityを返す。
func Guest() Identity {
	return Identity{Kind: IdentityGuest}
}

// Authenticated は認証済みIdentityを返す。
func Authenticated(u *User, provider string) Identity {
	return Identity{Kind: IdentityAuthenticated, User: u, Provider: provider}
}

// IsAuthenticated は認証済みかどうかを返す。
func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated && i.User != nil
}

// Email は認証済みユーザーのメールアドレスを返す。未認証なら空文字列。
func (i Identity) Email() string {
	if !i.IsAuthenticated() {
		return ""
	}
	return i.User.Email
}
