// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストにIdentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// CookieConfig はセッションCookieの発行設定。
type CookieConfig struct {
	Secure bool
	Domain string
}

// NewIdentityMiddleware は全リクエストでリクエスト主体を解決するミドルウェアを返す。
// 解決結果（ゲストを含む）をコンテキストに注入する。未認証でも拒否はしない。
// アクセス制御は各エンドポイント側のゲートが行う。
//
// レガシーJWTからの書き戻しセッションが発行された場合は
// session_idクッキーとしてレスポンスに設定する。
func NewIdentityMiddleware(resolver *auth.Resolver, cookies CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, writeThrough := resolver.Resolve(r.Context(), r)

			if writeThrough != nil {
				http.SetCookie(w, SessionCookie(writeThrough, cookies))
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionCookie はセッションからsession_idクッキーを構築する。
// 認証ハンドラーとの共用のためここに置く。
func SessionCookie(session *model.Session, config CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie はsession_idクッキーを失効させるクッキーを返す。
func ExpiredSessionCookie(config CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredLegacyCookie はレガシーauth_tokenクッキーを失効させるクッキーを返す。
func ExpiredLegacyCookie(config CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     auth.LegacyCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IdentityFromContext はリクエストコンテキストからIdentityを取得する。
// ミドルウェア未通過のコンテキストではゲストを返す。
func IdentityFromContext(ctx context.Context) model.Identity {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok {
		return model.Guest()
	}
	return identity
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
