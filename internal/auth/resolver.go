package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/tryout/internal/model"
	"github.com/hitoshi/tryout/internal/repository"
)

// クッキー名。auth_tokenは旧OAuthハンドラとの互換用。
const (
	SessionCookieName = "session_id"
	LegacyCookieName  = "auth_token"
)

// SessionIssuer はJWT認証成功時のセッション書き戻しに使用する。
// *Service が実装する。
type SessionIssuer interface {
	IssueSession(ctx context.Context, userID string) (*model.Session, error)
}

// Resolver はリクエストからリクエスト主体（Identity）を解決する。
//
// 解決は以下の優先順で行い、最初に成功したソースを採用する:
//  1. session_idクッキー → セッションストア
//  2. auth_tokenクッキー（レガシーJWT）→ 検証後サーバセッションを書き戻す
//  3. Authorization: Bearerヘッダ（レガシーAPIクライアント）
//  4. ゲスト
//
// 各ソースの失敗（期限切れ、改ざん、ストレージ障害）はエラーではなく
// 「そのソースは使えない」として次へ進む。最終的なゲストも正常な値である。
type Resolver struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	tokens   *TokenService
	issuer   SessionIssuer
}

// NewResolver はResolverを生成する。
func NewResolver(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	tokens *TokenService,
	issuer SessionIssuer,
) *Resolver {
	return &Resolver{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
	}
}

// Resolve はリクエスト主体を解決する。
// レガシーJWTで認証できた場合、2番目の戻り値として新規発行したサーバセッションを返す。
// 呼び出し側（ミドルウェア）はこれをsession_idクッキーとして書き戻すこと。
// 書き戻しはキャッシュ投入に相当し、以後の判定がローカル照会のみで済むようになる。
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (model.Identity, *model.Session) {
	// 1. サーバセッション
	if cookie, err := req.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if user := r.userFromSession(ctx, cookie.Value); user != nil {
			return model.Authenticated(user, "session"), nil
		}
	}

	// 2. レガシーauth_tokenクッキー（書き戻しあり）
	if cookie, err := req.Cookie(LegacyCookieName); err == nil && cookie.Value != "" {
		if user := r.userFromToken(ctx, cookie.Value); user != nil {
			session := r.writeThrough(ctx, user.ID)
			return model.Authenticated(user, "legacy_token"), session
		}
	}

	// 3. Authorization: Bearer
	if token := bearerToken(req); token != "" {
		if user := r.userFromToken(ctx, token); user != nil {
			return model.Authenticated(user, "bearer"), nil
		}
	}

	// 4. ゲスト（エラーではない）
	return model.Guest(), nil
}

// userFromSession はセッションIDからユーザーを引く。失敗時はnil。
func (r *Resolver) userFromSession(ctx context.Context, sessionID string) *model.User {
	session, err := r.sessions.FindByID(ctx, sessionID)
	if err != nil {
		// ストレージ障害は「ソース利用不可」として次のソースへ
		slog.Warn("session lookup failed", slog.String("error", err.Error()))
		return nil
	}
	if session == nil {
		return nil
	}

	user, err := r.users.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Warn("user lookup failed", slog.String("error", err.Error()))
		return nil
	}
	return user
}

// userFromToken はレガシーJWTからユーザーを引く。失敗時はnil。
// subjectのユーザーIDを優先し、見つからなければメールアドレスで照合する。
func (r *Resolver) userFromToken(ctx context.Context, tokenString string) *model.User {
	claims, err := r.tokens.Verify(tokenString)
	if err != nil {
		return nil
	}

	user, err := r.users.FindByID(ctx, claims.Subject)
	if err != nil {
		slog.Warn("user lookup failed", slog.String("error", err.Error()))
		return nil
	}
	if user != nil {
		return user
	}

	if claims.Email != "" {
		user, err = r.users.FindByEmail(ctx, claims.Email)
		if err != nil {
			slog.Warn("user lookup by email failed", slog.String("error", err.Error()))
			return nil
		}
	}
	return user
}

// writeThrough はレガシーJWT認証成功時にサーバセッションを発行する。
// 発行に失敗しても認証自体は成立しているため、nilを返して続行する。
func (r *Resolver) writeThrough(ctx context.Context, userID string) *model.Session {
	if r.issuer == nil {
		return nil
	}
	session, err := r.issuer.IssueSession(ctx, userID)
	if err != nil {
		slog.Warn("session write-through failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return session
}

// bearerToken はAuthorizationヘッダからBearerトークンを取り出す。
func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
