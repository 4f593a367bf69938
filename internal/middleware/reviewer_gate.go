package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/tryout/internal/dashboard"
)

// accessRestrictedPath はアクセス拒否時のリダイレクト先。
const accessRestrictedPath = "/access-restricted"

// NewReviewerGateMiddleware はダッシュボード配下のアクセスゲートを返す。
// IdentityMiddlewareの後に配置すること。
// 判定がDeniedの場合は部分的なレスポンスを返さず、303でリダイレクトする。
func NewReviewerGateMiddleware(gate *dashboard.Gate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())

			if gate.Check(identity) != dashboard.DecisionGranted {
				slog.Warn("ダッシュボードへのアクセスを拒否しました",
					slog.String("path", r.URL.Path),
					slog.String("email", identity.Email()),
					slog.Bool("authenticated", identity.IsAuthenticated()),
				)
				http.Redirect(w, r, accessRestrictedPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
