package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/dashboard"
	"github.com/hitoshi/tryout/internal/metrics"
	"github.com/hitoshi/tryout/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Resolver          *auth.Resolver
	CookieConfig      middleware.CookieConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	TokenMinter TokenMinter
	AuthConfig  AuthHandlerConfig

	// 応募受付
	ApplyService ApplyServiceInterface

	// ダッシュボード
	Gate             *dashboard.Gate
	DashboardService DashboardServiceInterface
	ConfirmStore     *dashboard.ConfirmStore
	Streamer         EventStreamer
	Metrics          metrics.MetricsCollector

	// 公開情報
	Roster       RosterProviderInterface
	DiscordStats ServerStatsInterface

	// 運用
	HealthCheck     func(ctx context.Context) error
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → Identity → RateLimit(General)
//
// 応募受付（/api/apply）には応募専用レート制限を追加で適用する。
// ダッシュボード（/api/dashboard）には審査者ゲートとCSRF検証を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// 主体解決は全ルートに適用する。未認証でも拒否しない
	r.Use(middleware.NewIdentityMiddleware(deps.Resolver, deps.CookieConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenMinter, deps.AuthConfig)
	applyHandler := NewApplyHandler(deps.ApplyService, deps.Metrics, deps.Logger)
	dashboardHandler := NewDashboardHandler(deps.DashboardService, deps.ConfirmStore, deps.Streamer, deps.Metrics, deps.Logger)
	rosterHandler := NewRosterHandler(deps.Roster)
	statsHandler := NewStatsHandler(deps.DiscordStats, deps.Logger)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/health", newHealthHandler(deps.HealthCheck))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 一般レート制限下のルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証ルート
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Get("/discord/login", authHandler.DiscordLogin)
			r.Get("/discord/callback", authHandler.DiscordCallback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// 公開API
		r.Get("/api/roster", rosterHandler.ListMembers)
		r.Get("/api/stats/discord", statsHandler.GetDiscordStats)
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 応募受付（応募専用レート制限を追加）
		r.With(deps.RateLimiter.ApplyMiddleware()).
			Post("/api/apply/{type}", applyHandler.Submit)

		// 審査ダッシュボード（審査者のみ）
		r.Route("/api/dashboard", func(r chi.Router) {
			r.Use(middleware.NewReviewerGateMiddleware(deps.Gate))
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/applications", dashboardHandler.ListApplications)
			r.Get("/stats", dashboardHandler.GetStats)
			r.Get("/events", dashboardHandler.StreamEvents)

			r.Post("/applications/{id}/actions", dashboardHandler.RequestAction)
			r.Post("/confirmations/{token}", dashboardHandler.Confirm)
			r.Delete("/confirmations/{token}", dashboardHandler.CancelConfirmation)

			r.Post("/applications/seed", dashboardHandler.SeedDemo)
			r.Delete("/applications/seed", dashboardHandler.ClearSeed)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックのハンドラーを返す。
// checkがnilの場合は常にokを返す。
func newHealthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
