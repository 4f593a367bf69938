// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/tryout/internal/application"
	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/config"
	"github.com/hitoshi/tryout/internal/dashboard"
	"github.com/hitoshi/tryout/internal/database"
	"github.com/hitoshi/tryout/internal/discord"
	"github.com/hitoshi/tryout/internal/handler"
	"github.com/hitoshi/tryout/internal/logger"
	"github.com/hitoshi/tryout/internal/metrics"
	"github.com/hitoshi/tryout/internal/middleware"
	"github.com/hitoshi/tryout/internal/notify"
	"github.com/hitoshi/tryout/internal/relay"
	"github.com/hitoshi/tryout/internal/repository"
	"github.com/hitoshi/tryout/internal/security"
	"github.com/hitoshi/tryout/internal/submission"
	"github.com/hitoshi/tryout/internal/worker/cleanup"
)

// statsFetchTimeout はDiscordサーバー統計取得のタイムアウト。
const statsFetchTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 通知バスのリスナーとクリーンアップジョブをバックグラウンドで動かし、
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	linkRepo := repository.NewPostgresProviderLinkRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	appRepo := repository.NewPostgresApplicationRepo(db)
	rosterRepo := repository.NewPostgresRosterRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewTextSanitizer()
	urlGuard := security.NewURLGuard()

	// 4. 認証の初期化
	var oauthProvider auth.OAuthProvider
	if cfg.OAuthEnabled() {
		oauthProvider = auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
		})
	}
	authService := auth.NewService(
		oauthProvider, userRepo, linkRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	tokens := auth.NewTokenService(cfg.SessionSecret)
	resolver := auth.NewResolver(sessionRepo, userRepo, tokens, authService)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. 通知バスとバックグラウンドタスク用コンテキスト
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgBus := notify.NewPostgresBus(db, cfg.DatabaseURL, slog.Default())
	go func() {
		if err := pgBus.Listen(ctx); err != nil && ctx.Err() == nil {
			slog.Error("notification listener stopped", slog.String("error", err.Error()))
		}
	}()

	// 発行数を計測するデコレータ越しに配信する
	bus := notify.NewInstrumentedBus(pgBus, collector)

	// 7. ドメインサービスの初期化
	appService := application.NewService(appRepo, bus, slog.Default())

	relayClient := relay.NewClient(
		&http.Client{Timeout: cfg.RelayTimeout},
		cfg.ApplyUpstreamURL,
		slog.Default(),
	)
	webhookSender := discord.NewWebhookSender(
		&http.Client{Timeout: cfg.WebhookTimeout},
		slog.Default(),
	)
	submissionService := submission.NewService(
		appService, relayClient, webhookSender,
		submission.WebhookConfig{
			Competitive: cfg.WebhookCompetitive,
			Creator:     cfg.WebhookCreator,
			Editor:      cfg.WebhookEditor,
			Designer:    cfg.WebhookDesigner,
			Other:       cfg.WebhookOther,
		},
		sanitizer, urlGuard, slog.Default(),
	)

	statsClient := discord.NewStatsClient(urlGuard, cfg.DiscordInviteURL, statsFetchTimeout, slog.Default())

	// 8. ダッシュボードの初期化
	gate := dashboard.NewGate(cfg.ReviewerEmails)
	confirms := dashboard.NewConfirmStore(dashboard.DefaultConfirmTTL)
	streamer := dashboard.NewStreamer(bus, appService, cfg.DashboardPollInterval, slog.Default())

	// 9. クリーンアップジョブをバックグラウンドで起動
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, confirms, slog.Default())
	go cleanupJob.Start(ctx, cleanup.DefaultInterval)

	// 10. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// 一般はreq/min、応募はreq/hour単位の設定値をreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ApplyRate = rate.Limit(float64(cfg.RateLimitApply) / 3600.0)
	rateLimiterCfg.ApplyBurst = cfg.RateLimitApply
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	cookieConfig := middleware.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Resolver:          resolver,
		CookieConfig:      cookieConfig,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		TokenMinter: tokens,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ApplyService: submissionService,

		Gate:             gate,
		DashboardService: appService,
		ConfirmStore:     confirms,
		Streamer:         streamer,
		Metrics:          collector,

		Roster:       rosterRepo,
		DiscordStats: statsClient,

		HealthCheck:     db.PingContext,
		MetricsGatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 11. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE配信があるため書き込みタイムアウトは設けない
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// バックグラウンドタスク（通知リスナー、クリーンアップ）を停止
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はデモ応募データを投入する。
// 既に投入済みのレコードはスキップされる（冪等）。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	appRepo := repository.NewPostgresApplicationRepo(db)
	appService := application.NewService(appRepo, notify.NewMemoryBus(), slog.Default())

	inserted, err := appService.SeedDemoData(context.Background())
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("demo applications seeded",
		slog.Int("inserted", inserted),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
