package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Discord OAuth（未設定の場合はOAuthログインを無効化する）
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// 応募の転送先（未設定の場合はWebhookのみで配信する）
	ApplyUpstreamURL string
	RelayTimeout     time.Duration

	// Discord Webhook（ポジション別。management/coachはOtherへ流す）
	WebhookCompetitive string
	WebhookCreator     string
	WebhookEditor      string
	WebhookDesigner    string
	WebhookOther       string
	WebhookTimeout     time.Duration

	// Dashboard
	ReviewerEmails        []string
	DashboardPollInterval time.Duration

	// Discord サーバ統計
	DiscordInviteURL string

	// Rate Limit
	RateLimitGeneral int
	RateLimitApply   int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DiscordClientID = getEnvString("DISCORD_CLIENT_ID", "")
	cfg.DiscordClientSecret = getEnvString("DISCORD_CLIENT_SECRET", "")
	cfg.DiscordRedirectURL = getEnvString("DISCORD_REDIRECT_URL", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 604800)
	cfg.ApplyUpstreamURL = getEnvString("APPLY_UPSTREAM_URL", "")
	cfg.RelayTimeout = getEnvDuration("RELAY_TIMEOUT", 10*time.Second)
	cfg.WebhookCompetitive = getEnvString("DISCORD_WEBHOOK_COMPETITIVE", "")
	cfg.WebhookCreator = getEnvString("DISCORD_WEBHOOK_CREATOR", "")
	cfg.WebhookEditor = getEnvString("DISCORD_WEBHOOK_EDITOR", "")
	cfg.WebhookDesigner = getEnvString("DISCORD_WEBHOOK_DESIGNER", "")
	cfg.WebhookOther = getEnvString("DISCORD_WEBHOOK_OTHER", "")
	cfg.WebhookTimeout = getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second)
	cfg.ReviewerEmails = getEnvStringList("REVIEWER_EMAILS")
	cfg.DashboardPollInterval = getEnvDuration("DASHBOARD_POLL_INTERVAL", 5*time.Second)
	cfg.DiscordInviteURL = getEnvString("DISCORD_INVITE_URL", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitApply = getEnvInt("RATE_LIMIT_APPLY", 3)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// OAuthEnabled はDiscord OAuthの設定が揃っているかを返す。
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != "" && c.DiscordRedirectURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvStringList はカンマ区切りの環境変数をスライスとして読み込む。
// 各要素は前後空白を除去し、空要素は捨てる。
func getEnvStringList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
