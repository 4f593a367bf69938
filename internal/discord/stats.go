package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hitoshi/tryout/internal/security"
)

// statsCacheTTL は統計値のキャッシュ保持期間。
const statsCacheTTL = 5 * time.Minute

// ServerStats はDiscordサーバの公開統計値。
type ServerStats struct {
	TotalMembers  int       `json:"total_members"`
	OnlineMembers int       `json:"online_members"`
	LastUpdated   time.Time `json:"last_updated"`
}

// inviteResponse はDiscordの招待APIレスポンス（with_counts=true指定時）。
type inviteResponse struct {
	ApproximateMemberCount   int `json:"approximate_member_count"`
	ApproximatePresenceCount int `json:"approximate_presence_count"`
}

// StatsClient はDiscord招待APIからサーバのメンバー数を取得する。
// Botトークン不要の招待エンドポイントを使用し、5分間キャッシュする。
// 取得失敗時はキャッシュ済みの値をそのまま返し続ける（stale-on-failure）。
type StatsClient struct {
	httpClient *http.Client
	urlGuard   security.URLGuardService
	logger     *slog.Logger
	inviteURL  string

	mu        sync.Mutex
	cached    *ServerStats
	fetchedAt time.Time
}

// NewStatsClient はStatsClientの新しいインスタンスを生成する。
// inviteURLはDiscord招待APIのURL（例: https://discord.com/api/v10/invites/abc123）。
// 空の場合、GetStatsは常にエラーを返す。
func NewStatsClient(urlGuard security.URLGuardService, inviteURL string, timeout time.Duration, logger *slog.Logger) *StatsClient {
	return &StatsClient{
		httpClient: urlGuard.NewSafeClient(timeout),
		urlGuard:   urlGuard,
		logger:     logger,
		inviteURL:  inviteURL,
	}
}

// Enabled は統計取得が設定されているかどうかを返す。
func (c *StatsClient) Enabled() bool {
	return c.inviteURL != ""
}

// GetStats はサーバ統計を返す。キャッシュが有効な間は再取得しない。
// 再取得に失敗した場合、キャッシュ済みの値があればそれを返す。
func (c *StatsClient) GetStats(ctx context.Context) (*ServerStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < statsCacheTTL {
		return c.cached, nil
	}

	stats, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			c.logger.Warn("Discord統計の再取得に失敗したためキャッシュ値を返します",
				slog.String("error", err.Error()),
			)
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = stats
	c.fetchedAt = time.Now()
	return stats, nil
}

// fetch は招待APIから統計値を取得する。
func (c *StatsClient) fetch(ctx context.Context) (*ServerStats, error) {
	if c.inviteURL == "" {
		return nil, fmt.Errorf("招待URLが設定されていません")
	}
	if err := c.urlGuard.ValidateURL(c.inviteURL); err != nil {
		return nil, fmt.Errorf("招待URLの検証に失敗しました: %w", err)
	}

	reqURL, err := url.Parse(c.inviteURL)
	if err != nil {
		return nil, fmt.Errorf("招待URLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("with_counts", "true")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Discord招待APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Discord招待APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var invite inviteResponse
	if err := json.Unmarshal(body, &invite); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &ServerStats{
		TotalMembers:  invite.ApproximateMemberCount,
		OnlineMembers: invite.ApproximatePresenceCount,
		LastUpdated:   time.Now(),
	}, nil
}
