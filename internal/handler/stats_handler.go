package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tryout/internal/discord"
	"github.com/hitoshi/tryout/internal/model"
)

// ServerStatsInterface はDiscordサーバー統計ハンドラーが必要とするインターフェース。
type ServerStatsInterface interface {
	// Enabled は統計取得が設定されているかどうかを返す。
	Enabled() bool
	// GetStats はサーバー統計を返す。キャッシュが有効な間はキャッシュを返す。
	GetStats(ctx context.Context) (*discord.ServerStats, error)
}

// StatsHandler はDiscordサーバー統計のHTTPハンドラー。認証不要。
type StatsHandler struct {
	stats  ServerStatsInterface
	logger *slog.Logger
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(stats ServerStatsInterface, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

// GetDiscordStats はDiscordサーバーの概算メンバー数を返す。
// 統計が未設定の場合は404を返す。
// GET /api/stats/discord
func (h *StatsHandler) GetDiscordStats(w http.ResponseWriter, r *http.Request) {
	if !h.stats.Enabled() {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "STATS_NOT_CONFIGURED",
			Message:  "サーバー統計は設定されていません。",
			Category: "system",
			Action:   "DISCORD_INVITE_URLを設定してください。",
		})
		return
	}

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.logger.Warn("サーバー統計の取得に失敗", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "STATS_UNAVAILABLE",
			Message:  "サーバー統計を取得できませんでした。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
