// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと期限切れの確認待ち操作を定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はクリーンアップの実行間隔。
const DefaultInterval = time.Hour

// SessionPurger は期限切れセッションの削除インターフェース。
// repository.SessionRepository が実装する。
type SessionPurger interface {
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ConfirmPurger は期限切れの確認待ち操作の削除インターフェース。
// dashboard.ConfirmStore が実装する。
type ConfirmPurger interface {
	// PurgeExpired は期限切れの確認待ち操作を削除し、削除件数を返す。
	PurgeExpired() int
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions SessionPurger
	confirms ConfirmPurger
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions SessionPurger, confirms ConfirmPurger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		confirms: confirms,
		logger:   logger,
	}
}

// Run は期限切れセッションと確認待ち操作を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedSessions, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	purgedConfirms := 0
	if j.confirms != nil {
		purgedConfirms = j.confirms.PurgeExpired()
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int("purged_confirmations", purgedConfirms),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は定期ティッカーでクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// intervalが0以下の場合はデフォルト値を使用する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
