package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/tryout/internal/model"
)

// Channel は応募イベントのNOTIFYチャネル名。
const Channel = "tryout_applications"

// PostgresのNOTIFYペイロードは8000バイトが上限。
// 超過時はApplication.Messageを切り詰めて収める。
const maxPayloadBytes = 7500

// PostgresBus はPostgresのLISTEN/NOTIFYを使った通知バス。
// 複数プロセスで起動しても全プロセスの購読者にイベントが届く。
// リスナー再接続中の取りこぼしはダッシュボードの照合ポーリングが補完する。
type PostgresBus struct {
	db       *sql.DB
	listener *pq.Listener
	logger   *slog.Logger
	fanout   fanout
}

// NewPostgresBus はPostgresBusを生成する。
// databaseURLはリスナー専用接続に使用する（*sql.DBのプールとは別）。
func NewPostgresBus(db *sql.DB, databaseURL string, logger *slog.Logger) *PostgresBus {
	listener := pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				logger.Error("通知リスナーの接続イベントでエラーが発生しました",
					slog.Int("event", int(event)),
					slog.String("error", err.Error()),
				)
			}
		},
	)
	return &PostgresBus{
		db:       db,
		listener: listener,
		logger:   logger,
	}
}

// Publish はイベントをpg_notifyで発行する。
// 自プロセスの購読者へもリスナー経由で配信される。
func (b *PostgresBus) Publish(ctx context.Context, event model.NotificationEvent) error {
	payload, err := encodePayload(event)
	if err != nil {
		return err
	}

	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		return fmt.Errorf("通知の発行に失敗: %w", err)
	}
	return nil
}

// Subscribe はハンドラを登録する。
func (b *PostgresBus) Subscribe(handler Handler) func() {
	return b.fanout.subscribe(handler)
}

// Listen は通知チャネルの受信ループを開始する。
// コンテキストがキャンセルされるまでブロックする。
func (b *PostgresBus) Listen(ctx context.Context) error {
	if err := b.listener.Listen(Channel); err != nil {
		return fmt.Errorf("通知チャネルのLISTENに失敗: %w", err)
	}

	b.logger.Info("通知リスナーを開始しました",
		slog.String("channel", Channel),
	)

	// 接続の生存確認。lib/pqの推奨に従い定期的にPingする。
	ticker := time.NewTicker(90 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := b.listener.Close(); err != nil {
				b.logger.Warn("通知リスナーのクローズに失敗しました",
					slog.String("error", err.Error()),
				)
			}
			b.logger.Info("通知リスナーを停止しました")
			return nil
		case notification := <-b.listener.Notify:
			// 再接続直後はnilが届く。その間のイベントは照合ポーリングで回収される。
			if notification == nil {
				continue
			}
			var event model.NotificationEvent
			if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
				b.logger.Warn("通知ペイロードの解析に失敗しました",
					slog.String("error", err.Error()),
				)
				continue
			}
			b.fanout.dispatch(event)
		case <-ticker.C:
			if err := b.listener.Ping(); err != nil {
				b.logger.Warn("通知リスナーのPingに失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// encodePayload はイベントをJSONに変換する。
// NOTIFYのペイロード上限を超える場合はMessageを切り詰めて収める。
func encodePayload(event model.NotificationEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("通知ペイロードの生成に失敗: %w", err)
	}
	if len(payload) <= maxPayloadBytes || event.Application == nil {
		if len(payload) > maxPayloadBytes {
			return nil, fmt.Errorf("通知ペイロードが上限を超過: %dバイト", len(payload))
		}
		return payload, nil
	}

	overflow := len(payload) - maxPayloadBytes
	truncated := *event.Application
	if len(truncated.Message) > overflow {
		truncated.Message = truncated.Message[:len(truncated.Message)-overflow] + "..."
	} else {
		truncated.Message = ""
	}
	event.Application = &truncated

	payload, err = json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("通知ペイロードの生成に失敗: %w", err)
	}
	if len(payload) > maxPayloadBytes {
		return nil, fmt.Errorf("通知ペイロードが上限を超過: %dバイト", len(payload))
	}
	return payload, nil
}

// compile-time interface check
var _ Bus = (*PostgresBus)(nil)
