package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/tryout/internal/model"
	"github.com/hitoshi/tryout/internal/notify"
)

// DefaultPollInterval は照合ポーリングのデフォルト間隔。
const DefaultPollInterval = 5 * time.Second

// RegistryPoller は照合ポーリングで新着応募を取得するインターフェース。
type RegistryPoller interface {
	ListSubmittedAfter(ctx context.Context, after time.Time) ([]*model.Application, error)
}

// Streamer はダッシュボード接続ごとのイベントフィードを生成する。
//
// 各接続は2系統の入力をマージする:
//   - 通知バスの購読（即時配信）
//   - レジストリへの定期照合ポーリング（バス断絶時の取りこぼし回収）
//
// 両系統は（応募ID, イベント種別）による重複排除を通るため、
// 同一イベントが何度届いても接続には1回だけ流れる。
type Streamer struct {
	bus          notify.Bus
	poller       RegistryPoller
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewStreamer はStreamerを生成する。pollIntervalが0以下の場合はデフォルト値を使用する。
func NewStreamer(bus notify.Bus, poller RegistryPoller, pollInterval time.Duration, logger *slog.Logger) *Streamer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Streamer{
		bus:          bus,
		poller:       poller,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Stream は接続用のイベントチャネルを返す。
// コンテキストのキャンセルでチャネルはクローズされる。
func (s *Streamer) Stream(ctx context.Context) <-chan model.NotificationEvent {
	out := make(chan model.NotificationEvent, 32)
	go s.run(ctx, out)
	return out
}

func (s *Streamer) run(ctx context.Context, out chan<- model.NotificationEvent) {
	defer close(out)

	seen := make(map[string]struct{})

	// バスからの受信は専用チャネル経由でこのゴルーチンに集約する。
	// 受信が詰まった場合は捨てる（ポーリングが回収する）。
	raw := make(chan model.NotificationEvent, 32)
	unsubscribe := s.bus.Subscribe(func(event model.NotificationEvent) {
		select {
		case raw <- event:
		default:
		}
	})
	defer unsubscribe()

	since := time.Now()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-raw:
			s.emit(ctx, out, seen, event)
		case <-ticker.C:
			pollStart := time.Now()
			apps, err := s.poller.ListSubmittedAfter(ctx, since)
			if err != nil {
				s.logger.Warn("照合ポーリングに失敗しました",
					slog.String("error", err.Error()),
				)
				continue
			}
			for _, app := range apps {
				s.emit(ctx, out, seen, model.NotificationEvent{
					Type:        model.EventApplicationReceived,
					Application: app,
					Timestamp:   time.Now(),
				})
			}
			since = pollStart
		}
	}
}

// emit は重複排除を通してイベントを接続へ送出する。
func (s *Streamer) emit(ctx context.Context, out chan<- model.NotificationEvent, seen map[string]struct{}, event model.NotificationEvent) {
	if event.Application == nil {
		return
	}
	key := event.Type + "/" + event.Application.ID
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}

	select {
	case out <- event:
	case <-ctx.Done():
	}
}
