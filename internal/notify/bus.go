// Package notify は応募イベントの通知バスを提供する。
// PostgresのLISTEN/NOTIFYを使った複数プロセス間の配信と、
// テスト・単一プロセス向けのインメモリ配信を実装する。
package notify

import (
	"context"
	"sync"

	"github.com/hitoshi/tryout/internal/model"
)

// Handler は通知イベントを受け取るコールバック。
type Handler func(event model.NotificationEvent)

// Bus は応募イベントの発行・購読インターフェース。
// 配信保証はat-least-once。重複排除は購読側がApplication IDで行う。
type Bus interface {
	// Publish はイベントを全購読者へ配信する。
	Publish(ctx context.Context, event model.NotificationEvent) error
	// Subscribe はハンドラを登録し、購読解除関数を返す。
	Subscribe(handler Handler) (unsubscribe func())
}

// fanout は購読者の登録と配信を行う。MemoryBusとPostgresBusで共用する。
type fanout struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func (f *fanout) subscribe(handler Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = make(map[int]Handler)
	}
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fanout) dispatch(event model.NotificationEvent) {
	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	// ハンドラ実行中はロックを持たない。購読中の解除を妨げないため。
	for _, h := range handlers {
		h(event)
	}
}

// MemoryBus はプロセス内完結の通知バス。
// テストおよびDATABASE_URLなしの開発起動で使用する。
type MemoryBus struct {
	fanout fanout
}

// NewMemoryBus はMemoryBusを生成する。
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish はイベントを同期的に全購読者へ配信する。
func (b *MemoryBus) Publish(ctx context.Context, event model.NotificationEvent) error {
	b.fanout.dispatch(event)
	return nil
}

// Subscribe はハンドラを登録する。
func (b *MemoryBus) Subscribe(handler Handler) func() {
	return b.fanout.subscribe(handler)
}

// compile-time interface check
var _ Bus = (*MemoryBus)(nil)

// PublishRecorder は発行済みイベントの計測を受け取るインターフェース。
type PublishRecorder interface {
	RecordNotificationPublished(eventType string)
}

// InstrumentedBus は発行成功をメトリクスに記録するBusデコレータ。
type InstrumentedBus struct {
	inner    Bus
	recorder PublishRecorder
}

// NewInstrumentedBus はInstrumentedBusを生成する。
func NewInstrumentedBus(inner Bus, recorder PublishRecorder) *InstrumentedBus {
	return &InstrumentedBus{
		inner:    inner,
		recorder: recorder,
	}
}

// Publish はイベントを配信し、成功した場合のみ計測を記録する。
func (b *InstrumentedBus) Publish(ctx context.Context, event model.NotificationEvent) error {
	if err := b.inner.Publish(ctx, event); err != nil {
		return err
	}
	b.recorder.RecordNotificationPublished(event.Type)
	return nil
}

// Subscribe は内側のBusへそのまま委譲する。
func (b *InstrumentedBus) Subscribe(handler Handler) func() {
	return b.inner.Subscribe(handler)
}

var _ Bus = (*InstrumentedBus)(nil)
