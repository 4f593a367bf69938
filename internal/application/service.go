// Package application は入団応募の登録・審査・集計のビジネスロジックを提供する。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tryout/internal/model"
	"github.com/hitoshi/tryout/internal/notify"
	"github.com/hitoshi/tryout/internal/repository"
)

// Service は応募レジストリのビジネスロジックを実装する。
// すべての変更操作は単文SQLで即時永続化され、成功時に通知バスへイベントを発行する。
type Service struct {
	repo   repository.ApplicationRepository
	bus    notify.Bus
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ApplicationRepository, bus notify.Bus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Append は応募を登録する。
// IDが空の場合は新規採番する。同一IDの再送は冪等に無視される（falseを返す）。
// 登録に成功した場合はapplication_receivedイベントを発行する。
func (s *Service) Append(ctx context.Context, app *model.Application) (bool, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = model.StatusPending
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now()
	}

	inserted, err := s.repo.Insert(ctx, app)
	if err != nil {
		return false, fmt.Errorf("応募の登録に失敗: %w", err)
	}
	if !inserted {
		// 重複配信による再送。登録済みなので通知も発行しない。
		s.logger.Info("重複した応募を無視しました",
			slog.String("application_id", app.ID),
		)
		return false, nil
	}

	s.logger.Info("応募を登録しました",
		slog.String("application_id", app.ID),
		slog.String("position", string(app.Position)),
	)
	s.publish(ctx, model.EventApplicationReceived, app)
	return true, nil
}

// SetStatus は応募の審査状態を変更する。
// 許可される遷移はpending→accepted、pending→deniedのみ。
// 対象が存在しない場合はAPPLICATION_NOT_FOUND、
// 審査済みの応募に対する変更はINVALID_TRANSITIONを返す。
func (s *Service) SetStatus(ctx context.Context, id string, to model.ApplicationStatus) (*model.Application, error) {
	if to != model.StatusAccepted && to != model.StatusDenied {
		return nil, model.NewInvalidTransitionError(model.StatusPending, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, model.StatusPending, to)
	if err != nil {
		return nil, fmt.Errorf("ステータスの更新に失敗: %w", err)
	}
	if !updated {
		// 不在か、既にpending以外かを区別して返す
		app, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("応募の取得に失敗: %w", err)
		}
		if app == nil {
			return nil, model.NewApplicationNotFoundError(id)
		}
		return nil, model.NewInvalidTransitionError(app.Status, to)
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}

	s.logger.Info("応募のステータスを更新しました",
		slog.String("application_id", id),
		slog.String("status", string(to)),
	)
	s.publish(ctx, model.EventApplicationUpdated, app)
	return app, nil
}

// Remove は応募をステータスに関わらず削除する。
// 対象が存在しない場合はAPPLICATION_NOT_FOUNDを返す。
func (s *Service) Remove(ctx context.Context, id string) error {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("応募の取得に失敗: %w", err)
	}
	if app == nil {
		return model.NewApplicationNotFoundError(id)
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("応募の削除に失敗: %w", err)
	}
	if !deleted {
		return model.NewApplicationNotFoundError(id)
	}

	s.logger.Info("応募を削除しました",
		slog.String("application_id", id),
	)
	s.publish(ctx, model.EventApplicationRemoved, app)
	return nil
}

// Get は指定IDの応募を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}
	return app, nil
}

// List はフィルタとソートを適用した応募一覧を返す。
// 未知のフィルタ・ソート値は検証エラーを返す。空文字列はデフォルト値として扱う。
func (s *Service) List(ctx context.Context, filter model.ApplicationFilter, sort model.ApplicationSort) ([]*model.Application, error) {
	if filter == "" {
		filter = model.FilterAll
	}
	if sort == "" {
		sort = model.SortNewest
	}
	if !model.ValidFilter(filter) {
		return nil, model.NewInvalidFilterError(string(filter))
	}
	if !model.ValidSort(sort) {
		return nil, model.NewInvalidSortError(string(sort))
	}

	apps, err := s.repo.List(ctx, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗: %w", err)
	}
	return apps, nil
}

// ListSubmittedAfter は指定時刻より後に提出された応募を返す。
// ダッシュボードの照合ポーリングで使用する。
func (s *Service) ListSubmittedAfter(ctx context.Context, after time.Time) ([]*model.Application, error) {
	apps, err := s.repo.ListSubmittedAfter(ctx, after)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗: %w", err)
	}
	return apps, nil
}

// Stats はステータス別の応募件数を返す。
func (s *Service) Stats(ctx context.Context) (*model.ApplicationStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("応募件数の集計に失敗: %w", err)
	}
	return stats, nil
}

// ClearSeedData はデモデータを一括削除し、削除件数を返す。
// 実データの相対順序には影響しない。
func (s *Service) ClearSeedData(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteSeed(ctx)
	if err != nil {
		return 0, fmt.Errorf("デモデータの削除に失敗: %w", err)
	}
	s.logger.Info("デモデータを削除しました",
		slog.Int64("deleted_count", deleted),
	)
	return deleted, nil
}

// SeedDemoData はデモ用の応募データを投入する。冪等で、既存レコードは再挿入しない。
// 投入件数を返す。
func (s *Service) SeedDemoData(ctx context.Context) (int, error) {
	inserted := 0
	for _, app := range demoApplications() {
		ok, err := s.repo.Insert(ctx, app)
		if err != nil {
			return inserted, fmt.Errorf("デモデータの投入に失敗: %w", err)
		}
		if ok {
			inserted++
		}
	}
	s.logger.Info("デモデータを投入しました",
		slog.Int("inserted_count", inserted),
	)
	return inserted, nil
}

// publish は通知バスへイベントを発行する。
// 発行失敗は操作自体の失敗にはしない。取りこぼしは照合ポーリングが補完する。
func (s *Service) publish(ctx context.Context, eventType string, app *model.Application) {
	if s.bus == nil {
		return
	}
	event := model.NotificationEvent{
		Type:        eventType,
		Application: app,
		Timestamp:   time.Now(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("通知イベントの発行に失敗しました",
			slog.String("event_type", eventType),
			slog.String("application_id", app.ID),
			slog.String("error", err.Error()),
		)
	}
}
