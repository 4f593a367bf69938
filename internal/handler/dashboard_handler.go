package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tryout/internal/dashboard"
	"github.com/hitoshi/tryout/internal/metrics"
	"github.com/hitoshi/tryout/internal/middleware"
	"github.com/hitoshi/tryout/internal/model"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	// List はフィルタとソートを適用した応募一覧を返す。
	List(ctx context.Context, filter model.ApplicationFilter, sort model.ApplicationSort) ([]*model.Application, error)
	// Get は指定IDの応募を取得する。
	Get(ctx context.Context, id string) (*model.Application, error)
	// SetStatus は応募のステータスを変更する。
	SetStatus(ctx context.Context, id string, to model.ApplicationStatus) (*model.Application, error)
	// Remove は応募を削除する。
	Remove(ctx context.Context, id string) error
	// Stats はステータス別の応募件数を返す。
	Stats(ctx context.Context) (*model.ApplicationStats, error)
	// ClearSeedData はデモデータを一括削除する。
	ClearSeedData(ctx context.Context) (int64, error)
	// SeedDemoData はデモデータを投入する。
	SeedDemoData(ctx context.Context) (int, error)
}

// EventStreamer はダッシュボードのイベント配信インターフェース。
type EventStreamer interface {
	// Stream は通知イベントのチャネルを返す。ctxのキャンセルで閉じる。
	Stream(ctx context.Context) <-chan model.NotificationEvent
}

// DashboardHandler は審査ダッシュボードのHTTPハンドラー。
// 破壊的操作（accept / deny / remove / clear_seed）は
// トークン発行→確認の二段階でのみ実行される。
type DashboardHandler struct {
	service  DashboardServiceInterface
	confirms *dashboard.ConfirmStore
	streamer EventStreamer
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(
	service DashboardServiceInterface,
	confirms *dashboard.ConfirmStore,
	streamer EventStreamer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		service:  service,
		confirms: confirms,
		streamer: streamer,
		metrics:  collector,
		logger:   logger,
	}
}

// listApplicationsResponse は応募一覧のAPIレスポンス。
type listApplicationsResponse struct {
	Applications []*model.Application `json:"applications"`
	Count        int                  `json:"count"`
}

// actionRequest は破壊的操作の予約リクエストのボディ。
type actionRequest struct {
	Action string `json:"action"`
}

// confirmResultResponse は確認実行後のAPIレスポンス。
type confirmResultResponse struct {
	Success     bool               `json:"success"`
	Action      string             `json:"action"`
	Application *model.Application `json:"application,omitempty"`
	Deleted     int64              `json:"deleted,omitempty"`
}

// ListApplications は応募一覧を返す。
// GET /api/dashboard/applications?filter=pending&sort=newest
func (h *DashboardHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	filter := model.ApplicationFilter(r.URL.Query().Get("filter"))
	sort := model.ApplicationSort(r.URL.Query().Get("sort"))

	apps, err := h.service.List(r.Context(), filter, sort)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listApplicationsResponse{
		Applications: apps,
		Count:        len(apps),
	})
}

// GetStats はステータス別の応募件数を返す。
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// RequestAction は応募に対する破壊的操作を予約し、確認トークンを発行する。
// この時点では一切の変更を行わない。
// POST /api/dashboard/applications/{id}/actions
func (h *DashboardHandler) RequestAction(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "id")

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	action := dashboard.ActionKind(req.Action)
	if !dashboard.ValidAction(action) || action == dashboard.ActionClearSeed {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(fmt.Sprintf("不明な操作です: %s", req.Action)))
		return
	}

	// 対象の存在確認。確認時点で消えている場合は実行時にエラーになる
	if _, err := h.service.Get(r.Context(), applicationID); err != nil {
		handleServiceError(w, err)
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	pending := h.confirms.Create(applicationID, action, identity.Email())

	h.logger.Info("破壊的操作を予約",
		slog.String("application_id", applicationID),
		slog.String("action", string(action)),
		slog.String("requested_by", identity.Email()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(pending)
}

// Confirm は確認トークンを消費し、予約された操作を実行する。
// トークンは一度しか使えない。
// POST /api/dashboard/confirmations/{token}
func (h *DashboardHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	pending, err := h.confirms.Take(token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.execute(r.Context(), pending)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// CancelConfirmation は確認トークンを破棄する。操作は実行されない。
// DELETE /api/dashboard/confirmations/{token}
func (h *DashboardHandler) CancelConfirmation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if !h.confirms.Cancel(token) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewConfirmationNotFoundError())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearSeed はデモデータの一括削除を予約し、確認トークンを発行する。
// 対象全体に対する操作のため応募IDは持たない。
// 削除が実行されるのは確認トークンの消費時のみ。
// DELETE /api/dashboard/applications/seed
func (h *DashboardHandler) ClearSeed(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	pending := h.confirms.Create("", dashboard.ActionClearSeed, identity.Email())

	h.logger.Info("破壊的操作を予約",
		slog.String("action", string(dashboard.ActionClearSeed)),
		slog.String("requested_by", identity.Email()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(pending)
}

// SeedDemo はデモデータを投入する。
// POST /api/dashboard/applications/seed
func (h *DashboardHandler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	inserted, err := h.service.SeedDemoData(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"inserted": inserted,
	})
}

// StreamEvents は応募の変更通知をServer-Sent Eventsで配信する。
// GET /api/dashboard/events
func (h *DashboardHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "STREAMING_UNSUPPORTED",
			Message:  "ストリーミングに対応していません。",
			Category: "system",
			Action:   "ポーリングで一覧を再取得してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if h.metrics != nil {
		h.metrics.RecordDashboardStream(1)
		defer h.metrics.RecordDashboardStream(-1)
	}

	// 再接続間隔を指示してから配信を開始する
	fmt.Fprintf(w, "retry: 3000\n\n")
	flusher.Flush()

	events := h.streamer.Stream(r.Context())
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			// 中継プロキシに切断されないようコメント行を送る
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("イベントのシリアライズに失敗", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

// execute は予約された操作を実行する。
func (h *DashboardHandler) execute(ctx context.Context, pending *dashboard.PendingAction) (*confirmResultResponse, error) {
	switch pending.Action {
	case dashboard.ActionAccept, dashboard.ActionDeny:
		to := model.StatusAccepted
		if pending.Action == dashboard.ActionDeny {
			to = model.StatusDenied
		}
		app, err := h.service.SetStatus(ctx, pending.ApplicationID, to)
		if err != nil {
			return nil, err
		}
		if h.metrics != nil {
			h.metrics.RecordStatusChange(string(to))
		}
		return &confirmResultResponse{Success: true, Action: string(pending.Action), Application: app}, nil

	case dashboard.ActionRemove:
		if err := h.service.Remove(ctx, pending.ApplicationID); err != nil {
			return nil, err
		}
		return &confirmResultResponse{Success: true, Action: string(pending.Action)}, nil

	case dashboard.ActionClearSeed:
		deleted, err := h.service.ClearSeedData(ctx)
		if err != nil {
			return nil, err
		}
		return &confirmResultResponse{Success: true, Action: string(pending.Action), Deleted: deleted}, nil

	default:
		return nil, model.NewValidationFailedError(fmt.Sprintf("不明な操作です: %s", pending.Action))
	}
}
