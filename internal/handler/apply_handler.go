package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tryout/internal/metrics"
	"github.com/hitoshi/tryout/internal/model"
	"github.com/hitoshi/tryout/internal/submission"
)

// maxApplyFormSize は応募フォームの最大サイズ。
const maxApplyFormSize = 1 << 20 // 1MB

// ApplyServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplyServiceInterface interface {
	// Submit は応募フォームを検証し、上流またはWebhookへ配信する。
	Submit(ctx context.Context, rawType string, fields map[string]string) (*submission.Result, error)
}

// ApplyHandler は応募フォーム受付のHTTPハンドラー。
type ApplyHandler struct {
	service ApplyServiceInterface
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewApplyHandler はApplyHandlerを生成する。collectorはnilでもよい。
func NewApplyHandler(service ApplyServiceInterface, collector metrics.MetricsCollector, logger *slog.Logger) *ApplyHandler {
	return &ApplyHandler{
		service: service,
		metrics: collector,
		logger:  logger,
	}
}

// applyResponse は応募受付のAPIレスポンス。
// 旧サイトのフロントエンドが期待する形式に合わせる。
type applyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Submit は応募フォームの送信を処理する。
// multipart/form-dataとapplication/x-www-form-urlencodedの両方を受け付ける。
// POST /api/apply/{type}
func (h *ApplyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	applicationType := chi.URLParam(r, "type")

	fields, err := parseFormFields(r)
	if err != nil {
		h.logger.Warn("応募フォームの解析に失敗",
			slog.String("type", applicationType),
			slog.String("error", err.Error()),
		)
		writeInvalidRequestError(w)
		return
	}

	start := time.Now()
	result, err := h.service.Submit(r.Context(), applicationType, fields)
	if err != nil {
		h.recordFailure(err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSubmission(string(result.Application.Position))
		h.metrics.RecordDelivery(result.DeliveredVia)
		h.metrics.RecordDeliveryLatency(time.Since(start))
	}

	h.logger.Info("応募を受け付けた",
		slog.String("type", applicationType),
		slog.String("application_id", result.Application.ID),
		slog.String("delivered_via", result.DeliveredVia),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(applyResponse{
		Success: true,
		Message: result.Message,
	})
}

// recordFailure は受付失敗をメトリクスに記録する。
func (h *ApplyHandler) recordFailure(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		h.metrics.RecordSubmissionRejected("internal")
		return
	}
	if apiErr.Code == model.ErrCodeDeliveryFailed {
		h.metrics.RecordDeliveryFailure()
		return
	}
	h.metrics.RecordSubmissionRejected(apiErr.Code)
}

// parseFormFields はリクエストからフォームフィールドを取り出す。
// 同名フィールドが複数ある場合は先頭の値を採用する。
func parseFormFields(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxApplyFormSize); err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}

	fields := make(map[string]string, len(r.Form))
	for key, values := range r.Form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	if r.MultipartForm != nil {
		for key, values := range r.MultipartForm.Value {
			if _, ok := fields[key]; !ok && len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}
	return fields, nil
}
