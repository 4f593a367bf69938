package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// maxRetryAfterWait はレート制限時の再送前待機の上限。
// Discordが極端に長いRetry-Afterを返した場合は再送を諦める。
const maxRetryAfterWait = 5 * time.Second

// WebhookSender は応募通知をDiscord Webhookへ送信する。
// 429を受けた場合のみRetry-Afterに従って1回だけ再送する。
// それ以外のエラーでは再送しない。
type WebhookSender struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookSender はWebhookSenderの新しいインスタンスを生成する。
func NewWebhookSender(httpClient *http.Client, logger *slog.Logger) *WebhookSender {
	return &WebhookSender{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send はWebhookエンドポイントへ埋め込みメッセージを送信する。
// Discordは成功時204を返すが、2xx全体を成功として扱う。
func (s *WebhookSender) Send(ctx context.Context, webhookURL string, payload WebhookPayload) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URLが設定されていません")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhookペイロードの生成に失敗しました: %w", err)
	}

	resp, err := s.post(ctx, webhookURL, body)
	if err != nil {
		s.logger.Warn("Discord Webhookの送信に失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfterWait(resp.Header.Get("Retry-After"))
		resp.Body.Close()

		if wait > maxRetryAfterWait {
			return fmt.Errorf("Discord Webhookがレート制限中です（Retry-After %s）", wait)
		}

		s.logger.Warn("Discord Webhookがレート制限を返したため再送します",
			slog.Duration("retry_after", wait),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		resp, err = s.post(ctx, webhookURL, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Warn("Discord Webhookがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return fmt.Errorf("Discord Webhookがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}

func (s *WebhookSender) post(ctx context.Context, webhookURL string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.httpClient.Do(req)
}

// retryAfterWait はRetry-Afterヘッダ（秒、小数可）を待機時間に変換する。
// 欠落・不正な値は1秒として扱う。
func retryAfterWait(header string) time.Duration {
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}
