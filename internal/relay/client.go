// Package relay は応募の上流バックエンドへの転送クライアントを提供する。
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
)

// Response は上流バックエンドの応募エンドポイントのレスポンス。
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client は上流バックエンドへ応募をmultipart形式で転送するクライアント。
// 転送は1回のみ試行し、失敗時のリトライは行わない（Webhookフォールバックが控えている）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合、Forwardは常にエラーを返す（フォールバックのみで配信される）。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// Enabled は上流転送が設定されているかどうかを返す。
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Forward は応募フォームを上流の /api/apply/{type} へ転送する。
// 到達不能、2xx以外、success=falseのいずれもエラーとして返す。
func (c *Client) Forward(ctx context.Context, applicationType string, fields map[string]string) (*Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("上流バックエンドが設定されていません")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// フィールド順を安定させる
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("multipartフォームの構築に失敗しました: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("multipartフォームの構築に失敗しました: %w", err)
	}

	reqURL := c.baseURL + "/api/apply/" + applicationType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("上流バックエンドへの転送に失敗しました",
			slog.String("application_type", applicationType),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("上流バックエンドがエラーステータスを返しました",
			slog.String("application_type", applicationType),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("上流バックエンドがステータス %d を返しました", resp.StatusCode)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("上流バックエンドが失敗を返しました: %s", result.Error)
	}

	return &result, nil
}
