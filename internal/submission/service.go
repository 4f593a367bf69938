package submission

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/tryout/internal/discord"
	"github.com/hitoshi/tryout/internal/model"
	"github.com/hitoshi/tryout/internal/relay"
	"github.com/hitoshi/tryout/internal/security"
)

// UpstreamForwarder は上流バックエンドへの転送インターフェース。
type UpstreamForwarder interface {
	Enabled() bool
	Forward(ctx context.Context, applicationType string, fields map[string]string) (*relay.Response, error)
}

// EmbedSender はDiscord Webhookへの送信インターフェース。
type EmbedSender interface {
	Send(ctx context.Context, webhookURL string, payload discord.WebhookPayload) error
}

// Registry は応募レジストリへの登録インターフェース。
type Registry interface {
	Append(ctx context.Context, app *model.Application) (bool, error)
}

// WebhookConfig はポジション別のWebhook URL設定。
type WebhookConfig struct {
	Competitive string
	Creator     string
	Editor      string
	Designer    string
	Other       string
}

// URLFor はポジションに対応するWebhook URLを返す。
// management、coach、otherはOtherのWebhookへ集約される。
func (c WebhookConfig) URLFor(position model.Position) string {
	switch position {
	case model.PositionCompetitive:
		return c.Competitive
	case model.PositionCreator:
		return c.Creator
	case model.PositionEditor:
		return c.Editor
	case model.PositionDesigner:
		return c.Designer
	default:
		return c.Other
	}
}

// Result は応募受付の結果。
type Result struct {
	Application *model.Application
	// DeliveredViaは配信に成功した経路（upstream または webhook）。
	DeliveredVia string
	Message      string
}

// Service は応募フォームの受付処理を実装する。
// 検証・サニタイズののち、上流バックエンドへの転送を試み、
// 失敗時はポジション別のDiscord Webhookにフォールバックする。
// どちらかが成功すれば受付成功とし、レジストリへ登録する。
type Service struct {
	registry  Registry
	forwarder UpstreamForwarder
	sender    EmbedSender
	webhooks  WebhookConfig
	sanitizer security.TextSanitizerService
	urlGuard  security.URLGuardService
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	registry Registry,
	forwarder UpstreamForwarder,
	sender EmbedSender,
	webhooks WebhookConfig,
	sanitizer security.TextSanitizerService,
	urlGuard security.URLGuardService,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		forwarder: forwarder,
		sender:    sender,
		webhooks:  webhooks,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		logger:    logger,
	}
}

// Submit は応募フォームを受け付ける。
// rawTypeはURLパスの応募種別で、旧サイトの別名（freestyler等）も受け付ける。
func (s *Service) Submit(ctx context.Context, rawType string, fields map[string]string) (*Result, error) {
	position, ok := model.NormalizePosition(rawType)
	if !ok {
		return nil, model.NewUnknownPositionError(rawType)
	}

	// 全フィールドをサニタイズしてから検証する
	sanitized := make(map[string]string, len(fields))
	for key, value := range fields {
		sanitized[key] = s.sanitizer.Sanitize(value)
	}

	if missing := validateForm(position, sanitized); len(missing) > 0 {
		return nil, model.NewValidationFailedError(strings.Join(missing, ", "))
	}
	if !validEmail(sanitized["email"]) {
		return nil, model.NewValidationFailedError("email")
	}

	// ポートフォリオ等のリンクはSSRF対策の検証を通す
	for _, fieldName := range urlFields {
		for _, link := range extractLinks(sanitized[fieldName]) {
			if err := s.urlGuard.ValidateURL(link); err != nil {
				return nil, model.NewInvalidURLError(fieldName)
			}
		}
	}

	app := buildApplication(position, sanitized)

	deliveredVia, err := s.deliver(ctx, position, sanitized, app)
	if err != nil {
		return nil, err
	}

	// 配信は完了しているため、レジストリ登録の失敗で受付自体は失敗させない。
	// クライアントに再送させるとWebhookが二重投稿になる。
	if _, err := s.registry.Append(ctx, app); err != nil {
		s.logger.Error("応募のレジストリ登録に失敗しました",
			slog.String("position", string(position)),
			slog.String("error", err.Error()),
		)
	}

	return &Result{
		Application:  app,
		DeliveredVia: deliveredVia,
		Message:      "Application submitted successfully",
	}, nil
}

// deliver は上流転送→Webhookの順で配信を試みる。成功した経路名を返す。
// 各経路の試行は1回のみ。両方失敗した場合は配信失敗エラーを返す。
func (s *Service) deliver(ctx context.Context, position model.Position, fields map[string]string, app *model.Application) (string, error) {
	if s.forwarder != nil && s.forwarder.Enabled() {
		if _, err := s.forwarder.Forward(ctx, string(position), fields); err == nil {
			return "upstream", nil
		}
		s.logger.Warn("上流転送に失敗したためWebhookへフォールバックします",
			slog.String("position", string(position)),
		)
	}

	webhookURL := s.webhooks.URLFor(position)
	if webhookURL == "" {
		s.logger.Error("フォールバック先のWebhookが設定されていません",
			slog.String("position", string(position)),
		)
		return "", model.NewDeliveryFailedError()
	}

	payload := discord.BuildApplicationPayload(app)
	if err := s.sender.Send(ctx, webhookURL, payload); err != nil {
		s.logger.Error("Webhookフォールバックにも失敗しました",
			slog.String("position", string(position)),
			slog.String("error", err.Error()),
		)
		return "", model.NewDeliveryFailedError()
	}
	return "webhook", nil
}
