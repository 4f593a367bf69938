// Package discord はDiscord連携機能を提供する。
// 応募通知のWebhook送信とサーバ統計の取得を含む。
package discord

import (
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

// embedColor はチームカラー（オレンジ）。
const embedColor = 0xff4824

const footerText = "Team Zorn Application System"

// セクション見出しはゼロ幅スペース名のフィールドとして挿入する（Discordの見た目上の慣習）。
const sectionSpacer = "​"

// Embed はDiscord Webhookの埋め込みメッセージ。
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField は埋め込みメッセージの1フィールド。
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter は埋め込みメッセージのフッター。
type EmbedFooter struct {
	Text string `json:"text"`
}

// WebhookPayload はWebhookエンドポイントへ送信するペイロード。
type WebhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// attributeField は応募属性から埋め込みフィールドへの変換定義。
type attributeField struct {
	key    string
	name   string
	inline bool
	limit  int // 0は切り詰めなし
}

// ポジション別のゲーム情報セクション（短い属性、インライン表示）。
var gameInfoFields = map[model.Position][]attributeField{
	model.PositionCompetitive: {
		{key: "platform", name: "🎮 Gaming Platform", inline: true},
		{key: "rank", name: "🏆 Current Rank", inline: true},
		{key: "peak_rank", name: "🥇 Peak Rank", inline: true},
		{key: "preferred_role", name: "⚽ Preferred Position", inline: true},
	},
	model.PositionEditor: {
		{key: "software", name: "💻 Primary Software", inline: true},
		{key: "experience", name: "📅 Experience Level", inline: true},
	},
	model.PositionDesigner: {
		{key: "specialization", name: "🎨 Design Specialization", inline: true},
	},
	model.PositionCreator: {
		{key: "content_type", name: "🎥 Primary Content Type", inline: true},
	},
}

// ポジション別の経験・スキルセクション（長文、切り詰めあり）。
var experienceFields = map[model.Position][]attributeField{
	model.PositionCompetitive: {
		{key: "competitive_experience", name: "🏅 Competitive Experience", limit: 500},
		{key: "strengths", name: "💪 Strengths & Playstyle", limit: 500},
	},
	model.PositionEditor: {
		{key: "portfolio", name: "🎬 Portfolio Links", limit: 500},
		{key: "special_skills", name: "⭐ Editing Specialties", limit: 500},
	},
	model.PositionDesigner: {
		{key: "portfolio", name: "🎬 Portfolio Links", limit: 500},
		{key: "software", name: "💻 Software Skills", limit: 500},
	},
	model.PositionCreator: {
		{key: "platforms", name: "📺 Platforms & Followers", limit: 400},
		{key: "schedule", name: "📆 Upload Schedule", limit: 400},
		{key: "channels", name: "🔗 Channel Links", limit: 400},
	},
	model.PositionCoach: {
		{key: "experience", name: "🏅 Coaching Experience", limit: 500},
	},
	model.PositionManagement: {
		{key: "experience", name: "🏅 Relevant Experience", limit: 500},
	},
	model.PositionOther: {
		{key: "experience", name: "🏅 Relevant Experience", limit: 500},
	},
}

// BuildApplicationPayload は応募からWebhook送信用の埋め込みペイロードを構築する。
func BuildApplicationPayload(app *model.Application) WebhookPayload {
	fields := []EmbedField{
		{Name: "📧 Email Address", Value: orFallback(app.Email, "Not provided"), Inline: true},
		{Name: "💬 Discord Tag", Value: orFallback(app.DiscordTag, "Not provided"), Inline: true},
	}

	fields = appendSection(fields, "**🎮 Gaming Information**",
		attributeSection(app, gameInfoFields[app.Position]))
	fields = appendSection(fields, "**📊 Experience & Skills**",
		attributeSection(app, experienceFields[app.Position]))

	var additional []EmbedField
	if v, ok := app.Attributes["availability"]; ok && v != "" {
		additional = append(additional, EmbedField{
			Name:  "⏰ Availability",
			Value: truncate(v, 400),
		})
	}
	if app.Message != "" {
		additional = append(additional, EmbedField{
			Name:  "💭 Why Team Zorn?",
			Value: truncate(app.Message, 800),
		})
	}
	fields = appendSection(fields, "**📝 Additional Information**", additional)

	submittedAt := app.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	return WebhookPayload{
		Embeds: []Embed{{
			Title:       "🎯 New " + app.Position.Label() + " Application",
			Description: "**👤 Applicant:** " + orFallback(app.Name, "Name not provided"),
			Color:       embedColor,
			Fields:      fields,
			Footer:      &EmbedFooter{Text: footerText},
			Timestamp:   submittedAt.UTC().Format(time.RFC3339),
		}},
	}
}

// attributeSection は定義に従い応募属性をフィールド列へ変換する。値のない属性は省略する。
func attributeSection(app *model.Application, specs []attributeField) []EmbedField {
	var fields []EmbedField
	for _, spec := range specs {
		value, ok := app.Attributes[spec.key]
		if !ok || value == "" {
			continue
		}
		fields = append(fields, EmbedField{
			Name:   spec.name,
			Value:  truncate(value, spec.limit),
			Inline: spec.inline,
		})
	}
	return fields
}

// appendSection は見出し付きでフィールド列を連結する。空のセクションは見出しごと省略する。
func appendSection(fields []EmbedField, heading string, section []EmbedField) []EmbedField {
	if len(section) == 0 {
		return fields
	}
	fields = append(fields, EmbedField{Name: sectionSpacer, Value: heading})
	return append(fields, section...)
}

// truncate は文字数上限を超えるテキストを切り詰めて末尾に"..."を付与する。
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// orFallback は空文字列の場合に代替テキストを返す。
func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
