// Package submission は応募フォームの検証・整形・配信を提供する。
package submission

import (
	"net/mail"
	"strings"

	"github.com/hitoshi/tryout/internal/model"
)

// フォームの必須共通フィールド。
var requiredCommonFields = []string{"fullName", "email", "discordTag"}

// ポジション別の必須フィールド。
var requiredPositionFields = map[model.Position][]string{
	model.PositionCompetitive: {"rlRank", "platform"},
	model.PositionEditor:      {"software"},
	model.PositionDesigner:    {"software"},
	model.PositionCreator:     {"platforms", "contentType"},
}

// attributeKeys はフォームのフィールド名から応募属性キーへの対応表。
// ここに載っていないフィールドは属性として保存しない。
var attributeKeys = map[string]string{
	"rlRank":                "rank",
	"peakRank":              "peak_rank",
	"platform":              "platform",
	"preferredRole":         "preferred_role",
	"competitiveExperience": "competitive_experience",
	"strengths":             "strengths",
	"software":              "software",
	"experience":            "experience",
	"portfolio":             "portfolio",
	"specialSkills":         "special_skills",
	"specialization":        "specialization",
	"platforms":             "platforms",
	"contentType":           "content_type",
	"schedule":              "schedule",
	"channels":              "channels",
	"contentLinks":          "portfolio",
	"availability":          "availability",
	"age":                   "age",
	"timezone":              "timezone",
}

// urlFields はURLガードによる検証対象のフィールド。
// 複数リンクを空白・改行区切りで含むことがある。
var urlFields = []string{"portfolio", "contentLinks", "channels"}

// validateForm は必須フィールドの欠落を収集して返す。
func validateForm(position model.Position, fields map[string]string) []string {
	var missing []string
	for _, name := range requiredCommonFields {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	for _, name := range requiredPositionFields[position] {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// validEmail はメールアドレスの形式を検証する。
func validEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}

// extractLinks はフィールド値から検証対象のhttp(s)リンクを抽出する。
func extractLinks(value string) []string {
	var links []string
	for _, token := range strings.Fields(value) {
		if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
			links = append(links, token)
		}
	}
	return links
}

// buildApplication は検証済みのフォームから応募レコードを構築する。
// メッセージはmotivationを優先し、whyJoin、experienceの順で代替する。
func buildApplication(position model.Position, fields map[string]string) *model.Application {
	attributes := make(map[string]string)
	for formKey, attrKey := range attributeKeys {
		if value := strings.TrimSpace(fields[formKey]); value != "" {
			attributes[attrKey] = value
		}
	}
	if len(attributes) == 0 {
		attributes = nil
	}

	message := strings.TrimSpace(fields["motivation"])
	if message == "" {
		message = strings.TrimSpace(fields["whyJoin"])
	}
	if message == "" {
		message = strings.TrimSpace(fields["experience"])
	}

	return &model.Application{
		Name:       strings.TrimSpace(fields["fullName"]),
		Email:      strings.TrimSpace(fields["email"]),
		DiscordTag: strings.TrimSpace(fields["discordTag"]),
		Position:   position,
		Message:    message,
		Attributes: attributes,
		Status:     model.StatusPending,
	}
}
