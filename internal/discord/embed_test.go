package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

func sampleApplication() *model.Application {
	return &model.Application{
		ID:         "app-1",
		Name:       "Marco Silva",
		Email:      "marco@example.com",
		DiscordTag: "marcosilva",
		Position:   model.PositionCompetitive,
		Message:    "I want to compete at the highest level.",
		Attributes: map[string]string{
			"platform":               "PC",
			"rank":                   "Immortal 2",
			"peak_rank":              "Immortal 3",
			"competitive_experience": "Three seasons of ranked grinding.",
			"availability":           "Weekday evenings",
		},
		Status:      model.StatusPending,
		SubmittedAt: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC),
	}
}

func findField(fields []EmbedField, name string) *EmbedField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

func TestBuildApplicationPayload_Basics(t *testing.T) {
	payload := BuildApplicationPayload(sampleApplication())

	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds count = %d, want 1", len(payload.Embeds))
	}
	embed := payload.Embeds[0]

	if embed.Title != "🎯 New Competitive Player Application" {
		t.Errorf("title = %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "Marco Silva") {
		t.Errorf("description = %q, want to contain applicant name", embed.Description)
	}
	if embed.Color != 0xff4824 {
		t.Errorf("color = %#x, want 0xff4824", embed.Color)
	}
	if embed.Footer == nil || embed.Footer.Text != "Team Zorn Application System" {
		t.Errorf("footer = %+v", embed.Footer)
	}
	if embed.Timestamp != "2025-11-10T09:00:00Z" {
		t.Errorf("timestamp = %q, want ISO-8601 of submission time", embed.Timestamp)
	}
}

func TestBuildApplicationPayload_ContactFields(t *testing.T) {
	embed := BuildApplicationPayload(sampleApplication()).Embeds[0]

	email := findField(embed.Fields, "📧 Email Address")
	if email == nil || email.Value != "marco@example.com" || !email.Inline {
		t.Errorf("email field = %+v", email)
	}
	tag := findField(embed.Fields, "💬 Discord Tag")
	if tag == nil || tag.Value != "marcosilva" {
		t.Errorf("discord tag field = %+v", tag)
	}
}

func TestBuildApplicationPayload_PositionAttributes(t *testing.T) {
	embed := BuildApplicationPayload(sampleApplication()).Embeds[0]

	rank := findField(embed.Fields, "🏆 Current Rank")
	if rank == nil || rank.Value != "Immortal 2" || !rank.Inline {
		t.Errorf("rank field = %+v", rank)
	}
	exp := findField(embed.Fields, "🏅 Competitive Experience")
	if exp == nil || exp.Inline {
		t.Errorf("experience field = %+v", exp)
	}
	// 値のない属性はフィールドごと省略される
	if f := findField(embed.Fields, "⚽ Preferred Position"); f != nil {
		t.Errorf("expected absent attribute to be omitted, got %+v", f)
	}
}

func TestBuildApplicationPayload_MessageTruncatedAt800(t *testing.T) {
	app := sampleApplication()
	app.Message = strings.Repeat("a", 1000)

	embed := BuildApplicationPayload(app).Embeds[0]
	motivation := findField(embed.Fields, "💭 Why Team Zorn?")
	if motivation == nil {
		t.Fatal("missing motivation field")
	}
	if len([]rune(motivation.Value)) != 803 {
		t.Errorf("motivation length = %d runes, want 800 + ellipsis", len([]rune(motivation.Value)))
	}
	if !strings.HasSuffix(motivation.Value, "...") {
		t.Error("truncated motivation should end with ellipsis")
	}
}

func TestBuildApplicationPayload_CreatorFieldsTruncatedAt400(t *testing.T) {
	app := &model.Application{
		Name:     "Yuki Tanaka",
		Position: model.PositionCreator,
		Attributes: map[string]string{
			"platforms": strings.Repeat("x", 500),
		},
	}

	embed := BuildApplicationPayload(app).Embeds[0]
	platforms := findField(embed.Fields, "📺 Platforms & Followers")
	if platforms == nil {
		t.Fatal("missing platforms field")
	}
	if len([]rune(platforms.Value)) != 403 {
		t.Errorf("platforms length = %d runes, want 400 + ellipsis", len([]rune(platforms.Value)))
	}
}

func TestBuildApplicationPayload_EmptyContactFallbacks(t *testing.T) {
	app := &model.Application{Position: model.PositionOther}

	embed := BuildApplicationPayload(app).Embeds[0]
	if !strings.Contains(embed.Description, "Name not provided") {
		t.Errorf("description = %q, want name fallback", embed.Description)
	}
	email := findField(embed.Fields, "📧 Email Address")
	if email == nil || email.Value != "Not provided" {
		t.Errorf("email field = %+v, want fallback value", email)
	}
}

func TestBuildApplicationPayload_EmptySectionsOmitted(t *testing.T) {
	app := &model.Application{
		Name:       "Sarah Chen",
		Email:      "sarah@example.com",
		DiscordTag: "sarahchen",
		Position:   model.PositionManagement,
	}

	embed := BuildApplicationPayload(app).Embeds[0]
	for _, field := range embed.Fields {
		if strings.Contains(field.Value, "Gaming Information") {
			t.Error("gaming section heading present for a position without gaming fields")
		}
		if strings.Contains(field.Value, "Experience & Skills") {
			t.Error("experience section heading present with no experience fields")
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "上限以下はそのまま", input: "short", limit: 10, want: "short"},
		{name: "上限ちょうどはそのまま", input: "12345", limit: 5, want: "12345"},
		{name: "超過分を切り詰め", input: "123456", limit: 5, want: "12345..."},
		{name: "上限0は無制限", input: "anything", limit: 0, want: "anything"},
		{name: "マルチバイトを壊さない", input: "あいうえおかきくけこ", limit: 5, want: "あいうえお..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.limit); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}
