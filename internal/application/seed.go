package application

import (
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

// demoApplications はダッシュボード確認用のデモ応募データ。
// IDを固定しているため、何度投入しても重複しない。
func demoApplications() []*model.Application {
	base := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	return []*model.Application{
		{
			ID:         "11111111-1111-4111-8111-111111111101",
			Name:       "Rina Kobayashi",
			Email:      "rina.design@example.com",
			DiscordTag: "rina_designs",
			Position:   model.PositionDesigner,
			Message:    "I run a small design studio and would love to build the team's visual identity.",
			Attributes: map[string]string{
				"software":  "Photoshop, Illustrator, Figma",
				"portfolio": "https://rina-designs.example.com",
			},
			Status:      model.StatusPending,
			SubmittedAt: base,
			Seed:        true,
		},
		{
			ID:         "11111111-1111-4111-8111-111111111102",
			Name:       "Marco Silva",
			Email:      "marco.aim@example.com",
			DiscordTag: "marcosilva",
			Position:   model.PositionCompetitive,
			Message:    "Grinding ranked for three seasons, looking for a team to compete with.",
			Attributes: map[string]string{
				"rank":     "Immortal 2",
				"platform": "PC",
			},
			Status:      model.StatusPending,
			SubmittedAt: base.Add(2 * time.Hour),
			Seed:        true,
		},
		{
			ID:         "11111111-1111-4111-8111-111111111103",
			Name:       "Yuki Tanaka",
			Email:      "yuki.streams@example.com",
			DiscordTag: "yukistreams",
			Position:   model.PositionCreator,
			Message:    "Streaming daily with a growing community, want to represent a team.",
			Attributes: map[string]string{
				"platforms":    "Twitch, YouTube",
				"content_type": "Live gameplay, highlight videos",
			},
			Status:      model.StatusPending,
			SubmittedAt: base.Add(5 * time.Hour),
			Seed:        true,
		},
		{
			ID:         "11111111-1111-4111-8111-111111111104",
			Name:       "Sarah Chen",
			Email:      "sarah.ops@example.com",
			DiscordTag: "sarahchen",
			Position:   model.PositionManagement,
			Message:    "Five years of event coordination experience, can handle scheduling and sponsor outreach.",
			Status:     model.StatusPending,
			SubmittedAt: base.Add(8 * time.Hour),
			Seed:       true,
		},
		{
			ID:         "11111111-1111-4111-8111-111111111105",
			Name:       "Daniel Novak",
			Email:      "daniel.edits@example.com",
			DiscordTag: "dnovak",
			Position:   model.PositionEditor,
			Message:    "I cut montages and tournament recaps, turnaround under 48 hours.",
			Attributes: map[string]string{
				"software":  "Premiere Pro, After Effects",
				"portfolio": "https://youtube.example.com/@dnovak",
			},
			Status:      model.StatusPending,
			SubmittedAt: base.Add(11 * time.Hour),
			Seed:        true,
		},
	}
}
