// Package model はドメインモデルを定義する。
package model

import "time"

// ApplicationStatus は応募の審査状態を表す。
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusDenied   ApplicationStatus = "denied"
)

// ValidStatus は既知のステータス値かどうかを返す。
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDenied:
		return true
	}
	return false
}

// Position は募集ポジションを表す。
type Position string

const (
	PositionCompetitive Position = "competitive"
	PositionCreator     Position = "creator"
	PositionEditor      Position = "editor"
	PositionDesigner    Position = "designer"
	PositionCoach       Position = "coach"
	PositionManagement  Position = "management"
	PositionOther       Position = "other"
)

// positionAliases は旧サイトで使われていた別名の対応表。
var positionAliases = map[string]Position{
	"freestyler":         PositionCompetitive,
	"competitive-player": PositionCompetitive,
	"video-editor":       PositionEditor,
	"content-creator":    PositionCreator,
}

// NormalizePosition は別名を正規化し、既知のポジションかどうかを返す。
func NormalizePosition(raw string) (Position, bool) {
	if p, ok := positionAliases[raw]; ok {
		return p, true
	}
	p := Position(raw)
	switch p {
	case PositionCompetitive, PositionCreator, PositionEditor,
		PositionDesigner, PositionCoach, PositionManagement, PositionOther:
		return p, true
	}
	return "", false
}

// Label はポジションの表示名を返す。
func (p Position) Label() string {
	switch p {
	case PositionCompetitive:
		return "Competitive Player"
	case PositionCreator:
		return "Content Creator"
	case PositionEditor:
		return "Video Editor"
	case PositionDesigner:
		return "Designer"
	case PositionCoach:
		return "Coach"
	case PositionManagement:
		return "Management"
	default:
		return "Other"
	}
}

// Application は入団応募1件を表す。
// Attributesにはポジション固有の項目（rank, software等）を保持する。
// Seedはデモデータ投入由来のレコードであることを示す。
type Application struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	DiscordTag  string            `json:"discordTag"`
	Position    Position          `json:"position"`
	Message     string            `json:"message,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Seed        bool              `json:"seed,omitempty"`
}

// ApplicationFilter は一覧取得時の絞り込み条件。
type ApplicationFilter string

const (
	FilterAll      ApplicationFilter = "all"
	FilterPending  ApplicationFilter = ApplicationFilter(StatusPending)
	FilterAccepted ApplicationFilter = ApplicationFilter(StatusAccepted)
	FilterDenied   ApplicationFilter = ApplicationFilter(StatusDenied)
)

// ValidFilter は既知のフィルタ値かどうかを返す。
func ValidFilter(f ApplicationFilter) bool {
	switch f {
	case FilterAll, FilterPending, FilterAccepted, FilterDenied:
		return true
	}
	return false
}

// ApplicationSort は一覧取得時の並び順。
type ApplicationSort string

const (
	SortNewest ApplicationSort = "newest"
	SortOldest ApplicationSort = "oldest"
	SortRole   ApplicationSort = "role"
	SortName   ApplicationSort = "name"
)

// ValidSort は既知のソート値かどうかを返す。
func ValidSort(s ApplicationSort) bool {
	switch s {
	case SortNewest, SortOldest, SortRole, SortName:
		return true
	}
	return false
}

// ApplicationStats は応募件数の集計値。
type ApplicationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Denied   int `json:"denied"`
}
