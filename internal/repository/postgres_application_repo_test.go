package repository

import (
	"testing"

	"github.com/hitoshi/tryout/internal/model"
)

// PostgresApplicationRepoはApplicationRepositoryインターフェースを満たすことを検証
func TestPostgresApplicationRepo_ImplementsInterface(t *testing.T) {
	var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
}

// PostgresRosterRepoはRosterRepositoryインターフェースを満たすことを検証
func TestPostgresRosterRepo_ImplementsInterface(t *testing.T) {
	var _ RosterRepository = (*PostgresRosterRepo)(nil)
}

// NewPostgresApplicationRepoが正しく初期化されることを検証
func TestNewPostgresApplicationRepo_Initializes(t *testing.T) {
	repo := NewPostgresApplicationRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ソートキーごとのORDER BY句の検証
func TestOrderClause(t *testing.T) {
	tests := []struct {
		sort model.ApplicationSort
		want string
	}{
		{model.SortNewest, "submitted_at DESC"},
		{model.SortOldest, "submitted_at ASC"},
		{model.SortRole, "position ASC, submitted_at DESC"},
		{model.SortName, "lower(name) ASC, submitted_at DESC"},
		// 未知の値はnewest扱い
		{model.ApplicationSort("bogus"), "submitted_at DESC"},
	}

	for _, tt := range tests {
		if got := orderClause(tt.sort); got != tt.want {
			t.Errorf("orderClause(%q) = %q, want %q", tt.sort, got, tt.want)
		}
	}
}
