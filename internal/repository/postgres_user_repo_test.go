package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresProviderLinkRepoはProviderLinkRepositoryインターフェースを満たすことを検証
func TestPostgresProviderLinkRepo_ImplementsInterface(t *testing.T) {
	var _ ProviderLinkRepository = (*PostgresProviderLinkRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresProviderLinkRepoが正しく初期化されることを検証
func TestNewPostgresProviderLinkRepo_Initializes(t *testing.T) {
	repo := NewPostgresProviderLinkRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ユニットテスト: CreateWithProviderLinkに渡すモデルの整合性検証
// （DB接続なしでロジックのみ検証）
func TestPostgresUserRepo_CreateWithProviderLink_ModelConsistency(t *testing.T) {
	user := &model.User{
		ID:          "user-id-1",
		Email:       "test@example.com",
		Username:    "tester",
		DisplayName: "Test User",
	}
	link := &model.ProviderLink{
		ID:             "link-id-1",
		UserID:         "user-id-1",
		Provider:       "discord",
		ProviderUserID: "discord-123",
	}

	// linkのUserIDがuserのIDと一致することを確認
	if link.UserID != user.ID {
		t.Errorf("link.UserID = %q, want %q", link.UserID, user.ID)
	}
}

// SessionRepoのFindByIDが期限切れセッションを返さないことの期待動作
func TestPostgresSessionRepo_FindByID_ExpiredSession_Concept(t *testing.T) {
	// このテストはDB接続なしでコンセプトを検証する
	session := &model.Session{
		ID:        "expired-session",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if !session.Expired(time.Now()) {
		t.Error("expected session to be expired")
	}
}
