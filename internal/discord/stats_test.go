package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// passthroughGuard はテスト用のURLガード。ループバックへの接続を許可する。
type passthroughGuard struct{}

func (g *passthroughGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *passthroughGuard) ValidateURL(rawURL string) error {
	return nil
}

func TestStatsClient_GetStats_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("with_counts"); got != "true" {
			t.Errorf("with_counts = %q, want true", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"approximate_member_count":150,"approximate_presence_count":42}`))
	}))
	defer server.Close()

	client := NewStatsClient(&passthroughGuard{}, server.URL, 5*time.Second, testLogger())

	stats, err := client.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}
	if stats.TotalMembers != 150 {
		t.Errorf("TotalMembers = %d, want 150", stats.TotalMembers)
	}
	if stats.OnlineMembers != 42 {
		t.Errorf("OnlineMembers = %d, want 42", stats.OnlineMembers)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("LastUpdated should be stamped")
	}
}

func TestStatsClient_GetStats_CachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"approximate_member_count":150,"approximate_presence_count":42}`))
	}))
	defer server.Close()

	client := NewStatsClient(&passthroughGuard{}, server.URL, 5*time.Second, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := client.GetStats(context.Background()); err != nil {
			t.Fatalf("GetStats returned error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times within TTL, want 1", got)
	}
}

func TestStatsClient_GetStats_StaleOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"approximate_member_count":150,"approximate_presence_count":42}`))
	}))
	defer server.Close()

	client := NewStatsClient(&passthroughGuard{}, server.URL, 5*time.Second, testLogger())

	if _, err := client.GetStats(context.Background()); err != nil {
		t.Fatalf("initial GetStats returned error: %v", err)
	}

	// キャッシュを強制的に失効させたうえで上流を落とす
	client.fetchedAt = time.Now().Add(-statsCacheTTL - time.Minute)
	fail.Store(true)

	stats, err := client.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats should serve stale value on failure, got error: %v", err)
	}
	if stats.TotalMembers != 150 {
		t.Errorf("stale TotalMembers = %d, want 150", stats.TotalMembers)
	}
}

func TestStatsClient_GetStats_FailureWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewStatsClient(&passthroughGuard{}, server.URL, 5*time.Second, testLogger())

	if _, err := client.GetStats(context.Background()); err == nil {
		t.Fatal("expected error when no cached value is available")
	}
}

func TestStatsClient_Disabled(t *testing.T) {
	client := NewStatsClient(&passthroughGuard{}, "", 5*time.Second, testLogger())

	if client.Enabled() {
		t.Error("Enabled() = true for empty invite URL")
	}
	if _, err := client.GetStats(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured invite URL")
	}
}
