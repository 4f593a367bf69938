package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    2,
		ApplyRate:       rate.Limit(1.0 / 60.0),
		ApplyBurst:      1,
		CleanupInterval: time.Hour,
	}
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/roster", nil)
	req.RemoteAddr = ip + ":54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_GeneralLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// バースト分は通る
	for i := 0; i < 2; i++ {
		if rec := doRequest(handler, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	// バースト超過で429
	rec := doRequest(handler, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}

	// 別IPは影響を受けない
	if rec := doRequest(handler, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_ApplyLimitIsIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	apply := rl.ApplyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 応募のバースト1を使い切る
	if rec := doRequest(apply, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first apply: status = %d, want 200", rec.Code)
	}
	if rec := doRequest(apply, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second apply: status = %d, want 429", rec.Code)
	}

	// 一般APIの制限には影響しない
	if rec := doRequest(general, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("general after apply limit: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_UsesForwardedForHeader(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.ApplyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwardedFor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/apply/competitive", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("203.0.113.1, 10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}
	if rec := send("203.0.113.1, 10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("same forwarded IP: status = %d, want 429", rec.Code)
	}
	// 別のクライアントIPは別カウント
	if rec := send("203.0.113.2"); rec.Code != http.StatusOK {
		t.Errorf("different forwarded IP: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	doRequest(handler, "10.0.0.1")

	if count := rl.GeneralLimiterCount(); count != 1 {
		t.Fatalf("limiter count = %d, want 1", count)
	}

	// クリーンアップ（TTL = interval * 2）を待つ
	deadline := time.Now().Add(time.Second)
	for rl.GeneralLimiterCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("limiter count after cleanup = %d, want 0", count)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "RemoteAddrから抽出", remoteAddr: "10.0.0.1:54321", want: "10.0.0.1"},
		{name: "X-Forwarded-For優先", remoteAddr: "10.0.0.1:54321", forwarded: "203.0.113.1", want: "203.0.113.1"},
		{name: "X-Forwarded-Forは先頭を採用", remoteAddr: "10.0.0.1:54321", forwarded: "203.0.113.1, 10.0.0.2", want: "203.0.113.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
