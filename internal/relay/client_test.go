package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Forward_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/api/apply/competitive") {
			t.Errorf("path = %q, want suffix /api/apply/competitive", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("fullName"); got != "Test Player" {
			t.Errorf("form[fullName] = %q, want %q", got, "Test Player")
		}
		if got := r.FormValue("email"); got != "player@example.com" {
			t.Errorf("form[email] = %q, want %q", got, "player@example.com")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Application received"}`))
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, testLogger())

	resp, err := client.Forward(context.Background(), "competitive", map[string]string{
		"fullName": "Test Player",
		"email":    "player@example.com",
	})
	if err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if !resp.Success {
		t.Error("response success = false, want true")
	}
	if resp.Message != "Application received" {
		t.Errorf("response message = %q, want %q", resp.Message, "Application received")
	}
}

func TestClient_Forward_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, testLogger())

	if _, err := client.Forward(context.Background(), "competitive", nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClient_Forward_SuccessFalseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"validation failed upstream"}`))
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, testLogger())

	_, err := client.Forward(context.Background(), "competitive", nil)
	if err == nil {
		t.Fatal("expected error for success=false response")
	}
	if !strings.Contains(err.Error(), "validation failed upstream") {
		t.Errorf("error = %v, want to contain upstream error message", err)
	}
}

func TestClient_Forward_Unreachable(t *testing.T) {
	client := NewClient(&http.Client{Timeout: time.Second}, "http://127.0.0.1:1", testLogger())

	if _, err := client.Forward(context.Background(), "competitive", nil); err == nil {
		t.Fatal("expected error for unreachable upstream")
	}
}

func TestClient_Forward_NotConfigured(t *testing.T) {
	client := NewClient(&http.Client{}, "", testLogger())

	if client.Enabled() {
		t.Error("Enabled() = true for empty base URL")
	}
	if _, err := client.Forward(context.Background(), "competitive", nil); err == nil {
		t.Fatal("expected error when base URL is not configured")
	}
}
