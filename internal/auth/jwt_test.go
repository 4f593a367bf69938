package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenService_MintAndVerify_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Mint("user-1", "player", "player@example.com", "https://cdn.example.com/a.png", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if claims.Subject != "user-1" {
		t.Errorf("claims.Subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Username != "player" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "player")
	}
	if claims.Email != "player@example.com" {
		t.Errorf("claims.Email = %q, want %q", claims.Email, "player@example.com")
	}
}

func TestTokenService_Verify_WrongSecret_Fails(t *testing.T) {
	token, err := NewTokenService("secret-a").Mint("user-1", "", "", "", time.Hour)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if _, err := NewTokenService("secret-b").Verify(token); err == nil {
		t.Fatal("expected verification to fail with wrong secret")
	}
}

func TestTokenService_Verify_ExpiredToken_Fails(t *testing.T) {
	svc := NewTokenService("test-secret")
	token, err := svc.Mint("user-1", "", "", "", -time.Minute)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected verification to fail for expired token")
	}
}

func TestTokenService_Verify_TamperedToken_Fails(t *testing.T) {
	svc := NewTokenService("test-secret")
	token, err := svc.Mint("user-1", "", "", "", time.Hour)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	// ペイロード部分を改ざんする
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", token)
	}
	tampered := parts[0] + ".eyJzdWIiOiJhdHRhY2tlciJ9." + parts[2]

	if _, err := svc.Verify(tampered); err == nil {
		t.Fatal("expected verification to fail for tampered token")
	}
}

func TestTokenService_Verify_GarbageInput_Fails(t *testing.T) {
	svc := NewTokenService("test-secret")
	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Verify(input); err == nil {
			t.Errorf("Verify(%q) = nil error, want failure", input)
		}
	}
}
