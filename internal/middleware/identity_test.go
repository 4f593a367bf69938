package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/model"
)

type stubSessionRepo struct {
	session *model.Session
}

func (s *stubSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }

func (s *stubSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s.session != nil && s.session.ID == id {
		return s.session, nil
	}
	return nil, nil
}

func (s *stubSessionRepo) DeleteByID(ctx context.Context, id string) error     { return nil }
func (s *stubSessionRepo) DeleteByUserID(ctx context.Context, id string) error { return nil }
func (s *stubSessionRepo) DeleteExpired(ctx context.Context) (int64, error)    { return 0, nil }

type stubUserRepo struct {
	user *model.User
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (s *stubUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (s *stubUserRepo) CreateWithProviderLink(ctx context.Context, user *model.User, link *model.ProviderLink) error {
	return nil
}

func TestIdentityMiddleware_InjectsAuthenticatedIdentity(t *testing.T) {
	user := &model.User{ID: "user-1", Email: "player@example.com"}
	session := &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	resolver := auth.NewResolver(&stubSessionRepo{session: session}, &stubUserRepo{user: user},
		auth.NewTokenService("secret"), nil)

	var got model.Identity
	handler := NewIdentityMiddleware(resolver, CookieConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "session-1"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !got.IsAuthenticated() {
		t.Fatal("expected authenticated identity in context")
	}
	if got.User.ID != "user-1" {
		t.Errorf("user ID = %q, want user-1", got.User.ID)
	}
}

func TestIdentityMiddleware_GuestPassesThrough(t *testing.T) {
	resolver := auth.NewResolver(&stubSessionRepo{}, &stubUserRepo{}, auth.NewTokenService("secret"), nil)

	var got model.Identity
	handler := NewIdentityMiddleware(resolver, CookieConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roster", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (guest must not be rejected)", rec.Code)
	}
	if got.IsAuthenticated() {
		t.Error("expected guest identity")
	}
}

func TestIdentityMiddleware_WriteThroughSetsSessionCookie(t *testing.T) {
	user := &model.User{ID: "user-1", Email: "player@example.com"}
	tokens := auth.NewTokenService("secret")
	token, err := tokens.Mint("user-1", "player", "player@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	issued := &model.Session{ID: "fresh-session", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	resolver := auth.NewResolver(&stubSessionRepo{}, &stubUserRepo{user: user}, tokens,
		&stubIssuer{session: issued})

	handler := NewIdentityMiddleware(resolver, CookieConfig{Secure: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.LegacyCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var found *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			found = cookie
		}
	}
	if found == nil {
		t.Fatal("expected a session_id cookie to be set")
	}
	if found.Value != "fresh-session" {
		t.Errorf("cookie value = %q, want fresh-session", found.Value)
	}
	if !found.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if !found.Secure {
		t.Error("session cookie must follow the Secure config")
	}
}

type stubIssuer struct {
	session *model.Session
}

func (s *stubIssuer) IssueSession(ctx context.Context, userID string) (*model.Session, error) {
	return s.session, nil
}

func TestIdentityFromContext_DefaultsToGuest(t *testing.T) {
	identity := IdentityFromContext(context.Background())
	if identity.IsAuthenticated() {
		t.Error("expected guest for a bare context")
	}
}

func TestExpiredCookies(t *testing.T) {
	config := CookieConfig{Secure: true, Domain: "example.com"}

	session := ExpiredSessionCookie(config)
	if session.MaxAge != -1 {
		t.Errorf("session MaxAge = %d, want -1", session.MaxAge)
	}
	legacy := ExpiredLegacyCookie(config)
	if legacy.Name != auth.LegacyCookieName {
		t.Errorf("legacy cookie name = %q", legacy.Name)
	}
	if legacy.MaxAge != -1 {
		t.Errorf("legacy MaxAge = %d, want -1", legacy.MaxAge)
	}
}
