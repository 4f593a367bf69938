package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/middleware"
	"github.com/hitoshi/tryout/internal/model"
)

type mockAuthService struct {
	registerFn       func(ctx context.Context, email, username, password, displayName string) (*model.User, *model.Session, error)
	loginFn          func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Register(ctx context.Context, email, username, password, displayName string) (*model.User, *model.Session, error) {
	return m.registerFn(ctx, email, username, password, displayName)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	return m.handleCallbackFn(ctx, code)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type stubMinter struct {
	token string
	err   error
}

func (s *stubMinter) Mint(userID, username, email, avatar string, ttl time.Duration) (string, error) {
	return s.token, s.err
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "https://teamzorn.example.com",
		CookieSecure:  true,
		SessionMaxAge: 3600,
	}
}

func testUserAndSession() (*model.User, *model.Session) {
	user := &model.User{ID: "user-1", Email: "player@example.com", Username: "player"}
	session := &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	return user, session
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register_SetsBothCookies(t *testing.T) {
	user, session := testUserAndSession()
	service := &mockAuthService{
		registerFn: func(ctx context.Context, email, username, password, displayName string) (*model.User, *model.Session, error) {
			return user, session, nil
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "legacy-jwt"}, testAuthConfig())

	body := strings.NewReader(`{"email":"player@example.com","username":"player","password":"secretpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	cookies := rec.Result().Cookies()
	sessionCookie := findCookie(cookies, auth.SessionCookieName)
	if sessionCookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if sessionCookie.Value != "session-1" {
		t.Errorf("session cookie = %q, want session-1", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	legacyCookie := findCookie(cookies, auth.LegacyCookieName)
	if legacyCookie == nil {
		t.Fatal("expected auth_token cookie")
	}
	if legacyCookie.Value != "legacy-jwt" {
		t.Errorf("legacy cookie = %q, want legacy-jwt", legacyCookie.Value)
	}

	var got model.User
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("user ID = %q, want user-1", got.ID)
	}
}

func TestAuthHandler_Register_WeakPassword(t *testing.T) {
	service := &mockAuthService{
		registerFn: func(ctx context.Context, email, username, password, displayName string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewWeakPasswordError()
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "t"}, testAuthConfig())

	body := strings.NewReader(`{"email":"a@example.com","username":"a","password":"short"}`)
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeWeakPassword) {
		t.Errorf("response should contain error code, got %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "t"}, testAuthConfig())

	body := strings.NewReader(`{"email":"a@example.com","password":"wrong"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthHandler_Login_MintFailureStillSucceeds(t *testing.T) {
	user, session := testUserAndSession()
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return user, session, nil
		},
	}
	h := NewAuthHandler(service, &stubMinter{err: context.DeadlineExceeded}, testAuthConfig())

	body := strings.NewReader(`{"email":"player@example.com","password":"secretpass"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if findCookie(cookies, auth.SessionCookieName) == nil {
		t.Error("expected session cookie even when legacy token minting fails")
	}
	if findCookie(cookies, auth.LegacyCookieName) != nil {
		t.Error("legacy cookie must not be set when minting fails")
	}
}

func TestAuthHandler_DiscordLogin_RedirectsWithState(t *testing.T) {
	service := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://discord.com/oauth2/authorize?state=" + state
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "t"}, testAuthConfig())

	rec := httptest.NewRecorder()
	h.DiscordLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/discord/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	stateCookie := findCookie(rec.Result().Cookies(), oauthStateCookie)
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie")
	}
	location := rec.Header().Get("Location")
	if !strings.Contains(location, stateCookie.Value) {
		t.Errorf("redirect URL %q should contain state %q", location, stateCookie.Value)
	}
}

func TestAuthHandler_DiscordLogin_NotConfigured(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &stubMinter{token: "t"}, testAuthConfig())

	rec := httptest.NewRecorder()
	h.DiscordLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/discord/login", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthHandler_DiscordCallback_StateMismatch(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &stubMinter{token: "t"}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/discord/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "expected"})
	rec := httptest.NewRecorder()
	h.DiscordCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_DiscordCallback_Success(t *testing.T) {
	user, session := testUserAndSession()
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.User, *model.Session, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			return user, session, nil
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "legacy-jwt"}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/discord/callback?code=auth-code&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	h.DiscordCallback(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://teamzorn.example.com" {
		t.Errorf("Location = %q", got)
	}

	cookies := rec.Result().Cookies()
	if findCookie(cookies, auth.SessionCookieName) == nil {
		t.Error("expected session cookie after callback")
	}
	if findCookie(cookies, auth.LegacyCookieName) == nil {
		t.Error("expected legacy cookie after callback")
	}
}

func TestAuthHandler_Logout_ClearsCookies(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(service, &stubMinter{token: "t"}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "session-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if loggedOut != "session-1" {
		t.Errorf("logged out session = %q, want session-1", loggedOut)
	}

	cookies := rec.Result().Cookies()
	for _, name := range []string{auth.SessionCookieName, auth.LegacyCookieName} {
		cookie := findCookie(cookies, name)
		if cookie == nil {
			t.Errorf("expected %s cookie to be cleared", name)
			continue
		}
		if cookie.MaxAge != -1 {
			t.Errorf("%s MaxAge = %d, want -1", name, cookie.MaxAge)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &stubMinter{token: "t"}, testAuthConfig())

	t.Run("ゲスト", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (guest is not an error)", rec.Code)
		}
		var got map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got["kind"] != "guest" {
			t.Errorf("kind = %v, want guest", got["kind"])
		}
	})

	t.Run("認証済み", func(t *testing.T) {
		user := &model.User{ID: "user-1", Email: "player@example.com"}
		identity := model.Authenticated(user, "session")
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got struct {
			Kind     string      `json:"kind"`
			Provider string      `json:"provider"`
			User     *model.User `json:"user"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Kind != "authenticated" || got.Provider != "session" {
			t.Errorf("kind = %q provider = %q", got.Kind, got.Provider)
		}
		if got.User == nil || got.User.ID != "user-1" {
			t.Errorf("user = %+v, want user-1", got.User)
		}
	})
}
