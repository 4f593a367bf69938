// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/tryout/internal/auth"
	"github.com/hitoshi/tryout/internal/middleware"
	"github.com/hitoshi/tryout/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, email, username, password, displayName string) (*model.User, *model.Session, error)
	Login(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// TokenMinter は互換トークン（auth_tokenクッキー）の発行インターフェース。
type TokenMinter interface {
	Mint(userID, username, email, avatar string, ttl time.Duration) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はローカル認証とDiscord OAuthのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	tokens  TokenMinter
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, tokens TokenMinter, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		tokens:  tokens,
		config:  config,
	}
}

// registerRequest はアカウント登録リクエストのボディ。
type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register はローカルアカウントを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	user, session, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setAuthCookies(w, user, session)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setAuthCookies(w, user, session)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// DiscordLogin はDiscord OAuthフローを開始する。
// GET /auth/discord/login
func (h *AuthHandler) DiscordLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	url := h.service.GetLoginURL(state)
	if url == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOAuthFailedError("Discordログインは現在利用できません"))
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// DiscordCallback はOAuthコールバックを処理する。
// GET /auth/discord/callback?code=xxx&state=yyy
func (h *AuthHandler) DiscordCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	user, session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. セッションCookieと互換トークンを設定
	h.setAuthCookies(w, user, session)

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄し、認証Cookieをすべてクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッションをDBから削除。失敗してもCookieはクリアする
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	cookieConfig := h.cookieConfig()
	http.SetCookie(w, middleware.ExpiredSessionCookie(cookieConfig))
	http.SetCookie(w, middleware.ExpiredLegacyCookie(cookieConfig))

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のリクエスト主体を返す。
// 未認証の訪問者にはguestとして200を返す（エラーにしない）。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !identity.IsAuthenticated() {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind": string(model.IdentityGuest),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"kind":     string(model.IdentityAuthenticated),
		"provider": identity.Provider,
		"user":     identity.User,
	})
}

// setAuthCookies はセッションCookieと旧サイト互換のJWT Cookieを設定する。
// 互換トークンの発行に失敗した場合はセッションCookieのみ設定する。
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, user *model.User, session *model.Session) {
	cookieConfig := h.cookieConfig()
	http.SetCookie(w, middleware.SessionCookie(session, cookieConfig))

	ttl := time.Duration(h.config.SessionMaxAge) * time.Second
	token, err := h.tokens.Mint(user.ID, user.Username, user.Email, user.AvatarURL, ttl)
	if err != nil {
		slog.Warn("failed to mint legacy token", slog.String("error", err.Error()))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.LegacyCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) cookieConfig() middleware.CookieConfig {
	return middleware.CookieConfig{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
