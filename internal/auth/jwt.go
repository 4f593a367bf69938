package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LegacyClaims は旧OAuthハンドラが発行していたauth_token JWTのクレーム。
// 旧実装のクッキーを持つ既存ログインを引き続き受け入れるため、
// フィールド構成は旧トークンと互換に保つこと。
type LegacyClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// TokenService はレガシー互換のauth_token JWTの発行と検証を提供する。
type TokenService struct {
	secret []byte
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Mint はauth_token JWTを発行する。subjectにはユーザーIDを入れる。
func (t *TokenService) Mint(userID, username, email, avatar string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := LegacyClaims{
		Username: username,
		Email:    email,
		Avatar:   avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はauth_token JWTを検証し、クレームを返す。
// 署名アルゴリズムはHS256のみ受け入れる。
func (t *TokenService) Verify(tokenString string) (*LegacyClaims, error) {
	claims := &LegacyClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}
