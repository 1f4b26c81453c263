// Package auth provides authentication and authorization functionality.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nulltasker/nulltasker/internal/models"
)

// tokenTypeRefresh marks refresh tokens so they cannot be presented as
// access tokens and vice versa.
const tokenTypeRefresh = "refresh"

// Claims represents the JWT claims for access tokens. Role and project
// membership are a snapshot taken at issue time.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string      `json:"uid"`
	DisplayName string      `json:"name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	Projects    []string    `json:"projects"`
	TokenType   string      `json:"typ,omitempty"`
}

// RefreshClaims represents the JWT claims for refresh tokens.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
}

// TokenService issues and validates access and refresh tokens. Both are
// stateless HS256 JWTs; nothing is stored server-side, so a refresh
// token stays valid until it expires.
type TokenService struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rememberTTL time.Duration
	issuer      string
}

// NewTokenService creates a new token service.
func NewTokenService(secret []byte, accessTTL, refreshTTL, rememberTTL time.Duration) *TokenService {
	return &TokenService{
		secret:      secret,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		rememberTTL: rememberTTL,
		issuer:      "nulltasker",
	}
}

// GenerateAccessToken creates a new JWT access token for the given user.
func (s *TokenService) GenerateAccessToken(user *models.User) (string, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		Projects:    user.Projects,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GenerateRefreshToken creates a new refresh token for the given user.
// With rememberMe the extended TTL is used.
func (s *TokenService) GenerateRefreshToken(user *models.User, rememberMe bool) (string, error) {
	now := time.Now()
	ttl := s.refreshTTL
	if rememberMe {
		ttl = s.rememberTTL
	}

	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    user.ID,
		TokenType: tokenTypeRefresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates a JWT access token and returns the claims.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if claims.TokenType == tokenTypeRefresh {
		return nil, fmt.Errorf("refresh token presented as access token")
	}

	return claims, nil
}

// ValidateRefreshToken validates a refresh token and returns the user ID
// it was issued for. An access token presented here is rejected.
func (s *TokenService) ValidateRefreshToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, s.keyFunc)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != s.issuer {
		return "", fmt.Errorf("invalid issuer")
	}
	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("not a refresh token")
	}

	return claims.UserID, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (any, error) {
	// Validate signing method
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// AccessTTL returns the access token time-to-live duration.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// AccessTTLSeconds returns the access token TTL in seconds.
func (s *TokenService) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}
