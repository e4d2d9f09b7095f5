// Package auth secures the dashboard API. The bot has a single operator,
// so there is no user store: one bcrypt-hashed password from config and
// short-lived JWTs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidPassword = errors.New("invalid password")
)

// Claims carries the operator session in a signed token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and validates operator tokens.
type Manager struct {
	secret        []byte
	passwordHash  string
	tokenDuration time.Duration
}

// NewManager creates a token manager from the auth configuration.
func NewManager(secret, passwordHash string, tokenDuration time.Duration) *Manager {
	return &Manager{
		secret:        []byte(secret),
		passwordHash:  passwordHash,
		tokenDuration: tokenDuration,
	}
}

// Login verifies the operator password and issues a token.
func (m *Manager) Login(password string) (string, error) {
	if bcrypt.CompareHashAndPassword([]byte(m.passwordHash), []byte(password)) != nil {
		return "", ErrInvalidPassword
	}
	return m.GenerateToken()
}

// GenerateToken issues a signed operator token.
func (m *Manager) GenerateToken() (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "signal-trading-bot",
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenDuration is the configured token lifetime in seconds, for login
// responses.
func (m *Manager) TokenDuration() int64 {
	return int64(m.tokenDuration.Seconds())
}
