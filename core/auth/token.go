package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid or expired token")

	secretMu  sync.RWMutex
	jwtSecret []byte
)

// Claims are the JWT claims issued at login.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SetSecret installs the signing key. It must be called before tokens are
// issued or parsed.
func SetSecret(secret string) {
	secretMu.Lock()
	jwtSecret = []byte(secret)
	secretMu.Unlock()
}

func secret() ([]byte, error) {
	secretMu.RLock()
	defer secretMu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	return jwtSecret, nil
}

// GenerateToken issues a signed token for the user.
func GenerateToken(userID int64, username string) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			Issuer:    "echo-canvas",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	key, err := secret()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}
