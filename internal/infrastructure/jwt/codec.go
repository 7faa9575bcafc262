package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyiona/accounts/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Codec-level failure kinds. The authenticator translates these into its own
// failure taxonomy; they never reach a handler directly.
var (
	ErrTokenMalformed = errors.New("could not decode token")
	ErrTokenExpired   = errors.New("token has expired")
)

// Claims holds the bearer-credential payload: the user ID plus the
// registered expiry claim.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 bearer credentials. The signing secret and
// token lifetime are fixed at construction and never change afterwards.
type Codec struct {
	secret   []byte
	lifetime time.Duration
}

func NewCodec(cfg *config.Config) (*Codec, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &Codec{secret: []byte(cfg.JWTSecret), lifetime: cfg.TokenLifetime}, nil
}

// Issue produces a signed credential encoding the user ID with
// exp = now + lifetime.
func (c *Codec) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer credential: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a raw credential and returns the
// embedded user ID. Returns ErrTokenExpired for valid-but-stale credentials
// and ErrTokenMalformed for anything that fails to parse or verify.
func (c *Codec) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrTokenMalformed
	}
	return claims.UserID, nil
}
