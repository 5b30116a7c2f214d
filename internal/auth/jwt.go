package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/wirecollab-server/internal/core"
)

// ErrInvalidToken wraps every token validation failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims the collaboration server understands. The user is taken
// from user_id, falling back to the standard subject.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the identity a session is opened with.
func (c *Claims) Identity() core.Identity {
	uid := c.UserID
	if uid == "" {
		uid = c.Subject
	}
	return core.Identity{
		UserID:      uid,
		DisplayName: c.Name,
		Avatar:      c.Avatar,
		Color:       c.Color,
	}
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given identity. The identity provider
// normally does this; the server uses it for tests and the terminal client.
func GenerateToken(cfg *JWTConfig, ident core.Identity) (string, error) {
	now := time.Now()
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := Claims{
		UserID: ident.UserID,
		Name:   ident.DisplayName,
		Avatar: ident.Avatar,
		Color:  ident.Color,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.UserID,
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	// Validate issuer and audience if configured
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}
	if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}
	if claims.UserID == "" && claims.Subject == "" {
		return nil, fmt.Errorf("%w: no user in claims", ErrInvalidToken)
	}

	return claims, nil
}
