package auth

import (
	"context"

	"github.com/vovakirdan/wirecollab-server/internal/core"
)

// Verifier turns a bearer token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (core.Identity, error)
}

// JWTVerifier verifies HS256 tokens issued by the identity provider.
type JWTVerifier struct {
	cfg *JWTConfig
}

// NewJWTVerifier creates a verifier for the given configuration.
func NewJWTVerifier(cfg *JWTConfig) *JWTVerifier {
	return &JWTVerifier{cfg: cfg}
}

// Verify validates the token and returns the identity it carries.
func (v *JWTVerifier) Verify(_ context.Context, token string) (core.Identity, error) {
	claims, err := ValidateToken(v.cfg, token)
	if err != nil {
		return core.Identity{}, err
	}
	return claims.Identity(), nil
}
