package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecollab-server/internal/auth"
	"github.com/vovakirdan/wirecollab-server/internal/core"
)

const (
	// ContextKeyIdentity is the context key for storing the verified core.Identity.
	ContextKeyIdentity = "identity"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errBadHeader    = errors.New("invalid authorization header format")
)

// bearerToken extracts a token from "Authorization: Bearer <token>" or the token query
// parameter. Browsers cannot set headers on WebSocket upgrades, hence the fallback.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errBadHeader
		}
		return parts[1], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errMissingToken
}

// AuthMiddleware creates a middleware that validates bearer tokens.
func AuthMiddleware(verifier auth.Verifier, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.Request)
		if err != nil {
			logger.Debug().Err(err).Msg("rejecting unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: core.ErrCodeUnauthorized})
			return
		}
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token authentication disabled", Code: core.ErrCodeUnauthorized})
			return
		}

		ident, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token", Code: core.ErrCodeUnauthorized})
			return
		}

		c.Set(ContextKeyIdentity, ident)
		c.Next()
	}
}

// identityFrom returns the identity stored by AuthMiddleware, if any.
func identityFrom(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return core.Identity{}, false
	}
	ident, ok := v.(core.Identity)
	return ident, ok
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
