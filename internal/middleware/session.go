package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	CheckRevoked(ctx context.Context, jti string) error
}

// RejectRevokedTokens checks the JWT's jti against the logout blacklist in
// Redis. It must run after a JWT middleware.
func RejectRevokedTokens(checker RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := checker.CheckRevoked(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, service.ErrTokenRevoked) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
				return
			}
			log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Revocation check failed")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable)
			return
		}

		c.Next()
	}
}
