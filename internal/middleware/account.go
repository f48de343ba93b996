package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/response"
	"github.com/stemsi/exstem-scores/internal/service"
)

// AccountLoader loads the current state of the account a token was issued to.
type AccountLoader interface {
	ActiveUser(ctx context.Context, userID int) (*model.User, error)
}

// RequireActiveUser rejects tokens whose account was deleted or deactivated
// after login, and replaces the admin claim with the account's current flag.
// It must run after a JWT middleware.
func RequireActiveUser(accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		user, err := accounts.ActiveUser(c.Request.Context(), claims.UserID)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrUserNotFound):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		case errors.Is(err, service.ErrUserInactive):
			response.AbortFail(c, http.StatusForbidden, response.ErrUserInactive)
			return
		default:
			log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Account lookup failed")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable)
			return
		}

		current := *claims
		current.Admin = user.Admin
		c.Set(ContextKeyClaims, &current)
		c.Next()
	}
}
