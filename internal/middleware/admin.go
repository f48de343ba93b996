package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-scores/internal/response"
)

// RequireAdmin rejects callers who are not admins. It must run after
// RequireActiveUser so the flag reflects the account, not the token.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if !claims.Admin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Next()
	}
}

// RequireSelfOrAdmin allows the request when the :param path value is the
// caller's own user id, or when the caller is an admin.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if claims.Admin || c.Param(param) == claims.Subject {
			c.Next()
			return
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}
