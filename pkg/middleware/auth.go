package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"user-service/pkg/auth"
	"user-service/pkg/response"
)

// ClaimsKey is the gin context key holding verified caller claims.
const ClaimsKey = "claims"

// RequireRoles verifies the bearer token and requires at least one of the
// given roles. Claims are stashed in the context for handlers.
func RequireRoles(verifier *auth.Verifier, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.AbortJSON(c, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		claims, err := verifier.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.AbortJSON(c, http.StatusUnauthorized, "Invalid token", nil)
			return
		}

		if len(roles) > 0 && !claims.HasAnyRole(roles...) {
			response.AbortJSON(c, http.StatusForbidden, "Forbidden", nil)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims set by RequireRoles, or nil.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
