package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-service/pkg/logger"
)

// InternalServiceHeader carries the shared secret identifying internal callers.
const InternalServiceHeader = "X-Internal-Service"

// internalDeniedMessage is the fixed denial payload for the gated route.
const internalDeniedMessage = "Access denied - Internal service only"

// InternalOnly gates a route so only sibling services can reach it. The
// caller is accepted on any of: the shared-secret header, an allow-listed
// caller identity in the User-Agent, or a loopback source address.
func InternalOnly(secret string, allowlist []string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isInternalCaller(c, secret, allowlist) {
			c.Next()
			return
		}

		log.WithContext(c.Request.Context()).Warn("unauthorized access attempt to internal endpoint",
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"message": internalDeniedMessage,
			"data":    nil,
		})
	}
}

func isInternalCaller(c *gin.Context, secret string, allowlist []string) bool {
	if secret != "" && c.GetHeader(InternalServiceHeader) == secret {
		return true
	}

	if userAgent := c.GetHeader("User-Agent"); userAgent != "" {
		for _, service := range allowlist {
			if strings.Contains(userAgent, service) {
				return true
			}
		}
	}

	if ip := net.ParseIP(c.ClientIP()); ip != nil && ip.IsLoopback() {
		return true
	}

	return false
}
