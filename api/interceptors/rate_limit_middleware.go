package interceptors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/security"
)

// RateLimitMiddleware enforces the per-address request budgets. The budget
// class follows the path: mailbox operations share one budget, status and
// health each have their own. Rejections reuse the same unavailability
// signal as blocks.
func RateLimitMiddleware(gate *security.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		class := classForPath(c.Request.URL.Path)
		if class == "" {
			c.Next()
			return
		}

		address := clientAddress(c)
		if !gate.Allow(class, address) {
			global.Logger.Log("msg", "rate limited", "address", address, "class", class)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "temporarily unavailable"})
			return
		}
		c.Next()
	}
}

func classForPath(path string) security.EndpointClass {
	switch {
	case strings.HasPrefix(path, "/api/v1/send"),
		strings.HasPrefix(path, "/api/v1/poll"),
		strings.HasPrefix(path, "/api/v1/consume"):
		return security.ClassRelay
	case path == "/api/v1/status", path == "/":
		return security.ClassStatus
	case path == "/api/v1/health", path == "/health":
		return security.ClassHealth
	}
	return ""
}
