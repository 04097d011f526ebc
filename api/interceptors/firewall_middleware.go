package interceptors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/metrics"
	"github.com/blindrelay/go-blindrelay-server/security"
)

// FirewallMiddleware runs the gate's checks before any routing decision:
// blocked addresses get a bare "temporarily unavailable", scanner probes and
// unknown endpoints get the same generic not-found a nonexistent path would
// produce. The response never reveals which check tripped. Must be installed
// on the router itself, not a group, so unrouted paths still pass through.
func FirewallMiddleware(gate *security.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := clientAddress(c)

		if gate.IsBlocked(address) {
			metrics.BlockedRequestsMetricsCount.Inc()
			global.Logger.Log("msg", "blocked request", "address", address)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "temporarily unavailable"})
			return
		}

		if gate.IsSuspicious(c.Request.URL.Path, c.GetHeader("User-Agent")) {
			gate.RecordSuspicious(address)
			global.Logger.Log("msg", "suspicious request", "address", address, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
			return
		}

		if !gate.IsAllowedEndpoint(c.Request.Method, c.Request.URL.Path, c.GetHeader("Content-Type")) {
			gate.RecordSuspicious(address)
			global.Logger.Log("msg", "invalid api request", "address", address, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
			return
		}

		c.Next()

		// rejected requests count toward the address's block threshold; 429s
		// are excluded so being rate limited cannot escalate into a block
		if status := c.Writer.Status(); status >= 400 && status != http.StatusTooManyRequests {
			gate.RecordFailure(address)
		}
	}
}

// clientAddress resolves the requester address, falling back to "unknown"
// rather than failing the request.
func clientAddress(c *gin.Context) string {
	ip, err := getIP(c)
	if err != nil || ip == nil {
		return "unknown"
	}
	return *ip
}
