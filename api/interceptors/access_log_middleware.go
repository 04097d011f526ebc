package interceptors

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blindrelay/go-blindrelay-server/global"
)

// AccessLogMiddleware logs one line per request: a server generated request
// id, method, path, status and timing. Nothing else. Query strings, bodies,
// tokens and addresses stay out of the log so the relay cannot be made to
// remember who talked to it. The request id is random and is echoed in the
// X-Request-ID response header for support correlation.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()

		global.Logger.Log(
			"requestId", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
