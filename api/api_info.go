package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blindrelay/go-blindrelay-server/global"
)

type InfoAPI struct {
}

func NewInfoAPI() *InfoAPI {
	return &InfoAPI{}
}

// Relay information
// @Summary Relay information
// @Description Returns the relay name, version and endpoint map
// @Tags Info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (ia *InfoAPI) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Blind Relay Server",
		"version":     global.Conf.Version,
		"description": "Zero-knowledge relay server for end-to-end encrypted messaging",
		"features": []string{
			"End-to-end encryption",
			"Zero-knowledge server",
			"Anonymous routing",
			"Ephemeral sender keys",
			"Message TTL support",
		},
		"endpoints": gin.H{
			"send":    "/api/v1/send",
			"poll":    "/api/v1/poll",
			"consume": "/api/v1/consume",
			"status":  "/api/v1/status",
			"health":  "/api/v1/health",
		},
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
	})
}
