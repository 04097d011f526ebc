package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthCheckAPI struct {
}

func NewHealthCheckAPI() *HealthCheckAPI {
	return &HealthCheckAPI{}
}

// Liveness probe
// @Summary Liveness probe
// @Description Returns healthy while the relay accepts requests
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (ha *HealthCheckAPI) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
	})
}
