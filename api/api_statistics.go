package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blindrelay/go-blindrelay-server/services"
)

// APIStatistics reports aggregate relay health: mailbox totals, uptime and
// the gate's rejection counters
type APIStatistics struct {
	statisticsService *services.StatisticsService
}

func NewAPIStatistics(statisticsService *services.StatisticsService) *APIStatistics {
	return &APIStatistics{statisticsService: statisticsService}
}

// Get relay status
// @Summary Get relay status
// @Description Returns uptime, stored envelope totals and security counters
// @Tags Statistics
// @Produce json
// @Success 200 {object} types.StatusOutput
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/status [get]
func (a *APIStatistics) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.statisticsService.Status())
}
