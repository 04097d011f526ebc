package apiroutes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blindrelay/go-blindrelay-server/api"
	restinterceptors "github.com/blindrelay/go-blindrelay-server/api/interceptors"
	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/metrics"
	"github.com/blindrelay/go-blindrelay-server/security"
	"github.com/blindrelay/go-blindrelay-server/services"
	"github.com/blindrelay/go-blindrelay-server/storage"
)

// REST API routes
func ConfigRoutes(router *gin.Engine, store *storage.MailboxStore, gate *security.AccessGate) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	// gate checks attach to the engine itself, ahead of route matching, so
	// probe paths that match no route still go through them
	router.Use(restinterceptors.FirewallMiddleware(gate))
	router.Use(restinterceptors.RateLimitMiddleware(gate))

	// SERVICE definitions
	relayService := services.NewRelayService(store)
	statisticsService := services.NewStatisticsService(store, gate)

	// API definitions
	relayApi := api.NewRelayApi(relayService)
	statisticsApi := api.NewAPIStatistics(statisticsService)
	healthApi := api.NewHealthCheckAPI()
	infoApi := api.NewInfoAPI()

	// PUBLIC ROOT API
	rootPublicApi := router.Group("/", metrics.MetricsMiddleware())
	{
		rootPublicApi.GET("", infoApi.ServerInfo)
		rootPublicApi.GET("health", healthApi.HealthCheck)
	}

	// RELAY API
	relayGroup := router.Group("/api", metrics.MetricsMiddleware())
	{
		relayGroup.POST("/v1/send", relayApi.SendMessage)
		relayGroup.POST("/v1/poll", relayApi.PollMessages)
		relayGroup.POST("/v1/consume", relayApi.ConsumeMessages)
		relayGroup.GET("/v1/status", statisticsApi.GetStatus)
		relayGroup.GET("/v1/health", healthApi.HealthCheck)
	}

	// anything unrouted answers exactly like a rejected probe
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	return router
}
