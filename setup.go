package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	restinterceptors "github.com/blindrelay/go-blindrelay-server/api/interceptors"
	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/security"
	"github.com/blindrelay/go-blindrelay-server/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupStore creates the in-memory mailbox store and starts the background
// expiry sweep when an eviction interval is configured.
func setupStore() *storage.MailboxStore {
	store := storage.NewMailboxStore(global.Logger, global.Conf.Relay.MaxMailboxEnvelopes, global.Conf.Relay.MaxTotalEnvelopes)
	if interval := global.Conf.Relay.EvictionIntervalSeconds; interval > 0 {
		if err := store.StartEvictor(time.Duration(interval) * time.Second); err != nil {
			global.Logger.Log("error", "Failed to start the expiry sweep", "error", err.Error())
			panic(err)
		}
	}
	return store
}

// setupGate creates the access gate from the security section of the
// configuration. Durations are configured in seconds.
func setupGate() *security.AccessGate {
	sec := global.Conf.Security
	return security.NewAccessGate(global.Logger, security.Config{
		MaxFailedAttempts: sec.MaxFailedAttempts,
		BlockDuration:     time.Duration(sec.BlockDurationSeconds) * time.Second,
		RelayPerMinute:    sec.RelayRequestsPerMinute,
		StatusPerMinute:   sec.StatusRequestsPerMinute,
		HealthPerMinute:   sec.HealthRequestsPerMinute,
	})
}

// setupRouter creates the gin engine with the base middleware stack: panic
// recovery, privacy preserving access logging, security headers and CORS.
// The firewall and rate limiter are attached later in ConfigRoutes so that
// CORS preflight requests are answered before they reach the firewall.
func setupRouter() *gin.Engine {
	if global.Conf.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(restinterceptors.AccessLogMiddleware())
	router.Use(restinterceptors.SecurityHeadersMiddleware())
	router.Use(cors.New(corsConfig()))
	return router
}

// corsConfig builds the CORS policy from the configuration. Credentials are
// only allowed together with an explicit origin list since gin-contrib/cors
// rejects wildcard origins combined with credentials.
func corsConfig() cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "User-Agent"}
	origins := global.Conf.Cors.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}

// startServer creates the HTTP server listening on the configured port.
func startServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + strconv.Itoa(global.Conf.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// shutdownServer waits for a termination signal, then drains in-flight
// requests before closing the done channel.
func shutdownServer(srv *http.Server, quit <-chan os.Signal, done chan<- bool) {
	<-quit
	global.Logger.Log("msg", "Server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv.SetKeepAlivesEnabled(false)
	if err := srv.Shutdown(ctx); err != nil {
		global.Logger.Log("error", "Could not gracefully shutdown the server", "error", err.Error())
	}
	close(done)
}
