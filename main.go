package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/blindrelay/go-blindrelay-server/apiroutes"
	"github.com/blindrelay/go-blindrelay-server/global"
	"golang.org/x/sys/unix"
)

// @title Blind Relay Server API
// @version 0.1.0
// @description Zero-knowledge store-and-forward relay for end-to-end encrypted messages

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default: current dir with filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	if err := global.LoadConfig(configFile); err != nil {
		global.Logger.Log(err, "conf.yaml failed to load")
		panic("Failed to load conf.yaml")
	}

	// in-memory mailbox store with a background expiry sweep
	store := setupStore()
	defer store.Stop()

	// failure tracking, suspicious request detection and rate limiting
	gate := setupGate()

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, unix.SIGTERM)

	// init routing (for RESTful API endpoints)
	router := setupRouter()
	router = apiroutes.ConfigRoutes(router, store, gate)

	// start server
	srv := startServer(router)
	// wait for server shutdown
	go shutdownServer(srv, quit, done)

	global.Logger.Log("Server is ready to handle requests at", global.Conf.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done
}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: blindrelay [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
