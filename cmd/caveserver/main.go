package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/database"
	"github.com/m7alleus/mazer/internal/logger"
	"github.com/m7alleus/mazer/internal/server"
)

func main() {
	configFile := flag.String("config", "data/mazer.yaml", "Path to mazer config YAML file")
	loggingConfig := flag.String("logging", "data/mazer.yaml", "Path to YAML file with a logging section")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	noArchive := flag.Bool("no-archive", false, "Run without the run archive")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting mazer map service")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	srv := server.NewServer(&cfg.Server, cfg.Generator)

	if !*noArchive {
		db, err := database.OpenWithConfig(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to open run archive: %v", err)
		}
		defer db.Close()
		srv.SetStore(db)
		logger.Info("Run archive initialized", "driver", cfg.Database.Driver)
	}

	origins := cfg.Server.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(origins) == 1 && origins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", origins)
	}

	go func() {
		if err := srv.StartWebSocket(cfg.Server.Address); err != nil {
			log.Fatalf("WebSocket server error: %v", err)
		}
	}()

	logger.Info("Map service running", "address", cfg.Server.Address)
	logger.Info("Press Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
	logger.Info("Server stopped", "uptime", srv.GetUptime().Round(time.Second))
}
