package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tradeguard/server/internal/chatfilter"
	"github.com/lawnchairsociety/tradeguard/server/internal/config"
	"github.com/lawnchairsociety/tradeguard/server/internal/game"
	"github.com/lawnchairsociety/tradeguard/server/internal/logger"
	"github.com/lawnchairsociety/tradeguard/server/internal/server"
)

func main() {
	// Parse command-line flags
	seed := flag.Int64("seed", 0, "Map generation seed (default: random based on current time)")
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	tuningFile := flag.String("tuning", "data/game.yaml", "Path to game tuning YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	chatFilterConfig := flag.String("chatfilter", "data/chat_filter.yaml", "Path to chat filter config YAML file")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting Trade Guard Server")

	// Use provided seed or generate from time
	mapSeed := *seed
	if mapSeed == 0 {
		mapSeed = time.Now().UnixNano()
		logger.Info("Map seed selected", "seed", mapSeed, "random", true)
	} else {
		logger.Info("Map seed selected", "seed", mapSeed, "random", false)
	}

	// Load game tuning
	tuning, err := game.LoadTuning(*tuningFile)
	if err != nil {
		logger.Warning("Failed to load game tuning, using defaults", "path", *tuningFile, "error", err)
		tuning = game.DefaultTuning()
	}

	// Load server config (listen addresses, connection limits, CORS)
	serverCfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *serverConfigFile, "error", err)
		serverCfg = config.DefaultConfig()
	}

	// Initialize the game world and server
	world := game.NewWorld(mapSeed, tuning)
	srv := server.NewServer(serverCfg, world)

	// Load and set chat filter
	filterCfg, err := chatfilter.LoadConfig(*chatFilterConfig)
	if err != nil {
		logger.Warning("Failed to load chat filter config, chat filter disabled", "path", *chatFilterConfig, "error", err)
	} else {
		srv.SetChatFilter(chatfilter.New(filterCfg))
		if filterCfg.Enabled {
			logger.Info("Chat filter enabled", "mode", filterCfg.Mode, "words", len(filterCfg.BannedWords))
		}
	}

	// Start TCP server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Start WebSocket bridge if enabled
	if serverCfg.WebSocket.Enabled {
		if len(serverCfg.WebSocket.AllowedOrigins) == 0 {
			logger.Info("WebSocket CORS policy", "mode", "same-origin")
		} else if len(serverCfg.WebSocket.AllowedOrigins) == 1 && serverCfg.WebSocket.AllowedOrigins[0] == "*" {
			logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
		} else {
			logger.Info("WebSocket CORS policy", "allowed_origins", serverCfg.WebSocket.AllowedOrigins)
		}

		go func() {
			if err := srv.StartWebSocket(serverCfg.WebSocket.Listen); err != nil {
				log.Fatalf("WebSocket server error: %v", err)
			}
		}()
	}

	logger.Info("Trade Guard Server running",
		"listen", serverCfg.Listen,
		"tick_ms", tuning.TickMillis,
		"seed", mapSeed)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
	logger.Info("Server stopped")
}
