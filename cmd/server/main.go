package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/lobby/internal/logging"
	"github.com/Tyrowin/lobby/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	config, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(config.LogLevel, config.LogFormat, os.Stdout)
	logger.Info("Starting lobby server...", "port", config.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lobbyServer := server.New(*config, logger)
	httpServer := server.CreateServer(lobbyServer.Config(), lobbyServer.Routes(), logger)

	if err := lobbyServer.Serve(ctx, httpServer); err != nil {
		logger.Error("Server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// loadConfig builds the configuration from LOBBY_CONFIG, when set, and then
// applies environment overrides.
func loadConfig() (*server.Config, error) {
	config := server.NewConfig()
	if path := os.Getenv("LOBBY_CONFIG"); path != "" {
		loaded, err := server.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	server.ApplyEnv(config)
	return config, nil
}
