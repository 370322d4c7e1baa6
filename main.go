package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"debatekit/core"
	"debatekit/factories"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "settings.json", "Path to settings.json")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"error": err}).Warn("Using default settings")
	}
	keys := factories.LoadAPIKeysFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := factories.BuildApp(ctx, settings, keys, logger)
	if err != nil {
		logger.Fatal("failed to build application", "error", err)
	}
	defer app.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- app.Server.Listen()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logger.Info("shutting down", "signal", sig.String())
		if err := app.Server.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errc:
		if err != nil {
			logger.Fatal("server failed", "error", err)
		}
	}
}
