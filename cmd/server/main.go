package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"infrascan/internal/app"
	"infrascan/internal/config"
	"infrascan/internal/logger"
)

func main() {
	cfg := config.Load()

	appLogger, err := logger.New(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, appLogger)
	if err != nil {
		appLogger.Error("Startup failed: %v", err)
		appLogger.Close()
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		appLogger.Error("Server stopped: %v", err)
		application.Close()
		appLogger.Close()
		os.Exit(1)
	}
	appLogger.Info("Server stopped")
}
