// cmd/zone/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lobbykit/lobbykit/internal/config"
	"github.com/lobbykit/lobbykit/internal/zone"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.LoadZone()
	properties := zone.ParseProperties(os.Getenv("ZONE_ROOM_PROPERTIES"))

	launcher := &zone.ExecLauncher{
		Binary:   cfg.GameBinary,
		Headless: cfg.Headless,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := zone.New(cfg, launcher, properties, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("zone server exited: %v", err)
	}
}
