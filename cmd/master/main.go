// cmd/master/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lobbykit/lobbykit/internal/config"
	"github.com/lobbykit/lobbykit/internal/master"
	"github.com/lobbykit/lobbykit/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.LoadMaster()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var accounts store.AccountStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		defer pg.Close()
		accounts = pg
		logger.Info("using postgres account store")
	} else {
		accounts = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, accounts are in-memory only")
	}

	srv, err := master.New(ctx, cfg, accounts, logger)
	if err != nil {
		logger.Fatalf("failed to start master server: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("master server exited: %v", err)
	}
}
