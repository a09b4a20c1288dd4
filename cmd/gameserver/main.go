// cmd/gameserver/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lobbykit/lobbykit/internal/config"
	"github.com/lobbykit/lobbykit/internal/gamehost"
)

// Invoked two ways: by a zone server as "gameserver <host> <port> [-headless]"
// (room config arrives over the wire), or with no arguments as a standalone
// server configured from the environment.
func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.LoadGame()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var host *gamehost.Host
	if len(os.Args) >= 3 {
		port, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.Fatalf("invalid port %q: %v", os.Args[2], err)
		}
		host = gamehost.NewSpawned(gamehost.Options{
			IP:            os.Args[1],
			Port:          port,
			MasterIP:      cfg.MasterIP,
			MasterPort:    cfg.MasterPort,
			EmptyInterval: cfg.EmptyInterval,
		}, logger)
	} else {
		host = gamehost.NewStandalone(gamehost.Options{
			IP:             cfg.IP,
			Port:           cfg.Port,
			MasterIP:       cfg.MasterIP,
			MasterPort:     cfg.MasterPort,
			CloseWhenEmpty: cfg.CloseWhenEmpty,
			EmptyInterval:  cfg.EmptyInterval,
		}, gamehost.RoomSettings{
			Name:         cfg.Name,
			MaxPlayers:   cfg.MaxPlayers,
			Password:     cfg.Password,
			HideWhenFull: cfg.HideWhenFull,
		}, logger)
	}

	if err := host.Run(ctx); err != nil {
		logger.Fatalf("game server exited: %v", err)
	}
}
