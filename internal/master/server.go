package master

import (
	"context"
	"fmt"

	"github.com/lobbykit/lobbykit/internal/auth"
	"github.com/lobbykit/lobbykit/internal/chat"
	"github.com/lobbykit/lobbykit/internal/config"
	"github.com/lobbykit/lobbykit/internal/events"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/store"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// Server is the assembled master server: directory, pending create table,
// player registry and the fixed addon set on top of the transport layer.
type Server struct {
	cfg       config.MasterConfig
	logger    *logrus.Logger
	publisher *events.Publisher
	ws        *transport.Server

	Directory *Directory
	Pending   *PendingCreates
	Players   *registry.Registry
}

// New assembles a master server around the given account store. The store is
// injected so the binary decides between Postgres and the in-memory backend.
func New(ctx context.Context, cfg config.MasterConfig, accounts store.AccountStore, logger *logrus.Logger) (*Server, error) {
	sessions, err := auth.NewSessions(cfg.SessionExpire)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}

	publisher, err := events.NewPublisher(ctx, cfg.RedisAddr, cfg.EventQueue, cfg.RedisDB, logger)
	if err != nil {
		return nil, err
	}

	players := registry.New()
	directory := NewDirectory()
	pending := NewPendingCreates(cfg.CreateTimeout, logger)

	policy := AuthPolicy{MaxPlayers: cfg.MaxPlayers, AllowGuests: cfg.AllowGuests, GuestName: cfg.GuestName}
	authAddon := NewAuthAddon(accounts, sessions, players, policy, logger)
	roomsAddon := NewRoomsAddon(directory, pending, players, publisher, logger)
	chatAddon := chat.NewRelay(players, logger)
	announceAddon := registry.NewAddon(players, logger)

	ws := transport.NewServer(logger, authAddon, roomsAddon, chatAddon, announceAddon)

	return &Server{
		cfg:       cfg,
		logger:    logger,
		publisher: publisher,
		ws:        ws,
		Directory: directory,
		Pending:   pending,
		Players:   players,
	}, nil
}

// Run blocks serving the master endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.publisher.Close()
	s.logger.Info("master server starting")
	return s.ws.ListenAndServe(ctx, s.cfg.Addr)
}
