// Package gamehost implements the game server: the process that hosts one
// room, registers it in the master's directory and tears everything down
// once the room empties. It runs in two modes: spawned by a zone server
// (room config pushed over the wire) or standalone (room config from the
// environment).
package gamehost

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/lobbykit/lobbykit/internal/chat"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// State tracks the host through its lifecycle. Transitions only move
// forward; ShuttingDown is entered at most once.
type State int

const (
	StateStarting State = iota
	StateListening
	StateRegistering
	StateReady
	StateShuttingDown
	StateTerminated
)

const (
	stateUpdateInterval = time.Second
	shutdownGrace       = 5 * time.Second
	teardownTimeout     = 5 * time.Second
)

// RoomSettings is the resolved configuration of the hosted room, whichever
// mode provided it.
type RoomSettings struct {
	PlayerConnID string
	Name         string
	MaxPlayers   int
	Password     string
	HideWhenFull bool
	Properties   []protocol.Property

	// Zone endpoint to notify on shutdown; zero for standalone servers.
	ZoneIP   string
	ZonePort int
}

// Options configures a host independently of the room it will carry.
type Options struct {
	IP             string
	Port           int
	MasterIP       string
	MasterPort     int
	CloseWhenEmpty bool
	EmptyInterval  time.Duration
}

// Host is one running game server instance.
type Host struct {
	opts   Options
	logger *logrus.Logger

	players *registry.Registry
	updates *updateQueue
	ws      *transport.Server

	state    State
	spawned  bool
	settings RoomSettings
	master   *transport.Peer

	// configReady delivers the zone-pushed room config in spawned mode.
	configReady chan RoomSettings
	// roomEmpty wakes the lifecycle loop the moment the last player leaves.
	roomEmpty chan struct{}
}

// NewSpawned builds a host that waits for its room config from the zone that
// launched it. Spawned rooms always close when empty.
func NewSpawned(opts Options, logger *logrus.Logger) *Host {
	opts.CloseWhenEmpty = true
	h := newHost(opts, logger, true)
	return h
}

// NewStandalone builds a host with a preconfigured room.
func NewStandalone(opts Options, settings RoomSettings, logger *logrus.Logger) *Host {
	h := newHost(opts, logger, false)
	h.settings = settings
	return h
}

func newHost(opts Options, logger *logrus.Logger, spawned bool) *Host {
	if opts.EmptyInterval <= 0 {
		opts.EmptyInterval = 30 * time.Second
	}

	h := &Host{
		opts:        opts,
		logger:      logger,
		players:     registry.New(),
		updates:     newUpdateQueue(),
		spawned:     spawned,
		configReady: make(chan RoomSettings, 1),
		roomEmpty:   make(chan struct{}, 1),
	}

	players := registry.NewAddon(h.players, logger)
	players.OnPlayerAdded = h.updates.Push
	players.OnPlayerRemoved = h.onPlayerRemoved

	addons := []transport.Addon{players, chat.NewRelay(h.players, logger)}
	if spawned {
		addons = append(addons, &configAddon{host: h})
	}
	h.ws = transport.NewServer(logger, addons...)
	return h
}

func (h *Host) onPlayerRemoved(remaining int) {
	h.updates.Push(remaining)
	if remaining == 0 && h.opts.CloseWhenEmpty {
		select {
		case h.roomEmpty <- struct{}{}:
		default:
		}
	}
}

// Run drives the host through its whole lifecycle and returns once the room
// has been torn down. A registration failure is fatal: a room the master
// cannot list serves nobody.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.state = StateListening
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- h.ws.ListenAndServe(ctx, fmt.Sprintf(":%d", h.opts.Port))
	}()

	if h.spawned {
		select {
		case settings := <-h.configReady:
			h.settings = settings
			h.logger.WithField("name", settings.Name).Info("room config received")
		case err := <-serveErr:
			return fmt.Errorf("listener failed before room config arrived: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.state = StateRegistering
	if err := h.register(ctx); err != nil {
		return err
	}

	h.state = StateReady
	h.logger.WithFields(logrus.Fields{
		"name": h.settings.Name,
		"port": h.opts.Port,
	}).Info("room ready")
	h.serve(ctx)

	h.state = StateShuttingDown
	h.teardown()
	cancel()
	h.state = StateTerminated
	return nil
}

// register connects to the master, lists the room in the directory and
// announces readiness to whoever asked for the room to be created.
func (h *Host) register(ctx context.Context) error {
	mux := transport.NewMux(h.logger)
	master, err := transport.Connect(ctx, h.opts.MasterIP, h.opts.MasterPort, mux, h.logger)
	if err != nil {
		return fmt.Errorf("failed to register with master: %w", err)
	}
	h.master = master

	master.Send(protocol.OpRegisterGame, protocol.RegisterGameRequest{
		IP:           h.opts.IP,
		Port:         h.opts.Port,
		Name:         h.settings.Name,
		MaxPlayers:   h.settings.MaxPlayers,
		Password:     h.settings.Password,
		HideWhenFull: h.settings.HideWhenFull,
		Properties:   h.settings.Properties,
	})
	master.Send(protocol.OpGameReady, protocol.GameReadyNotice{
		PlayerConnID: h.settings.PlayerConnID,
		IP:           h.opts.IP,
		Port:         h.opts.Port,
	})
	return nil
}

// serve runs the ready-state loop: report queued player-count changes every
// second and watch for the room emptying. Returns when the room should shut
// down.
func (h *Host) serve(ctx context.Context) {
	reportTicker := time.NewTicker(stateUpdateInterval)
	defer reportTicker.Stop()
	emptyTicker := time.NewTicker(h.opts.EmptyInterval)
	defer emptyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.master.Done():
			h.logger.Warn("lost connection to master, shutting down")
			return
		case <-reportTicker.C:
			for _, count := range h.updates.Drain() {
				h.master.Send(protocol.OpGameState, protocol.GameStateUpdate{NumPlayers: count})
			}
		case <-emptyTicker.C:
			if h.opts.CloseWhenEmpty && h.players.Count() == 0 {
				h.logger.Info("room is empty, shutting down")
				return
			}
		case <-h.roomEmpty:
			h.logger.Info("last player left, shutting down")
			return
		}
	}
}

// teardown unlists the room, tells the zone to reclaim the port and gives
// connected clients a moment to observe the close.
func (h *Host) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if _, err := h.master.Request(ctx, protocol.OpUnregisterGame, protocol.UnregisterGameRequest{}); err != nil {
		h.logger.Debugf("unregister not acknowledged: %v", err)
	}
	h.master.Close(transport.ShuttingDownError, "room closed")

	if h.settings.ZonePort != 0 {
		h.notifyZone(ctx)
	}

	time.Sleep(shutdownGrace)
}

func (h *Host) notifyZone(ctx context.Context) {
	peer, err := transport.Dial(ctx, h.settings.ZoneIP, h.settings.ZonePort, h.logger)
	if err != nil {
		h.logger.Warnf("failed to notify zone of shutdown: %v", err)
		return
	}
	go peer.Run(ctx, func(context.Context, *transport.Peer, protocol.Envelope) {})
	defer peer.Close(websocket.StatusNormalClosure, "room closed")

	if _, err := peer.Request(ctx, protocol.OpDestroyRoom, protocol.DestroyRoomRequest{Port: h.opts.Port}); err != nil {
		h.logger.Warnf("destroy not acknowledged: %v", err)
	}
}
