package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lobbykit/lobbykit/internal/config"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

const masterReconnectDelay = 5 * time.Second

// Server is the assembled zone server: a websocket endpoint the master sends
// spawn requests to, plus a persistent upward registration with the master.
type Server struct {
	cfg         config.ZoneConfig
	logger      *logrus.Logger
	provisioner *Provisioner
	ws          *transport.Server
}

func New(cfg config.ZoneConfig, launcher Launcher, properties []protocol.Property, logger *logrus.Logger) *Server {
	ports := NewPortPool(cfg.GameBasePort, cfg.MaxRooms)
	provisioner := NewProvisioner(cfg.IP, cfg.Port, properties, ports, launcher, cfg.SpawnTimeout, logger)

	s := &Server{cfg: cfg, logger: logger, provisioner: provisioner}
	s.ws = transport.NewServer(logger, &provisionAddon{server: s})
	return s
}

// Run blocks serving spawn requests until the context is cancelled. It
// pre-spawns the configured number of rooms and keeps the master
// registration alive in the background.
func (s *Server) Run(ctx context.Context) error {
	for i := 0; i < s.cfg.PreSpawnRooms; i++ {
		req := protocol.SpawnRoomRequest{
			Name:       fmt.Sprintf("Room %d", i+1),
			MaxPlayers: 4,
		}
		if err := s.provisioner.Spawn(ctx, req); err != nil {
			s.logger.Warnf("failed to pre-spawn room: %v", err)
		}
	}

	go s.keepRegistered(ctx)

	s.logger.Info("zone server starting")
	return s.ws.ListenAndServe(ctx, fmt.Sprintf(":%d", s.cfg.Port))
}

// keepRegistered holds a connection to the master and re-registers whenever
// it drops. Registration is fire-and-forget; the master keys the zone entry
// on the connection itself.
func (s *Server) keepRegistered(ctx context.Context) {
	mux := transport.NewMux(s.logger)
	for {
		peer, err := transport.Connect(ctx, s.cfg.MasterIP, s.cfg.MasterPort, mux, s.logger)
		if err != nil {
			s.logger.Warnf("failed to reach master: %v", err)
		} else {
			peer.Send(protocol.OpRegisterZone, protocol.RegisterZoneRequest{
				IP:   s.cfg.IP,
				Port: s.cfg.Port,
			})
			s.logger.Info("registered with master")

			select {
			case <-ctx.Done():
				return
			case <-peer.Done():
				s.logger.Warn("lost connection to master, reconnecting")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(masterReconnectDelay):
		}
	}
}

// provisionAddon exposes the provisioner over the zone's websocket endpoint.
type provisionAddon struct {
	server *Server
}

func (a *provisionAddon) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpSpawnRoom, a.handleSpawnRoom)
	mux.Handle(protocol.OpDestroyRoom, a.handleDestroyRoom)
}

func (a *provisionAddon) OnPeerDisconnected(p *transport.Peer) {}

// handleSpawnRoom answers whether the spawn attempt succeeded. The spawned
// game server reports its readiness to the master directly, so success here
// only means a process is starting.
func (a *provisionAddon) handleSpawnRoom(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	s := a.server
	var req protocol.SpawnRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		s.logger.WithField("peer", p.ID).Warnf("malformed spawn request: %v", err)
		return
	}

	// The spawn must survive the requesting connection, so it runs on the
	// server context rather than the handler context.
	go func() {
		err := s.provisioner.Spawn(context.WithoutCancel(ctx), req)
		if err != nil {
			s.logger.Warnf("spawn failed: %v", err)
		}
		p.Reply(env.Seq, protocol.OpSpawnRoomResult, protocol.SpawnRoomResult{
			Success:      err == nil,
			PlayerConnID: req.PlayerConnID,
		})
	}()
}

func (a *provisionAddon) handleDestroyRoom(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	s := a.server
	var req protocol.DestroyRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		s.logger.WithField("peer", p.ID).Warnf("malformed destroy request: %v", err)
		return
	}
	s.provisioner.Destroy(req.Port)
	p.Reply(env.Seq, protocol.OpDestroyRoomAck, protocol.DestroyRoomAck{})
}
