package master

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/events"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// Defaults used when Play Now has to fall back to creating a room.
const (
	playNowRoomName   = "Default game"
	playNowMaxPlayers = 4
)

const zoneRequestTimeout = 10 * time.Second

// RoomsAddon provides the room directory operations on the master server:
// find/create/join/play-now for players and the registration bookkeeping for
// zone and game servers.
type RoomsAddon struct {
	directory *Directory
	pending   *PendingCreates
	players   *registry.Registry
	publisher *events.Publisher
	logger    *logrus.Logger

	// requestSpawn is swapped out by tests; production dials the zone on a
	// transient connection and awaits its synchronous response.
	requestSpawn func(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error)
}

func NewRoomsAddon(directory *Directory, pending *PendingCreates, players *registry.Registry, publisher *events.Publisher, logger *logrus.Logger) *RoomsAddon {
	a := &RoomsAddon{
		directory: directory,
		pending:   pending,
		players:   players,
		publisher: publisher,
		logger:    logger,
	}
	a.requestSpawn = a.requestSpawnOverWire
	return a
}

func (a *RoomsAddon) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpPing, a.handlePing)
	mux.Handle(protocol.OpFindRooms, a.handleFindRooms)
	mux.Handle(protocol.OpCreateRoom, a.handleCreateRoom)
	mux.Handle(protocol.OpJoinRoom, a.handleJoinRoom)
	mux.Handle(protocol.OpPlayNow, a.handlePlayNow)

	mux.Handle(protocol.OpRegisterZone, a.handleRegisterZone)
	mux.Handle(protocol.OpRegisterGame, a.handleRegisterGame)
	mux.Handle(protocol.OpUnregisterGame, a.handleUnregisterGame)
	mux.Handle(protocol.OpGameState, a.handleGameState)
	mux.Handle(protocol.OpGameReady, a.handleGameReady)
}

// OnPeerDisconnected drops whatever the peer had registered and cancels its
// in-flight create request, if any.
func (a *RoomsAddon) OnPeerDisconnected(p *transport.Peer) {
	if z, ok := a.directory.UnregisterZone(p.ID); ok {
		a.logger.WithFields(logrus.Fields{"ip": z.IP, "port": z.Port}).Info("unregistered zone server")
	}
	if g, ok := a.directory.UnregisterGame(p.ID); ok {
		a.logger.WithFields(logrus.Fields{"id": g.ID, "ip": g.IP, "port": g.Port}).Info("unregistered game server")
		a.publisher.Publish(context.Background(), events.RoomEventRecord{
			Event:  events.RoomUnregistered,
			RoomID: g.ID,
			Name:   g.Name,
		})
	}
	a.pending.Cancel(p.ID)
}

func (a *RoomsAddon) handlePing(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	p.Reply(env.Seq, protocol.OpPong, protocol.PongResult{NumConnectedPlayers: a.players.Count()})
}

func (a *RoomsAddon) handleFindRooms(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.FindRoomsRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed find request: %v", err)
		return
	}
	rooms := a.directory.Find(req.IncludeProperties, req.ExcludeProperties)
	p.Reply(env.Seq, protocol.OpFindRoomsResult, protocol.FindRoomsResult{Rooms: rooms})
}

func (a *RoomsAddon) handleJoinRoom(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.JoinRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed join request: %v", err)
		return
	}
	p.Reply(env.Seq, protocol.OpJoinRoomResult, a.directory.Join(req.ID, req.Password))
}

func (a *RoomsAddon) handleCreateRoom(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.CreateRoomRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed create request: %v", err)
		return
	}
	a.createRoom(p, env.Seq, req)
}

func (a *RoomsAddon) handlePlayNow(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	if result, ok := a.directory.FirstOpenRoom(); ok {
		p.Reply(env.Seq, protocol.OpJoinRoomResult, result)
		return
	}
	a.createRoom(p, env.Seq, protocol.CreateRoomRequest{
		Name:       playNowRoomName,
		MaxPlayers: playNowMaxPlayers,
	})
}

// createRoom runs the two-phase creation protocol: select a zone, forward
// the spawn request on a transient connection, and leave a pending entry
// that the game server's ready notification resolves later.
func (a *RoomsAddon) createRoom(p *transport.Peer, seq uint64, req protocol.CreateRoomRequest) {
	zone, ok := a.directory.PickZone()
	if !ok {
		p.Reply(seq, protocol.OpCreateRoomResult, protocol.CreateRoomResult{
			Error: protocol.CreateRoomErrZoneServerUnavailable,
		})
		return
	}

	a.pending.Add(p.ID, func(result protocol.CreateRoomResult) {
		p.Reply(seq, protocol.OpCreateRoomResult, result)
	})

	spawnReq := protocol.SpawnRoomRequest{
		PlayerConnID: p.ID.String(),
		Name:         req.Name,
		MaxPlayers:   req.MaxPlayers,
		Password:     req.Password,
		Properties:   req.Properties,
	}

	go a.forwardToZone(p.ID, zone, spawnReq)
}

// forwardToZone forwards the spawn request and interprets the zone's
// synchronous response. Only a failure resolves the pending entry here; on
// success the terminal answer arrives via the game-ready push.
func (a *RoomsAddon) forwardToZone(playerID uuid.UUID, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), zoneRequestTimeout)
	defer cancel()

	result, err := a.requestSpawn(ctx, zone, req)
	if err != nil {
		a.logger.WithFields(logrus.Fields{"ip": zone.IP, "port": zone.Port}).
			Warnf("spawn request to zone failed: %v", err)
		a.pending.ResolveFailed(playerID, protocol.CreateRoomErrSpawnFailed)
		return
	}
	if !result.Success {
		a.pending.ResolveFailed(playerID, protocol.CreateRoomErrSpawnFailed)
		return
	}
	a.pending.MarkZoneAccepted(playerID)
}

func (a *RoomsAddon) requestSpawnOverWire(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error) {
	peer, err := transport.Dial(ctx, zone.IP, zone.Port, a.logger)
	if err != nil {
		return protocol.SpawnRoomResult{}, err
	}
	go peer.Run(ctx, func(context.Context, *transport.Peer, protocol.Envelope) {})
	defer peer.Close(websocket.StatusNormalClosure, "spawn request complete")

	env, err := peer.Request(ctx, protocol.OpSpawnRoom, req)
	if err != nil {
		return protocol.SpawnRoomResult{}, err
	}

	var result protocol.SpawnRoomResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return protocol.SpawnRoomResult{}, err
	}
	return result, nil
}

func (a *RoomsAddon) handleRegisterZone(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.RegisterZoneRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed zone registration: %v", err)
		p.Close(transport.RegistrationError, "malformed registration")
		return
	}
	a.directory.RegisterZone(p.ID, req.IP, req.Port)
	a.logger.WithFields(logrus.Fields{"ip": req.IP, "port": req.Port}).Info("registered zone server")
}

func (a *RoomsAddon) handleRegisterGame(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.RegisterGameRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed game registration: %v", err)
		p.Close(transport.RegistrationError, "malformed registration")
		return
	}
	g := a.directory.RegisterGame(p.ID, p, req)
	a.logger.WithFields(logrus.Fields{"id": g.ID, "ip": g.IP, "port": g.Port}).Info("registered game server")
	a.publisher.Publish(ctx, events.RoomEventRecord{
		Event:      events.RoomRegistered,
		RoomID:     g.ID,
		Name:       g.Name,
		MaxPlayers: g.MaxPlayers,
	})
}

func (a *RoomsAddon) handleUnregisterGame(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	if g, ok := a.directory.UnregisterGame(p.ID); ok {
		a.logger.WithFields(logrus.Fields{"id": g.ID}).Info("game server unregistered")
		a.publisher.Publish(ctx, events.RoomEventRecord{
			Event:  events.RoomUnregistered,
			RoomID: g.ID,
			Name:   g.Name,
		})
	}
	p.Reply(env.Seq, protocol.OpUnregisterGameAck, protocol.UnregisterGameAck{})
}

func (a *RoomsAddon) handleGameState(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.GameStateUpdate
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return
	}
	if g, ok := a.directory.UpdateGameState(p.ID, req.NumPlayers); ok {
		a.publisher.Publish(ctx, events.RoomEventRecord{
			Event:      events.RoomStateUpdated,
			RoomID:     g.ID,
			Name:       g.Name,
			NumPlayers: g.NumPlayers,
			MaxPlayers: g.MaxPlayers,
		})
	}
}

// handleGameReady resolves the pending create request named by the game
// server's notification. Standalone game servers send an empty player id,
// which simply means nobody is waiting.
func (a *RoomsAddon) handleGameReady(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.GameReadyNotice
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed game-ready notice: %v", err)
		return
	}
	if req.PlayerConnID == "" {
		return
	}
	playerID, err := uuid.Parse(req.PlayerConnID)
	if err != nil {
		a.logger.Warnf("game-ready notice with invalid player id %q", req.PlayerConnID)
		return
	}
	a.pending.ResolveReady(playerID, req.IP, req.Port)
}
