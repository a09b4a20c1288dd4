package zone

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// SpawnedGame is one live room this zone is hosting.
type SpawnedGame struct {
	Port    int
	Process Process
}

// Provisioner spawns game server processes and hands each its room
// configuration over a transient local connection.
type Provisioner struct {
	ip           string
	port         int
	properties   []protocol.Property
	ports        *PortPool
	launcher     Launcher
	spawnTimeout time.Duration
	logger       *logrus.Logger

	// configure is swapped out by tests; production dials the freshly
	// spawned process and pushes its room config.
	configure func(ctx context.Context, port int, cfg protocol.RoomConfig) error

	mu    sync.Mutex
	games map[int]*SpawnedGame
}

// NewProvisioner builds a provisioner for the given zone identity. ip and
// port name the zone's own endpoint so spawned game servers can call back.
func NewProvisioner(ip string, port int, properties []protocol.Property, ports *PortPool, launcher Launcher, spawnTimeout time.Duration, logger *logrus.Logger) *Provisioner {
	p := &Provisioner{
		ip:           ip,
		port:         port,
		properties:   properties,
		ports:        ports,
		launcher:     launcher,
		spawnTimeout: spawnTimeout,
		logger:       logger,
		games:        make(map[int]*SpawnedGame),
	}
	p.configure = p.pushConfig
	return p
}

// Spawn reserves a port, starts a game server process on it and pushes the
// room configuration once the process is listening. Any failure releases the
// port. procCtx must be the zone's long-lived context: the process has to
// outlive the spawn request.
func (p *Provisioner) Spawn(procCtx context.Context, req protocol.SpawnRoomRequest) error {
	gamePort, err := p.ports.Acquire()
	if err != nil {
		return err
	}

	proc, err := p.launcher.Launch(procCtx, p.ip, gamePort)
	if err != nil {
		p.ports.Release(gamePort)
		return err
	}

	// Zone properties come first; room properties follow without
	// deduplication, matching how clients read them.
	properties := append(append([]protocol.Property{}, p.properties...), req.Properties...)
	cfg := protocol.RoomConfig{
		PlayerConnID: req.PlayerConnID,
		ZoneIP:       p.ip,
		ZonePort:     p.port,
		Name:         req.Name,
		MaxPlayers:   req.MaxPlayers,
		Password:     req.Password,
		Properties:   properties,
	}

	ctx, cancel := context.WithTimeout(procCtx, p.spawnTimeout)
	defer cancel()
	if err := p.configure(ctx, gamePort, cfg); err != nil {
		p.logger.WithField("port", gamePort).Warnf("failed to configure spawned game: %v", err)
		proc.Stop()
		p.ports.Release(gamePort)
		return err
	}

	p.mu.Lock()
	p.games[gamePort] = &SpawnedGame{Port: gamePort, Process: proc}
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{"port": gamePort, "name": req.Name}).Info("spawned game server")
	return nil
}

// Destroy releases the port of a room that announced its shutdown. The
// process exits on its own; the zone only reclaims the port.
func (p *Provisioner) Destroy(port int) {
	p.mu.Lock()
	_, ok := p.games[port]
	delete(p.games, port)
	p.mu.Unlock()

	if !ok {
		return
	}
	p.ports.Release(port)
	p.logger.WithField("port", port).Info("released game server port")
}

// NumGames reports the number of live rooms.
func (p *Provisioner) NumGames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.games)
}

// pushConfig dials the spawned process with retry (it takes a moment to
// start listening) and delivers the room config, waiting for the ack.
func (p *Provisioner) pushConfig(ctx context.Context, port int, cfg protocol.RoomConfig) error {
	peer, err := transport.DialWithRetry(ctx, p.ip, port, p.logger)
	if err != nil {
		return err
	}
	go peer.Run(ctx, func(context.Context, *transport.Peer, protocol.Envelope) {})
	defer peer.Close(websocket.StatusNormalClosure, "room configured")

	_, err = peer.Request(ctx, protocol.OpRoomConfig, cfg)
	return err
}

// ParseProperties parses the "name=value,name=value" form used by the zone's
// room property environment variable. Malformed pairs are skipped.
func ParseProperties(raw string) []protocol.Property {
	var out []protocol.Property
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if ok && name != "" {
			out = append(out, protocol.Property{Name: name, Value: value})
		}
	}
	return out
}
