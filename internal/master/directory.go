// Package master implements the master server: the room directory, the
// pending create-request table bridging the two-phase room creation
// protocol, and the authentication and rooms addons wired on top of the
// transport layer.
package master

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
)

// RegisteredZoneServer is one zone server known to the directory, keyed by
// the connection it registered on. At most one entry exists per connection.
type RegisteredZoneServer struct {
	PeerID uuid.UUID
	IP     string
	Port   int
}

// RegisteredGameServer is one live room known to the directory. IDs are
// assigned sequentially and never reused within a master process lifetime.
type RegisteredGameServer struct {
	PeerID       uuid.UUID
	Conn         registry.Conn
	ID           int
	IP           string
	Port         int
	Name         string
	NumPlayers   int
	MaxPlayers   int
	Password     string
	HideWhenFull bool
	Properties   []protocol.Property
}

// Directory is the master server's in-memory registry of zone servers and
// game rooms. Slices keep registration order, which Play Now's first-fit
// scan depends on.
type Directory struct {
	mu         sync.Mutex
	zones      []*RegisteredZoneServer
	games      []*RegisteredGameServer
	nextGameID int
}

func NewDirectory() *Directory {
	return &Directory{}
}

// RegisterZone appends a zone server entry.
func (d *Directory) RegisterZone(peerID uuid.UUID, ip string, port int) *RegisteredZoneServer {
	d.mu.Lock()
	defer d.mu.Unlock()
	z := &RegisteredZoneServer{PeerID: peerID, IP: ip, Port: port}
	d.zones = append(d.zones, z)
	return z
}

// UnregisterZone removes the zone registered on the given connection, if any.
func (d *Directory) UnregisterZone(peerID uuid.UUID) (*RegisteredZoneServer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, z := range d.zones {
		if z.PeerID == peerID {
			d.zones = append(d.zones[:i], d.zones[i+1:]...)
			return z, true
		}
	}
	return nil, false
}

// PickZone selects a zone server uniformly at random.
func (d *Directory) PickZone() (*RegisteredZoneServer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.zones) == 0 {
		return nil, false
	}
	return d.zones[rand.Intn(len(d.zones))], true
}

// RegisterGame appends a game server entry and assigns its id.
func (d *Directory) RegisterGame(peerID uuid.UUID, conn registry.Conn, req protocol.RegisterGameRequest) *RegisteredGameServer {
	d.mu.Lock()
	defer d.mu.Unlock()

	g := &RegisteredGameServer{
		PeerID:       peerID,
		Conn:         conn,
		ID:           d.nextGameID,
		IP:           req.IP,
		Port:         req.Port,
		Name:         req.Name,
		MaxPlayers:   req.MaxPlayers,
		Password:     req.Password,
		HideWhenFull: req.HideWhenFull,
		Properties:   req.Properties,
	}
	d.nextGameID++
	d.games = append(d.games, g)
	return g
}

// UnregisterGame removes the game registered on the given connection, if any.
func (d *Directory) UnregisterGame(peerID uuid.UUID) (*RegisteredGameServer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, g := range d.games {
		if g.PeerID == peerID {
			d.games = append(d.games[:i], d.games[i+1:]...)
			return g, true
		}
	}
	return nil, false
}

// UpdateGameState refreshes the player count of the game registered on the
// given connection. Updates for unknown connections are dropped.
func (d *Directory) UpdateGameState(peerID uuid.UUID, numPlayers int) (*RegisteredGameServer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.games {
		if g.PeerID == peerID {
			g.NumPlayers = numPlayers
			return g, true
		}
	}
	return nil, false
}

// Find returns every room that is not hidden-while-full, includes all of the
// include properties and includes none of the exclude properties.
func (d *Directory) Find(include, exclude []protocol.Property) []protocol.RoomInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	rooms := make([]protocol.RoomInfo, 0, len(d.games))
	for _, g := range d.games {
		if g.hiddenFromMatchmaking() || !g.includesAll(include) || !g.excludesAll(exclude) {
			continue
		}
		rooms = append(rooms, protocol.RoomInfo{
			ID:         g.ID,
			IP:         g.IP,
			Port:       g.Port,
			Name:       g.Name,
			NumPlayers: g.NumPlayers,
			MaxPlayers: g.MaxPlayers,
			IsPrivate:  g.Password != "",
			Properties: g.Properties,
		})
	}
	return rooms
}

// Join resolves a join request against the registered rooms. The password
// check takes precedence over the fullness check.
func (d *Directory) Join(id int, password string) protocol.JoinRoomResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var game *RegisteredGameServer
	for _, g := range d.games {
		if g.ID == id {
			game = g
			break
		}
	}
	if game == nil {
		return protocol.JoinRoomResult{Error: protocol.JoinRoomErrGameExpired}
	}
	if game.Password != "" && password != game.Password {
		return protocol.JoinRoomResult{Error: protocol.JoinRoomErrInvalidPassword}
	}
	if game.NumPlayers == game.MaxPlayers {
		return protocol.JoinRoomResult{Error: protocol.JoinRoomErrGameFull}
	}
	return protocol.JoinRoomResult{Success: true, IP: game.IP, Port: game.Port}
}

// FirstOpenRoom returns the first public room with available capacity, in
// registration order. Play Now joins it directly when present.
func (d *Directory) FirstOpenRoom() (protocol.JoinRoomResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.games {
		if g.Password == "" && g.NumPlayers < g.MaxPlayers {
			return protocol.JoinRoomResult{Success: true, IP: g.IP, Port: g.Port}, true
		}
	}
	return protocol.JoinRoomResult{}, false
}

func (g *RegisteredGameServer) hiddenFromMatchmaking() bool {
	return g.HideWhenFull && g.NumPlayers >= g.MaxPlayers
}

func (g *RegisteredGameServer) includesAll(properties []protocol.Property) bool {
	for _, want := range properties {
		if !g.hasProperty(want) {
			return false
		}
	}
	return true
}

func (g *RegisteredGameServer) excludesAll(properties []protocol.Property) bool {
	for _, banned := range properties {
		if g.hasProperty(banned) {
			return false
		}
	}
	return true
}

func (g *RegisteredGameServer) hasProperty(p protocol.Property) bool {
	for _, own := range g.Properties {
		if own.Name == p.Name && own.Value == p.Value {
			return true
		}
	}
	return false
}
