// Package registry tracks the players connected to one server instance.
// Every server type (master, zone-less game server, spawned game server)
// owns a registry scoped to its own connections.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
)

// Conn is the outbound half of a player's connection. transport.Peer
// satisfies it; tests substitute fakes.
type Conn interface {
	Send(op protocol.Opcode, v interface{}) error
}

// Player is one authenticated or announced player on a server instance.
type Player struct {
	ID   uuid.UUID
	Name string
	Conn Conn
}

// Registry is the connection registry of a single server instance.
type Registry struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player
	order   []uuid.UUID
}

func New() *Registry {
	return &Registry{players: make(map[uuid.UUID]*Player)}
}

// Add registers a player under its peer ID. Adding an already present ID
// updates the name, matching the announce create-or-rename semantics.
func (r *Registry) Add(id uuid.UUID, name string, conn Conn) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		p.Name = name
		return p
	}
	p := &Player{ID: id, Name: name, Conn: conn}
	r.players[id] = p
	r.order = append(r.order, id)
	return p
}

// Remove drops the player owning the given peer ID, if any.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; !ok {
		return
	}
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the player for a peer ID.
func (r *Registry) Get(id uuid.UUID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// FindByName returns the first connected player with the given display name.
func (r *Registry) FindByName(name string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if p := r.players[id]; p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// All returns a snapshot of the connected players in join order.
func (r *Registry) All() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, 0, len(r.players))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}
