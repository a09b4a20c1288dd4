package master

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
)

// pendingState tracks one create request through the two-phase protocol.
type pendingState int

const (
	pendingCreated pendingState = iota
	pendingZoneAccepted
	pendingCancelled
)

// pendingCreate bridges a player's create/play-now request to the game
// server's asynchronous ready notification. The zone's synchronous spawn
// response and the game-ready push arrive on different connections at
// different times; this entry ties both back to the originating player.
type pendingCreate struct {
	playerID uuid.UUID
	state    pendingState
	resolve  func(protocol.CreateRoomResult)
	timer    *time.Timer
}

// PendingCreates is the table of in-flight room creation requests, keyed by
// the originating player's connection id. Every entry resolves exactly once:
// via the zone's failure response, the game server's ready notification, or
// the timeout — whichever lands first removes the entry.
type PendingCreates struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*pendingCreate
	timeout time.Duration
	logger  *logrus.Logger
}

func NewPendingCreates(timeout time.Duration, logger *logrus.Logger) *PendingCreates {
	return &PendingCreates{
		entries: make(map[uuid.UUID]*pendingCreate),
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers a new pending request. A still-unresolved entry for the same
// player is failed first so its caller is never left without an answer.
func (pc *PendingCreates) Add(playerID uuid.UUID, resolve func(protocol.CreateRoomResult)) {
	pc.mu.Lock()
	old := pc.entries[playerID]
	entry := &pendingCreate{playerID: playerID, state: pendingCreated, resolve: resolve}
	if pc.timeout > 0 {
		entry.timer = time.AfterFunc(pc.timeout, func() { pc.expire(playerID, entry) })
	}
	pc.entries[playerID] = entry
	pc.mu.Unlock()

	if old != nil {
		pc.finish(old, protocol.CreateRoomResult{Error: protocol.CreateRoomErrSpawnFailed})
	}
}

// MarkZoneAccepted records that the zone reported a successful spawn attempt.
// The terminal answer still comes from the game server's ready notification.
func (pc *PendingCreates) MarkZoneAccepted(playerID uuid.UUID) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if entry, ok := pc.entries[playerID]; ok && entry.state == pendingCreated {
		entry.state = pendingZoneAccepted
	}
}

// ResolveReady completes a pending request with the spawned room's address.
func (pc *PendingCreates) ResolveReady(playerID uuid.UUID, ip string, port int) {
	pc.remove(playerID, protocol.CreateRoomResult{Success: true, IP: ip, Port: port})
}

// ResolveFailed completes a pending request with the given error.
func (pc *PendingCreates) ResolveFailed(playerID uuid.UUID, code protocol.CreateRoomError) {
	pc.remove(playerID, protocol.CreateRoomResult{Error: code})
}

// Cancel marks the request of a disconnected player. The entry stays in the
// table so a late ready or failure notification still cleans it up, but no
// response is delivered.
func (pc *PendingCreates) Cancel(playerID uuid.UUID) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if entry, ok := pc.entries[playerID]; ok {
		entry.state = pendingCancelled
	}
}

// Len reports the number of in-flight entries.
func (pc *PendingCreates) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

func (pc *PendingCreates) remove(playerID uuid.UUID, result protocol.CreateRoomResult) {
	pc.mu.Lock()
	entry, ok := pc.entries[playerID]
	if ok {
		delete(pc.entries, playerID)
	}
	pc.mu.Unlock()

	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	pc.finish(entry, result)
}

func (pc *PendingCreates) expire(playerID uuid.UUID, entry *pendingCreate) {
	pc.mu.Lock()
	current, ok := pc.entries[playerID]
	if ok && current == entry {
		delete(pc.entries, playerID)
	}
	pc.mu.Unlock()

	if !ok || current != entry {
		return
	}
	pc.logger.WithField("player", playerID).Warn("create request timed out")
	pc.finish(entry, protocol.CreateRoomResult{Error: protocol.CreateRoomErrSpawnFailed})
}

// finish delivers the result unless the player disconnected mid-flight.
func (pc *PendingCreates) finish(entry *pendingCreate, result protocol.CreateRoomResult) {
	if entry.state == pendingCancelled {
		return
	}
	entry.resolve(result)
}
