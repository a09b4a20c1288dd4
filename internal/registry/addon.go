package registry

import (
	"context"
	"encoding/json"

	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// Addon wires the player identity announce message and disconnect cleanup
// into a server. A joining connection that announces a username is added to
// the registry; an already known connection is renamed.
type Addon struct {
	players *Registry
	logger  *logrus.Logger

	// OnPlayerAdded is invoked after a new player announces, with the new
	// player count. Renames do not fire it.
	OnPlayerAdded func(count int)

	// OnPlayerRemoved is invoked after a connected player drops, with the
	// remaining player count. Game servers use it to trigger the empty-room
	// check immediately instead of waiting for the periodic tick.
	OnPlayerRemoved func(remaining int)
}

func NewAddon(players *Registry, logger *logrus.Logger) *Addon {
	return &Addon{players: players, logger: logger}
}

func (a *Addon) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpAnnounce, a.handleAnnounce)
}

func (a *Addon) handleAnnounce(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.AnnounceRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed announce: %v", err)
		return
	}
	before := a.players.Count()
	a.players.Add(p.ID, req.Username, p)
	a.logger.WithFields(logrus.Fields{"peer": p.ID, "username": req.Username}).Debug("player announced")
	if after := a.players.Count(); after != before && a.OnPlayerAdded != nil {
		a.OnPlayerAdded(after)
	}
}

func (a *Addon) OnPeerDisconnected(p *transport.Peer) {
	if _, ok := a.players.Get(p.ID); !ok {
		return
	}
	a.players.Remove(p.ID)
	if a.OnPlayerRemoved != nil {
		a.OnPlayerRemoved(a.players.Count())
	}
}
