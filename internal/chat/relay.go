// Package chat implements the stateless chat relay shared by the master and
// game servers: per-message fan-out over the server's connection registry
// with the sender's display name resolved server-side.
package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// Relay fans chat text out to the players connected to one server instance.
// It keeps no state of its own; the channel field is carried as metadata and
// filtered client-side.
type Relay struct {
	players *registry.Registry
	logger  *logrus.Logger
}

func NewRelay(players *registry.Registry, logger *logrus.Logger) *Relay {
	return &Relay{players: players, logger: logger}
}

func (r *Relay) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpChatPublic, r.handlePublic)
	mux.Handle(protocol.OpChatPrivate, r.handlePrivate)
}

func (r *Relay) OnPeerDisconnected(p *transport.Peer) {}

func (r *Relay) handlePublic(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.ChatPublicRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		r.logger.WithField("peer", p.ID).Warnf("malformed public chat: %v", err)
		return
	}
	r.Public(p.ID, req.Channel, req.Text)
}

func (r *Relay) handlePrivate(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.ChatPrivateRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		r.logger.WithField("peer", p.ID).Warnf("malformed private chat: %v", err)
		return
	}
	r.Private(p.ID, req.Channel, req.Recipient, req.Text)
}

// Public broadcasts a message from the given sender to every connected
// player, regardless of channel membership.
func (r *Relay) Public(senderID uuid.UUID, channel, text string) {
	msg := protocol.ChatMessage{Channel: channel, Text: text}
	if sender, ok := r.players.Get(senderID); ok {
		msg.Sender = sender.Name
	}
	for _, p := range r.players.All() {
		r.sendTo(p, msg)
	}
}

// Private echoes the message back to the sender and delivers it to the named
// recipient when connected. An unknown recipient is silently dropped; the
// sender still receives the echo.
func (r *Relay) Private(senderID uuid.UUID, channel, recipient, text string) {
	msg := protocol.ChatMessage{Channel: channel, Recipient: recipient, Text: text, Private: true}

	sender, ok := r.players.Get(senderID)
	if ok {
		msg.Sender = sender.Name
		r.sendTo(sender, msg)
	}
	if target, ok := r.players.FindByName(recipient); ok {
		r.sendTo(target, msg)
	}
}

func (r *Relay) sendTo(p *registry.Player, msg protocol.ChatMessage) {
	if err := p.Conn.Send(protocol.OpChatMessage, msg); err != nil {
		r.logger.WithField("player", p.Name).Debugf("chat delivery failed: %v", err)
	}
}
