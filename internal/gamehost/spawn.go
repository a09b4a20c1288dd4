package gamehost

import (
	"context"
	"encoding/json"

	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/transport"
)

// configAddon receives the zone's room config push in spawned mode. The
// first config wins; the zone only ever sends one.
type configAddon struct {
	host *Host
}

func (a *configAddon) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpRoomConfig, a.handleRoomConfig)
}

func (a *configAddon) OnPeerDisconnected(p *transport.Peer) {}

func (a *configAddon) handleRoomConfig(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var cfg protocol.RoomConfig
	if err := json.Unmarshal(env.Data, &cfg); err != nil {
		a.host.logger.WithField("peer", p.ID).Warnf("malformed room config: %v", err)
		return
	}
	p.Reply(env.Seq, protocol.OpRoomConfigAck, protocol.RoomConfigAck{})

	settings := RoomSettings{
		PlayerConnID: cfg.PlayerConnID,
		Name:         cfg.Name,
		MaxPlayers:   cfg.MaxPlayers,
		Password:     cfg.Password,
		Properties:   cfg.Properties,
		ZoneIP:       cfg.ZoneIP,
		ZonePort:     cfg.ZonePort,
	}
	select {
	case a.host.configReady <- settings:
	default:
	}
}
