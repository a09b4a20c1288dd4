package master

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoomsFixture(t *testing.T) *RoomsAddon {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRoomsAddon(NewDirectory(), newTestPending(0), registry.New(), nil, logger)
}

func newTestPeer() *transport.Peer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return transport.NewPeer(nil, logger)
}

func gameReadyEnvelope(t *testing.T, notice protocol.GameReadyNotice) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(notice)
	require.NoError(t, err)
	return protocol.Envelope{Op: protocol.OpGameReady, Data: data}
}

func TestCreateRoomWithoutZonesLeavesNothingPending(t *testing.T) {
	a := newRoomsFixture(t)
	peer := newTestPeer()

	a.createRoom(peer, 1, protocol.CreateRoomRequest{Name: "x", MaxPlayers: 4})
	assert.Equal(t, 0, a.pending.Len(), "immediate failure must not leave a pending entry")
}

func TestCreateRoomResolvedByGameReady(t *testing.T) {
	a := newRoomsFixture(t)
	a.directory.RegisterZone(newTestPeer().ID, "10.0.0.2", 8100)
	a.requestSpawn = func(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error) {
		return protocol.SpawnRoomResult{Success: true, PlayerConnID: req.PlayerConnID}, nil
	}

	player := newTestPeer()
	a.createRoom(player, 1, protocol.CreateRoomRequest{Name: "x", MaxPlayers: 4})

	// The zone accepted, so the entry waits for the game-ready push.
	require.Eventually(t, func() bool { return a.pending.Len() == 1 }, time.Second, 5*time.Millisecond)

	gamePeer := newTestPeer()
	a.handleGameReady(context.Background(), gamePeer, gameReadyEnvelope(t, protocol.GameReadyNotice{
		PlayerConnID: player.ID.String(),
		IP:           "10.0.0.2",
		Port:         9001,
	}))
	assert.Equal(t, 0, a.pending.Len(), "game-ready resolves the pending create")
}

func TestCreateRoomFailsWhenZoneRejectsSpawn(t *testing.T) {
	a := newRoomsFixture(t)
	a.directory.RegisterZone(newTestPeer().ID, "10.0.0.2", 8100)
	a.requestSpawn = func(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error) {
		return protocol.SpawnRoomResult{Success: false}, nil
	}

	a.createRoom(newTestPeer(), 1, protocol.CreateRoomRequest{Name: "x", MaxPlayers: 4})
	require.Eventually(t, func() bool { return a.pending.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCreateRoomFailsWhenZoneUnreachable(t *testing.T) {
	a := newRoomsFixture(t)
	a.directory.RegisterZone(newTestPeer().ID, "10.0.0.2", 8100)
	a.requestSpawn = func(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error) {
		return protocol.SpawnRoomResult{}, errors.New("connection refused")
	}

	a.createRoom(newTestPeer(), 1, protocol.CreateRoomRequest{Name: "x", MaxPlayers: 4})
	require.Eventually(t, func() bool { return a.pending.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGameReadyWithEmptyPlayerIDIsIgnored(t *testing.T) {
	a := newRoomsFixture(t)
	a.handleGameReady(context.Background(), newTestPeer(), gameReadyEnvelope(t, protocol.GameReadyNotice{
		IP:   "10.0.0.2",
		Port: 9001,
	}))
	assert.Equal(t, 0, a.pending.Len())
}

func TestDisconnectCleansUpRegistrationsAndPending(t *testing.T) {
	a := newRoomsFixture(t)

	zonePeer := newTestPeer()
	a.directory.RegisterZone(zonePeer.ID, "10.0.0.2", 8100)
	a.requestSpawn = func(ctx context.Context, zone *RegisteredZoneServer, req protocol.SpawnRoomRequest) (protocol.SpawnRoomResult, error) {
		return protocol.SpawnRoomResult{Success: true}, nil
	}

	player := newTestPeer()
	a.createRoom(player, 1, protocol.CreateRoomRequest{Name: "x", MaxPlayers: 4})
	require.Eventually(t, func() bool { return a.pending.Len() == 1 }, time.Second, 5*time.Millisecond)

	// The player drops mid-create: the entry stays cancelled until the late
	// notification arrives, then disappears without a delivered result.
	a.OnPeerDisconnected(player)
	assert.Equal(t, 1, a.pending.Len())

	a.handleGameReady(context.Background(), newTestPeer(), gameReadyEnvelope(t, protocol.GameReadyNotice{
		PlayerConnID: player.ID.String(),
		IP:           "10.0.0.2",
		Port:         9001,
	}))
	assert.Equal(t, 0, a.pending.Len())

	// The zone's disconnect removes its directory entry.
	a.OnPeerDisconnected(zonePeer)
	_, ok := a.directory.PickZone()
	assert.False(t, ok)
}
