package zone

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortPoolAcquireRelease(t *testing.T) {
	pool := NewPortPool(9000, 2)

	a, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 9001, a)

	b, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 9002, b)

	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrNoPortsAvailable)

	pool.Release(a)
	c, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, a, c, "released ports are reused")

	// Releasing an unknown port is harmless.
	pool.Release(12345)
	assert.Equal(t, 2, pool.InUse())
}

// fakeLauncher records launches and can be told to fail.
type fakeLauncher struct {
	fail    bool
	ports   []int
	stopped int
}

type fakeProcess struct {
	launcher *fakeLauncher
}

func (p *fakeProcess) Stop() { p.launcher.stopped++ }

func (l *fakeLauncher) Launch(ctx context.Context, host string, port int) (Process, error) {
	if l.fail {
		return nil, errors.New("binary not found")
	}
	l.ports = append(l.ports, port)
	return &fakeProcess{launcher: l}, nil
}

func newTestProvisioner(launcher Launcher, zoneProps []protocol.Property) *Provisioner {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	pool := NewPortPool(9000, 3)
	return NewProvisioner("127.0.0.1", 8100, zoneProps, pool, launcher, time.Second, logger)
}

func TestSpawnTracksGameAndMergesProperties(t *testing.T) {
	launcher := &fakeLauncher{}
	p := newTestProvisioner(launcher, []protocol.Property{{Name: "region", Value: "eu"}})

	var got protocol.RoomConfig
	p.configure = func(ctx context.Context, port int, cfg protocol.RoomConfig) error {
		got = cfg
		return nil
	}

	err := p.Spawn(context.Background(), protocol.SpawnRoomRequest{
		PlayerConnID: "player-1",
		Name:         "My game",
		MaxPlayers:   8,
		Properties:   []protocol.Property{{Name: "mode", Value: "ffa"}, {Name: "region", Value: "us"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, p.NumGames())
	assert.Equal(t, []int{9001}, launcher.ports)
	assert.Equal(t, "player-1", got.PlayerConnID)
	assert.Equal(t, 8100, got.ZonePort)

	// Zone properties come first; duplicates are kept, not merged.
	require.Len(t, got.Properties, 3)
	assert.Equal(t, protocol.Property{Name: "region", Value: "eu"}, got.Properties[0])
	assert.Equal(t, protocol.Property{Name: "mode", Value: "ffa"}, got.Properties[1])
	assert.Equal(t, protocol.Property{Name: "region", Value: "us"}, got.Properties[2])
}

func TestSpawnReleasesPortOnLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{fail: true}
	p := newTestProvisioner(launcher, nil)

	err := p.Spawn(context.Background(), protocol.SpawnRoomRequest{Name: "x", MaxPlayers: 2})
	require.Error(t, err)
	assert.Equal(t, 0, p.NumGames())
	assert.Equal(t, 0, p.ports.InUse())
}

func TestSpawnStopsProcessOnConfigFailure(t *testing.T) {
	launcher := &fakeLauncher{}
	p := newTestProvisioner(launcher, nil)
	p.configure = func(ctx context.Context, port int, cfg protocol.RoomConfig) error {
		return errors.New("process never listened")
	}

	err := p.Spawn(context.Background(), protocol.SpawnRoomRequest{Name: "x", MaxPlayers: 2})
	require.Error(t, err)
	assert.Equal(t, 0, p.NumGames())
	assert.Equal(t, 0, p.ports.InUse())
	assert.Equal(t, 1, launcher.stopped, "orphaned process must be stopped")
}

func TestSpawnExhaustsPool(t *testing.T) {
	launcher := &fakeLauncher{}
	p := newTestProvisioner(launcher, nil)
	p.configure = func(ctx context.Context, port int, cfg protocol.RoomConfig) error { return nil }

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Spawn(context.Background(), protocol.SpawnRoomRequest{Name: "x", MaxPlayers: 2}))
	}
	err := p.Spawn(context.Background(), protocol.SpawnRoomRequest{Name: "x", MaxPlayers: 2})
	assert.ErrorIs(t, err, ErrNoPortsAvailable)
}

func TestDestroyReleasesPort(t *testing.T) {
	launcher := &fakeLauncher{}
	p := newTestProvisioner(launcher, nil)
	p.configure = func(ctx context.Context, port int, cfg protocol.RoomConfig) error { return nil }

	require.NoError(t, p.Spawn(context.Background(), protocol.SpawnRoomRequest{Name: "x", MaxPlayers: 2}))
	require.Equal(t, 1, p.NumGames())

	p.Destroy(9001)
	assert.Equal(t, 0, p.NumGames())
	assert.Equal(t, 0, p.ports.InUse())

	// Destroying an unknown port is a no-op.
	p.Destroy(9001)
	assert.Equal(t, 0, p.ports.InUse())
}

func TestParseProperties(t *testing.T) {
	props := ParseProperties("region=eu, mode=ffa,broken,=novalue, spaced = ok ")
	assert.Equal(t, []protocol.Property{
		{Name: "region", Value: "eu"},
		{Name: "mode", Value: "ffa"},
		{Name: "spaced", Value: "ok"},
	}, props)

	assert.Nil(t, ParseProperties(""))
}
