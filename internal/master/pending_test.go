package master

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultCollector records every delivered create result.
type resultCollector struct {
	mu      sync.Mutex
	results []protocol.CreateRoomResult
}

func (c *resultCollector) resolve(res protocol.CreateRoomResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *resultCollector) all() []protocol.CreateRoomResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.CreateRoomResult{}, c.results...)
}

func newTestPending(timeout time.Duration) *PendingCreates {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPendingCreates(timeout, logger)
}

func TestPendingResolvesExactlyOnce(t *testing.T) {
	pc := newTestPending(0)
	playerID := uuid.New()
	var c resultCollector

	pc.Add(playerID, c.resolve)
	pc.MarkZoneAccepted(playerID)
	pc.ResolveReady(playerID, "10.0.0.5", 9002)

	// Late signals for an already resolved entry are dropped.
	pc.ResolveReady(playerID, "10.0.0.5", 9002)
	pc.ResolveFailed(playerID, protocol.CreateRoomErrSpawnFailed)

	results := c.all()
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "10.0.0.5", results[0].IP)
	assert.Equal(t, 9002, results[0].Port)
	assert.Equal(t, 0, pc.Len())
}

func TestPendingFailureDelivered(t *testing.T) {
	pc := newTestPending(0)
	playerID := uuid.New()
	var c resultCollector

	pc.Add(playerID, c.resolve)
	pc.ResolveFailed(playerID, protocol.CreateRoomErrSpawnFailed)

	results := c.all()
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, protocol.CreateRoomErrSpawnFailed, results[0].Error)
}

func TestPendingTimesOut(t *testing.T) {
	pc := newTestPending(20 * time.Millisecond)
	playerID := uuid.New()
	var c resultCollector

	pc.Add(playerID, c.resolve)

	require.Eventually(t, func() bool {
		return len(c.all()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, c.all()[0].Success)
	assert.Equal(t, 0, pc.Len())

	// A late ready after the timeout must not deliver a second result.
	pc.ResolveReady(playerID, "10.0.0.5", 9002)
	assert.Len(t, c.all(), 1)
}

func TestPendingCancelSuppressesDelivery(t *testing.T) {
	pc := newTestPending(0)
	playerID := uuid.New()
	var c resultCollector

	pc.Add(playerID, c.resolve)
	pc.Cancel(playerID)
	assert.Equal(t, 1, pc.Len(), "cancelled entry stays for late cleanup")

	pc.ResolveReady(playerID, "10.0.0.5", 9002)
	assert.Empty(t, c.all(), "cancelled request must not resolve")
	assert.Equal(t, 0, pc.Len(), "late ready cleans the entry up")
}

func TestPendingReplacementFailsOldEntry(t *testing.T) {
	pc := newTestPending(0)
	playerID := uuid.New()
	var old, fresh resultCollector

	pc.Add(playerID, old.resolve)
	pc.Add(playerID, fresh.resolve)

	results := old.all()
	require.Len(t, results, 1, "replaced entry gets an answer")
	assert.False(t, results[0].Success)

	pc.ResolveReady(playerID, "10.0.0.5", 9002)
	require.Len(t, fresh.all(), 1)
	assert.True(t, fresh.all()[0].Success)
}
