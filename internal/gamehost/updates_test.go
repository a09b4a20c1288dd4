package gamehost

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestUpdateQueuePreservesOrder(t *testing.T) {
	q := newUpdateQueue()
	q.Push(1)
	q.Push(2)
	q.Push(1)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{1, 2, 1}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestHostEmptySignalFiresOnce(t *testing.T) {
	h := NewSpawned(Options{
		IP:         "127.0.0.1",
		Port:       9001,
		MasterIP:   "127.0.0.1",
		MasterPort: 8000,
	}, testLogger())

	h.onPlayerRemoved(2)
	select {
	case <-h.roomEmpty:
		t.Fatal("non-empty room must not signal shutdown")
	default:
	}
	assert.Equal(t, []int{2}, h.updates.Drain())

	h.onPlayerRemoved(0)
	h.onPlayerRemoved(0)
	select {
	case <-h.roomEmpty:
	default:
		t.Fatal("empty room should signal shutdown")
	}
	assert.Equal(t, []int{0, 0}, h.updates.Drain(), "every count change is still reported")
}

func TestStandaloneHostHonoursCloseWhenEmpty(t *testing.T) {
	h := NewStandalone(Options{
		IP:             "127.0.0.1",
		Port:           9001,
		MasterIP:       "127.0.0.1",
		MasterPort:     8000,
		CloseWhenEmpty: false,
	}, RoomSettings{Name: "persistent", MaxPlayers: 8}, testLogger())

	h.onPlayerRemoved(0)
	select {
	case <-h.roomEmpty:
		t.Fatal("persistent rooms must not shut down when empty")
	default:
	}
}
