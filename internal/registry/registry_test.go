package registry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) Send(op protocol.Opcode, v interface{}) error { return nil }

func TestAddIsCreateOrRename(t *testing.T) {
	r := New()
	id := uuid.New()

	r.Add(id, "alice", nopConn{})
	assert.Equal(t, 1, r.Count())

	// Re-announcing under the same connection renames instead of duplicating.
	r.Add(id, "alicia", nopConn{})
	assert.Equal(t, 1, r.Count())

	p, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alicia", p.Name)
}

func TestFindByNameUsesJoinOrder(t *testing.T) {
	r := New()
	first, second := uuid.New(), uuid.New()
	r.Add(first, "dup", nopConn{})
	r.Add(second, "dup", nopConn{})

	p, ok := r.FindByName("dup")
	require.True(t, ok)
	assert.Equal(t, first, p.ID)

	_, ok = r.FindByName("nobody")
	assert.False(t, ok)
}

func TestRemoveKeepsOrder(t *testing.T) {
	r := New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	r.Add(a, "a", nopConn{})
	r.Add(b, "b", nopConn{})
	r.Add(c, "c", nopConn{})

	r.Remove(b)
	r.Remove(b) // double remove is a no-op

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "c", all[1].Name)
}
