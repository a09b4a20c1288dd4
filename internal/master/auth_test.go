package master

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn satisfies registry.Conn and records pushed messages.
type fakeConn struct {
	ops []protocol.Opcode
}

func (c *fakeConn) Send(op protocol.Opcode, v interface{}) error {
	c.ops = append(c.ops, op)
	return nil
}

type authFixture struct {
	addon    *AuthAddon
	players  *registry.Registry
	accounts *store.MemoryStore
}

func newAuthFixture(t *testing.T, policy AuthPolicy) *authFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sessions := &staticMinter{}
	accounts := store.NewMemoryStore()
	players := registry.New()
	return &authFixture{
		addon:    NewAuthAddon(accounts, sessions, players, policy, logger),
		players:  players,
		accounts: accounts,
	}
}

type staticMinter struct{}

func (m *staticMinter) Mint(username string) (string, error) {
	return "token-" + username, nil
}

func (f *authFixture) registerAccount(t *testing.T, username, password string) {
	t.Helper()
	res := f.addon.register(context.Background(), protocol.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: password,
	})
	require.True(t, res.Success)
}

func TestLoginSuccessAddsPlayer(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{AllowGuests: true})
	f.registerAccount(t, "alice", "hunter2")

	res := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{
		Username: "alice",
		Password: "hunter2",
	})
	require.True(t, res.Success)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "token-alice", res.Token)
	assert.Equal(t, 1, f.players.Count())
}

func TestLoginRejectsDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{AllowGuests: true})
	f.registerAccount(t, "alice", "hunter2")

	first := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{
		Username: "alice", Password: "hunter2",
	})
	require.True(t, first.Success)

	// Second connection, same account. The duplicate check fires even before
	// credentials are examined, so a bad password still reports the duplicate.
	second := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{
		Username: "alice", Password: "wrong",
	})
	assert.False(t, second.Success)
	assert.Equal(t, protocol.LoginErrUserAlreadyLoggedIn, second.Error)
	assert.Equal(t, 1, f.players.Count())
}

func TestLoginEnforcesCapacity(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{MaxPlayers: 1, AllowGuests: true})

	first := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{IsAnonymous: true})
	require.True(t, first.Success)

	second := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{IsAnonymous: true})
	assert.Equal(t, protocol.LoginErrServerFull, second.Error)
}

func TestGuestLoginRespectsPolicy(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{AllowGuests: false})
	res := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{IsAnonymous: true})
	assert.Equal(t, protocol.LoginErrAuthenticationRequired, res.Error)
	assert.Equal(t, 0, f.players.Count())
}

func TestGuestLoginAssignsDistinctNames(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{AllowGuests: true})

	a := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{IsAnonymous: true})
	b := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{IsAnonymous: true})
	require.True(t, a.Success)
	require.True(t, b.Success)
	assert.NotEqual(t, a.Username, b.Username)
	assert.Empty(t, a.Token, "guests carry no session token")
}

func TestLoginMapsStoreErrors(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{AllowGuests: true})
	f.registerAccount(t, "alice", "hunter2")

	res := f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{
		Username: "alice", Password: "wrong",
	})
	assert.Equal(t, protocol.LoginErrInvalidCredentials, res.Error)

	res = f.addon.login(context.Background(), uuid.New(), &fakeConn{}, protocol.LoginRequest{
		Username: "nobody", Password: "pw",
	})
	assert.Equal(t, protocol.LoginErrNonexistingUser, res.Error)
	assert.Equal(t, 0, f.players.Count())
}

func TestRegisterMapsStoreErrors(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{})
	f.registerAccount(t, "alice", "hunter2")

	res := f.addon.register(context.Background(), protocol.RegisterRequest{
		Email: "alice@example.com", Username: "alice2", Password: "pw",
	})
	assert.Equal(t, protocol.RegistrationErrAlreadyExistingEmailAddress, res.Error)
}
