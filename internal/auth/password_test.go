package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "each hash should carry a fresh salt")

	for _, h := range []string{h1, h2} {
		ok, err := VerifyPassword("same password", h)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	_, err := VerifyPassword("whatever", "not base64!!!")
	assert.Error(t, err)

	_, err = VerifyPassword("whatever", "")
	assert.Error(t, err)
}

func TestSessionsMintAndVerify(t *testing.T) {
	sessions, err := NewSessions(0)
	require.NoError(t, err)

	token, err := sessions.Mint("alice")
	require.NoError(t, err)

	username, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestSessionsRejectForeignToken(t *testing.T) {
	a, err := NewSessions(0)
	require.NoError(t, err)
	b, err := NewSessions(0)
	require.NoError(t, err)

	token, err := a.Mint("alice")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err, "tokens signed by another key pair must not verify")
}
