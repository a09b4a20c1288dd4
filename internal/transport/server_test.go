package transport

import (
	"context"
	"testing"

	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestMuxRoutesByOpcode(t *testing.T) {
	mux := NewMux(testLogger())

	var gotOp protocol.Opcode
	mux.Handle(protocol.OpPing, func(ctx context.Context, p *Peer, env protocol.Envelope) {
		gotOp = env.Op
	})

	peer := NewPeer(nil, testLogger())
	mux.Dispatch(context.Background(), peer, protocol.Envelope{Op: protocol.OpPing, Seq: 7})
	assert.Equal(t, protocol.OpPing, gotOp)

	// Unknown opcodes are dropped without panicking.
	mux.Dispatch(context.Background(), peer, protocol.Envelope{Op: 999})
}

func TestPeerResolveIsSingleShot(t *testing.T) {
	peer := NewPeer(nil, testLogger())

	ch := make(chan protocol.Envelope, 1)
	peer.mu.Lock()
	peer.pending[5] = ch
	peer.mu.Unlock()

	assert.True(t, peer.resolve(protocol.Envelope{Op: protocol.OpPong, Seq: 5}))
	assert.False(t, peer.resolve(protocol.Envelope{Op: protocol.OpPong, Seq: 5}), "second resolve finds no waiter")
	assert.False(t, peer.resolve(protocol.Envelope{Op: protocol.OpPong, Seq: 0}), "seq 0 is never a response")

	env := <-ch
	assert.Equal(t, protocol.OpPong, env.Op)
}

func TestPeerSendAfterCloseFails(t *testing.T) {
	peer := NewPeer(nil, testLogger())
	close(peer.done)

	err := peer.Send(protocol.OpPing, protocol.PingRequest{})
	assert.ErrorIs(t, err, ErrPeerClosed)
}
