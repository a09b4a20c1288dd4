// Package transport implements the websocket substrate shared by every
// server in the kit: framed envelopes with numeric opcodes, per-connection
// read/write pumps, request/response correlation with single-shot resolution,
// and outbound dialing with retry.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
)

// ErrPeerClosed is returned by Send and Request once the connection is gone.
var ErrPeerClosed = errors.New("peer connection closed")

const outboundQueueSize = 32

// Peer wraps a single websocket connection. Each peer gets a unique ID that
// doubles as its connection identifier in the registries and the pending
// create table.
type Peer struct {
	ID uuid.UUID

	conn   *websocket.Conn
	logger *logrus.Logger

	out  chan []byte
	done chan struct{}

	mu      sync.Mutex
	pending map[uint64]chan protocol.Envelope
	nextSeq uint64

	closeOnce sync.Once
}

// NewPeer wraps an accepted or dialed websocket connection.
func NewPeer(conn *websocket.Conn, logger *logrus.Logger) *Peer {
	return &Peer{
		ID:      uuid.New(),
		conn:    conn,
		logger:  logger,
		out:     make(chan []byte, outboundQueueSize),
		done:    make(chan struct{}),
		pending: make(map[uint64]chan protocol.Envelope),
	}
}

// Send pushes a fire-and-forget message (seq 0) to the peer.
func (p *Peer) Send(op protocol.Opcode, v interface{}) error {
	return p.enqueue(protocol.Envelope{Op: op}, v)
}

// Reply sends a response correlated to a previously received request.
func (p *Peer) Reply(seq uint64, op protocol.Opcode, v interface{}) error {
	return p.enqueue(protocol.Envelope{Op: op, Seq: seq}, v)
}

// Request sends a message and waits for the correlated response. The waiting
// entry is resolved at most once; a closed connection or expired context
// unblocks the caller with an error.
func (p *Peer) Request(ctx context.Context, op protocol.Opcode, v interface{}) (protocol.Envelope, error) {
	seq := atomic.AddUint64(&p.nextSeq, 1)
	ch := make(chan protocol.Envelope, 1)

	p.mu.Lock()
	p.pending[seq] = ch
	p.mu.Unlock()

	if err := p.enqueue(protocol.Envelope{Op: op, Seq: seq}, v); err != nil {
		p.dropPending(seq)
		return protocol.Envelope{}, err
	}

	select {
	case env := <-ch:
		return env, nil
	case <-ctx.Done():
		p.dropPending(seq)
		return protocol.Envelope{}, ctx.Err()
	case <-p.done:
		p.dropPending(seq)
		return protocol.Envelope{}, ErrPeerClosed
	}
}

func (p *Peer) dropPending(seq uint64) {
	p.mu.Lock()
	delete(p.pending, seq)
	p.mu.Unlock()
}

// resolve routes an inbound envelope to a waiting Request. The entry is
// removed before the channel is signalled, so each request resolves exactly
// once. Returns false when no request is waiting on the envelope's seq.
func (p *Peer) resolve(env protocol.Envelope) bool {
	if env.Seq == 0 {
		return false
	}
	p.mu.Lock()
	ch, ok := p.pending[env.Seq]
	if ok {
		delete(p.pending, env.Seq)
	}
	p.mu.Unlock()
	if ok {
		ch <- env
	}
	return ok
}

func (p *Peer) enqueue(env protocol.Envelope, v interface{}) error {
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for op %d: %w", env.Op, err)
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}

	select {
	case p.out <- frame:
		return nil
	default:
		p.logger.WithFields(logrus.Fields{"peer": p.ID, "op": env.Op}).
			Warn("outbound queue full, dropping message")
		return nil
	}
}

// Dispatch is invoked by the read pump for every inbound envelope that is not
// a response to a local Request.
type Dispatch func(ctx context.Context, p *Peer, env protocol.Envelope)

// Run drives the peer until the connection closes or the context is
// cancelled. It blocks; callers that need to continue should run it in a
// goroutine.
func (p *Peer) Run(ctx context.Context, dispatch Dispatch) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.writePump(ctx)
	p.readPump(ctx, dispatch)

	p.closeOnce.Do(func() { close(p.done) })
	p.conn.Close(websocket.StatusNormalClosure, "")
}

func (p *Peer) readPump(ctx context.Context, dispatch Dispatch) {
	for {
		typ, msg, err := p.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				p.logger.WithField("peer", p.ID).Debugf("read error: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			p.logger.WithField("peer", p.ID).Warnf("malformed envelope: %v", err)
			continue
		}

		if p.resolve(env) {
			continue
		}
		dispatch(ctx, p, env)
	}
}

func (p *Peer) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.out:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := p.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				p.logger.WithField("peer", p.ID).Debugf("write error: %v", err)
				return
			}
		}
	}
}

// Close tears the connection down with the given status code.
func (p *Peer) Close(code websocket.StatusCode, reason string) {
	p.closeOnce.Do(func() { close(p.done) })
	p.conn.Close(code, reason)
}

// Done is closed when the peer's connection has been torn down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}
