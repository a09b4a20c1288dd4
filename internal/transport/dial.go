package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	dialInitialBackoff = 250 * time.Millisecond
	dialMaxBackoff     = 4 * time.Second
)

// Dial opens a single websocket connection to the server at host:port.
func Dial(ctx context.Context, ip string, port int, logger *logrus.Logger) (*Peer, error) {
	url := fmt.Sprintf("ws://%s:%d/ws", ip, port)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewPeer(conn, logger), nil
}

// DialWithRetry keeps dialing with exponential backoff until the context
// expires. Freshly spawned game server processes take a moment to start
// listening, so their provisioner must tolerate connection delay.
func DialWithRetry(ctx context.Context, ip string, port int, logger *logrus.Logger) (*Peer, error) {
	backoff := dialInitialBackoff
	for {
		peer, err := Dial(ctx, ip, port, logger)
		if err == nil {
			return peer, nil
		}

		logger.WithFields(logrus.Fields{"ip": ip, "port": port}).
			Debugf("dial failed, retrying in %v: %v", backoff, err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up dialing %s:%d: %w", ip, port, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < dialMaxBackoff {
			backoff *= 2
		}
	}
}

// Connect dials a server and starts driving the peer against the given mux in
// the background. Used by servers that hold a long-lived upward connection
// (zone to master, game to master).
func Connect(ctx context.Context, ip string, port int, mux *Mux, logger *logrus.Logger) (*Peer, error) {
	peer, err := Dial(ctx, ip, port, logger)
	if err != nil {
		return nil, err
	}
	go peer.Run(ctx, mux.Dispatch)
	return peer, nil
}
