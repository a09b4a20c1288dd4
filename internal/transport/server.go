package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/lobbykit/lobbykit/internal/middleware"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Subprotocol spoken by every server and client in the kit.
const Subprotocol = "lobbykit"

// HandlerFunc processes one inbound envelope on a peer.
type HandlerFunc func(ctx context.Context, p *Peer, env protocol.Envelope)

// Mux routes inbound envelopes to the handler registered for their opcode.
type Mux struct {
	handlers map[protocol.Opcode]HandlerFunc
	logger   *logrus.Logger
}

func NewMux(logger *logrus.Logger) *Mux {
	return &Mux{handlers: make(map[protocol.Opcode]HandlerFunc), logger: logger}
}

// Handle registers the handler for an opcode. Later registrations win, which
// never happens with the fixed addon sets wired at startup.
func (m *Mux) Handle(op protocol.Opcode, h HandlerFunc) {
	m.handlers[op] = h
}

// Dispatch routes one envelope. Unknown opcodes are logged and dropped rather
// than treated as fatal.
func (m *Mux) Dispatch(ctx context.Context, p *Peer, env protocol.Envelope) {
	h, ok := m.handlers[env.Op]
	if !ok {
		m.logger.WithFields(logrus.Fields{"peer": p.ID, "op": env.Op}).Debug("no handler for opcode")
		return
	}
	h(ctx, p, env)
}

// Addon is one capability module on a server: it registers its message
// handlers once at startup and is told whenever a peer disconnects. Servers
// carry a fixed addon set constructed before listening begins.
type Addon interface {
	Register(mux *Mux)
	OnPeerDisconnected(p *Peer)
}

// Server accepts websocket peers and drives them against a mux built from a
// fixed set of addons.
type Server struct {
	logger *logrus.Logger
	mux    *Mux
	addons []Addon
}

func NewServer(logger *logrus.Logger, addons ...Addon) *Server {
	mux := NewMux(logger)
	for _, a := range addons {
		a.Register(mux)
	}
	return &Server{logger: logger, mux: mux, addons: addons}
}

// Mux exposes the server's mux so extra handlers (e.g. ping) can be attached
// outside the addon set.
func (s *Server) Mux() *Mux {
	return s.mux
}

// Handler returns the websocket upgrade endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.logger.Warnf("websocket accept error: %v", err)
			return
		}
		if conn.Subprotocol() != Subprotocol {
			conn.Close(BadSubprotocolError, "client must speak the lobbykit subprotocol")
			return
		}

		peer := NewPeer(conn, s.logger)
		s.logger.WithFields(logrus.Fields{
			"peer":   peer.ID,
			"remote": r.RemoteAddr,
		}).Info("peer connected")

		peer.Run(r.Context(), s.mux.Dispatch)

		for _, a := range s.addons {
			a.OnPeerDisconnected(peer)
		}
		s.logger.WithFields(logrus.Fields{
			"peer":     peer.ID,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start),
		}).Info("peer disconnected")
	})
}

// ListenAndServe blocks serving the websocket endpoint at /ws on addr.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(s.logger)(s.Handler()))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
