// Package peer serves shell sessions to remote executors over WebSocket.
//
// Each connection owns one shell. A request runs a command (or answers a
// prompt) in that shell and the peer streams the output back as text frames,
// one per collection window, ending with an empty frame.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/marker"
	"github.com/hochfrequenz/doccheck/internal/session"
)

// writeWait is time allowed to write a single message
const writeWait = 10 * time.Second

// Options configures the peer
type Options struct {
	Listen        string
	Shell         string
	Dir           string
	BannerTimeout time.Duration
	Collector     collector.Options
	Markers       *marker.Protocol
	Logger        *slog.Logger
	// Start replaces spawning a shell per connection, mainly for tests
	Start func(ctx context.Context) (session.Channel, error)
}

// Server hosts one shell session per WebSocket connection
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	server *http.Server
	wg     sync.WaitGroup
	active atomic.Int64
	served atomic.Int64
}

// New creates a peer server
func New(opts Options) *Server {
	if opts.Markers == nil {
		opts.Markers = marker.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "peer"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
	if s.opts.Start == nil {
		s.opts.Start = func(ctx context.Context) (session.Channel, error) {
			return session.StartLocal(ctx, session.LocalOptions{
				Shell:         opts.Shell,
				Dir:           opts.Dir,
				BannerTimeout: opts.BannerTimeout,
				Logger:        logger,
			})
		}
	}
	return s
}

// Handler returns the HTTP handler serving /ws and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Health is the /healthz response body
type Health struct {
	Status   string `json:"status"`
	Sessions int64  `json:"sessions"`
	Served   int64  `json:"served"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(Health{
		Status:   "ok",
		Sessions: s.active.Load(),
		Served:   s.served.Load(),
	})
	if err != nil {
		s.logger.Debug("write health failed", "error", err)
	}
}

// ListenAndServe serves on opts.Listen until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every session
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("peer listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeAll()
	s.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// HandleWebSocket upgrades the request and serves the connection until it closes
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
	}()

	s.serveConn(r.Context(), conn)
}

func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := s.logger.With("remote", conn.RemoteAddr().String())

	sess, err := s.opts.Start(ctx)
	if err != nil {
		logger.Error("start shell failed", "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "start shell failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sess.Close()

	s.active.Add(1)
	s.served.Add(1)
	defer s.active.Add(-1)
	logger.Info("session opened")
	defer logger.Info("session closed")

	c := &connSession{
		conn:    conn,
		sess:    sess,
		markers: s.opts.Markers,
		collect: s.opts.Collector,
		logger:  logger,
	}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("read error", "error", err)
			}
			return
		}
		if err := c.handle(ctx, message); err != nil {
			if !errors.Is(err, errShellExited) {
				logger.Warn("request failed", "error", err)
			}
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(writeWait))
			return
		}
	}
}
