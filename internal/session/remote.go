package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/doccheck/internal/peerprotocol"
)

// writeWait is time allowed to write a single message
const writeWait = 10 * time.Second

// RemoteOptions configures a connection to a remote execution peer
type RemoteOptions struct {
	URL         string
	DialTimeout time.Duration
	Header      http.Header
	Logger      *slog.Logger
}

// Remote is a session hosted by a remote execution peer. The peer binds one
// shell to one connection, so a Remote must not outlive its batch.
type Remote struct {
	conn   *websocket.Conn
	pump   *pump
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialRemote connects to the peer at opts.URL
func DialRemote(ctx context.Context, opts RemoteOptions) (*Remote, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("peer url is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", opts.URL, err)
	}

	r := &Remote{
		conn:   conn,
		pump:   newPump(),
		logger: logger.With("component", "session", "peer", opts.URL),
	}
	go r.read()
	r.logger.Debug("connected to peer")
	return r, nil
}

func (r *Remote) read() {
	for {
		_, message, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			r.pump.finish(err)
			return
		}
		if !r.pump.deliver(string(message)) {
			r.pump.finish(nil)
			return
		}
	}
}

// Submit asks the peer to run a command
func (r *Remote) Submit(ctx context.Context, text string) error {
	return r.send(ctx, peerprotocol.CommandRequest{Command: text})
}

// DeliverInput sends input for a command the peer reports as waiting
func (r *Remote) DeliverInput(ctx context.Context, text string) error {
	return r.send(ctx, peerprotocol.InputRequest{Input: text})
}

func (r *Remote) send(ctx context.Context, msg interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := peerprotocol.Marshal(msg)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrClosed
		}
		return fmt.Errorf("write to peer: %w", err)
	}
	return nil
}

// Poll returns the next response message. Each message is returned on its
// own; an empty string is a real (empty) response, not a timeout.
func (r *Remote) Poll(ctx context.Context, timeout time.Duration) (string, error) {
	return r.pump.poll(ctx, timeout, false)
}

// Close says goodbye to the peer and drops the connection
func (r *Remote) Close() error {
	r.closeOnce.Do(func() {
		r.pump.halt()
		r.writeMu.Lock()
		_ = r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		r.writeMu.Unlock()
		r.closeErr = r.conn.Close()
		r.logger.Debug("disconnected from peer")
	})
	return r.closeErr
}
