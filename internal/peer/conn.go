package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/marker"
	"github.com/hochfrequenz/doccheck/internal/peerprotocol"
	"github.com/hochfrequenz/doccheck/internal/session"
)

var errShellExited = errors.New("shell exited")

// connSession is the per-connection state: the shell and the marker of the
// command currently running in it
type connSession struct {
	conn    *websocket.Conn
	sess    session.Channel
	markers *marker.Protocol
	collect collector.Options
	current string
	logger  *slog.Logger
}

// handle serves one request. A returned error ends the connection.
func (c *connSession) handle(ctx context.Context, message []byte) error {
	kind, text, err := peerprotocol.ParseRequest(message)
	if err != nil {
		c.logger.Warn("malformed request", "error", err)
		return c.send("")
	}

	switch kind {
	case peerprotocol.KindCommand:
		cmd := domain.Command(text)
		m := c.markers.Next()
		c.current = m.String()
		c.logger.Info("running command", "command", cmd)
		if err := c.sess.Submit(ctx, marker.EchoLine(cmd)); err != nil {
			return c.ended(err)
		}
		if err := c.sess.Submit(ctx, m.Wrap(cmd)); err != nil {
			return c.ended(err)
		}
	case peerprotocol.KindInput:
		c.logger.Debug("delivering input")
		if err := c.sess.DeliverInput(ctx, text); err != nil {
			return c.ended(err)
		}
	}
	return c.stream(ctx)
}

// stream sends collection windows until one is empty. A window that contains
// the marker is followed by the empty terminator right away.
func (c *connSession) stream(ctx context.Context) error {
	for {
		res, err := collector.Collect(ctx, c.sess, c.current, c.collect)
		if err != nil {
			return fmt.Errorf("collect output: %w", err)
		}
		if res.Output != "" {
			if err := c.send(res.Output); err != nil {
				return err
			}
		}
		if res.Closed {
			if err := c.send(""); err != nil {
				return err
			}
			return errShellExited
		}
		if res.Output == "" || res.MarkerSeen {
			return c.send("")
		}
	}
}

func (c *connSession) ended(err error) error {
	if errors.Is(err, session.ErrClosed) {
		if sendErr := c.send(""); sendErr != nil {
			return sendErr
		}
		return errShellExited
	}
	return err
}

func (c *connSession) send(text string) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
