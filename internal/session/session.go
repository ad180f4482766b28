// Package session provides the live channels that command batches run on:
// an interactive shell on a local pseudo-terminal, or a websocket connection
// to a remote execution peer. Both expose the same capability set so the
// executors share one control algorithm.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPollTimeout is returned by Poll when no data arrived within the wait
	ErrPollTimeout = errors.New("session: no output within poll timeout")
	// ErrClosed is returned once the channel reached end-of-stream
	ErrClosed = errors.New("session: closed")
)

// Channel is a live, stateful channel bound to one batch of commands.
// A Channel is not safe for concurrent use; it belongs to one executor for
// the lifetime of one batch.
type Channel interface {
	// Submit sends a command line into the session
	Submit(ctx context.Context, text string) error
	// Poll waits at most timeout for the next piece of output
	Poll(ctx context.Context, timeout time.Duration) (string, error)
	// DeliverInput answers a prompt the running command is blocked on
	DeliverInput(ctx context.Context, text string) error
	// Close tears the session down. It is safe to call more than once.
	Close() error
}
