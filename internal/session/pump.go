package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// pump moves data from a blocking reader goroutine onto a channel so that
// Poll can wait with a timeout instead of blocking on the reader
type pump struct {
	chunks chan string
	stop   chan struct{}

	mu  sync.Mutex
	err error

	stopOnce sync.Once
}

func newPump() *pump {
	return &pump{
		chunks: make(chan string, 64),
		stop:   make(chan struct{}),
	}
}

// deliver hands a chunk to the poller. Returns false once the pump is stopped.
func (p *pump) deliver(chunk string) bool {
	select {
	case p.chunks <- chunk:
		return true
	case <-p.stop:
		return false
	}
}

// finish records why the reader ended and closes the chunk channel.
// Only the reader goroutine calls it.
func (p *pump) finish(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.chunks)
}

// halt unblocks a reader stuck in deliver
func (p *pump) halt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *pump) closedErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, p.err)
}

// poll waits for the next chunk. When coalesce is set, chunks that are
// already queued behind the first one are joined into the result.
func (p *pump) poll(ctx context.Context, timeout time.Duration, coalesce bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var first string
	select {
	case chunk, ok := <-p.chunks:
		if !ok {
			return "", p.closedErr()
		}
		first = chunk
	case <-timer.C:
		return "", ErrPollTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if !coalesce {
		return first, nil
	}

	var b strings.Builder
	b.WriteString(first)
	for {
		select {
		case chunk, ok := <-p.chunks:
			if !ok {
				// Report the data now; the next poll sees the close.
				return b.String(), nil
			}
			b.WriteString(chunk)
		default:
			return b.String(), nil
		}
	}
}
