// Package collector gathers command output from a session until the command's
// completion marker shows up, the stream goes quiet, or the stream ends.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hochfrequenz/doccheck/internal/session"
)

// Defaults for Options fields left at zero
const (
	DefaultReadTimeout = 2 * time.Second
	DefaultPace        = 500 * time.Millisecond
	DefaultMaxReads    = 600
)

// Poller is the read side of a session
type Poller interface {
	Poll(ctx context.Context, timeout time.Duration) (string, error)
}

// Options bounds a collection
type Options struct {
	ReadTimeout time.Duration // wait per read
	Pace        time.Duration // pause between reads so output can pile up; negative disables
	MaxReads    int           // hard cap on reads per collection
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.Pace < 0 {
		o.Pace = 0
	} else if o.Pace == 0 {
		o.Pace = DefaultPace
	}
	if o.MaxReads <= 0 {
		o.MaxReads = DefaultMaxReads
	}
	return o
}

// Result is what one collection gathered
type Result struct {
	Output     string
	MarkerSeen bool // the completion marker arrived
	Closed     bool // the stream ended
	Reads      int
}

// Collect reads from p until marker is seen, a read times out or returns
// nothing, the stream closes, or MaxReads reads were made. An empty marker
// never matches. Timeouts and end-of-stream are not errors; the caller gets
// whatever was read.
func Collect(ctx context.Context, p Poller, marker string, opts Options) (Result, error) {
	opts = opts.withDefaults()

	var (
		res Result
		out strings.Builder
	)
	for res.Reads < opts.MaxReads {
		if res.Reads > 0 && opts.Pace > 0 {
			if err := sleep(ctx, opts.Pace); err != nil {
				res.Output = out.String()
				return res, err
			}
		}

		chunk, err := p.Poll(ctx, opts.ReadTimeout)
		res.Reads++
		switch {
		case errors.Is(err, session.ErrPollTimeout):
			res.Output = out.String()
			return res, nil
		case errors.Is(err, session.ErrClosed):
			res.Closed = true
			res.Output = out.String()
			return res, nil
		case err != nil:
			res.Output = out.String()
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, fmt.Errorf("read output: %w", err)
		}
		if chunk == "" {
			break
		}

		// The marker may straddle two chunks.
		window := tail(out.String(), len(marker)-1) + chunk
		out.WriteString(chunk)
		if marker != "" && strings.Contains(window, marker) {
			res.MarkerSeen = true
			break
		}
	}
	res.Output = out.String()
	return res, nil
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
