package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/oracle"
	"github.com/hochfrequenz/doccheck/internal/session"
)

// Remote defaults
const (
	DefaultResponseTimeout  = 5 * time.Minute
	DefaultMaxDrainDepth    = 32
	DefaultMaxDrainDuration = 10 * time.Minute
)

// RemoteOptions configures the remote executor
type RemoteOptions struct {
	URL              string
	Header           http.Header
	DialTimeout      time.Duration
	ResponseTimeout  time.Duration // wait for each peer message
	MaxDrainDepth    int           // follow-up reads per command
	MaxDrainDuration time.Duration // wall clock spent draining per command
	Logger           *slog.Logger
	// Dial replaces connecting to URL, mainly for tests
	Dial func(ctx context.Context) (session.Channel, error)
}

// Remote runs each batch on a session hosted by a remote execution peer
type Remote struct {
	judge   oracle.Judge
	gateway *oracle.Gateway
	opts    RemoteOptions
	logger  *slog.Logger
}

var _ Executor = (*Remote)(nil)

// NewRemote creates a remote executor
func NewRemote(judge oracle.Judge, gateway *oracle.Gateway, opts RemoteOptions) *Remote {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultResponseTimeout
	}
	if opts.MaxDrainDepth <= 0 {
		opts.MaxDrainDepth = DefaultMaxDrainDepth
	}
	if opts.MaxDrainDuration <= 0 {
		opts.MaxDrainDuration = DefaultMaxDrainDuration
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Remote{
		judge:   judge,
		gateway: gateway,
		opts:    opts,
		logger:  logger.With("component", "executor", "mode", domain.ModeRemote),
	}
	if r.opts.Dial == nil {
		r.opts.Dial = func(ctx context.Context) (session.Channel, error) {
			return session.DialRemote(ctx, session.RemoteOptions{
				URL:         opts.URL,
				DialTimeout: opts.DialTimeout,
				Header:      opts.Header,
				Logger:      logger,
			})
		}
	}
	return r
}

// ExecuteCommands runs commands over one peer connection, which is closed
// when the batch ends. Any transport failure fails the whole batch.
func (r *Remote) ExecuteCommands(ctx context.Context, commands []domain.Command) ([]domain.CommandReport, error) {
	sess, err := r.opts.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to peer: %w", err)
	}
	defer sess.Close()

	reports := make([]domain.CommandReport, 0, len(commands))
	for i, cmd := range commands {
		r.logger.Info("running command", "index", i, "command", cmd)
		x := &exchange{sess: sess}
		if err := x.submit(ctx, cmd.String()); err != nil {
			return reports, fmt.Errorf("send %q: %w", cmd, err)
		}
		first, err := r.read(ctx, x)
		if err != nil {
			return reports, fmt.Errorf("run %q: %w", cmd, err)
		}
		output, err := r.drain(ctx, x, first, 0, time.Now().Add(r.opts.MaxDrainDuration))
		if err != nil {
			return reports, fmt.Errorf("run %q: %w", cmd, err)
		}
		rest, err := r.settle(ctx, x)
		if err != nil {
			return reports, fmt.Errorf("run %q: %w", cmd, err)
		}
		report, err := judge(ctx, r.judge, cmd, output+rest)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// exchange tracks the requests sent for one command. The peer ends its
// answer to every request with one empty response, so the command is over
// once ended catches up with requests.
type exchange struct {
	sess     session.Channel
	requests int
	ended    int
}

func (x *exchange) submit(ctx context.Context, line string) error {
	if err := x.sess.Submit(ctx, line); err != nil {
		return err
	}
	x.requests++
	return nil
}

func (x *exchange) deliver(ctx context.Context, input string) error {
	if err := x.sess.DeliverInput(ctx, input); err != nil {
		return err
	}
	x.requests++
	return nil
}

// drain follows one response until the peer sends an empty one. A non-empty
// response may end in a prompt, so the gateway sees it; if input is sent, the
// peer's answer to it is read. One more response is always read and drained
// in turn.
func (r *Remote) drain(ctx context.Context, x *exchange, resp string, depth int, deadline time.Time) (string, error) {
	if resp == "" {
		return "", nil
	}
	if depth >= r.opts.MaxDrainDepth || time.Now().After(deadline) {
		r.logger.Warn("peer output still flowing, giving up on draining",
			"depth", depth, "max_depth", r.opts.MaxDrainDepth, "max_duration", r.opts.MaxDrainDuration)
		return resp, nil
	}

	var out strings.Builder
	out.WriteString(resp)

	input, ok, err := r.gateway.Decide(ctx, resp)
	if err != nil {
		return "", err
	}
	if ok {
		if err := x.deliver(ctx, input); err != nil {
			return "", fmt.Errorf("send input: %w", err)
		}
		answer, err := r.read(ctx, x)
		if err != nil {
			return "", err
		}
		out.WriteString(answer)
	}

	trailing, err := r.read(ctx, x)
	if err != nil {
		return "", err
	}
	rest, err := r.drain(ctx, x, trailing, depth+1, deadline)
	if err != nil {
		return "", err
	}
	out.WriteString(rest)
	return out.String(), nil
}

// settle reads whatever the peer still owes for the current command, so the
// next command starts on a clean stream. Draining stops at the first empty
// response, which belongs to the command itself when input was sent while
// it was still printing, or is never reached when a drain bound hit. The
// leftovers belong to this command's output. The peer gets ResponseTimeout
// in total to catch up.
func (r *Remote) settle(ctx context.Context, x *exchange) (string, error) {
	if x.ended >= x.requests {
		return "", nil
	}
	r.logger.Debug("reading remaining responses", "requests", x.requests, "ended", x.ended)
	deadline := time.Now().Add(r.opts.ResponseTimeout)
	var out strings.Builder
	for x.ended < x.requests {
		wait := time.Until(deadline)
		if wait <= 0 {
			return "", fmt.Errorf("%w: %d of %d responses unfinished after %s",
				ErrPeerUnresponsive, x.requests-x.ended, x.requests, r.opts.ResponseTimeout)
		}
		msg, err := r.poll(ctx, x, wait)
		if err != nil {
			return "", err
		}
		out.WriteString(msg)
	}
	return out.String(), nil
}

func (r *Remote) read(ctx context.Context, x *exchange) (string, error) {
	return r.poll(ctx, x, r.opts.ResponseTimeout)
}

func (r *Remote) poll(ctx context.Context, x *exchange, timeout time.Duration) (string, error) {
	msg, err := x.sess.Poll(ctx, timeout)
	switch {
	case errors.Is(err, session.ErrPollTimeout):
		return "", fmt.Errorf("%w within %s", ErrPeerUnresponsive, timeout)
	case errors.Is(err, session.ErrClosed):
		return "", fmt.Errorf("peer connection lost: %w", err)
	case err != nil:
		return "", err
	}
	if msg == "" {
		x.ended++
	}
	return msg, nil
}
