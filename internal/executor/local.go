package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/marker"
	"github.com/hochfrequenz/doccheck/internal/oracle"
	"github.com/hochfrequenz/doccheck/internal/session"
)

// LocalOptions configures the local executor
type LocalOptions struct {
	Shell         string
	Dir           string
	Env           []string
	BannerTimeout time.Duration
	Collector     collector.Options
	Markers       *marker.Protocol
	Logger        *slog.Logger
	// Start replaces spawning a shell, mainly for tests
	Start func(ctx context.Context) (session.Channel, error)
}

// Local runs each batch in a fresh shell on a pseudo-terminal
type Local struct {
	judge   oracle.Judge
	gateway *oracle.Gateway
	opts    LocalOptions
	logger  *slog.Logger
}

var _ Executor = (*Local)(nil)

// NewLocal creates a local executor
func NewLocal(judge oracle.Judge, gateway *oracle.Gateway, opts LocalOptions) *Local {
	if opts.Markers == nil {
		opts.Markers = marker.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Local{
		judge:   judge,
		gateway: gateway,
		opts:    opts,
		logger:  logger.With("component", "executor", "mode", domain.ModeLocal),
	}
	if l.opts.Start == nil {
		l.opts.Start = func(ctx context.Context) (session.Channel, error) {
			return session.StartLocal(ctx, session.LocalOptions{
				Shell:         opts.Shell,
				Dir:           opts.Dir,
				Env:           opts.Env,
				BannerTimeout: opts.BannerTimeout,
				Logger:        logger,
			})
		}
	}
	return l
}

// ExecuteCommands runs commands in one shell, which is closed when the batch
// ends. If the shell exits early, the command it exited on is judged on what
// it printed and later commands are reported unknown without being judged.
func (l *Local) ExecuteCommands(ctx context.Context, commands []domain.Command) ([]domain.CommandReport, error) {
	sess, err := l.opts.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start shell: %w", err)
	}
	defer sess.Close()

	reports := make([]domain.CommandReport, 0, len(commands))
	closed := false
	for i, cmd := range commands {
		if closed {
			reports = append(reports, closedReport(cmd))
			continue
		}
		l.logger.Info("running command", "index", i, "command", cmd)
		report, ended, err := l.runOne(ctx, sess, cmd)
		if err != nil {
			return reports, err
		}
		if ended {
			l.logger.Warn("shell exited during command", "command", cmd, "remaining", len(commands)-i-1)
		}
		reports = append(reports, report)
		closed = ended
	}
	return reports, nil
}

// runOne submits one command and follows it until it completes, goes quiet
// without asking for input, or the shell exits
func (l *Local) runOne(ctx context.Context, sess session.Channel, cmd domain.Command) (domain.CommandReport, bool, error) {
	m := l.opts.Markers.Next()
	for _, line := range []string{marker.EchoLine(cmd), m.Wrap(cmd)} {
		if err := sess.Submit(ctx, line); err != nil {
			if errors.Is(err, session.ErrClosed) {
				return closedReport(cmd), true, nil
			}
			return domain.CommandReport{}, false, fmt.Errorf("submit %q: %w", cmd, err)
		}
	}

	var record strings.Builder
	closed := false
	for {
		res, err := collector.Collect(ctx, sess, m.String(), l.opts.Collector)
		record.WriteString(res.Output)
		if err != nil {
			return domain.CommandReport{}, false, fmt.Errorf("collect output of %q: %w", cmd, err)
		}
		if res.Closed {
			closed = true
			break
		}
		if res.Output == "" || res.MarkerSeen {
			break
		}

		input, ok, err := l.gateway.Decide(ctx, res.Output)
		if err != nil {
			return domain.CommandReport{}, false, fmt.Errorf("decide input for %q: %w", cmd, err)
		}
		if !ok {
			break
		}
		record.WriteString(input + "\n")
		if err := sess.DeliverInput(ctx, input); err != nil {
			if errors.Is(err, session.ErrClosed) {
				closed = true
				break
			}
			return domain.CommandReport{}, false, fmt.Errorf("deliver input to %q: %w", cmd, err)
		}
	}

	report, err := judge(ctx, l.judge, cmd, record.String())
	return report, closed, err
}

// judge asks the judge about output and binds the verdict to cmd
func judge(ctx context.Context, j oracle.Judge, cmd domain.Command, output string) (domain.CommandReport, error) {
	verdict, err := j.Judge(ctx, output)
	if err != nil {
		return domain.CommandReport{}, fmt.Errorf("judge %q: %w", cmd, err)
	}
	return domain.CommandReport{
		Command: cmd,
		Outcome: domain.ParseOutcome(string(verdict.Outcome)),
		Insight: verdict.Insight,
		Output:  output,
	}, nil
}
