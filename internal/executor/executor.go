// Package executor runs batches of commands against a session and turns what
// each command printed into a judged report.
package executor

import (
	"context"
	"errors"

	"github.com/hochfrequenz/doccheck/internal/domain"
)

// ErrPeerUnresponsive is returned when a remote peer does not answer within
// the response timeout
var ErrPeerUnresponsive = errors.New("peer did not respond")

// Executor runs commands in order on a fresh session and returns exactly one
// report per command, in the order given
type Executor interface {
	ExecuteCommands(ctx context.Context, commands []domain.Command) ([]domain.CommandReport, error)
}

// closedReport is recorded for commands that never ran because the session
// ended before their turn
func closedReport(cmd domain.Command) domain.CommandReport {
	return domain.CommandReport{
		Command: cmd,
		Outcome: domain.OutcomeUnknown,
		Insight: "session ended before the command ran",
	}
}
