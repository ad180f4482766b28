// Package repair asks for document fixes after failed commands and runs them.
package repair

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/oracle"
)

// Loop turns every command that did not succeed into corrective commands and
// runs them. Fixes edit the document on this machine, so they always run on
// a local executor, whichever executor produced the failure.
type Loop struct {
	remediator oracle.Remediator
	local      *executor.Local
	logger     *slog.Logger
}

// New creates a repair loop
func New(remediator oracle.Remediator, local *executor.Local, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		remediator: remediator,
		local:      local,
		logger:     logger.With("component", "repair"),
	}
}

// Repair returns goal with the reports of the corrective commands appended to
// its modification reports. Unknown outcomes count as failures. A goal with
// no failures comes back unchanged.
func (l *Loop) Repair(ctx context.Context, docPath string, goal domain.GoalReport) (domain.GoalReport, error) {
	next := goal
	for _, failed := range goal.Failed() {
		fixes, err := l.remediator.ProposeFixCommands(ctx, docPath, failed)
		if err != nil {
			return goal, fmt.Errorf("remediate %q: %w", failed.Command, err)
		}
		if len(fixes) == 0 {
			l.logger.Info("no fix proposed", "goal", goal.Name, "command", failed.Command)
			continue
		}
		l.logger.Info("applying fix", "goal", goal.Name, "command", failed.Command, "fixes", len(fixes))

		reports, err := l.local.ExecuteCommands(ctx, fixes)
		if err != nil {
			return goal, fmt.Errorf("run fixes for %q: %w", failed.Command, err)
		}
		next = next.WithModificationReports(reports...)
	}
	return next, nil
}
