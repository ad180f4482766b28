package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/oracle"
)

// RunStore persists runs as they progress
type RunStore interface {
	SaveRun(run *domain.Run) error
}

// ValidatorOptions configures a Validator
type ValidatorOptions struct {
	Mode   domain.ExecutorMode
	Repair Repairer // nil disables repair
	Store  RunStore // nil disables persistence
	// OnTransition sees every stage change of every run
	OnTransition func(runID string, t Transition)
	Logger       *slog.Logger
}

// Validator validates documents and records each validation as a Run. It
// holds no per-run state, so one Validator may serve concurrent runs when its
// executor can.
type Validator struct {
	planner  oracle.Planner
	executor executor.Executor
	opts     ValidatorOptions
	logger   *slog.Logger
}

// NewValidator creates a validator
func NewValidator(planner oracle.Planner, exec executor.Executor, opts ValidatorOptions) *Validator {
	if opts.Mode == "" {
		opts.Mode = domain.ModeLocal
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{planner: planner, executor: exec, opts: opts, logger: logger}
}

// Validate runs the pipeline on the document at path. The returned Run is
// complete even when err is set; its report holds the goals finished before
// the failure.
func (v *Validator) Validate(ctx context.Context, path string) (*domain.Run, error) {
	run := &domain.Run{
		ID:        uuid.NewString(),
		Document:  path,
		Mode:      v.opts.Mode,
		Status:    domain.RunRunning,
		StartedAt: time.Now(),
		Report:    domain.DocumentReport{Document: path},
	}
	logger := v.logger.With("run", run.ID, "document", path)
	v.save(logger, run)

	doc, err := document.Load(path)
	if err != nil {
		v.finish(logger, run, err)
		return run, err
	}

	p := New(v.planner, v.executor, Options{
		Repair: v.opts.Repair,
		Logger: logger,
		OnTransition: func(t Transition) {
			if t.To == StageMutationsExecuted {
				run.Report = domain.DocumentReport{Document: path, GoalReports: t.State.GoalReports}
				v.save(logger, run)
			}
			if v.opts.OnTransition != nil {
				v.opts.OnTransition(run.ID, t)
			}
		},
	})

	report, err := p.Run(ctx, doc)
	run.Report = report
	v.finish(logger, run, err)
	return run, err
}

func (v *Validator) finish(logger *slog.Logger, run *domain.Run, err error) {
	now := time.Now()
	run.FinishedAt = &now
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
		logger.Error("validation failed", "error", err, "elapsed", run.Duration())
	} else {
		run.Status = domain.RunCompleted
		counts := run.Counts()
		logger.Info("validation finished",
			"goals", len(run.Report.GoalReports),
			"succeeded", counts[domain.OutcomeSuccess],
			"failed", counts[domain.OutcomeFailure],
			"unknown", counts[domain.OutcomeUnknown],
			"elapsed", run.Duration())
	}
	v.save(logger, run)
}

// save persists run; a storage failure is logged and does not end the run
func (v *Validator) save(logger *slog.Logger, run *domain.Run) {
	if v.opts.Store == nil {
		return
	}
	if err := v.opts.Store.SaveRun(run); err != nil {
		logger.Warn("failed to save run", "error", err)
	}
}
