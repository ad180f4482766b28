// Package pipeline validates one document: it identifies goals, then for each
// goal identifies commands, executes them, and repairs the document where
// they failed, before moving on to the next goal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/oracle"
)

// Stage is a point in a document's validation
type Stage string

const (
	StageStart              Stage = "start"
	StageGoalsIdentified    Stage = "goals_identified"
	StageCommandsIdentified Stage = "commands_identified"
	StageCommandsExecuted   Stage = "commands_executed"
	StageMutationsExecuted  Stage = "mutations_executed"
	StageDone               Stage = "done"
)

// State is the working state of one validation
type State struct {
	Goals       []domain.Goal // goals whose commands have not been identified yet
	GoalReports []domain.GoalReport
}

func (s State) clone() State {
	goals := append([]domain.Goal(nil), s.Goals...)
	reports := make([]domain.GoalReport, len(s.GoalReports))
	for i, g := range s.GoalReports {
		reports[i] = g.Clone()
	}
	return State{Goals: goals, GoalReports: reports}
}

// Transition is reported to the hook after every stage change
type Transition struct {
	From  Stage
	To    Stage
	State State
}

// Repairer runs the repair loop for one goal
type Repairer interface {
	Repair(ctx context.Context, docPath string, goal domain.GoalReport) (domain.GoalReport, error)
}

// Options configures a Pipeline
type Options struct {
	// Repair is skipped when nil
	Repair       Repairer
	OnTransition func(Transition)
	Logger       *slog.Logger
}

// Pipeline drives the validation state machine
type Pipeline struct {
	planner  oracle.Planner
	executor executor.Executor
	opts     Options
	logger   *slog.Logger
}

// New creates a pipeline. exec runs each goal's commands; repairs always run
// wherever the Repairer runs them.
func New(planner oracle.Planner, exec executor.Executor, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		planner:  planner,
		executor: exec,
		opts:     opts,
		logger:   logger.With("component", "pipeline"),
	}
}

// Run validates doc. On error the report holds every goal finished so far.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (domain.DocumentReport, error) {
	stage := StageStart
	var state State
	for stage != StageDone {
		if err := ctx.Err(); err != nil {
			return p.report(doc, state), err
		}
		next, nextState, err := p.step(ctx, doc, stage, state)
		if err != nil {
			return p.report(doc, state), err
		}
		p.logger.Debug("stage change", "from", stage, "to", next, "goals_left", len(nextState.Goals))
		if p.opts.OnTransition != nil {
			p.opts.OnTransition(Transition{From: stage, To: next, State: nextState.clone()})
		}
		stage, state = next, nextState
	}
	return p.report(doc, state), nil
}

func (p *Pipeline) report(doc *document.Document, s State) domain.DocumentReport {
	return domain.DocumentReport{Document: doc.Path, GoalReports: s.clone().GoalReports}
}

// step performs the work that leaves stage and returns the stage reached
func (p *Pipeline) step(ctx context.Context, doc *document.Document, stage Stage, s State) (Stage, State, error) {
	switch stage {
	case StageStart:
		s, err := p.identifyGoals(ctx, doc, s)
		if err != nil {
			return stage, s, err
		}
		if len(s.Goals) == 0 {
			return StageDone, s, nil
		}
		return StageGoalsIdentified, s, nil
	case StageGoalsIdentified:
		s, err := p.identifyCommands(ctx, doc, s)
		return StageCommandsIdentified, s, err
	case StageCommandsIdentified:
		s, err := p.executeCommands(ctx, s)
		return StageCommandsExecuted, s, err
	case StageCommandsExecuted:
		s, err := p.executeMutations(ctx, doc, s)
		return StageMutationsExecuted, s, err
	case StageMutationsExecuted:
		if len(s.Goals) > 0 {
			// Loop back to commands for the next goal.
			return StageGoalsIdentified, s, nil
		}
		return StageDone, s, nil
	default:
		return stage, s, fmt.Errorf("unknown stage %q", stage)
	}
}

func (p *Pipeline) identifyGoals(ctx context.Context, doc *document.Document, s State) (State, error) {
	goals, err := p.planner.FetchGoals(ctx, doc)
	if err != nil {
		return s, fmt.Errorf("identify goals: %w", err)
	}
	p.logger.Info("goals identified", "document", doc.Path, "goals", len(goals))
	next := s.clone()
	next.Goals = goals
	return next, nil
}

func (p *Pipeline) identifyCommands(ctx context.Context, doc *document.Document, s State) (State, error) {
	goal := s.Goals[0]
	cmds, err := p.planner.FetchCommands(ctx, doc, goal)
	if err != nil {
		return s, fmt.Errorf("identify commands: %w", err)
	}
	p.logger.Info("commands identified", "goal", goal.Name, "commands", len(cmds))
	next := s.clone()
	next.Goals = next.Goals[1:]
	next.GoalReports = append(next.GoalReports, domain.NewGoalReport(goal, cmds))
	return next, nil
}

func (p *Pipeline) executeCommands(ctx context.Context, s State) (State, error) {
	current := s.GoalReports[len(s.GoalReports)-1]
	cmds := current.Commands()
	if len(cmds) == 0 {
		return s, nil
	}
	reports, err := p.executor.ExecuteCommands(ctx, cmds)
	if err != nil {
		return s, fmt.Errorf("execute commands for %q: %w", current.Name, err)
	}
	next := s.clone()
	next.GoalReports = domain.ReplaceLast(next.GoalReports, current.WithCommandReports(reports))
	return next, nil
}

func (p *Pipeline) executeMutations(ctx context.Context, doc *document.Document, s State) (State, error) {
	if p.opts.Repair == nil {
		return s, nil
	}
	current := s.GoalReports[len(s.GoalReports)-1]
	repaired, err := p.opts.Repair.Repair(ctx, doc.Path, current)
	if err != nil {
		return s, fmt.Errorf("repair %q: %w", current.Name, err)
	}
	next := s.clone()
	next.GoalReports = domain.ReplaceLast(next.GoalReports, repaired)
	return next, nil
}
