// Package oracletest provides scripted oracle collaborators for tests.
package oracletest

import (
	"context"
	"strings"
	"sync"

	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/marker"
	"github.com/hochfrequenz/doccheck/internal/oracle"
)

// Judge judges output with Rule and records every output it was shown
type Judge struct {
	Rule func(output string) domain.Outcome
	Err  error

	mu    sync.Mutex
	calls []string
}

// MarkerJudge calls a command successful when its completion marker made it
// into the output, which is what happens when the command exits zero
func MarkerJudge() *Judge {
	return &Judge{Rule: func(output string) domain.Outcome {
		if strings.Contains(output, marker.Prefix) {
			return domain.OutcomeSuccess
		}
		return domain.OutcomeFailure
	}}
}

func (j *Judge) Judge(ctx context.Context, output string) (domain.CommandReport, error) {
	j.mu.Lock()
	j.calls = append(j.calls, output)
	j.mu.Unlock()
	if j.Err != nil {
		return domain.CommandReport{}, j.Err
	}
	outcome := domain.OutcomeUnknown
	if j.Rule != nil {
		outcome = j.Rule(output)
	}
	return domain.CommandReport{Outcome: outcome, Insight: "judged " + string(outcome), Output: output}, nil
}

// Calls returns the outputs judged so far
func (j *Judge) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

// Input answers prompts from a queue. Once the queue is empty it answers
// oracle.NoInput.
type Input struct {
	Answers []string
	Err     error

	mu    sync.Mutex
	calls []string
}

func (i *Input) ProvideInput(ctx context.Context, output string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, output)
	if i.Err != nil {
		return "", i.Err
	}
	if len(i.Answers) == 0 {
		return oracle.NoInput, nil
	}
	answer := i.Answers[0]
	i.Answers = i.Answers[1:]
	return answer, nil
}

// Calls returns the outputs the oracle was asked about
func (i *Input) Calls() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.calls...)
}

// Remediator returns Fixes[report.Command] for every request
type Remediator struct {
	Fixes map[domain.Command][]domain.Command
	Err   error

	mu    sync.Mutex
	calls []domain.CommandReport
}

func (r *Remediator) ProposeFixCommands(ctx context.Context, docPath string, report domain.CommandReport) ([]domain.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, report)
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]domain.Command(nil), r.Fixes[report.Command]...), nil
}

// Calls returns the reports remediation was requested for
func (r *Remediator) Calls() []domain.CommandReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CommandReport(nil), r.calls...)
}

// Planner returns fixed goals and per-goal commands
type Planner struct {
	Goals    []domain.Goal
	Commands map[string][]domain.Command
	Err      error
}

func (p *Planner) FetchGoals(ctx context.Context, doc *document.Document) ([]domain.Goal, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]domain.Goal(nil), p.Goals...), nil
}

func (p *Planner) FetchCommands(ctx context.Context, doc *document.Document, goal domain.Goal) ([]domain.Command, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]domain.Command(nil), p.Commands[goal.Name]...), nil
}
