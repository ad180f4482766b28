package repair

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/oracle"
	"github.com/hochfrequenz/doccheck/internal/oracle/oracletest"
	"github.com/hochfrequenz/doccheck/internal/session"
)

// okChannel is a session on which every command succeeds at once
type okChannel struct {
	queue     []string
	submitted []string
}

func (c *okChannel) Submit(ctx context.Context, text string) error {
	c.submitted = append(c.submitted, text)
	if i := strings.Index(text, " && echo "); i >= 0 {
		c.queue = append(c.queue, text[i+len(" && echo "):]+"\n")
	}
	return nil
}

func (c *okChannel) Poll(ctx context.Context, timeout time.Duration) (string, error) {
	if len(c.queue) == 0 {
		return "", session.ErrPollTimeout
	}
	chunk := c.queue[0]
	c.queue = c.queue[1:]
	return chunk, nil
}

func (c *okChannel) DeliverInput(ctx context.Context, text string) error { return nil }
func (c *okChannel) Close() error                                       { return nil }

func newTestLoop(rem oracle.Remediator, starts *int) *Loop {
	local := executor.NewLocal(oracletest.MarkerJudge(), oracle.NewGateway(&oracletest.Input{}, nil), executor.LocalOptions{
		Collector: collector.Options{ReadTimeout: time.Millisecond, Pace: -1},
		Start: func(context.Context) (session.Channel, error) {
			*starts++
			return &okChannel{}, nil
		},
	})
	return New(rem, local, nil)
}

func report(cmd string, outcome domain.Outcome) domain.CommandReport {
	return domain.CommandReport{Command: domain.Command(cmd), Outcome: outcome, Insight: cmd + " insight"}
}

func TestRepair_OneFailure(t *testing.T) {
	goal := domain.GoalReport{
		Name: "install",
		CommandReports: []domain.CommandReport{
			report("pip install foo", domain.OutcomeSuccess),
			report("foo --versoin", domain.OutcomeFailure),
			report("foo --help", domain.OutcomeSuccess),
		},
	}
	fixes := domain.Commands("sed -i 's/--versoin/--version/' README.md", "grep -n version README.md")
	rem := &oracletest.Remediator{Fixes: map[domain.Command][]domain.Command{"foo --versoin": fixes}}
	starts := 0

	got, err := newTestLoop(rem, &starts).Repair(context.Background(), "README.md", goal)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	calls := rem.Calls()
	if len(calls) != 1 || calls[0].Command != "foo --versoin" {
		t.Errorf("remediation calls = %+v, want one for the failed command", calls)
	}
	if len(got.ModificationReports) != len(fixes) {
		t.Fatalf("got %d modification reports, want %d", len(got.ModificationReports), len(fixes))
	}
	for i, fix := range fixes {
		if got.ModificationReports[i].Command != fix {
			t.Errorf("ModificationReports[%d].Command = %q, want %q", i, got.ModificationReports[i].Command, fix)
		}
		if got.ModificationReports[i].Outcome != domain.OutcomeSuccess {
			t.Errorf("ModificationReports[%d].Outcome = %v", i, got.ModificationReports[i].Outcome)
		}
	}
	if len(goal.ModificationReports) != 0 {
		t.Error("input goal report was modified")
	}
	if starts != 1 {
		t.Errorf("local executor started %d sessions, want 1", starts)
	}
}

func TestRepair_UnknownCountsAsFailure(t *testing.T) {
	goal := domain.GoalReport{CommandReports: []domain.CommandReport{
		report("a", domain.OutcomeUnknown),
		report("b", domain.OutcomeFailure),
	}}
	rem := &oracletest.Remediator{Fixes: map[domain.Command][]domain.Command{
		"a": domain.Commands("fix-a"),
		"b": domain.Commands("fix-b"),
	}}
	starts := 0
	got, err := newTestLoop(rem, &starts).Repair(context.Background(), "doc.md", goal)
	if err != nil {
		t.Fatal(err)
	}
	if len(rem.Calls()) != 2 {
		t.Errorf("remediation calls = %d, want 2", len(rem.Calls()))
	}
	if len(got.ModificationReports) != 2 ||
		got.ModificationReports[0].Command != "fix-a" || got.ModificationReports[1].Command != "fix-b" {
		t.Errorf("ModificationReports = %+v", got.ModificationReports)
	}
}

func TestRepair_NoFailures(t *testing.T) {
	goal := domain.GoalReport{CommandReports: []domain.CommandReport{report("a", domain.OutcomeSuccess)}}
	rem := &oracletest.Remediator{}
	starts := 0
	got, err := newTestLoop(rem, &starts).Repair(context.Background(), "doc.md", goal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ModificationReports) != 0 || len(rem.Calls()) != 0 || starts != 0 {
		t.Errorf("expected no repair work, got %d reports, %d calls, %d sessions",
			len(got.ModificationReports), len(rem.Calls()), starts)
	}
}

func TestRepair_NoFixProposed(t *testing.T) {
	goal := domain.GoalReport{CommandReports: []domain.CommandReport{report("a", domain.OutcomeFailure)}}
	starts := 0
	got, err := newTestLoop(&oracletest.Remediator{}, &starts).Repair(context.Background(), "doc.md", goal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ModificationReports) != 0 || starts != 0 {
		t.Errorf("empty fix list should not start a session")
	}
}

func TestRepair_KeepsEarlierModifications(t *testing.T) {
	earlier := report("sed earlier", domain.OutcomeSuccess)
	goal := domain.GoalReport{
		CommandReports:      []domain.CommandReport{report("a", domain.OutcomeFailure)},
		ModificationReports: []domain.CommandReport{earlier},
	}
	rem := &oracletest.Remediator{Fixes: map[domain.Command][]domain.Command{"a": domain.Commands("fix-a")}}
	starts := 0
	got, err := newTestLoop(rem, &starts).Repair(context.Background(), "doc.md", goal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ModificationReports) != 2 || got.ModificationReports[0] != earlier {
		t.Errorf("ModificationReports = %+v, want earlier report first", got.ModificationReports)
	}
}

func TestRepair_RemediatorError(t *testing.T) {
	boom := errors.New("bad json")
	goal := domain.GoalReport{CommandReports: []domain.CommandReport{report("a", domain.OutcomeFailure)}}
	starts := 0
	_, err := newTestLoop(&oracletest.Remediator{Err: boom}, &starts).Repair(context.Background(), "doc.md", goal)
	if !errors.Is(err, boom) {
		t.Errorf("Repair() error = %v, want %v", err, boom)
	}
}
