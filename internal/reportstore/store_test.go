package reportstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/doccheck/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) *domain.Run {
	finished := started.Add(90 * time.Second)
	return &domain.Run{
		ID:         id,
		Document:   "README.md",
		Mode:       domain.ModeLocal,
		Status:     domain.RunCompleted,
		StartedAt:  started,
		FinishedAt: &finished,
		Report: domain.DocumentReport{
			Document: "README.md",
			GoalReports: []domain.GoalReport{
				{
					Name:        "install",
					Description: "install the tool",
					CommandReports: []domain.CommandReport{
						{Command: "pip install foo", Outcome: domain.OutcomeSuccess, Insight: "installed", Output: "Successfully installed foo\n"},
						{Command: "foo --versoin", Outcome: domain.OutcomeFailure, Insight: "unknown flag", Output: "error\n"},
					},
					ModificationReports: []domain.CommandReport{
						{Command: "sed -i 's/versoin/version/' README.md", Outcome: domain.OutcomeSuccess},
					},
				},
				{Name: "read", Description: "nothing to run"},
			},
		},
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)

	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Document != "README.md" || got.Mode != domain.ModeLocal || got.Status != domain.RunCompleted {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(*run.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, run.FinishedAt)
	}

	goals := got.Report.GoalReports
	if len(goals) != 2 {
		t.Fatalf("got %d goal reports, want 2", len(goals))
	}
	install := goals[0]
	if install.Name != "install" || install.Description != "install the tool" {
		t.Errorf("goal = %q / %q", install.Name, install.Description)
	}
	if len(install.CommandReports) != 2 || len(install.ModificationReports) != 1 {
		t.Fatalf("install has %d command and %d modification reports", len(install.CommandReports), len(install.ModificationReports))
	}
	for i, want := range run.Report.GoalReports[0].CommandReports {
		if install.CommandReports[i] != want {
			t.Errorf("CommandReports[%d] = %+v, want %+v", i, install.CommandReports[i], want)
		}
	}
	if install.ModificationReports[0].Command != "sed -i 's/versoin/version/' README.md" {
		t.Errorf("ModificationReports[0] = %+v", install.ModificationReports[0])
	}
	if len(goals[1].CommandReports) != 0 || goals[1].Name != "read" {
		t.Errorf("empty goal = %+v", goals[1])
	}
}

func TestStore_SaveRunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	run := sampleRun("run-1", time.Now())
	run.Status = domain.RunRunning
	run.FinishedAt = nil
	run.Report.GoalReports = run.Report.GoalReports[:1]
	if err := store.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	// progress: the run finishes with more goals
	final := sampleRun("run-1", run.StartedAt)
	final.Status = domain.RunFailed
	final.Error = "peer did not respond"
	if err := store.SaveRun(final); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunFailed || got.Error != "peer did not respond" {
		t.Errorf("Status = %v, Error = %q", got.Status, got.Error)
	}
	if len(got.Report.GoalReports) != 2 {
		t.Errorf("got %d goal reports after resave, want 2", len(got.Report.GoalReports))
	}
	if n := len(got.Report.GoalReports[0].CommandReports); n != 2 {
		t.Errorf("goal has %d command reports after resave, want 2", n)
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		if id == "b" {
			run.Document = "docs/other.md"
		}
		if err := store.SaveRun(run); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all newest first", ListOptions{}, []string{"c", "b", "a"}},
		{"limit", ListOptions{Limit: 2}, []string{"c", "b"}},
		{"by document", ListOptions{Document: "README.md"}, []string{"c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].ID != id {
					t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
				}
				if len(runs[i].Report.GoalReports) != 2 {
					t.Errorf("runs[%d] report not loaded", i)
				}
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRun() error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteRun(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveRun(sampleRun("gone", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRun("gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRun("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() after delete error = %v", err)
	}
	var n int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM command_reports`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d command reports left after delete", n)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "doccheck.db")
	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()
}
