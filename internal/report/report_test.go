package report

import (
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/doccheck/internal/domain"
)

var start = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func sampleReport() domain.DocumentReport {
	return domain.DocumentReport{
		Document: "README.md",
		GoalReports: []domain.GoalReport{
			{
				Name:        "install",
				Description: "build the tool",
				CommandReports: []domain.CommandReport{
					{Command: "make build", Outcome: domain.OutcomeSuccess, Insight: "binary built", Output: "line1\nline2\nline3\n"},
					{Command: "make test", Outcome: domain.OutcomeFailure, Insight: "missing target"},
				},
				ModificationReports: []domain.CommandReport{
					{Command: "sed -i s/test/check/ README.md", Outcome: domain.OutcomeSuccess},
				},
			},
			{Name: "serve"},
		},
	}
}

func TestDocument(t *testing.T) {
	out := Document(sampleReport(), Options{})

	for _, want := range []string{
		"README.md",
		"install",
		"build the tool",
		"✓ make build",
		"binary built",
		"✗ make test",
		"missing target",
		"repairs:",
		"sed -i s/test/check/ README.md",
		"serve",
		"no commands",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "line1") {
		t.Error("output lines shown with OutputLines = 0")
	}
}

func TestDocument_OutputTail(t *testing.T) {
	out := Document(sampleReport(), Options{OutputLines: 2})
	if strings.Contains(out, "line1") {
		t.Error("tail should drop the first line")
	}
	if !strings.Contains(out, "│ line2") || !strings.Contains(out, "│ line3") {
		t.Errorf("tail missing:\n%s", out)
	}
}

func TestDocument_NoGoals(t *testing.T) {
	out := Document(domain.DocumentReport{Document: "EMPTY.md"}, Options{})
	if !strings.Contains(out, "no goals identified") {
		t.Errorf("output = %q", out)
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		outcome domain.Outcome
		want    string
	}{
		{domain.OutcomeSuccess, "✓"},
		{domain.OutcomeFailure, "✗"},
		{domain.OutcomeUnknown, "?"},
	}
	for _, tt := range tests {
		if got := Glyph(tt.outcome); !strings.Contains(got, tt.want) {
			t.Errorf("Glyph(%s) = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		output string
		n      int
		want   int
	}{
		{"a\nb\nc\n", 2, 2},
		{"a\r\nb\r\n", 5, 2},
		{"", 3, 0},
		{"a\nb", 0, 0},
	}
	for _, tt := range tests {
		if got := tailLines(tt.output, tt.n); len(got) != tt.want {
			t.Errorf("tailLines(%q, %d) = %q, want %d lines", tt.output, tt.n, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	finished := start.Add(90 * time.Second)
	run := &domain.Run{
		ID:         "run-1",
		Document:   "README.md",
		Mode:       domain.ModeLocal,
		Status:     domain.RunCompleted,
		StartedAt:  start,
		FinishedAt: &finished,
		Report:     sampleReport(),
	}

	out := Run(run, Options{Now: start.Add(3 * time.Hour)})
	for _, want := range []string{"run-1", "local", "completed", "3 hours ago", "took 1m30s", "1 passed, 1 failed, 0 unknown", "make build"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Error(t *testing.T) {
	run := &domain.Run{ID: "run-2", Document: "README.md", Status: domain.RunFailed, Error: "dial peer: refused", StartedAt: start}
	out := Run(run, Options{Now: start})
	if !strings.Contains(out, "error: dial peer: refused") {
		t.Errorf("output missing error:\n%s", out)
	}
}

func TestRuns(t *testing.T) {
	runs := []*domain.Run{
		{ID: "run-long-id", Document: "/src/README.md", Status: domain.RunCompleted, StartedAt: start.Add(-2 * time.Minute), Report: sampleReport()},
		{ID: "run-2", Document: "/src/INSTALL.md", Status: domain.RunFailed, StartedAt: start.Add(-48 * time.Hour)},
	}
	out := Runs(runs, Options{Now: start})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	for _, want := range []string{"run-long-id", "README.md", "2 minutes ago", "1 passed, 1 failed"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line 0 missing %q: %q", want, lines[0])
		}
	}
	for _, want := range []string{"INSTALL.md", "failed", "2 days ago"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("line 1 missing %q: %q", want, lines[1])
		}
	}
}

func TestRuns_Empty(t *testing.T) {
	if out := Runs(nil, Options{}); !strings.Contains(out, "no runs recorded") {
		t.Errorf("output = %q", out)
	}
}
