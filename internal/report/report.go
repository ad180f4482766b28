// Package report renders validation results for the terminal.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hochfrequenz/doccheck/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	goalStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	failureStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	unknownStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))
)

// Options controls how much detail is rendered
type Options struct {
	// OutputLines is how many trailing output lines to show per command; 0 hides output
	OutputLines int
	// Now is the reference for relative times; zero means time.Now()
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Glyph returns the marker shown in front of a command with the given outcome
func Glyph(o domain.Outcome) string {
	switch o {
	case domain.OutcomeSuccess:
		return successStyle.Render("✓")
	case domain.OutcomeFailure:
		return failureStyle.Render("✗")
	default:
		return unknownStyle.Render("?")
	}
}

// Document renders a document report: each goal with its commands and repairs
func Document(rep domain.DocumentReport, opts Options) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(rep.Document))
	b.WriteString("\n")
	if len(rep.GoalReports) == 0 {
		b.WriteString(dimmedStyle.Render("  no goals identified"))
		b.WriteString("\n")
		return b.String()
	}

	for _, g := range rep.GoalReports {
		b.WriteString("\n")
		b.WriteString(goalStyle.Render(g.Name))
		b.WriteString("\n")
		if g.Description != "" {
			b.WriteString(dimmedStyle.Render("  " + g.Description))
			b.WriteString("\n")
		}
		if len(g.CommandReports) == 0 {
			b.WriteString(dimmedStyle.Render("  no commands"))
			b.WriteString("\n")
		}
		writeCommands(&b, g.CommandReports, "  ", opts)
		if len(g.ModificationReports) > 0 {
			b.WriteString("  repairs:\n")
			writeCommands(&b, g.ModificationReports, "    ", opts)
		}
	}
	return b.String()
}

func writeCommands(b *strings.Builder, reports []domain.CommandReport, indent string, opts Options) {
	for _, r := range reports {
		fmt.Fprintf(b, "%s%s %s\n", indent, Glyph(r.Outcome), r.Command)
		if r.Insight != "" {
			fmt.Fprintf(b, "%s  %s\n", indent, dimmedStyle.Render(r.Insight))
		}
		for _, line := range tailLines(r.Output, opts.OutputLines) {
			fmt.Fprintf(b, "%s  │ %s\n", indent, line)
		}
	}
}

func tailLines(output string, n int) []string {
	if n <= 0 {
		return nil
	}
	output = strings.TrimRight(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	if output == "" {
		return nil
	}
	lines := strings.Split(output, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Summary is a one-line outcome count such as "3 passed, 1 failed, 0 unknown"
func Summary(run *domain.Run) string {
	counts := run.Counts()
	return fmt.Sprintf("%d passed, %d failed, %d unknown",
		counts[domain.OutcomeSuccess], counts[domain.OutcomeFailure], counts[domain.OutcomeUnknown])
}

// Run renders a stored run: a header line followed by its document report
func Run(run *domain.Run, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s  %s  started %s",
		dimmedStyle.Render("run"), run.ID, run.Mode, statusText(run.Status),
		humanize.RelTime(run.StartedAt, opts.now(), "ago", "from now"))
	if run.FinishedAt != nil {
		fmt.Fprintf(&b, ", took %s", run.Duration().Round(time.Second))
	}
	b.WriteString("\n")
	if run.Error != "" {
		b.WriteString(failureStyle.Render("error: " + run.Error))
		b.WriteString("\n")
	}
	b.WriteString(Summary(run))
	b.WriteString("\n\n")
	b.WriteString(Document(run.Report, opts))
	return b.String()
}

// Runs renders a run listing, one line per run
func Runs(runs []*domain.Run, opts Options) string {
	if len(runs) == 0 {
		return dimmedStyle.Render("no runs recorded") + "\n"
	}
	now := opts.now()

	rows := make([][]string, len(runs))
	widths := make([]int, 4)
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			filepath.Base(r.Document),
			string(r.Status),
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
		}
		for j, cell := range rows[i] {
			if w := lipgloss.Width(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}

	var b strings.Builder
	for i, row := range rows {
		for j, cell := range row {
			if j == 2 {
				cell = statusText(runs[i].Status)
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[j]-lipgloss.Width(row[j])+2))
		}
		b.WriteString(Summary(runs[i]))
		b.WriteString("\n")
	}
	return b.String()
}

func statusText(s domain.RunStatus) string {
	switch s {
	case domain.RunCompleted:
		return successStyle.Render(string(s))
	case domain.RunFailed:
		return failureStyle.Render(string(s))
	default:
		return unknownStyle.Render(string(s))
	}
}
