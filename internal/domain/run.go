package domain

import "time"

// Run represents a single validation of one document
type Run struct {
	ID         string
	Document   string
	Mode       ExecutorMode
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Report     DocumentReport
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts returns the number of command reports by outcome across all goals.
// Modification reports are not counted.
func (r *Run) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, g := range r.Report.GoalReports {
		for _, c := range g.CommandReports {
			counts[c.Outcome]++
		}
	}
	return counts
}
