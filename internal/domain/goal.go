package domain

// Goal is a named task a reader of the document should be able to accomplish
type Goal struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GoalReport collects the command reports for one goal plus the reports of
// the corrective commands run by the repair loop.
//
// A GoalReport is replaced, never edited: the With* methods return a new
// value whose slices share nothing with the receiver.
type GoalReport struct {
	Name                string
	Description         string
	CommandReports      []CommandReport
	ModificationReports []CommandReport
}

// NewGoalReport creates a report for goal with a pending entry per command
func NewGoalReport(goal Goal, commands []Command) GoalReport {
	reports := make([]CommandReport, len(commands))
	for i, cmd := range commands {
		reports[i] = PendingReport(cmd)
	}
	return GoalReport{
		Name:           goal.Name,
		Description:    goal.Description,
		CommandReports: reports,
	}
}

// Commands returns the commands of this goal in their original order
func (g GoalReport) Commands() []Command {
	cmds := make([]Command, len(g.CommandReports))
	for i, r := range g.CommandReports {
		cmds[i] = r.Command
	}
	return cmds
}

// Failed returns the command reports that were not judged successful
func (g GoalReport) Failed() []CommandReport {
	var failed []CommandReport
	for _, r := range g.CommandReports {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Clone returns a deep copy of the report
func (g GoalReport) Clone() GoalReport {
	return GoalReport{
		Name:                g.Name,
		Description:         g.Description,
		CommandReports:      cloneReports(g.CommandReports),
		ModificationReports: cloneReports(g.ModificationReports),
	}
}

// WithCommandReports returns a copy of g with its command reports replaced
func (g GoalReport) WithCommandReports(reports []CommandReport) GoalReport {
	next := g.Clone()
	next.CommandReports = cloneReports(reports)
	return next
}

// WithModificationReports returns a copy of g with additional modification
// reports appended after the existing ones
func (g GoalReport) WithModificationReports(reports ...CommandReport) GoalReport {
	next := g.Clone()
	next.ModificationReports = append(next.ModificationReports, reports...)
	return next
}

func cloneReports(reports []CommandReport) []CommandReport {
	if reports == nil {
		return nil
	}
	out := make([]CommandReport, len(reports))
	copy(out, reports)
	return out
}

// DocumentReport holds every goal report produced for one document
type DocumentReport struct {
	Document    string
	GoalReports []GoalReport
}

// ReplaceLast returns a copy of goals with the last element swapped for g.
// Earlier reports are cloned so callers holding the old slice never observe
// the change.
func ReplaceLast(goals []GoalReport, g GoalReport) []GoalReport {
	if len(goals) == 0 {
		return []GoalReport{g}
	}
	out := make([]GoalReport, 0, len(goals))
	for _, prev := range goals[:len(goals)-1] {
		out = append(out, prev.Clone())
	}
	return append(out, g)
}
