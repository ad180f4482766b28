package domain

import "strings"

// Command is one shell invocation, kept exactly as the planner produced it
type Command string

// String returns the command text
func (c Command) String() string {
	return string(c)
}

// Commands converts plain strings into Commands, dropping blank entries
func Commands(texts ...string) []Command {
	cmds := make([]Command, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cmds = append(cmds, Command(t))
	}
	return cmds
}

// CommandReport is the judged result of running one command.
// Reports are values; nothing in the pipeline mutates one after it is built.
type CommandReport struct {
	Command Command
	Outcome Outcome
	Insight string
	Output  string
}

// Succeeded reports whether the command was judged successful
func (r CommandReport) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// PendingReport returns a placeholder for a command that has not run yet
func PendingReport(cmd Command) CommandReport {
	return CommandReport{Command: cmd, Outcome: OutcomeUnknown}
}
