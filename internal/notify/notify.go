// Package notify reports finished validation runs to Slack and the desktop.
package notify

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hochfrequenz/doccheck/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title    string
	Message  string
	Type     NotificationType
	RunID    string      // Optional run reference
	Document string      // Optional document path
	Run      *RunSummary // Set for notifications about a finished run
}

// RunSummary carries the numbers of a run for notifiers that lay them out
type RunSummary struct {
	Mode     domain.ExecutorMode
	Goals    int
	Passed   int
	Failed   int
	Unknown  int
	Duration time.Duration
	Failing  []string // "goal: command (outcome)", at most maxListedFailures
	More     int      // failing commands left out of Failing
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers and joins their errors
func (m *MultiNotifier) Send(n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// maxListedFailures caps how many failing commands a summary names
const maxListedFailures = 5

// ForRun summarizes a finished run
func ForRun(run *domain.Run) Notification {
	n := Notification{
		RunID:    run.ID,
		Document: run.Document,
	}
	name := filepath.Base(run.Document)

	if run.Status == domain.RunFailed {
		n.Type = NotifyError
		n.Title = fmt.Sprintf("doccheck: %s failed", name)
		n.Message = run.Error
		return n
	}

	counts := run.Counts()
	sum := &RunSummary{
		Mode:     run.Mode,
		Goals:    len(run.Report.GoalReports),
		Passed:   counts[domain.OutcomeSuccess],
		Failed:   counts[domain.OutcomeFailure],
		Unknown:  counts[domain.OutcomeUnknown],
		Duration: run.Duration(),
	}
	var failing []string
	for _, g := range run.Report.GoalReports {
		for _, c := range g.Failed() {
			failing = append(failing, fmt.Sprintf("%s: %s (%s)", g.Name, c.Command, c.Outcome))
		}
	}
	sum.Failing = failing
	if len(failing) > maxListedFailures {
		sum.Failing, sum.More = failing[:maxListedFailures], len(failing)-maxListedFailures
	}
	n.Run = sum

	var b strings.Builder
	fmt.Fprintf(&b, "%d goals, %d/%d commands succeeded", sum.Goals, sum.Passed, sum.Passed+sum.Failed+sum.Unknown)
	for _, f := range sum.Failing {
		b.WriteString("\n" + f)
	}
	if sum.More > 0 {
		fmt.Fprintf(&b, "\n... and %d more", sum.More)
	}
	n.Message = b.String()

	switch {
	case len(failing) == 0:
		n.Type = NotifySuccess
		n.Title = fmt.Sprintf("doccheck: %s passed", name)
	case sum.Failed == 0:
		n.Type = NotifyWarning
		n.Title = fmt.Sprintf("doccheck: %s inconclusive", name)
	default:
		n.Type = NotifyError
		n.Title = fmt.Sprintf("doccheck: %s has failing commands", name)
	}
	return n
}
