// Package oracle defines the text-understanding collaborators the executors
// depend on, and a backend that answers them through the Claude CLI.
package oracle

import (
	"context"
	"errors"

	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
)

// NoInput is what the input oracle answers when the output does not end in a
// prompt
const NoInput = "breba-noop"

// ErrNoJSON is returned when an oracle answer carries no JSON object
var ErrNoJSON = errors.New("no JSON object found in output")

// Judge decides whether captured output shows success
type Judge interface {
	Judge(ctx context.Context, output string) (domain.CommandReport, error)
}

// InputOracle proposes terminal input for output that may end in a prompt.
// Answers are raw; Gateway interprets them.
type InputOracle interface {
	ProvideInput(ctx context.Context, output string) (string, error)
}

// Remediator proposes commands that correct the document after a failure
type Remediator interface {
	ProposeFixCommands(ctx context.Context, docPath string, report domain.CommandReport) ([]domain.Command, error)
}

// Planner turns a document into goals and goals into commands
type Planner interface {
	FetchGoals(ctx context.Context, doc *document.Document) ([]domain.Goal, error)
	FetchCommands(ctx context.Context, doc *document.Document, goal domain.Goal) ([]domain.Command, error)
}

// Oracle is a backend that serves every collaborator
type Oracle interface {
	Judge
	InputOracle
	Remediator
	Planner
}
