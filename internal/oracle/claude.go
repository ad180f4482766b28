package oracle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/prompts"
)

// DefaultCommand is the CLI used when ClaudeOptions.Command is empty
const DefaultCommand = "claude"

// Runner sends one prompt to the model and returns its text answer
type Runner func(ctx context.Context, prompt string) (string, error)

// ClaudeOptions configures the Claude CLI backend
type ClaudeOptions struct {
	Command   string
	Model     string
	ExtraArgs []string
	Prompts   *prompts.Loader
	Logger    *slog.Logger
	// Run replaces the subprocess call, mainly for tests
	Run Runner
}

// Claude answers every oracle question with one non-interactive Claude CLI
// call per question
type Claude struct {
	prompts *prompts.Loader
	run     Runner
	logger  *slog.Logger
}

var _ Oracle = (*Claude)(nil)

// NewClaude creates the backend
func NewClaude(opts ClaudeOptions) *Claude {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loader := opts.Prompts
	if loader == nil {
		loader = prompts.NewLoader()
	}
	c := &Claude{
		prompts: loader,
		run:     opts.Run,
		logger:  logger.With("component", "oracle"),
	}
	if c.run == nil {
		c.run = cliRunner(opts.Command, opts.Model, opts.ExtraArgs)
	}
	return c
}

func cliRunner(command, model string, extra []string) Runner {
	if command == "" {
		command = DefaultCommand
	}
	return func(ctx context.Context, prompt string) (string, error) {
		args := []string{"--print", "--output-format", "text"}
		if model != "" {
			args = append(args, "--model", model)
		}
		args = append(args, extra...)
		args = append(args, "-p", prompt)

		cmd := exec.CommandContext(ctx, command, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return "", fmt.Errorf("%s: %w: %s", command, err, msg)
			}
			return "", fmt.Errorf("%s: %w", command, err)
		}
		return string(out), nil
	}
}

func (c *Claude) ask(ctx context.Context, kind, prompt string) (string, error) {
	start := time.Now()
	answer, err := c.run(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.logger.Debug("oracle answered", "kind", kind, "elapsed", time.Since(start), "bytes", len(answer))
	return answer, nil
}

type judgement struct {
	Command  string `json:"command"`
	Success  *bool  `json:"success"`
	Insights string `json:"insights"`
}

// Judge asks whether the output shows the command worked
func (c *Claude) Judge(ctx context.Context, output string) (domain.CommandReport, error) {
	prompt, err := c.prompts.BuildJudgePrompt(prompts.JudgeData{Output: output})
	if err != nil {
		return domain.CommandReport{}, err
	}
	answer, err := c.ask(ctx, "judge", prompt)
	if err != nil {
		return domain.CommandReport{}, fmt.Errorf("judge output: %w", err)
	}
	var j judgement
	if err := decodeJSON(answer, &j); err != nil {
		return domain.CommandReport{}, fmt.Errorf("judge output: %w", err)
	}
	return domain.CommandReport{
		Command: domain.Command(j.Command),
		Outcome: domain.OutcomeFromBool(j.Success),
		Insight: j.Insights,
		Output:  output,
	}, nil
}

// ProvideInput asks what, if anything, to type at the end of output
func (c *Claude) ProvideInput(ctx context.Context, output string) (string, error) {
	prompt, err := c.prompts.BuildInputPrompt(prompts.InputData{Output: output, NoInput: NoInput})
	if err != nil {
		return "", err
	}
	answer, err := c.ask(ctx, "input", prompt)
	if err != nil {
		return "", fmt.Errorf("provide input: %w", err)
	}
	// The CLI terminates its answer with a newline; the caller adds its own.
	return strings.TrimRight(answer, "\r\n"), nil
}

type commandList struct {
	Commands []string `json:"commands"`
}

// ProposeFixCommands asks for commands that edit the document at docPath so
// the failure described by report goes away
func (c *Claude) ProposeFixCommands(ctx context.Context, docPath string, report domain.CommandReport) ([]domain.Command, error) {
	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	prompt, err := c.prompts.BuildFixPrompt(prompts.FixData{
		Path:     docPath,
		Document: string(content),
		Command:  report.Command.String(),
		Insight:  report.Insight,
	})
	if err != nil {
		return nil, err
	}
	answer, err := c.ask(ctx, "fix", prompt)
	if err != nil {
		return nil, fmt.Errorf("propose fix: %w", err)
	}
	var list commandList
	if err := decodeJSON(answer, &list); err != nil {
		return nil, fmt.Errorf("propose fix: %w", err)
	}
	return domain.Commands(list.Commands...), nil
}

// FetchGoals asks for the high level tasks the document describes
func (c *Claude) FetchGoals(ctx context.Context, doc *document.Document) ([]domain.Goal, error) {
	prompt, err := c.prompts.BuildGoalsPrompt(prompts.GoalsData{
		Document: doc.Content,
		Headings: doc.HeadingTexts(),
	})
	if err != nil {
		return nil, err
	}
	answer, err := c.ask(ctx, "goals", prompt)
	if err != nil {
		return nil, fmt.Errorf("fetch goals: %w", err)
	}
	var resp struct {
		Goals []domain.Goal `json:"goals"`
	}
	if err := decodeJSON(answer, &resp); err != nil {
		return nil, fmt.Errorf("fetch goals: %w", err)
	}
	goals := resp.Goals[:0]
	for _, g := range resp.Goals {
		if strings.TrimSpace(g.Name) != "" {
			goals = append(goals, g)
		}
	}
	return goals, nil
}

// FetchCommands asks for the document's commands that accomplish goal
func (c *Claude) FetchCommands(ctx context.Context, doc *document.Document, goal domain.Goal) ([]domain.Command, error) {
	var blocks []string
	for _, b := range doc.ShellBlocks() {
		blocks = append(blocks, strings.TrimRight(b.Code, "\n"))
	}
	prompt, err := c.prompts.BuildCommandsPrompt(prompts.CommandsData{
		Document:   doc.Content,
		Goal:       goal,
		CodeBlocks: blocks,
	})
	if err != nil {
		return nil, err
	}
	answer, err := c.ask(ctx, "commands", prompt)
	if err != nil {
		return nil, fmt.Errorf("fetch commands for %q: %w", goal.Name, err)
	}
	var list commandList
	if err := decodeJSON(answer, &list); err != nil {
		return nil, fmt.Errorf("fetch commands for %q: %w", goal.Name, err)
	}
	return domain.Commands(list.Commands...), nil
}
