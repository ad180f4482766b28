package peer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hochfrequenz/doccheck/internal/session"
)

// fakeCmd scripts how the fake shell reacts to one command
type fakeCmd struct {
	out    string
	prompt string // printed before blocking on input
	reply  string // printed after input, with %s replaced by the input
	ok     bool   // marker is printed when the command finishes
	exit   bool   // shell exits after the command
}

// fakeShell is an in-memory session. Poll never waits.
type fakeShell struct {
	mu      sync.Mutex
	table   map[string]fakeCmd
	queue   []string
	closed  bool
	waiting *fakeCmd
	marker  string
	inputs  []string
}

func newFakeShell(table map[string]fakeCmd) *fakeShell {
	return &fakeShell{table: table}
}

func (f *fakeShell) Submit(ctx context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return session.ErrClosed
	}
	cmd, mark, wrapped := strings.Cut(line, " && echo ")
	if !wrapped {
		// echo line: prints the command
		f.queue = append(f.queue, strings.TrimPrefix(line, "echo ")+"\n")
		return nil
	}
	script := f.table[cmd]
	if script.out != "" {
		f.queue = append(f.queue, script.out)
	}
	if script.prompt != "" {
		f.queue = append(f.queue, script.prompt)
		f.waiting = &script
		f.marker = mark
		return nil
	}
	f.finish(script, mark)
	return nil
}

func (f *fakeShell) finish(script fakeCmd, mark string) {
	if script.ok {
		f.queue = append(f.queue, mark+"\n")
	}
	if script.exit {
		f.closed = true
	}
}

func (f *fakeShell) DeliverInput(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return session.ErrClosed
	}
	f.inputs = append(f.inputs, text)
	if f.waiting == nil {
		return nil
	}
	script := *f.waiting
	f.waiting = nil
	f.queue = append(f.queue, strings.ReplaceAll(script.reply, "%s", text))
	f.finish(script, f.marker)
	return nil
}

func (f *fakeShell) Poll(ctx context.Context, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) > 0 {
		chunk := f.queue[0]
		f.queue = f.queue[1:]
		return chunk, nil
	}
	if f.closed {
		return "", session.ErrClosed
	}
	return "", session.ErrPollTimeout
}

func (f *fakeShell) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeShell) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}
