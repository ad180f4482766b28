package executor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hochfrequenz/doccheck/internal/session"
)

// fakeChannel is an in-memory session. Poll never waits: it returns the next
// queued chunk, ErrClosed once closed and drained, or ErrPollTimeout.
type fakeChannel struct {
	mu         sync.Mutex
	queue      []string
	closed     bool
	submitted  []string
	inputs     []string
	closeCalls int

	onSubmit func(f *fakeChannel, line string)
	onInput  func(f *fakeChannel, text string)
}

func (f *fakeChannel) push(chunks ...string) {
	f.queue = append(f.queue, chunks...)
}

func (f *fakeChannel) Submit(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return session.ErrClosed
	}
	f.submitted = append(f.submitted, text)
	if f.onSubmit != nil {
		f.onSubmit(f, text)
	}
	return nil
}

func (f *fakeChannel) DeliverInput(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return session.ErrClosed
	}
	f.inputs = append(f.inputs, text)
	if f.onInput != nil {
		f.onInput(f, text)
	}
	return nil
}

func (f *fakeChannel) Poll(ctx context.Context, timeout time.Duration) (string, error) {
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

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.closed = true
	return nil
}

// fakeCmd describes how the fake shell reacts to one command
type fakeCmd struct {
	out        []string // printed right away
	prompt     string   // printed instead of out; the command then waits for input
	afterInput []string // printed once input arrives
	ok         bool     // exits zero, so the marker is printed
	exit       bool     // the shell itself exits
}

// fakeShell returns a channel that behaves like a shell with echo off for
// the commands in table. Unknown commands fail silently.
func fakeShell(table map[string]fakeCmd) *fakeChannel {
	var waiting *fakeCmd
	var waitingMarker string
	finish := func(f *fakeChannel, c fakeCmd, mk string) {
		if c.ok {
			f.push(mk + "\n")
		}
		if c.exit {
			f.closed = true
		}
	}
	return &fakeChannel{
		onSubmit: func(f *fakeChannel, line string) {
			idx := strings.Index(line, " && echo ")
			if idx < 0 {
				// the echo line that announces the command
				f.push(strings.TrimPrefix(line, "echo ") + "\n")
				return
			}
			name, mk := line[:idx], line[idx+len(" && echo "):]
			c := table[name]
			if c.prompt != "" {
				f.push(c.prompt)
				waiting, waitingMarker = &c, mk
				return
			}
			f.push(c.out...)
			finish(f, c, mk)
		},
		onInput: func(f *fakeChannel, text string) {
			if waiting == nil {
				return
			}
			c := *waiting
			waiting = nil
			f.push(c.afterInput...)
			finish(f, c, waitingMarker)
		},
	}
}
