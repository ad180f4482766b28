package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// DefaultShell is spawned when LocalOptions.Shell is empty
const DefaultShell = "/bin/bash"

// LocalOptions configures a local shell session
type LocalOptions struct {
	Shell string   // shell binary, DefaultShell if empty
	Dir   string   // working directory, current directory if empty
	Env   []string // extra KEY=VALUE entries on top of the inherited environment
	// BannerTimeout bounds how long Start waits for and discards startup output
	BannerTimeout time.Duration
	Logger        *slog.Logger
}

// Local is an interactive shell running on a pseudo-terminal. Terminal echo
// is off and the prompts are blank, so the stream carries only what the
// commands print.
type Local struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	pump   *pump
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// StartLocal spawns the shell and discards its startup banner
func StartLocal(ctx context.Context, opts LocalOptions) (*Local, error) {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if err := disableEcho(tty); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, fmt.Errorf("disable terminal echo: %w", err)
	}

	cmd := exec.Command(shell, shellArgs(shell)...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "PS1=", "PS2=", "PROMPT_COMMAND=", "TERM=dumb")
	cmd.Env = append(cmd.Env, opts.Env...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, fmt.Errorf("starting %s: %w", shell, err)
	}
	// The child holds its own copy of the slave side.
	tty.Close()

	l := &Local{
		cmd:    cmd,
		ptmx:   ptmx,
		pump:   newPump(),
		logger: logger.With("component", "session", "shell", shell, "pid", cmd.Process.Pid),
	}
	go l.read()

	if err := l.discardBanner(ctx, opts.BannerTimeout); err != nil {
		l.Close()
		return nil, err
	}
	l.logger.Debug("local session started")
	return l, nil
}

// shellArgs keeps rc files from changing the prompt for shells that read them
func shellArgs(shell string) []string {
	switch filepath.Base(shell) {
	case "bash":
		return []string{"--norc", "--noprofile", "--noediting"}
	case "zsh":
		return []string{"-f"}
	default:
		return nil
	}
}

func (l *Local) read() {
	buf := make([]byte, 1024)
	for {
		n, err := l.ptmx.Read(buf)
		if n > 0 && !l.pump.deliver(string(buf[:n])) {
			l.pump.finish(nil)
			return
		}
		if err != nil {
			// Linux reports EIO on the master once the last slave fd is gone.
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
				err = nil
			}
			l.pump.finish(err)
			return
		}
	}
}

func (l *Local) discardBanner(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	for {
		banner, err := l.pump.poll(ctx, timeout, true)
		switch {
		case errors.Is(err, ErrPollTimeout):
			return nil
		case err != nil:
			return fmt.Errorf("waiting for shell start-up: %w", err)
		}
		l.logger.Debug("discarded start-up output", "bytes", len(banner))
	}
}

// Submit writes a command line to the shell
func (l *Local) Submit(ctx context.Context, text string) error {
	return l.writeLine(ctx, text)
}

// DeliverInput writes an answer to whatever prompt is waiting
func (l *Local) DeliverInput(ctx context.Context, text string) error {
	return l.writeLine(ctx, text)
}

func (l *Local) writeLine(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.WriteString(l.ptmx, text+"\n"); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("write to shell: %w", err)
	}
	return nil
}

// Poll returns whatever the terminal produced next, joining chunks that are
// already waiting
func (l *Local) Poll(ctx context.Context, timeout time.Duration) (string, error) {
	return l.pump.poll(ctx, timeout, true)
}

// Close hangs up the terminal and reaps the shell
func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		l.pump.halt()
		l.closeErr = l.ptmx.Close()
		if l.cmd.Process != nil {
			// Setsid made the shell a process group leader.
			_ = syscall.Kill(-l.cmd.Process.Pid, syscall.SIGKILL)
			_ = l.cmd.Wait()
		}
		l.logger.Debug("local session closed")
	})
	return l.closeErr
}
