// internal/session/local_test.go
package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func startTestShell(t *testing.T) *Local {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	l, err := StartLocal(context.Background(), LocalOptions{
		Shell:         "/bin/sh",
		Dir:           t.TempDir(),
		BannerTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Skipf("cannot start pty shell: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// readUntil polls until want shows up or the deadline passes
func readUntil(t *testing.T, ch Channel, want string) string {
	t.Helper()
	var out strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		chunk, err := ch.Poll(context.Background(), 200*time.Millisecond)
		if errors.Is(err, ErrPollTimeout) {
			continue
		}
		if err != nil {
			t.Fatalf("Poll() error = %v (output so far %q)", err, out.String())
		}
		out.WriteString(chunk)
		if strings.Contains(out.String(), want) {
			return out.String()
		}
	}
	t.Fatalf("did not see %q, got %q", want, out.String())
	return ""
}

func TestLocal_SubmitAndPoll(t *testing.T) {
	l := startTestShell(t)
	ctx := context.Background()

	if err := l.Submit(ctx, "echo hello-from-pty"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	out := readUntil(t, l, "hello-from-pty")
	if strings.Contains(out, "echo hello") {
		t.Errorf("output %q contains the echoed command line; terminal echo should be off", out)
	}
}

func TestLocal_DeliverInput(t *testing.T) {
	l := startTestShell(t)
	ctx := context.Background()

	if err := l.Submit(ctx, "read answer && echo got-$answer"); err != nil {
		t.Fatal(err)
	}
	if err := l.DeliverInput(ctx, "yes"); err != nil {
		t.Fatal(err)
	}
	readUntil(t, l, "got-yes")
}

func TestLocal_ExitClosesStream(t *testing.T) {
	l := startTestShell(t)
	if err := l.Submit(context.Background(), "exit 0"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, err := l.Poll(context.Background(), 200*time.Millisecond)
		if errors.Is(err, ErrClosed) {
			return
		}
	}
	t.Error("expected ErrClosed after the shell exited")
}

func TestLocal_CloseIsIdempotent(t *testing.T) {
	l := startTestShell(t)
	l.Close()
	l.Close()
	if err := l.Submit(context.Background(), "echo after-close"); err == nil {
		t.Error("Submit after Close should fail")
	}
}

func TestShellArgs(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"/bin/bash", "--norc --noprofile --noediting"},
		{"/usr/local/bin/zsh", "-f"},
		{"/bin/sh", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(shellArgs(tt.shell), " "); got != tt.want {
			t.Errorf("shellArgs(%q) = %q, want %q", tt.shell, got, tt.want)
		}
	}
}
