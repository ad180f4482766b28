package notify

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DesktopNotifier shows run summaries as desktop notifications
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send shows n via osascript on macOS or notify-send on Linux. Other
// platforms are ignored.
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("osascript", "-e", appleScript(n))
	case "linux":
		cmd = exec.Command("notify-send", notifySendArgs(n)...)
	default:
		return nil
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// desktopBody is the short text a notification bubble has room for
func desktopBody(n Notification) string {
	sum := n.Run
	if sum == nil {
		return n.Message
	}
	body := fmt.Sprintf("%d passed, %d failed, %d unknown", sum.Passed, sum.Failed, sum.Unknown)
	if len(sum.Failing) > 0 {
		body += "\n" + sum.Failing[0]
		if rest := len(sum.Failing) - 1 + sum.More; rest > 0 {
			body += fmt.Sprintf(" (+%d)", rest)
		}
	}
	return body
}

func appleScript(n Notification) string {
	script := `display notification ` + appleScriptString(desktopBody(n)) + ` with title ` + appleScriptString(n.Title)
	if n.Document != "" {
		script += ` subtitle ` + appleScriptString(filepath.Base(n.Document))
	}
	return script
}

func notifySendArgs(n Notification) []string {
	urgency := "normal"
	if n.Type == NotifyError {
		urgency = "critical"
	}
	return []string{
		"--app-name", "doccheck",
		"--urgency", urgency,
		"--icon", IconForType(n.Type),
		n.Title, desktopBody(n),
	}
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// IconForType returns an icon name for the notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
