//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// sampleDocument is a small README whose commands work in any POSIX shell
const sampleDocument = "# Greeter\n\n## Say hello\n\nRun:\n\n```sh\necho hello\n```\n"

// fakeClaude answers each oracle prompt the way the model would for
// sampleDocument. The prompt is the last argument.
const fakeClaude = `#!/bin/sh
for prompt; do :; done
case "$prompt" in
*"stuck waiting"*)
	echo "breba-noop" ;;
*"validates the instructions"*)
	case "$prompt" in
	*"Completed "*) echo '{"command": "echo hello", "success": true, "insights": "printed hello"}' ;;
	*) echo '{"command": "", "success": false, "insights": "no completion marker"}' ;;
	esac ;;
*"Headings and titles indicate tasks"*)
	echo '{"goals": [{"name": "say hello", "description": "print a greeting"}]}' ;;
*"builds a list of terminal commands"*)
	echo '{"commands": ["echo hello"]}' ;;
*)
	echo '{"commands": []}' ;;
esac
`

// WriteSampleProject writes sampleDocument and the fake oracle into a temp dir
// and returns the document path and the oracle path
func WriteSampleProject(t *testing.T) (docPath, oraclePath string) {
	t.Helper()
	dir := t.TempDir()
	docPath = filepath.Join(dir, "README.md")
	if err := os.WriteFile(docPath, []byte(sampleDocument), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
	oraclePath = filepath.Join(dir, "fake-claude")
	if err := os.WriteFile(oraclePath, []byte(fakeClaude), 0755); err != nil {
		t.Fatalf("Failed to write fake oracle: %v", err)
	}
	return docPath, oraclePath
}

// RequireShell skips tests that need /bin/sh
func RequireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.toml")
}
