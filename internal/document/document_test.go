package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const readme = "# Example Tool\n\nSome intro.\n\n## Install *it*\n\n```bash\npip install example\n```\n\n## Configure\n\n```toml\nkey = 1\n```\n\n    example --version\n"

func TestParse(t *testing.T) {
	doc := Parse(readme)

	if doc.Title != "Example Tool" {
		t.Errorf("Title = %q, want %q", doc.Title, "Example Tool")
	}

	wantHeadings := []Heading{{1, "Example Tool"}, {2, "Install it"}, {2, "Configure"}}
	if len(doc.Headings) != len(wantHeadings) {
		t.Fatalf("got %d headings, want %d: %+v", len(doc.Headings), len(wantHeadings), doc.Headings)
	}
	for i, want := range wantHeadings {
		if doc.Headings[i] != want {
			t.Errorf("Headings[%d] = %+v, want %+v", i, doc.Headings[i], want)
		}
	}

	wantBlocks := []CodeBlock{
		{Lang: "bash", Code: "pip install example\n"},
		{Lang: "toml", Code: "key = 1\n"},
		{Lang: "", Code: "example --version\n"},
	}
	if len(doc.CodeBlocks) != len(wantBlocks) {
		t.Fatalf("got %d code blocks, want %d: %+v", len(doc.CodeBlocks), len(wantBlocks), doc.CodeBlocks)
	}
	for i, want := range wantBlocks {
		if doc.CodeBlocks[i] != want {
			t.Errorf("CodeBlocks[%d] = %+v, want %+v", i, doc.CodeBlocks[i], want)
		}
	}
}

func TestShellBlocks(t *testing.T) {
	doc := Parse(readme)
	blocks := doc.ShellBlocks()
	if len(blocks) != 2 {
		t.Fatalf("got %d shell blocks, want 2", len(blocks))
	}
	if !strings.Contains(blocks[0].Code, "pip install") || !strings.Contains(blocks[1].Code, "--version") {
		t.Errorf("unexpected shell blocks: %+v", blocks)
	}
}

func TestCodeBlock_IsShell(t *testing.T) {
	tests := []struct {
		lang string
		want bool
	}{
		{"bash", true},
		{"Shell", true},
		{"console", true},
		{"", true},
		{"python", false},
		{"yaml", false},
	}
	for _, tt := range tests {
		if got := (CodeBlock{Lang: tt.lang}).IsShell(); got != tt.want {
			t.Errorf("IsShell(%q) = %v, want %v", tt.lang, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	if err := os.WriteFile(path, []byte(readme), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Path != path || doc.Content != readme {
		t.Errorf("Load() = path %q, %d bytes", doc.Path, len(doc.Content))
	}
	if got := doc.HeadingTexts(); len(got) != 3 || got[1] != "Install it" {
		t.Errorf("HeadingTexts() = %v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestParse_NoTitle(t *testing.T) {
	doc := Parse("just text\n")
	if doc.Title != "" || len(doc.Headings) != 0 || len(doc.CodeBlocks) != 0 {
		t.Errorf("Parse() = %+v, want empty structure", doc)
	}
}
