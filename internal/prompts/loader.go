package prompts

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/hochfrequenz/doccheck/internal/domain"
	"gopkg.in/yaml.v3"
)

// Template paths
const (
	JudgePath    = "oracle/judge.md"
	InputPath    = "oracle/input.md"
	FixPath      = "oracle/fix.md"
	GoalsPath    = "oracle/goals.md"
	CommandsPath = "oracle/commands.md"
)

// Loader manages prompt templates with override support.
type Loader struct {
	overrideDirs []string // Directories to check for overrides (in priority order)
	cache        map[string]*template.Template
	metaCache    map[string]*TemplateMeta
	mu           sync.RWMutex
}

// TemplateMeta holds frontmatter metadata.
type TemplateMeta struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NewLoader creates a loader with the given override directories.
// Directories are checked in order; first match wins.
func NewLoader(overrideDirs ...string) *Loader {
	return &Loader{
		overrideDirs: overrideDirs,
		cache:        make(map[string]*template.Template),
		metaCache:    make(map[string]*TemplateMeta),
	}
}

// DefaultLoader creates a loader with standard override paths:
// 1. Explicit dir (from config), if set
// 2. Project-local: .doccheck/prompts/
// 3. User config: ~/.config/doccheck/prompts/
func DefaultLoader(projectRoot, dir string) *Loader {
	home, _ := os.UserHomeDir()
	dirs := []string{}

	if dir != "" {
		dirs = append(dirs, dir)
	}
	if projectRoot != "" {
		dirs = append(dirs, filepath.Join(projectRoot, ".doccheck", "prompts"))
	}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "doccheck", "prompts"))
	}

	return NewLoader(dirs...)
}

// loadContent loads raw content from override dirs or embedded FS.
func (l *Loader) loadContent(name string) ([]byte, error) {
	for _, dir := range l.overrideDirs {
		if data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name))); err == nil {
			return data, nil
		}
	}
	return fs.ReadFile(embeddedFS, name)
}

// parseFrontmatter splits content into frontmatter and body.
func parseFrontmatter(content []byte) (*TemplateMeta, string, error) {
	str := string(content)

	if !strings.HasPrefix(str, "---\n") {
		return nil, str, nil // No frontmatter
	}

	end := strings.Index(str[4:], "\n---\n")
	if end == -1 {
		return nil, str, nil // Malformed, treat as no frontmatter
	}

	frontmatter := str[4 : 4+end]
	body := str[4+end+5:]

	var meta TemplateMeta
	if err := yaml.Unmarshal([]byte(frontmatter), &meta); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}

	return &meta, body, nil
}

// LoadTemplate loads and parses a template by path (e.g., "oracle/judge.md").
func (l *Loader) LoadTemplate(name string) (*template.Template, *TemplateMeta, error) {
	l.mu.RLock()
	if tmpl, ok := l.cache[name]; ok {
		meta := l.metaCache[name]
		l.mu.RUnlock()
		return tmpl, meta, nil
	}
	l.mu.RUnlock()

	content, err := l.loadContent(name)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", name, err)
	}

	meta, body, err := parseFrontmatter(content)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, nil, fmt.Errorf("compile template %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.metaCache[name] = meta
	l.mu.Unlock()

	return tmpl, meta, nil
}

// Execute loads and executes a template with the given data.
func (l *Loader) Execute(name string, data interface{}) (string, error) {
	tmpl, _, err := l.LoadTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}

	return buf.String(), nil
}

// List returns metadata for all oracle templates, with overrides applied.
func (l *Loader) List() ([]*TemplateMeta, error) {
	entries, err := fs.ReadDir(embeddedFS, "oracle")
	if err != nil {
		return nil, err
	}

	var result []*TemplateMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := path.Join("oracle", entry.Name())
		_, meta, err := l.LoadTemplate(name)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			result = append(result, meta)
		}
	}
	return result, nil
}

// JudgeData holds template variables for the judge prompt.
type JudgeData struct {
	Output string
}

// InputData holds template variables for the input prompt.
type InputData struct {
	Output  string
	NoInput string
}

// FixData holds template variables for the fix prompt.
type FixData struct {
	Path     string
	Document string
	Command  string
	Insight  string
}

// GoalsData holds template variables for the goals prompt.
type GoalsData struct {
	Document string
	Headings []string
}

// CommandsData holds template variables for the commands prompt.
type CommandsData struct {
	Document   string
	Goal       domain.Goal
	CodeBlocks []string
}

func (l *Loader) BuildJudgePrompt(data JudgeData) (string, error) {
	return l.Execute(JudgePath, data)
}

func (l *Loader) BuildInputPrompt(data InputData) (string, error) {
	return l.Execute(InputPath, data)
}

func (l *Loader) BuildFixPrompt(data FixData) (string, error) {
	return l.Execute(FixPath, data)
}

func (l *Loader) BuildGoalsPrompt(data GoalsData) (string, error) {
	return l.Execute(GoalsPath, data)
}

func (l *Loader) BuildCommandsPrompt(data CommandsData) (string, error) {
	return l.Execute(CommandsPath, data)
}

// ClearCache clears the template cache (useful for development/testing).
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*template.Template)
	l.metaCache = make(map[string]*TemplateMeta)
	l.mu.Unlock()
}
