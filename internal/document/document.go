// Package document loads the markdown documents whose instructions are being
// validated and extracts the structure the planner uses as hints.
package document

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Heading is one markdown heading
type Heading struct {
	Level int
	Text  string
}

// CodeBlock is a fenced or indented code block
type CodeBlock struct {
	Lang string // info string language, empty for indented blocks
	Code string
}

// Document is a loaded markdown document
type Document struct {
	Path       string
	Content    string
	Title      string
	Headings   []Heading
	CodeBlocks []CodeBlock
}

var (
	parserOnce sync.Once
	parser     goldmark.Markdown
)

func markdown() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

// Load reads and parses the document at path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc := Parse(string(data))
	doc.Path = path
	return doc, nil
}

// Parse extracts headings and code blocks from markdown content
func Parse(content string) *Document {
	source := []byte(content)
	root := markdown().Parser().Parse(text.NewReader(source))

	doc := &Document{Content: content}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			h := Heading{Level: node.Level, Text: inlineText(node, source)}
			doc.Headings = append(doc.Headings, h)
			if doc.Title == "" {
				doc.Title = h.Text
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			doc.CodeBlocks = append(doc.CodeBlocks, CodeBlock{
				Lang: string(node.Language(source)),
				Code: blockText(node, source),
			})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			doc.CodeBlocks = append(doc.CodeBlocks, CodeBlock{Code: blockText(node, source)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return doc
}

func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

var shellLangs = map[string]bool{
	"":         true,
	"sh":       true,
	"bash":     true,
	"shell":    true,
	"console":  true,
	"zsh":      true,
	"terminal": true,
}

// IsShell reports whether the block looks like terminal input
func (c CodeBlock) IsShell() bool {
	return shellLangs[strings.ToLower(c.Lang)]
}

// ShellBlocks returns the code blocks that look like terminal input
func (d *Document) ShellBlocks() []CodeBlock {
	var blocks []CodeBlock
	for _, c := range d.CodeBlocks {
		if c.IsShell() {
			blocks = append(blocks, c)
		}
	}
	return blocks
}

// HeadingTexts returns the heading texts in document order
func (d *Document) HeadingTexts() []string {
	texts := make([]string, 0, len(d.Headings))
	for _, h := range d.Headings {
		texts = append(texts, h.Text)
	}
	return texts
}
