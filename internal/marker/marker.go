// Package marker makes the end of a submitted command detectable in a
// terminal stream that also carries the command's own stdout and stderr.
//
// Every command gets a fresh marker and is submitted as
// "<command> && echo <marker>". Nothing parses shell syntax; detection
// relies only on the marker being unpredictable.
package marker

import (
	"fmt"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/hochfrequenz/doccheck/internal/domain"
)

// Prefix is the fixed text in front of every marker token
const Prefix = "Completed "

// TokenSource produces the random part of a marker
type TokenSource func() string

// Protocol mints markers
type Protocol struct {
	tokens TokenSource
}

// New returns a Protocol that draws tokens from random (v4) UUIDs
func New() *Protocol {
	return &Protocol{tokens: uuid.NewString}
}

// NewWithTokenSource returns a Protocol using src for tokens. Tests use this
// to force low-entropy tokens.
func NewWithTokenSource(src TokenSource) *Protocol {
	if src == nil {
		return New()
	}
	return &Protocol{tokens: src}
}

// Next mints a single-use marker
func (p *Protocol) Next() Marker {
	return Marker{text: Prefix + p.tokens()}
}

// Marker identifies where one command's output ends
type Marker struct {
	text string
}

// String returns the text that appears in the stream once the command succeeds
func (m Marker) String() string {
	return m.text
}

// Wrap returns the form of cmd that is submitted to the session
func (m Marker) Wrap(cmd domain.Command) string {
	return fmt.Sprintf("%s && echo %s", cmd, m.text)
}

// EchoLine returns a shell line that prints cmd verbatim, so the stream shows
// what was attempted even when the terminal does not echo input
func EchoLine(cmd domain.Command) string {
	return "echo " + shellescape.Quote(string(cmd))
}
