// Package prompts provides the oracle prompt templates with override support.
package prompts

import "embed"

//go:embed oracle/*.md
var embeddedFS embed.FS
