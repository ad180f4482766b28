package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultMaxDuration bounds one scheduled validation when an entry sets none
const DefaultMaxDuration = time.Hour

// Entry represents one scheduled validation
type Entry struct {
	Name        string
	Cron        string
	Documents   []string
	Remote      bool
	Repair      bool
	MaxDuration time.Duration
}

// Validate checks if the entry is valid and fills defaults
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("schedule %q: cron expression is required", e.Name)
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("schedule %q: invalid cron expression: %w", e.Name, err)
	}
	if len(e.Documents) == 0 {
		return fmt.Errorf("schedule %q: at least one document is required", e.Name)
	}
	if e.MaxDuration <= 0 {
		e.MaxDuration = DefaultMaxDuration
	}
	return nil
}

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
