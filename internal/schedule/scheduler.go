// Package schedule runs document validations on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc validates the documents of one entry. Its context expires after the entry's MaxDuration.
type RunFunc func(ctx context.Context, e Entry) error

// Scheduler manages scheduled validations
type Scheduler struct {
	entries   map[string]Entry
	schedules map[string]cron.Schedule
	lastRun   map[string]time.Time
	running   map[string]bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *slog.Logger

	// Tick is how often due entries are checked.
	Tick time.Duration
	now  func() time.Time
}

// NewScheduler creates a scheduler for entries
func NewScheduler(entries []Entry, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		entries:   make(map[string]Entry),
		schedules: make(map[string]cron.Schedule),
		lastRun:   make(map[string]time.Time),
		running:   make(map[string]bool),
		logger:    logger.With("component", "schedule"),
		Tick:      time.Minute,
		now:       time.Now,
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate schedule name %q", e.Name)
		}
		sched, _ := ParseCron(e.Cron)
		s.entries[e.Name] = e
		s.schedules[e.Name] = sched
	}

	return s, nil
}

// NextRun returns the next scheduled run time for an entry
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[name]
	if !ok {
		return time.Time{}
	}
	return sched.Next(s.now())
}

// ShouldRun returns true if an entry is due and not already running
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dueLocked(name)
}

func (s *Scheduler) dueLocked(name string) bool {
	sched, ok := s.schedules[name]
	if !ok || s.running[name] {
		return false
	}

	now := s.now()
	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		// Never ran: due from the most recent minute slot on.
		lastRun = now.Add(-time.Minute)
	}
	return !sched.Next(lastRun).After(now)
}

// TryStart marks the entry running if it is due. It reports whether the caller owns the run.
func (s *Scheduler) TryStart(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dueLocked(name) {
		return false
	}
	s.running[name] = true
	return true
}

// MarkComplete marks an entry as complete
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = s.now()
}

// IsRunning reports whether an entry has a validation in flight
func (s *Scheduler) IsRunning(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[name]
}

// GetEntry returns the entry with the given name
func (s *Scheduler) GetEntry(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// List returns all entry names, sorted
func (s *Scheduler) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunDue starts every due entry in its own goroutine and returns how many were started.
func (s *Scheduler) RunDue(ctx context.Context, run RunFunc) int {
	started := 0
	for _, name := range s.List() {
		if !s.TryStart(name) {
			continue
		}
		e, _ := s.GetEntry(name)
		started++
		s.wg.Add(1)
		go func(e Entry) {
			defer s.wg.Done()
			defer s.MarkComplete(e.Name)

			runCtx, cancel := context.WithTimeout(ctx, e.MaxDuration)
			defer cancel()

			s.logger.Info("scheduled validation started", "name", e.Name, "documents", len(e.Documents))
			start := s.now()
			if err := run(runCtx, e); err != nil {
				s.logger.Error("scheduled validation failed", "name", e.Name, "error", err)
				return
			}
			s.logger.Info("scheduled validation finished", "name", e.Name, "elapsed", s.now().Sub(start))
		}(e)
	}
	return started
}

// Start checks for due entries every Tick until ctx is done, then waits for in-flight runs.
func (s *Scheduler) Start(ctx context.Context, run RunFunc) {
	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunDue(ctx, run)
		}
	}
}

// Wait blocks until all started validations have finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
