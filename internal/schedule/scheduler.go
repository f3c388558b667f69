// Package schedule wraps robfig/cron with idempotent per-scraper trigger
// registration. Job identity is {name}_{mode}; re-registering an identity
// replaces the prior trigger instead of duplicating it.
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/registry"
)

// ConfigError reports a malformed cron expression for one scraper entry.
// Startup isolates these per entry; one bad expression never blocks the rest.
type ConfigError struct {
	Scraper string
	Mode    registry.Mode
	Spec    string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule %s_%s: invalid cron %q: %v", e.Scraper, e.Mode, e.Spec, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Scheduler owns the process-wide background cron. All expressions are
// interpreted in UTC.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New builds a stopped Scheduler; call Start after registration.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{logger: logger}),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Identity returns the scheduler identity for a (scraper, mode) pair.
func Identity(name string, mode registry.Mode) string {
	return fmt.Sprintf("%s_%s", name, mode)
}

// Register installs fn on the given 5-field cron spec under the pair's
// identity, replacing any previous trigger for that identity. Trigger
// callbacks must stay fast and non-blocking; slow work belongs in the worker
// pool.
func (s *Scheduler) Register(name string, mode registry.Mode, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := Identity(name, mode)
	entryID, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return &ConfigError{Scraper: name, Mode: mode, Spec: spec, Err: err}
	}
	if prior, ok := s.entries[id]; ok {
		s.cron.Remove(prior)
		s.logger.Info("replaced schedule trigger", zap.String("identity", id), zap.String("cron", spec))
	}
	s.entries[id] = entryID
	return nil
}

// Registered reports whether an identity currently has a trigger.
func (s *Scheduler) Registered(name string, mode registry.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[Identity(name, mode)]
	return ok
}

// Len returns the number of active triggers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cron.Entries())
}

// Start begins firing triggers in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels future ticks without waiting for queued jobs; in-flight
// callbacks finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
