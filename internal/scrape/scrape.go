// Package scrape defines the narrow interface the worker uses to invoke
// per-jurisdiction scraper implementations, and a validated name-keyed
// dispatch table for them.
package scrape

import (
	"context"
	"fmt"
	"sort"

	"github.com/civicatlas/scraperd/internal/store"
)

// Runner executes one declared task of a scraper and returns the entities it
// produced. Implementations live outside this core; each is a plain data
// producer.
type Runner interface {
	Run(ctx context.Context, task string) ([]store.ScrapedEntity, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task string) ([]store.ScrapedEntity, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, task string) ([]store.ScrapedEntity, error) {
	return f(ctx, task)
}

// Runners is a dispatch table from scraper name to Runner. Lookups of unknown
// names fail explicitly; nothing is dispatched on an unvalidated string.
type Runners struct {
	byName map[string]Runner
}

// NewRunners returns an empty dispatch table.
func NewRunners() *Runners {
	return &Runners{byName: make(map[string]Runner)}
}

// Register adds a runner under name, rejecting duplicates and nil runners.
func (r *Runners) Register(name string, runner Runner) error {
	if name == "" {
		return fmt.Errorf("scrape: runner name must not be empty")
	}
	if runner == nil {
		return fmt.Errorf("scrape: runner %q must not be nil", name)
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("scrape: runner %q already registered", name)
	}
	r.byName[name] = runner
	return nil
}

// Resolve returns the runner for name or an error naming the known runners.
func (r *Runners) Resolve(name string) (Runner, error) {
	runner, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("scrape: no runner registered for %q (known: %v)", name, r.Names())
	}
	return runner, nil
}

// Names lists registered runner names, sorted.
func (r *Runners) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
