// Package registry declares the static table of known scrapers and their
// schedules. The table is loaded once at startup and never mutated; adding a
// scraper means adding a descriptor here and restarting the process.
package registry

import (
	"fmt"
	"os"
	"strings"
)

// Mode selects which cadence a scheduled scraper runs at.
type Mode string

const (
	ModeProd Mode = "prod"
	ModeTest Mode = "test"
)

// Fallback cron expressions used when neither an environment override nor a
// descriptor default is set.
const (
	FallbackProdCron = "0 2 * * *"
	FallbackTestCron = "0 * * * *"
)

// Descriptor declares a scraper: its unique name, the jurisdiction codes it
// covers, the ordered task list it executes, and its production and test
// cron cadences.
type Descriptor struct {
	Name     string
	Tier     string
	Codes    []string
	Tasks    []string
	ProdCron string
	TestCron string
}

// HasTask reports whether the descriptor declares the given task.
func (d Descriptor) HasTask(task string) bool {
	for _, t := range d.Tasks {
		if t == task {
			return true
		}
	}
	return false
}

// defaultTable is the declarative scraper catalog. Ordering here is the
// registration order at startup.
var defaultTable = []Descriptor{
	{
		Name:     "federal_parliament",
		Tier:     "federal",
		Codes:    []string{"ca"},
		Tasks:    []string{"bills", "mps", "votes"},
		ProdCron: "0 2 * * *",
		TestCron: "0 * * * *",
	},
	{
		Name:     "provincial_legislatures",
		Tier:     "provincial",
		Codes:    []string{"ab", "bc", "mb", "nb", "nl", "ns", "on", "pe", "qc", "sk"},
		Tasks:    []string{"bills", "mpps", "committees"},
		ProdCron: "30 2 * * *",
		TestCron: "15 * * * *",
	},
	{
		Name:     "municipal_councils",
		Tier:     "municipal",
		Codes:    []string{"calgary", "edmonton", "halifax", "montreal", "ottawa", "toronto", "vancouver", "winnipeg"},
		Tasks:    []string{"councillors", "meetings", "motions"},
		ProdCron: "0 3 * * *",
		TestCron: "30 * * * *",
	},
	{
		Name:     "represent_reference",
		Tier:     "federal",
		Codes:    []string{"ca"},
		Tasks:    []string{"jurisdictions", "districts"},
		ProdCron: "0 4 * * 0",
		TestCron: "45 * * * *",
	},
}

// Registry is a read-only mapping from scraper name to Descriptor.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

// Load builds a Registry from the default table.
func Load() (*Registry, error) {
	return From(defaultTable)
}

// From builds a Registry from an explicit descriptor list, rejecting
// duplicate names and empty task lists.
func From(table []Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(table))}
	for _, d := range table {
		if d.Name == "" {
			return nil, fmt.Errorf("registry: descriptor with empty name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate scraper name %q", d.Name)
		}
		if len(d.Tasks) == 0 {
			return nil, fmt.Errorf("registry: scraper %q declares no tasks", d.Name)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names lists scraper names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ResolveCron returns the effective cron expression for a (scraper, mode)
// pair: environment override, then descriptor default, then the hardcoded
// fallback. The override variable is {NAME}_{MODE}_CRON, upper-cased.
func (r *Registry) ResolveCron(name string, mode Mode) (string, error) {
	d, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("registry: unknown scraper %q", name)
	}

	envKey := strings.ToUpper(fmt.Sprintf("%s_%s_CRON", name, mode))
	if override := strings.TrimSpace(os.Getenv(envKey)); override != "" {
		return override, nil
	}

	switch mode {
	case ModeProd:
		if d.ProdCron != "" {
			return d.ProdCron, nil
		}
		return FallbackProdCron, nil
	case ModeTest:
		if d.TestCron != "" {
			return d.TestCron, nil
		}
		return FallbackTestCron, nil
	default:
		return "", fmt.Errorf("registry: unknown mode %q", mode)
	}
}
