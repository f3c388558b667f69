// Package store persists scraped entities with upsert-if-changed semantics
// and maintains the append-only run journal.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScrapedEntity is one record produced by a scraper task. The natural key is
// (Jurisdiction, EntityType, ExternalID); Data is content-hashed to detect
// changes across runs.
type ScrapedEntity struct {
	Jurisdiction string
	EntityType   string
	ExternalID   string
	Data         map[string]any
}

// Validate rejects entities with an incomplete natural key.
func (e ScrapedEntity) Validate() error {
	if e.Jurisdiction == "" || e.EntityType == "" || e.ExternalID == "" {
		return fmt.Errorf("entity natural key incomplete: (%q, %q, %q)",
			e.Jurisdiction, e.EntityType, e.ExternalID)
	}
	return nil
}

// RunStatus tracks a journaled scrape run's lifecycle.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of the append-only run journal. Records are created at
// run start and finalized at completion; retention is an external concern.
type RunRecord struct {
	ID             uuid.UUID
	Scraper        string
	Mode           string
	Status         RunStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	RecordsCreated int
	RecordsUpdated int
	ErrorsCount    int
}

// ReferenceJurisdiction is an enrichment record from the external directory
// API, upserted by slug.
type ReferenceJurisdiction struct {
	Slug      string
	Name      string
	Level     string
	Province  string
	SourceURL string
	ScrapedAt time.Time
}

// ReferenceDistrict is an electoral district record, upserted by
// (boundary set, name).
type ReferenceDistrict struct {
	ExternalID  string
	Name        string
	BoundarySet string
	SourceURL   string
	ScrapedAt   time.Time
}

// Error reports a persistence failure. The store never retries internally;
// callers decide retry policy and journal the error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
