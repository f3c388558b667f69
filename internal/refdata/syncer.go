package refdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/store"
)

// ReferenceStore is the subset of the store the syncer writes through.
type ReferenceStore interface {
	UpsertReferenceJurisdiction(ctx context.Context, j store.ReferenceJurisdiction) error
	UpsertReferenceDistrict(ctx context.Context, d store.ReferenceDistrict) error
}

// Task names declared by the represent_reference descriptor.
const (
	TaskJurisdictions = "jurisdictions"
	TaskDistricts     = "districts"
)

// Syncer pulls directory records and upserts them into the reference tables.
// It satisfies the worker's runner contract; reference rows are written here
// rather than through the generic entity store because their uniqueness keys
// differ.
type Syncer struct {
	client       *Client
	store        ReferenceStore
	logger       *zap.Logger
	limit        int
	boundarySets []string
}

// NewSyncer builds a Syncer. boundarySets lists which district sets to pull;
// limit caps each directory page.
func NewSyncer(client *Client, refStore ReferenceStore, boundarySets []string, limit int, logger *zap.Logger) *Syncer {
	if limit <= 0 {
		limit = 200
	}
	return &Syncer{
		client:       client,
		store:        refStore,
		logger:       logger,
		limit:        limit,
		boundarySets: boundarySets,
	}
}

// Run executes one reference task. Upstream unavailability yields zero
// records and no error; store failures are real errors.
func (s *Syncer) Run(ctx context.Context, task string) ([]store.ScrapedEntity, error) {
	switch task {
	case TaskJurisdictions:
		return nil, s.syncJurisdictions(ctx)
	case TaskDistricts:
		return nil, s.syncDistricts(ctx)
	default:
		return nil, fmt.Errorf("refdata: unknown task %q", task)
	}
}

func (s *Syncer) syncJurisdictions(ctx context.Context) error {
	records := s.client.Jurisdictions(ctx, s.limit)
	for _, j := range records {
		if err := s.store.UpsertReferenceJurisdiction(ctx, j); err != nil {
			return fmt.Errorf("sync jurisdiction %q: %w", j.Slug, err)
		}
	}
	s.logger.Info("reference jurisdictions synced", zap.Int("count", len(records)))
	return nil
}

func (s *Syncer) syncDistricts(ctx context.Context) error {
	total := 0
	for _, set := range s.boundarySets {
		records := s.client.Districts(ctx, set, s.limit)
		for _, d := range records {
			if err := s.store.UpsertReferenceDistrict(ctx, d); err != nil {
				return fmt.Errorf("sync district %q in %q: %w", d.Name, set, err)
			}
		}
		total += len(records)
	}
	s.logger.Info("reference districts synced", zap.Int("count", total))
	return nil
}
