package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicatlas/scraperd/internal/hash"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements entity upserts, the run journal, and the reference
// tables over Postgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore connects a pool to dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &PostgresStore{db: pool}, pool, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used by tests.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// upsertEntitySQL is a single-statement guarded upsert: the natural-key
// uniqueness constraint arbitrates concurrent writers, and the WHERE clause
// makes an unchanged hash a no-op that rewrites nothing, not even the audit
// timestamp. `xmax = 0` distinguishes a fresh insert from an update.
const upsertEntitySQL = `
	INSERT INTO scraped_entities (jurisdiction, entity_type, external_id, content_hash, data, first_seen_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, now(), now())
	ON CONFLICT (jurisdiction, entity_type, external_id) DO UPDATE
	SET content_hash = EXCLUDED.content_hash,
	    data = EXCLUDED.data,
	    updated_at = now()
	WHERE scraped_entities.content_hash IS DISTINCT FROM EXCLUDED.content_hash
	RETURNING (xmax = 0) AS inserted;
`

// UpsertEntity computes the entity's content hash and writes it if the stored
// hash differs. Returns whether anything changed, whether the row was newly
// created, and the computed hash. Re-processing an unchanged entity is
// idempotent.
func (s *PostgresStore) UpsertEntity(ctx context.Context, entity ScrapedEntity) (changed, created bool, digest string, err error) {
	if err := entity.Validate(); err != nil {
		return false, false, "", &Error{Op: "upsert entity", Err: err}
	}
	digest, err = hash.Entity(entity.Data)
	if err != nil {
		return false, false, "", &Error{Op: "hash entity", Err: err}
	}
	raw, err := json.Marshal(entity.Data)
	if err != nil {
		return false, false, "", &Error{Op: "marshal entity data", Err: err}
	}

	var inserted bool
	err = s.db.QueryRow(ctx, upsertEntitySQL,
		entity.Jurisdiction, entity.EntityType, entity.ExternalID, digest, raw,
	).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict with a matching hash: nothing written.
		return false, false, digest, nil
	}
	if err != nil {
		return false, false, "", &Error{Op: "upsert entity", Err: err}
	}
	return true, inserted, digest, nil
}

// StartRun journals the beginning of a scrape run and returns its id.
func (s *PostgresStore) StartRun(ctx context.Context, scraper, mode string) (uuid.UUID, error) {
	runID := uuid.New()
	query := `
		INSERT INTO scrape_runs (id, scraper, mode, status, started_at)
		VALUES ($1, $2, $3, $4, now());
	`
	if _, err := s.db.Exec(ctx, query, runID, scraper, mode, RunRunning); err != nil {
		return uuid.Nil, &Error{Op: "start run", Err: err}
	}
	return runID, nil
}

// FinishRun finalizes a journaled run with its outcome and counters.
func (s *PostgresStore) FinishRun(
	ctx context.Context,
	runID uuid.UUID,
	status RunStatus,
	created, updated, errorsCount int,
) error {
	query := `
		UPDATE scrape_runs
		SET status = $1, completed_at = now(),
		    records_created = $2, records_updated = $3, errors_count = $4
		WHERE id = $5;
	`
	if _, err := s.db.Exec(ctx, query, status, created, updated, errorsCount, runID); err != nil {
		return &Error{Op: "finish run", Err: err}
	}
	return nil
}

// UpsertReferenceJurisdiction inserts or refreshes a directory jurisdiction,
// keyed on its slug.
func (s *PostgresStore) UpsertReferenceJurisdiction(ctx context.Context, j ReferenceJurisdiction) error {
	query := `
		INSERT INTO reference_jurisdictions (slug, name, level, province, source_url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name,
		    level = EXCLUDED.level,
		    province = EXCLUDED.province,
		    source_url = EXCLUDED.source_url,
		    scraped_at = EXCLUDED.scraped_at;
	`
	scrapedAt := j.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	if _, err := s.db.Exec(ctx, query, j.Slug, j.Name, j.Level, j.Province, j.SourceURL, scrapedAt); err != nil {
		return &Error{Op: "upsert reference jurisdiction", Err: err}
	}
	return nil
}

// UpsertReferenceDistrict inserts or refreshes a district, keyed on
// (boundary set, name).
func (s *PostgresStore) UpsertReferenceDistrict(ctx context.Context, d ReferenceDistrict) error {
	query := `
		INSERT INTO reference_districts (external_id, name, boundary_set, source_url, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (boundary_set, name) DO UPDATE
		SET external_id = EXCLUDED.external_id,
		    source_url = EXCLUDED.source_url,
		    scraped_at = EXCLUDED.scraped_at;
	`
	scrapedAt := d.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	if _, err := s.db.Exec(ctx, query, d.ExternalID, d.Name, d.BoundarySet, d.SourceURL, scrapedAt); err != nil {
		return &Error{Op: "upsert reference district", Err: err}
	}
	return nil
}
