package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/fetch"
	"github.com/civicatlas/scraperd/internal/store"
)

// Source describes one JSON list endpoint a task pulls from.
type Source struct {
	URL          string
	Jurisdiction string
	// JurisdictionField, when set, reads the jurisdiction from each row
	// instead of using the static Jurisdiction value. Mirror feeds that
	// aggregate several legislatures carry it per row.
	JurisdictionField string
	EntityType        string
	IDField           string
}

// Fetcher is satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// SourceRunner pulls JSON entity lists over HTTP, one endpoint per task.
// Rows pass through unparsed as the entity payload; interpretation of the
// fields is left to downstream consumers of the store.
type SourceRunner struct {
	fetcher Fetcher
	sources map[string]Source
	logger  *zap.Logger
}

// NewSourceRunner builds a runner over a task-keyed source table.
func NewSourceRunner(fetcher Fetcher, sources map[string]Source, logger *zap.Logger) *SourceRunner {
	return &SourceRunner{fetcher: fetcher, sources: sources, logger: logger}
}

// listEnvelope matches the {"objects": [...]} pagination wrapper used by the
// openparliament and represent APIs. Bare JSON arrays are accepted too.
type listEnvelope struct {
	Objects []map[string]any `json:"objects"`
}

// Run fetches the task's endpoint and maps each row to a ScrapedEntity.
// Rows without a usable identifier are skipped with a warning.
func (r *SourceRunner) Run(ctx context.Context, task string) ([]store.ScrapedEntity, error) {
	src, ok := r.sources[task]
	if !ok {
		return nil, fmt.Errorf("no source configured for task %q", task)
	}

	res, err := r.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(res.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src.URL, err)
	}

	entities := make([]store.ScrapedEntity, 0, len(rows))
	for _, row := range rows {
		id := stringField(row, src.IDField)
		if id == "" {
			r.logger.Warn("row without identifier skipped",
				zap.String("task", task),
				zap.String("id_field", src.IDField),
			)
			continue
		}
		jurisdiction := src.Jurisdiction
		if src.JurisdictionField != "" {
			if j := stringField(row, src.JurisdictionField); j != "" {
				jurisdiction = j
			}
		}
		entities = append(entities, store.ScrapedEntity{
			Jurisdiction: jurisdiction,
			EntityType:   src.EntityType,
			ExternalID:   id,
			Data:         row,
		})
	}
	return entities, nil
}

func decodeRows(body []byte) ([]map[string]any, error) {
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Objects != nil {
		return envelope.Objects, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func stringField(row map[string]any, field string) string {
	switch v := row[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// DefaultSources maps each fetch-backed scraper to its per-task endpoints.
// Federal data comes straight from the openparliament API; provincial and
// municipal tasks read the normalized mirror feeds maintained by the
// ingestion pipeline.
var DefaultSources = map[string]map[string]Source{
	"federal_parliament": {
		"bills": {
			URL:          "https://api.openparliament.ca/bills/?format=json",
			Jurisdiction: "ca",
			EntityType:   "bill",
			IDField:      "url",
		},
		"mps": {
			URL:          "https://api.openparliament.ca/politicians/?format=json",
			Jurisdiction: "ca",
			EntityType:   "mp",
			IDField:      "url",
		},
		"votes": {
			URL:          "https://api.openparliament.ca/votes/?format=json",
			Jurisdiction: "ca",
			EntityType:   "vote",
			IDField:      "url",
		},
	},
	"provincial_legislatures": {
		"bills": {
			URL:               "https://data.civicatlas.ca/provincial/bills.json",
			Jurisdiction:      "provincial",
			JurisdictionField: "jurisdiction",
			EntityType:        "bill",
			IDField:           "id",
		},
		"mpps": {
			URL:               "https://data.civicatlas.ca/provincial/members.json",
			Jurisdiction:      "provincial",
			JurisdictionField: "jurisdiction",
			EntityType:        "mpp",
			IDField:           "id",
		},
		"committees": {
			URL:               "https://data.civicatlas.ca/provincial/committees.json",
			Jurisdiction:      "provincial",
			JurisdictionField: "jurisdiction",
			EntityType:        "committee",
			IDField:           "id",
		},
	},
	"municipal_councils": {
		"councillors": {
			URL:               "https://data.civicatlas.ca/municipal/councillors.json",
			Jurisdiction:      "municipal",
			JurisdictionField: "jurisdiction",
			EntityType:        "councillor",
			IDField:           "id",
		},
		"meetings": {
			URL:               "https://data.civicatlas.ca/municipal/meetings.json",
			Jurisdiction:      "municipal",
			JurisdictionField: "jurisdiction",
			EntityType:        "meeting",
			IDField:           "id",
		},
		"motions": {
			URL:               "https://data.civicatlas.ca/municipal/motions.json",
			Jurisdiction:      "municipal",
			JurisdictionField: "jurisdiction",
			EntityType:        "motion",
			IDField:           "id",
		},
	},
}
