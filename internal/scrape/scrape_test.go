package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civicatlas/scraperd/internal/store"
)

func TestRunnersRegisterAndResolve(t *testing.T) {
	r := NewRunners()
	runner := RunnerFunc(func(_ context.Context, task string) ([]store.ScrapedEntity, error) {
		return []store.ScrapedEntity{{Jurisdiction: "federal", EntityType: task, ExternalID: "1"}}, nil
	})
	require.NoError(t, r.Register("federal_parliament", runner))

	got, err := r.Resolve("federal_parliament")
	require.NoError(t, err)

	entities, err := got.Run(context.Background(), "bills")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Equal(t, "bills", entities[0].EntityType)
}

func TestRunnersRejectInvalidRegistration(t *testing.T) {
	r := NewRunners()
	noop := RunnerFunc(func(context.Context, string) ([]store.ScrapedEntity, error) { return nil, nil })

	require.Error(t, r.Register("", noop))
	require.Error(t, r.Register("x", nil))
	require.NoError(t, r.Register("x", noop))
	require.Error(t, r.Register("x", noop))
}

func TestRunnersResolveUnknownName(t *testing.T) {
	r := NewRunners()
	noop := RunnerFunc(func(context.Context, string) ([]store.ScrapedEntity, error) { return nil, nil })
	require.NoError(t, r.Register("municipal_councils", noop))

	_, err := r.Resolve("federal_parliament")
	require.Error(t, err)
	require.Contains(t, err.Error(), "municipal_councils")
}
