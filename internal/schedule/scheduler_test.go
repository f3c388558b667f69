package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/registry"
)

func TestRegisterAcceptsFiveFieldCron(t *testing.T) {
	s := New(zap.NewNop())
	err := s.Register("federal_parliament", registry.ModeProd, "0 2 * * *", func() {})
	require.NoError(t, err)
	require.True(t, s.Registered("federal_parliament", registry.ModeProd))
	require.Equal(t, 1, s.Len())
}

func TestRegisterRejectsMalformedCron(t *testing.T) {
	s := New(zap.NewNop())
	err := s.Register("federal_parliament", registry.ModeProd, "not a cron", func() {})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "federal_parliament", cfgErr.Scraper)
	require.Equal(t, 0, s.Len())
}

func TestRegisterSameIdentityReplacesTrigger(t *testing.T) {
	s := New(zap.NewNop())

	require.NoError(t, s.Register("federal_parliament", registry.ModeTest, "0 * * * *", func() {}))
	require.NoError(t, s.Register("federal_parliament", registry.ModeTest, "30 * * * *", func() {}))

	// Exactly one active trigger for the identity.
	require.Equal(t, 1, s.Len())
	require.True(t, s.Registered("federal_parliament", registry.ModeTest))
}

func TestDifferentModesAreDistinctIdentities(t *testing.T) {
	s := New(zap.NewNop())

	require.NoError(t, s.Register("federal_parliament", registry.ModeProd, "0 2 * * *", func() {}))
	require.NoError(t, s.Register("federal_parliament", registry.ModeTest, "0 * * * *", func() {}))

	require.Equal(t, 2, s.Len())
}

func TestStartStop(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.Register("municipal_councils", registry.ModeTest, "* * * * *", func() {}))
	s.Start()
	s.Stop()
}
