package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8400", cfg.Server.Addr())
	require.Equal(t, "scraper_jobs", cfg.Queue.Key)
	require.True(t, cfg.Scheduler.Enabled)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://queue.internal:6379/2")
	t.Setenv("SCRAPER_QUEUE_KEY", "jobs_staging")
	t.Setenv("ENABLED_SCRAPERS_TEST", "federal_parliament, municipal_councils")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCRAPER_PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "redis://queue.internal:6379/2", cfg.Redis.URL)
	require.Equal(t, "jobs_staging", cfg.Queue.Key)
	require.False(t, cfg.Scheduler.Enabled)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, []string{"federal_parliament", "municipal_councils"}, cfg.Scrapers.EnabledFor("test"))
}

func TestEnabledFor(t *testing.T) {
	s := ScrapersConfig{EnabledProd: "a,b", EnabledTest: ""}
	require.Equal(t, []string{"a", "b"}, s.EnabledFor("prod"))
	require.Empty(t, s.EnabledFor("test"))
	require.Empty(t, s.EnabledFor("staging"))
}

func TestBoundarySetSlugs(t *testing.T) {
	r := RefdataConfig{BoundarySets: "federal-electoral-districts, toronto-wards"}
	require.Equal(t, []string{"federal-electoral-districts", "toronto-wards"}, r.BoundarySetSlugs())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty redis url", func(c *Config) { c.Redis.URL = "" }},
		{"empty queue key", func(c *Config) { c.Queue.Key = "" }},
		{"zero timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"zero retries", func(c *Config) { c.HTTP.MaxRetries = 0 }},
		{"zero workers", func(c *Config) { c.Worker.Concurrency = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
