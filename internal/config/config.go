// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scrapers  ScrapersConfig  `mapstructure:"scrapers"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	DB        DBConfig        `mapstructure:"db"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Refdata   RefdataConfig   `mapstructure:"refdata"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the orchestrator's HTTP bind address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr renders the bind address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig locates the queue backend.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// QueueConfig names the job list.
type QueueConfig struct {
	Key string `mapstructure:"key"`
}

// ScrapersConfig holds the comma-separated enabled-scraper lists per mode.
type ScrapersConfig struct {
	EnabledProd string `mapstructure:"enabled_prod"`
	EnabledTest string `mapstructure:"enabled_test"`
}

// EnabledFor splits the enabled list for a mode into names.
func (s ScrapersConfig) EnabledFor(mode string) []string {
	var raw string
	switch mode {
	case "prod":
		raw = s.EnabledProd
	case "test":
		raw = s.EnabledTest
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// SchedulerConfig toggles the background cron.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// HTTPConfig configures outbound fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	UserAgent      string `mapstructure:"user_agent"`
}

// Timeout converts the configured seconds into a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// RefdataConfig points at the external directory API.
type RefdataConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	BoundarySets string `mapstructure:"boundary_sets"`
	Limit        int    `mapstructure:"limit"`
}

// BoundarySetSlugs splits the configured comma-separated boundary sets.
func (r RefdataConfig) BoundarySetSlugs() []string {
	var slugs []string
	for _, part := range strings.Split(r.BoundarySets, ",") {
		if slug := strings.TrimSpace(part); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

// WorkerConfig sizes the consuming worker pool.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8400)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("queue.key", "scraper_jobs")
	v.SetDefault("scrapers.enabled_prod", "")
	v.SetDefault("scrapers.enabled_test", "")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.user_agent", "civicatlas-scraperd/0.1")
	v.SetDefault("refdata.base_url", "https://represent.opennorth.ca")
	v.SetDefault("refdata.boundary_sets", "federal-electoral-districts")
	v.SetDefault("refdata.limit", 200)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("logging.development", false)
}

// bindEnv maps the operational environment variables onto config keys. The
// names are part of the deployment contract, so no prefix is applied.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("queue.key", "SCRAPER_QUEUE_KEY")
	_ = v.BindEnv("scrapers.enabled_prod", "ENABLED_SCRAPERS_PROD")
	_ = v.BindEnv("scrapers.enabled_test", "ENABLED_SCRAPERS_TEST")
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("server.host", "SCRAPER_HOST")
	_ = v.BindEnv("server.port", "SCRAPER_PORT")
	_ = v.BindEnv("db.dsn", "DATABASE_URL")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url must be set")
	}
	if c.Queue.Key == "" {
		return fmt.Errorf("queue.key must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	return nil
}
