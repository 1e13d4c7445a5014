package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/scoring"
	"grantbot/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grantbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Discovery.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.Discovery.Timeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Discovery.BatchDelay)
	assert.Equal(t, 10, cfg.Discovery.DeepScrape)
	assert.Equal(t, 7, cfg.Discovery.MinRelevanceScore)
	assert.Equal(t, int64(5<<20), cfg.Discovery.MaxBodyBytes)
	assert.Equal(t, DefaultDiscoveryCron, cfg.Discovery.Cron)
	assert.Equal(t, scoring.ModeKeyword, cfg.Scoring.Mode)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 50, cfg.Links.Application)
	assert.Equal(t, -30, cfg.Links.GenericText)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.ArchiveEnabled())

	require.NotEmpty(t, cfg.Sources)
	assert.Less(t, cfg.EnabledSources(), len(cfg.Sources))
	for _, s := range cfg.Sources {
		assert.True(t, s.Type.Valid(), s.ID)
		assert.NotEmpty(t, s.URLs, s.ID)
	}
	assert.Contains(t, cfg.Taxonomy.Terms(scoring.RolePrimary), "cacao")
	assert.Contains(t, cfg.Taxonomy.Terms(scoring.RoleGeographic), "peru")
	assert.Len(t, cfg.Taxonomy.AmountTiers, 4)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
discovery:
  concurrency: 2
  deep_scrape: 0
storage:
  driver: memory
sources:
  - id: only
    name: Only Source
    type: rss
    enabled: true
    urls: [https://example.org/feed]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Discovery.Concurrency)
	assert.Equal(t, 0, cfg.Discovery.DeepScrape)
	assert.Equal(t, 15*time.Second, cfg.Discovery.Timeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, types.SourceRSS, cfg.Sources[0].Type)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "discovery:\n  concurrency: 2\n")
	t.Setenv("GRANTBOT_DISCOVERY_CONCURRENCY", "6")
	t.Setenv("GRANTBOT_DISCOVERY_MIN_RELEVANCE_SCORE", "9")
	t.Setenv("GRANTBOT_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("GRANTBOT_S3_BUCKET", "grant-archive")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Discovery.Concurrency)
	assert.Equal(t, 9, cfg.Discovery.MinRelevanceScore)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.ArchiveEnabled())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "discovery.max_sources", envKey("GRANTBOT_DISCOVERY_MAX_SOURCES"))
	assert.Equal(t, "scoring.gemini_api_key", envKey("GRANTBOT_SCORING_GEMINI_API_KEY"))
	assert.Equal(t, "debug", envKey("GRANTBOT_DEBUG"))
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"concurrency", func(c *Config) { c.Discovery.Concurrency = 0 }},
		{"redirects", func(c *Config) { c.Discovery.MaxRedirects = 6 }},
		{"timeout low", func(c *Config) { c.Discovery.Timeout = 100 * time.Millisecond }},
		{"timeout high", func(c *Config) { c.Discovery.Timeout = 2 * time.Minute }},
		{"negative limit", func(c *Config) { c.Discovery.DeepScrape = -1 }},
		{"deadline margin under fetch timeout", func(c *Config) {
			c.Discovery.RunTimeout = 10 * time.Minute
			c.Discovery.DeadlineMargin = 10 * time.Second
			c.Discovery.Timeout = 15 * time.Second
		}},
		{"scorer mode", func(c *Config) { c.Scoring.Mode = "oracle" }},
		{"storage driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"source type", func(c *Config) { c.Sources[0].Type = "ftp" }},
		{"source urls", func(c *Config) { c.Sources[0].URLs = nil }},
		{"duplicate source", func(c *Config) { c.Sources[1].ID = c.Sources[0].ID }},
		{"taxonomy", func(c *Config) { c.Taxonomy.Categories = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			cfg.Sources = append([]types.Source(nil), base.Sources...)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
