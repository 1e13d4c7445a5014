// Package config loads grantbot configuration from embedded defaults, an
// optional YAML file and GRANTBOT_ environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"grantbot/links"
	"grantbot/scoring"
	"grantbot/types"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the full grantbot configuration
type Config struct {
	Log       LogConfig        `koanf:"log"`
	Discovery DiscoveryConfig  `koanf:"discovery"`
	Changes   ChangesConfig    `koanf:"changes"`
	Scoring   ScoringConfig    `koanf:"scoring"`
	Links     links.Weights    `koanf:"links"`
	Taxonomy  scoring.Taxonomy `koanf:"taxonomy"`
	Sources   []types.Source   `koanf:"sources"`
	Storage   StorageConfig    `koanf:"storage"`
	Redis     RedisConfig      `koanf:"redis"`
	Kafka     KafkaConfig      `koanf:"kafka"`
	S3        S3Config         `koanf:"s3"`
	Server    ServerConfig     `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DiscoveryConfig covers crawling and the discovery pipeline
type DiscoveryConfig struct {
	MaxSources        int           `koanf:"max_sources"`
	ItemsPerSource    int           `koanf:"items_per_source"`
	Concurrency       int           `koanf:"concurrency"`
	BatchDelay        time.Duration `koanf:"batch_delay"`
	MinRelevanceScore int           `koanf:"min_relevance_score"`
	MaxCandidates     int           `koanf:"max_candidates"`
	DeepScrape        int           `koanf:"deep_scrape"`
	DetailDelay       time.Duration `koanf:"detail_delay"`
	RunTimeout        time.Duration `koanf:"run_timeout"`
	DeadlineMargin    time.Duration `koanf:"deadline_margin"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRedirects      int           `koanf:"max_redirects"`
	UserAgent         string        `koanf:"user_agent"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	Cron              string        `koanf:"cron"`
}

// ChangesConfig covers tracked item monitoring
type ChangesConfig struct {
	Delay time.Duration `koanf:"delay"`
	Cron  string        `koanf:"cron"`
}

// ScoringConfig selects the relevance scorer
type ScoringConfig struct {
	Mode           string  `koanf:"mode"`
	GeminiAPIKey   string  `koanf:"gemini_api_key"`
	GeminiModel    string  `koanf:"gemini_model"`
	CohereAPIKey   string  `koanf:"cohere_api_key"`
	CohereModel    string  `koanf:"cohere_model"`
	Profile        string  `koanf:"profile"`
	EmbeddingScale float64 `koanf:"embedding_scale"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// KafkaConfig is optional; an empty broker list disables events
type KafkaConfig struct {
	Brokers         []string `koanf:"brokers"`
	GroupID         string   `koanf:"group_id"`
	CandidatesTopic string   `koanf:"candidates_topic"`
	ChangesTopic    string   `koanf:"changes_topic"`
	RequestsTopic   string   `koanf:"requests_topic"`
}

// S3Config is optional; an empty bucket disables the run archive
type S3Config struct {
	Bucket       string `koanf:"bucket"`
	Prefix       string `koanf:"prefix"`
	Region       string `koanf:"region"`
	Profile      string `koanf:"profile"`
	Endpoint     string `koanf:"endpoint"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

type ServerConfig struct {
	Addr   string `koanf:"addr"`
	APIURL string `koanf:"api_url"`
}

// Load builds the configuration. Precedence, highest first: GRANTBOT_*
// environment variables (after .env is loaded), the YAML file at path,
// embedded defaults. An empty path falls back to DefaultConfigFile if it
// exists.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// GRANTBOT_DISCOVERY_MAX_SOURCES -> discovery.max_sources
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key, splitting on the
// first underscore after the prefix only
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Discovery.Concurrency == 0 {
		cfg.Discovery.Concurrency = 4
	}
	if cfg.Discovery.Timeout == 0 {
		cfg.Discovery.Timeout = 15 * time.Second
	}
	if cfg.Discovery.MaxRedirects == 0 {
		cfg.Discovery.MaxRedirects = MaxRedirects
	}
	if cfg.Discovery.MinRelevanceScore == 0 {
		cfg.Discovery.MinRelevanceScore = 7
	}
	if cfg.Discovery.Cron == "" {
		cfg.Discovery.Cron = DefaultDiscoveryCron
	}
	if cfg.Changes.Cron == "" {
		cfg.Changes.Cron = DefaultChangesCron
	}
	if cfg.Scoring.Mode == "" {
		cfg.Scoring.Mode = scoring.ModeKeyword
	}
	if cfg.Scoring.GeminiAPIKey == "" {
		cfg.Scoring.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Scoring.CohereAPIKey == "" {
		cfg.Scoring.CohereAPIKey = os.Getenv("COHERE_API_KEY")
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/grantbot.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.APIURL == "" {
		cfg.Server.APIURL = DefaultAPIURL
	}
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	d := c.Discovery
	if d.Concurrency < 1 {
		return fmt.Errorf("discovery.concurrency must be at least 1, got %d", d.Concurrency)
	}
	if d.MaxRedirects < 0 || d.MaxRedirects > MaxRedirects {
		return fmt.Errorf("discovery.max_redirects must be between 0 and %d, got %d", MaxRedirects, d.MaxRedirects)
	}
	if d.Timeout < MinFetchTimeout || d.Timeout > MaxFetchTimeout {
		return fmt.Errorf("discovery.timeout must be between %s and %s, got %s", MinFetchTimeout, MaxFetchTimeout, d.Timeout)
	}
	if d.MaxSources < 0 || d.ItemsPerSource < 0 || d.MaxCandidates < 0 || d.DeepScrape < 0 {
		return errors.New("discovery limits must not be negative")
	}
	if d.RunTimeout > 0 && d.DeadlineMargin < d.Timeout {
		return fmt.Errorf("discovery.deadline_margin (%s) must be at least discovery.timeout (%s)", d.DeadlineMargin, d.Timeout)
	}
	if d.RequestsPerSecond < 0 {
		return fmt.Errorf("discovery.requests_per_second must not be negative, got %v", d.RequestsPerSecond)
	}

	switch c.Scoring.Mode {
	case scoring.ModeKeyword, scoring.ModeModel, scoring.ModeEmbedding:
	default:
		return fmt.Errorf("unknown scoring.mode %q", c.Scoring.Mode)
	}
	if err := c.Taxonomy.Validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("sources[%d] has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.Type.Valid() {
			return fmt.Errorf("source %q has unknown type %q", s.ID, s.Type)
		}
		if len(s.URLs) == 0 {
			return fmt.Errorf("source %q has no urls", s.ID)
		}
	}
	return nil
}

// KafkaEnabled reports whether event publishing is configured
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

// ArchiveEnabled reports whether run reports go to S3
func (c *Config) ArchiveEnabled() bool { return c.S3.Bucket != "" }

// EnabledSources counts the sources a run would crawl
func (c *Config) EnabledSources() int {
	n := 0
	for _, s := range c.Sources {
		if s.Enabled {
			n++
		}
	}
	return n
}
