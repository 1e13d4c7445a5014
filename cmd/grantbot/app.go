package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"grantbot/archive"
	"grantbot/config"
	"grantbot/crawler"
	"grantbot/events"
	"grantbot/links"
	"grantbot/logging"
	"grantbot/metrics"
	"grantbot/orchestrator"
	"grantbot/scoring"
	"grantbot/storage"
	"grantbot/storage/redisstore"
	"grantbot/storage/sqlite"
)

// app holds the wired collaborators for one command invocation
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
	orch   *orchestrator.Orchestrator

	closers []io.Closer
}

// loadConfig reads config and applies the logging flag overrides
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApp loads config and wires the orchestrator with every enabled backend
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store)

	scorer, err := scoring.New(ctx, cfg.Taxonomy, scoring.Options{
		Mode:           cfg.Scoring.Mode,
		MinScore:       cfg.Discovery.MinRelevanceScore,
		GeminiAPIKey:   cfg.Scoring.GeminiAPIKey,
		GeminiModel:    cfg.Scoring.GeminiModel,
		CohereAPIKey:   cfg.Scoring.CohereAPIKey,
		CohereModel:    cfg.Scoring.CohereModel,
		Profile:        cfg.Scoring.Profile,
		EmbeddingScale: cfg.Scoring.EmbeddingScale,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	classifier := links.NewClassifier(
		cfg.Taxonomy.Terms(scoring.RolePrimary),
		cfg.Taxonomy.Terms(scoring.RoleSecondary),
		cfg.Links,
	)
	c := crawler.New(crawler.Config{
		Fetcher: crawler.FetcherConfig{
			Timeout:           cfg.Discovery.Timeout,
			MaxRedirects:      cfg.Discovery.MaxRedirects,
			UserAgent:         cfg.Discovery.UserAgent,
			RequestsPerSecond: cfg.Discovery.RequestsPerSecond,
			MaxBodyBytes:      cfg.Discovery.MaxBodyBytes,
		},
		MaxItemsPerSource: cfg.Discovery.ItemsPerSource,
	}, classifier, logger.Named("crawler"))

	opts := []orchestrator.Option{orchestrator.WithMetrics(metrics.NewMetrics())}

	if cfg.KafkaEnabled() {
		pub, err := events.NewPublisher(cfg.Kafka.Brokers, kafkaTopics(cfg), logger.Named("events"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub)
		opts = append(opts, orchestrator.WithPublisher(pub))
		logger.Info("📣 Kafka publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	if cfg.ArchiveEnabled() {
		s3c, err := archive.NewS3(ctx, cfg.S3.Bucket, archive.S3Config{
			Region:       cfg.S3.Region,
			Profile:      cfg.S3.Profile,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, orchestrator.WithArchiver(archive.NewRunArchive(s3c, cfg.S3.Prefix)))
		logger.Info("🗄️ Run archive enabled", zap.String("bucket", cfg.S3.Bucket))
	}

	a.orch = orchestrator.New(orchestratorConfig(cfg), cfg.Sources, c, scorer, store, logger.Named("orchestrator"), opts...)
	return a, nil
}

// Close releases the store and producer, then flushes the logger
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverSQLite:
		return sqlite.New(cfg.Storage.Path)
	case config.DriverRedis:
		return redisstore.New(redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	d := cfg.Discovery
	return orchestrator.Config{
		MaxSources:             d.MaxSources,
		MaxCandidatesPerSource: d.ItemsPerSource,
		Concurrency:            d.Concurrency,
		BatchDelay:             d.BatchDelay,
		MinRelevanceScore:      d.MinRelevanceScore,
		MaxCandidates:          d.MaxCandidates,
		DeepScrape:             d.DeepScrape,
		DetailDelay:            d.DetailDelay,
		RunTimeout:             d.RunTimeout,
		DeadlineMargin:         d.DeadlineMargin,
		ChangeDelay:            cfg.Changes.Delay,
	}
}

func kafkaTopics(cfg *config.Config) events.Topics {
	return events.Topics{
		Candidates: cfg.Kafka.CandidatesTopic,
		Changes:    cfg.Kafka.ChangesTopic,
		Requests:   cfg.Kafka.RequestsTopic,
	}
}

var errKafkaDisabled = errors.New("kafka is not configured: set kafka.brokers")
