package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"grantbot/crawler"
	"grantbot/metrics"
	"grantbot/scoring"
	"grantbot/storage"
	"grantbot/types"
)

const (
	DefaultConcurrency       = 4
	DefaultBatchDelay        = 750 * time.Millisecond
	DefaultMinRelevanceScore = 7
	DefaultItemsPerSource    = 20
	DefaultDeepScrape        = 10
	DefaultDetailDelay       = 500 * time.Millisecond
	DefaultDeadlineMargin    = 30 * time.Second
	DefaultChangeDelay       = 500 * time.Millisecond
)

// Config controls one discovery run
type Config struct {
	MaxSources             int           // 0 means all enabled sources
	MaxCandidatesPerSource int           // items kept from one source
	Concurrency            int           // sources fetched in parallel per batch
	BatchDelay             time.Duration // pause between batches
	MinRelevanceScore      int
	MaxCandidates          int           // output cap, 0 means unlimited
	DeepScrape             int           // detail pages fetched per run, 0 disables
	DetailDelay            time.Duration // pause between detail fetches
	RunTimeout             time.Duration // 0 means no run deadline
	DeadlineMargin         time.Duration // stop starting batches this close to the deadline
	ChangeDelay            time.Duration // pause between tracked item checks
}

// SourceCrawler is the crawling collaborator
type SourceCrawler interface {
	Crawl(ctx context.Context, src types.Source) ([]types.Item, error)
	FetchDetail(ctx context.Context, sourceID, rawURL string) (*crawler.Detail, error)
}

// Publisher hands results to downstream consumers
type Publisher interface {
	PublishCandidates(ctx context.Context, candidates []types.Candidate) error
	PublishChanges(ctx context.Context, records []types.ChangeRecord) error
}

// Archiver keeps a durable copy of each run
type Archiver interface {
	ArchiveRun(ctx context.Context, report types.RunReport, candidates []types.Candidate) error
}

// Orchestrator drives discovery runs and change checks
type Orchestrator struct {
	cfg       Config
	sources   []types.Source
	crawler   SourceCrawler
	scorer    scoring.Scorer
	store     storage.Store
	publisher Publisher
	archiver  Archiver
	metrics   *metrics.Metrics
	state     *Manager
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures optional collaborators
type Option func(*Orchestrator)

func WithPublisher(p Publisher) Option { return func(o *Orchestrator) { o.publisher = p } }

func WithArchiver(a Archiver) Option { return func(o *Orchestrator) { o.archiver = a } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithState(m *Manager) Option { return func(o *Orchestrator) { o.state = m } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New builds an orchestrator over the given sources
func New(cfg Config, sources []types.Source, c SourceCrawler, scorer scoring.Scorer, store storage.Store, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:     applyConfigDefaults(cfg),
		sources: sources,
		crawler: c,
		scorer:  scorer,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.state == nil {
		o.state = NewManager()
	}
	return o
}

// State exposes the run state manager
func (o *Orchestrator) State() *Manager { return o.state }

// Sources returns the configured sources
func (o *Orchestrator) Sources() []types.Source { return o.sources }

// Scorer returns the relevance scorer in use
func (o *Orchestrator) Scorer() scoring.Scorer { return o.scorer }

// Store returns the persistence collaborator
func (o *Orchestrator) Store() storage.Store { return o.store }

func applyConfigDefaults(cfg Config) Config {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.MinRelevanceScore == 0 {
		cfg.MinRelevanceScore = DefaultMinRelevanceScore
	}
	if cfg.MaxCandidatesPerSource == 0 {
		cfg.MaxCandidatesPerSource = DefaultItemsPerSource
	}
	if cfg.DetailDelay == 0 {
		cfg.DetailDelay = DefaultDetailDelay
	}
	if cfg.DeadlineMargin == 0 {
		cfg.DeadlineMargin = DefaultDeadlineMargin
	}
	if cfg.ChangeDelay == 0 {
		cfg.ChangeDelay = DefaultChangeDelay
	}
	return cfg
}

// logf writes to the structured log and the status ring buffer
func (o *Orchestrator) logf(msg string, fields ...zap.Field) {
	o.logger.Info(msg, fields...)
	o.state.AddLog(msg)
}

// sleep waits d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
