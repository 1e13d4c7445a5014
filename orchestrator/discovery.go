package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grantbot/crawler"
	"grantbot/deduplication"
	"grantbot/extract"
	"grantbot/scoring"
	"grantbot/storage"
	"grantbot/types"
)

// RunOptions override Config for a single run
type RunOptions struct {
	MaxSources  int
	RequestedBy string
}

// sourceResult is what one source produced in a batch
type sourceResult struct {
	source types.Source
	items  []types.Item
	err    error
}

// Run executes a single discovery run: crawl enabled sources in batches,
// score, deep scrape the best, threshold, deduplicate, sort, cap, persist.
// The returned report is always populated, even on error.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (types.RunReport, []types.Candidate, error) {
	report := types.RunReport{
		ID:        uuid.NewString(),
		State:     types.RunPending,
		Errors:    []types.SourceError{},
		StartedAt: o.now(),
	}
	if err := o.state.Begin(report.ID); err != nil {
		return report, nil, err
	}
	o.metrics.RunStarted()

	candidates, err := o.run(ctx, &report, opts)

	report.CompletedAt = o.now()
	if err != nil && !errors.Is(err, ErrReportWrite) {
		report.State = types.RunFailed
		report.Error = err.Error()
		// best effort so the run is still on record
		if werr := o.store.AppendRunReport(context.WithoutCancel(ctx), report); werr != nil {
			o.logger.Error("Failed to write run report", zap.String("run_id", report.ID), zap.Error(werr))
		}
	}

	o.metrics.RunFinished(string(report.State), report.Duration())
	o.state.Finish(report, err)
	for _, line := range summaryLines(report) {
		o.state.AddLog(line)
	}
	return report, candidates, err
}

func (o *Orchestrator) run(ctx context.Context, report *types.RunReport, opts RunOptions) ([]types.Candidate, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	known, err := o.store.ListKnownIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list known ids: %v", ErrPersistence, err)
	}
	dedup := deduplication.NewDeduplicator(known)

	// crawling and deep scrape stop at the run deadline; scoring and writes
	// of what was collected outlive it
	crawlCtx := ctx
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}
	writeCtx := context.WithoutCancel(ctx)

	report.State = types.RunRunning
	o.state.SetState(types.RunRunning)

	sources := o.selectSources(opts.MaxSources, report)
	o.logf(fmt.Sprintf("Crawling %d source(s) in batches of %d", len(sources), o.cfg.Concurrency),
		zap.String("run_id", report.ID), zap.String("requested_by", opts.RequestedBy))

	results := o.crawlBatches(crawlCtx, sources, report)

	// single-threaded fan-in from here on
	var scored []types.Candidate
	for _, res := range results {
		if res.err != nil {
			report.Errors = append(report.Errors, sourceError(res.source.ID, res.err))
			continue
		}
		report.SourcesSucceeded++
		items := res.items
		if len(items) > o.cfg.MaxCandidatesPerSource {
			items = items[:o.cfg.MaxCandidatesPerSource]
		}
		for _, it := range items {
			scored = append(scored, o.quickScore(ctx, it))
		}
	}
	report.CandidatesFound = len(scored)
	o.metrics.Candidates("found", len(scored))

	storage.SortCandidates(scored)
	o.deepScrape(crawlCtx, scored, dedup)

	relevant := scored[:0]
	for _, c := range scored {
		if c.Score >= o.cfg.MinRelevanceScore {
			relevant = append(relevant, c)
		}
	}
	report.CandidatesRelevant = len(relevant)
	o.metrics.Candidates("relevant", len(relevant))

	storage.SortCandidates(relevant)
	filtered := dedup.Filter(relevant)
	out := filtered.Fresh
	if o.cfg.MaxCandidates > 0 && len(out) > o.cfg.MaxCandidates {
		out = out[:o.cfg.MaxCandidates]
	}
	report.CandidatesNew = len(out)
	o.metrics.Candidates("new", len(out))

	if err := o.persist(writeCtx, out); err != nil {
		return out, err
	}

	if len(report.Errors) > 0 {
		report.State = types.RunCompletedWithErrors
	} else {
		report.State = types.RunCompleted
	}
	report.CompletedAt = o.now()

	if o.publisher != nil && len(out) > 0 {
		if err := o.publisher.PublishCandidates(writeCtx, out); err != nil {
			o.logger.Warn("Failed to publish candidates", zap.String("run_id", report.ID), zap.Error(err))
		}
	}
	if o.archiver != nil {
		if err := o.archiver.ArchiveRun(writeCtx, *report, out); err != nil {
			o.logger.Warn("Failed to archive run", zap.String("run_id", report.ID), zap.Error(err))
		}
	}

	if err := o.store.AppendRunReport(writeCtx, *report); err != nil {
		report.State = types.RunFailed
		report.Error = err.Error()
		return out, fmt.Errorf("%w: %v", ErrReportWrite, err)
	}

	for _, line := range summaryLines(*report) {
		o.logger.Info(line)
	}
	return out, nil
}

func (o *Orchestrator) validate() error {
	if o.cfg.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if o.crawler == nil || o.scorer == nil || o.store == nil {
		return fmt.Errorf("%w: crawler, scorer and store are required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(o.sources))
	for _, s := range o.sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source without id", ErrInvalidConfig)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// selectSources returns enabled sources capped at max
func (o *Orchestrator) selectSources(max int, report *types.RunReport) []types.Source {
	if max <= 0 {
		max = o.cfg.MaxSources
	}
	var enabled []types.Source
	for _, s := range o.sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	if max > 0 && len(enabled) > max {
		report.SourcesSkipped = len(enabled) - max
		enabled = enabled[:max]
	}
	return enabled
}

// crawlBatches fetches sources in sequential batches. Each source's failure
// is contained; results keep source order regardless of completion order.
func (o *Orchestrator) crawlBatches(ctx context.Context, sources []types.Source, report *types.RunReport) []sourceResult {
	results := make([]sourceResult, 0, len(sources))
	size := o.cfg.Concurrency

	for start := 0; start < len(sources); start += size {
		if start > 0 {
			if err := sleep(ctx, o.cfg.BatchDelay); err != nil {
				report.SourcesSkipped += len(sources) - start
				o.logf("Run cancelled, skipping remaining sources", zap.Error(err))
				break
			}
		}
		if o.nearDeadline(ctx) {
			report.SourcesSkipped += len(sources) - start
			o.logf(fmt.Sprintf("Run deadline near, skipping %d remaining source(s)", len(sources)-start))
			break
		}

		end := min(start+size, len(sources))
		batch := make([]sourceResult, end-start)

		// every source runs to completion; Wait reports the first failure
		var g errgroup.Group
		for i, src := range sources[start:end] {
			batch[i].source = src
			g.Go(func() error {
				batch[i].items, batch[i].err = o.crawlOne(ctx, src)
				if batch[i].err != nil {
					return fmt.Errorf("source %s: %w", src.ID, batch[i].err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			o.logger.Debug("Batch finished with failures", zap.Int("batch_start", start), zap.Error(err))
		}

		for _, r := range batch {
			report.SourcesAttempted++
			if r.err != nil {
				o.metrics.SourceFetched(errorKind(r.err))
				o.logger.Warn("Source failed", zap.String("source_id", r.source.ID), zap.Error(r.err))
				o.state.AddLog(fmt.Sprintf("❌ %s: %v", r.source.ID, r.err))
				continue
			}
			o.metrics.SourceFetched("ok")
			o.state.AddLog(fmt.Sprintf("✅ %s: %d item(s)", r.source.ID, len(r.items)))
		}
		results = append(results, batch...)
	}
	return results
}

// crawlOne isolates a single source, panics included
func (o *Orchestrator) crawlOne(ctx context.Context, src types.Source) (items []types.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("crawler panic: %v", r)
		}
	}()
	return o.crawler.Crawl(ctx, src)
}

func (o *Orchestrator) nearDeadline(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return time.Until(deadline) < o.cfg.DeadlineMargin
}

// quickScore turns an item into a scored candidate from its listing text
func (o *Orchestrator) quickScore(ctx context.Context, it types.Item) types.Candidate {
	text := it.Text
	if !strings.Contains(text, it.Title) {
		text = strings.TrimSpace(it.Title + " " + text)
	}
	fields := extract.Extract(text)

	c := types.Candidate{
		ID:           deduplication.CandidateID(it.SourceID, it.Title, it.URL),
		Title:        it.Title,
		URL:          it.URL,
		SourceID:     it.SourceID,
		SourceName:   it.SourceName,
		Region:       it.Region,
		DiscoveredAt: o.now(),
		Status:       types.CandidateNew,
	}
	o.applyFields(&c, fields, "")
	res := o.score(ctx, c.ID, text, &fields)
	c.Score, c.MatchedTerms = res.Score, res.MatchedTerms
	return c
}

// deepScrape fetches detail pages for the best unknown candidates and
// re-scores them in place. Failures keep the quick score.
func (o *Orchestrator) deepScrape(ctx context.Context, scored []types.Candidate, dedup *deduplication.Deduplicator) {
	if o.cfg.DeepScrape <= 0 {
		return
	}
	fetched := 0
	for i := range scored {
		if fetched >= o.cfg.DeepScrape || ctx.Err() != nil {
			return
		}
		c := &scored[i]
		if c.Score*2 < o.cfg.MinRelevanceScore || dedup.Seen(c.ID) || c.URL == "" {
			continue
		}
		if fetched > 0 {
			if err := sleep(ctx, o.cfg.DetailDelay); err != nil {
				return
			}
		}
		fetched++

		detail, err := o.crawler.FetchDetail(ctx, c.SourceID, c.URL)
		if err != nil {
			o.logger.Warn("Detail fetch failed, keeping quick score",
				zap.String("source_id", c.SourceID), zap.String("url", c.URL), zap.Error(err))
			continue
		}

		text := c.Title + " " + detail.Text
		fields := extract.Extract(detail.Text)
		o.applyFields(c, fields, detail.Excerpt)
		res := o.score(ctx, c.ID, text, &fields)
		c.Score, c.MatchedTerms = res.Score, res.MatchedTerms
	}
}

func (o *Orchestrator) applyFields(c *types.Candidate, f extract.Fields, excerpt string) {
	if f.Deadline != "" {
		c.Deadline = f.Deadline
	}
	if f.Amount != "" {
		c.Amount = f.Amount
	}
	if f.Eligibility != "" {
		c.Eligibility = f.Eligibility
	}
	switch {
	case excerpt != "":
		c.Excerpt = excerpt
	case f.Description != "":
		c.Excerpt = f.Description
	}
}

// score never fails: delegated scorer errors count as zero
func (o *Orchestrator) score(ctx context.Context, id, text string, fields *extract.Fields) scoring.Result {
	res, err := o.scorer.Score(ctx, scoring.Input{Text: text, Fields: fields})
	if err != nil {
		o.logger.Warn("Scorer failed, using zero score", zap.String("item_id", id), zap.String("scorer", o.scorer.Name()), zap.Error(err))
		return scoring.Result{MatchedTerms: map[string][]string{}}
	}
	return res
}

func (o *Orchestrator) persist(ctx context.Context, candidates []types.Candidate) error {
	var firstErr error
	for _, c := range candidates {
		if err := o.store.UpsertCandidate(ctx, c); err != nil {
			o.logger.Error("Failed to persist candidate", zap.String("item_id", c.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, firstErr)
	}
	return nil
}

func sourceError(sourceID string, err error) types.SourceError {
	se := types.SourceError{SourceID: sourceID, Kind: errorKind(err), Message: err.Error()}
	var fe *crawler.FetchError
	if errors.As(err, &fe) {
		se.URL = fe.URL
	}
	return se
}

func errorKind(err error) string {
	var fe *crawler.FetchError
	switch {
	case errors.As(err, &fe):
		return string(fe.Kind)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return string(crawler.KindTimeout)
	}
	return "internal"
}
