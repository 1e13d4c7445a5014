package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/crawler"
	"grantbot/deduplication"
	"grantbot/scoring"
	"grantbot/storage"
	"grantbot/types"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeCrawler struct {
	mu      sync.Mutex
	items   map[string][]types.Item
	errs    map[string]error
	panics  map[string]bool
	hang    map[string]bool
	details map[string]*crawler.Detail
	block   chan struct{}
	crawled []string
	fetched []string
}

func newFakeCrawler() *fakeCrawler {
	return &fakeCrawler{
		items:   map[string][]types.Item{},
		errs:    map[string]error{},
		panics:  map[string]bool{},
		hang:    map[string]bool{},
		details: map[string]*crawler.Detail{},
	}
}

func (f *fakeCrawler) Crawl(ctx context.Context, src types.Source) ([]types.Item, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.crawled = append(f.crawled, src.ID)
	f.mu.Unlock()
	if f.panics[src.ID] {
		panic("boom")
	}
	if f.hang[src.ID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[src.ID]; err != nil {
		return nil, err
	}
	var out []types.Item
	for _, it := range f.items[src.ID] {
		it.SourceID = src.ID
		it.SourceName = src.Name
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeCrawler) FetchDetail(ctx context.Context, sourceID, rawURL string) (*crawler.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, rawURL)
	d, ok := f.details[rawURL]
	if !ok {
		return nil, &crawler.FetchError{SourceID: sourceID, URL: rawURL, Kind: crawler.KindHTTPStatus, StatusCode: 404, Err: errors.New("not found")}
	}
	return d, nil
}

type fakePublisher struct {
	candidates []types.Candidate
	changes    []types.ChangeRecord
}

func (p *fakePublisher) PublishCandidates(_ context.Context, c []types.Candidate) error {
	p.candidates = append(p.candidates, c...)
	return nil
}

func (p *fakePublisher) PublishChanges(_ context.Context, r []types.ChangeRecord) error {
	p.changes = append(p.changes, r...)
	return errors.New("broker down")
}

type fakeArchiver struct{ reports []types.RunReport }

func (a *fakeArchiver) ArchiveRun(_ context.Context, r types.RunReport, _ []types.Candidate) error {
	a.reports = append(a.reports, r)
	return nil
}

type failingStore struct {
	*storage.MemoryStore
	failKnown, failUpsert, failReport, failAppend bool

	// honourCtx makes writes fail on a done context like a network store
	honourCtx bool
}

func (s *failingStore) AppendChangeRecord(ctx context.Context, rec types.ChangeRecord) error {
	if s.failAppend {
		return errors.New("disk full")
	}
	return s.MemoryStore.AppendChangeRecord(ctx, rec)
}

func (s *failingStore) ListKnownIDs(ctx context.Context) ([]string, error) {
	if s.failKnown {
		return nil, errors.New("db locked")
	}
	return s.MemoryStore.ListKnownIDs(ctx)
}

func (s *failingStore) UpsertCandidate(ctx context.Context, c types.Candidate) error {
	if s.failUpsert {
		return errors.New("disk full")
	}
	if s.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	return s.MemoryStore.UpsertCandidate(ctx, c)
}

func (s *failingStore) AppendRunReport(ctx context.Context, r types.RunReport) error {
	if s.failReport {
		return errors.New("disk full")
	}
	if s.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	return s.MemoryStore.AppendRunReport(ctx, r)
}

type erroringScorer struct{}

func (erroringScorer) Name() string { return "broken" }
func (erroringScorer) Score(context.Context, scoring.Input) (scoring.Result, error) {
	return scoring.Result{}, errors.New("quota exceeded")
}

func testTaxonomy() scoring.Taxonomy {
	return scoring.Taxonomy{
		Categories: []scoring.Category{
			{Name: "core", Role: scoring.RolePrimary, Weight: 3, Terms: []string{"cacao", "indigenous"}},
			{Name: "place", Role: scoring.RoleGeographic, Weight: 1, Terms: []string{"peru"}},
		},
	}
}

func testConfig() Config {
	return Config{
		Concurrency:       2,
		BatchDelay:        time.Millisecond,
		MinRelevanceScore: 6,
		DetailDelay:       time.Millisecond,
		ChangeDelay:       time.Millisecond,
	}
}

func sources(n int) []types.Source {
	out := make([]types.Source, n)
	for i := range out {
		out[i] = types.Source{ID: fmt.Sprintf("s%d", i+1), Name: fmt.Sprintf("Source %d", i+1), URLs: []string{"https://example.org"}, Type: types.SourceScrape, Enabled: true}
	}
	return out
}

func newTestOrchestrator(t *testing.T, cfg Config, srcs []types.Source, c SourceCrawler, store storage.Store, opts ...Option) *Orchestrator {
	t.Helper()
	scorer, err := scoring.NewKeywordScorer(testTaxonomy(), cfg.MinRelevanceScore, scoring.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(cfg, srcs, c, scorer, store, nil, opts...)
}

func relevantItem(id string) types.Item {
	return types.Item{Title: "Cacao grant for Indigenous growers " + id, URL: "https://example.org/" + id}
}

func TestRunBatchIsolation(t *testing.T) {
	fc := newFakeCrawler()
	for _, id := range []string{"s1", "s2", "s4", "s5"} {
		fc.items[id] = []types.Item{relevantItem(id)}
	}
	fc.errs["s3"] = &crawler.FetchError{SourceID: "s3", URL: "https://example.org", Kind: crawler.KindTimeout, Err: context.DeadlineExceeded}

	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, testConfig(), sources(5), fc, store)

	report, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.RunCompletedWithErrors, report.State)
	assert.Equal(t, 5, report.SourcesAttempted)
	assert.Equal(t, 4, report.SourcesSucceeded)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "s3", report.Errors[0].SourceID)
	assert.Equal(t, "timeout", report.Errors[0].Kind)
	assert.Equal(t, "https://example.org", report.Errors[0].URL)

	require.Len(t, candidates, 4)
	got := map[string]bool{}
	for _, c := range candidates {
		got[c.SourceID] = true
		assert.Equal(t, types.CandidateNew, c.Status)
	}
	assert.Equal(t, map[string]bool{"s1": true, "s2": true, "s4": true, "s5": true}, got)

	latest, err := store.LatestRunReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)

	stored, err := store.ListCandidates(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestRunIsolatesPanics(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a")}
	fc.panics["s2"] = true

	o := newTestOrchestrator(t, testConfig(), sources(2), fc, storage.NewMemoryStore())
	report, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "internal", report.Errors[0].Kind)
	assert.Contains(t, report.Errors[0].Message, "boom")
	assert.Len(t, candidates, 1)
}

func TestRunThresholdSortAndCap(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{
		{Title: "Cacao and indigenous knowledge in Peru", URL: "https://example.org/best"},
		{Title: "Cacao only", URL: "https://example.org/low"},
		{Title: "Indigenous cacao fund", URL: "https://example.org/mid"},
		{Title: "Annual gala dinner", URL: "https://example.org/none"},
	}
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, sources(1), fc, storage.NewMemoryStore())

	report, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.RunCompleted, report.State)
	assert.Equal(t, 4, report.CandidatesFound)
	assert.Equal(t, 2, report.CandidatesRelevant)
	require.Len(t, candidates, 2)
	assert.Equal(t, "https://example.org/best", candidates[0].URL)
	assert.Equal(t, 7, candidates[0].Score)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Score, cfg.MinRelevanceScore)
		assert.Equal(t, deduplication.CandidateID(c.SourceID, c.Title, c.URL), c.ID)
	}

	cfg.MaxCandidates = 1
	o = newTestOrchestrator(t, cfg, sources(1), fc, storage.NewMemoryStore())
	_, candidates, err = o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://example.org/best", candidates[0].URL)
}

func TestRunDeduplicatesAcrossRuns(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a"), relevantItem("a"), relevantItem("b")}
	store := storage.NewMemoryStore()
	o := newTestOrchestrator(t, testConfig(), sources(1), fc, store)

	report, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Equal(t, 2, report.CandidatesNew)

	report, candidates, err = o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, types.RunCompleted, report.State)
	assert.Equal(t, 0, report.CandidatesNew)
	assert.Equal(t, 3, report.CandidatesRelevant)
}

func TestRunDeepScrape(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{
		{Title: "Cacao heritage call", URL: "https://example.org/heritage"},
		{Title: "Cacao seed call", URL: "https://example.org/seed"},
	}
	fc.details["https://example.org/heritage"] = &crawler.Detail{
		URL:     "https://example.org/heritage",
		Excerpt: "Support for indigenous cacao keepers.",
		Text:    "Support for indigenous cacao keepers in Peru. Deadline: 15 March 2026. Grants up to €50,000.",
	}
	cfg := testConfig()
	cfg.DeepScrape = 5
	o := newTestOrchestrator(t, cfg, sources(1), fc, storage.NewMemoryStore())

	_, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "https://example.org/heritage", c.URL)
	assert.Equal(t, "Cacao heritage call", c.Title)
	assert.Equal(t, "15 March 2026", c.Deadline)
	assert.Contains(t, c.Amount, "50,000")
	assert.Equal(t, "Support for indigenous cacao keepers.", c.Excerpt)
	assert.GreaterOrEqual(t, c.Score, 7)
	assert.ElementsMatch(t, []string{"cacao", "indigenous"}, c.MatchedTerms["core"])

	// the seed page 404s: logged, quick score kept, below threshold
	assert.ElementsMatch(t, []string{"https://example.org/heritage", "https://example.org/seed"}, fc.fetched)
}

func TestRunDeepScrapeSkipsLowAndKnown(t *testing.T) {
	fc := newFakeCrawler()
	known := relevantItem("known")
	fc.items["s1"] = []types.Item{known, {Title: "Annual gala dinner", URL: "https://example.org/gala"}}

	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertCandidate(context.Background(), types.Candidate{ID: deduplication.CandidateID("s1", known.Title, known.URL)}))

	cfg := testConfig()
	cfg.DeepScrape = 5
	o := newTestOrchestrator(t, cfg, sources(1), fc, store)
	_, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, fc.fetched)
}

func TestRunScorerErrorsCountAsZero(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a")}
	o := New(testConfig(), sources(1), fc, erroringScorer{}, storage.NewMemoryStore(), nil)

	report, candidates, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, 1, report.CandidatesFound)
	assert.Equal(t, 0, report.CandidatesRelevant)
}

func TestRunPersistenceFailure(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a")}
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failUpsert: true}
	o := newTestOrchestrator(t, testConfig(), sources(1), fc, store)

	report, _, err := o.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, types.RunFailed, report.State)
	assert.NotEmpty(t, report.Error)

	// the report is still on record
	latest, err := store.LatestRunReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, latest.State)

	status := o.State().GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, types.RunFailed, status.State)
	assert.NotEmpty(t, status.Error)
}

func TestRunReportWriteFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failReport: true}
	o := newTestOrchestrator(t, testConfig(), sources(1), newFakeCrawler(), store)

	report, _, err := o.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrReportWrite)
	assert.Equal(t, types.RunFailed, report.State)
}

func TestRunKnownIDReadFailure(t *testing.T) {
	fc := newFakeCrawler()
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failKnown: true}
	o := newTestOrchestrator(t, testConfig(), sources(2), fc, store)

	report, _, err := o.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, types.RunFailed, report.State)
	assert.Equal(t, 0, report.SourcesAttempted)
	assert.Empty(t, fc.crawled)
}

func TestRunInvalidConfig(t *testing.T) {
	srcs := sources(2)
	srcs[1].ID = srcs[0].ID
	o := newTestOrchestrator(t, testConfig(), srcs, newFakeCrawler(), storage.NewMemoryStore())

	report, _, err := o.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, types.RunFailed, report.State)
}

func TestRunMaxSourcesAndDisabled(t *testing.T) {
	fc := newFakeCrawler()
	srcs := sources(5)
	srcs[0].Enabled = false
	o := newTestOrchestrator(t, testConfig(), srcs, fc, storage.NewMemoryStore())

	report, _, err := o.Run(context.Background(), RunOptions{MaxSources: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, report.SourcesAttempted)
	assert.Equal(t, 1, report.SourcesSkipped)
	assert.ElementsMatch(t, []string{"s2", "s3", "s4"}, fc.crawled)
}

func TestRunStopsNearDeadline(t *testing.T) {
	fc := newFakeCrawler()
	cfg := testConfig()
	cfg.RunTimeout = time.Second
	cfg.DeadlineMargin = 2 * time.Second
	o := newTestOrchestrator(t, cfg, sources(3), fc, storage.NewMemoryStore())

	report, _, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.SourcesAttempted)
	assert.Equal(t, 3, report.SourcesSkipped)
	assert.Equal(t, types.RunCompleted, report.State)
}

func TestRunDeadlineCutsOffBatch(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a")}
	fc.hang["s2"] = true
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), honourCtx: true}
	cfg := testConfig()
	cfg.RunTimeout = 200 * time.Millisecond
	cfg.DeadlineMargin = time.Millisecond
	o := newTestOrchestrator(t, cfg, sources(2), fc, store)

	report, out, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.RunCompletedWithErrors, report.State)
	assert.Equal(t, 2, report.SourcesAttempted)
	assert.Equal(t, 1, report.SourcesSucceeded)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "s2", report.Errors[0].SourceID)
	assert.Equal(t, string(crawler.KindTimeout), report.Errors[0].Kind)

	require.Len(t, out, 1)
	stored, err := store.GetCandidate(context.Background(), out[0].ID)
	require.NoError(t, err)
	assert.Equal(t, out[0].Title, stored.Title)

	latest, err := store.LatestRunReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&crawler.FetchError{Kind: crawler.KindHTTPStatus, Err: errors.New("503")}, "http_status"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("crawl: %w", context.Canceled), "timeout"},
		{errors.New("crawler panic: boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err), tt.err.Error())
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	fc := newFakeCrawler()
	fc.block = make(chan struct{})
	o := newTestOrchestrator(t, testConfig(), sources(1), fc, storage.NewMemoryStore())

	done := make(chan error, 1)
	go func() {
		_, _, err := o.Run(context.Background(), RunOptions{})
		done <- err
	}()
	require.Eventually(t, o.State().IsRunning, time.Second, 5*time.Millisecond)

	_, _, err := o.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(fc.block)
	require.NoError(t, <-done)
	assert.False(t, o.State().IsRunning())
}

func TestRunPublishesAndArchives(t *testing.T) {
	fc := newFakeCrawler()
	fc.items["s1"] = []types.Item{relevantItem("a")}
	pub := &fakePublisher{}
	arc := &fakeArchiver{}
	o := newTestOrchestrator(t, testConfig(), sources(1), fc, storage.NewMemoryStore(), WithPublisher(pub), WithArchiver(arc))

	report, _, err := o.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Len(t, pub.candidates, 1)
	require.Len(t, arc.reports, 1)
	assert.Equal(t, report.ID, arc.reports[0].ID)
	assert.Equal(t, types.RunCompleted, arc.reports[0].State)
}

func TestCheckForChanges(t *testing.T) {
	fc := newFakeCrawler()
	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	o := newTestOrchestrator(t, testConfig(), nil, fc, store, WithPublisher(pub))
	ctx := context.Background()

	item, err := o.TrackURL(ctx, "https://example.org/grant", "Seed grant")
	require.NoError(t, err)
	again, err := o.TrackURL(ctx, "https://example.org/grant/", "")
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID)

	fc.details["https://example.org/grant"] = &crawler.Detail{Text: "Deadline: 1 May 2026. Grants up to €5,000."}
	recs, err := o.CheckAllTracked(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	stored, err := store.GetTrackedItem(ctx, item.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ContentHash)
	assert.Equal(t, "1 May 2026", stored.Snapshot.Deadline)
	assert.True(t, fixedNow.Equal(stored.LastChecked))

	// unchanged page
	recs, err = o.CheckAllTracked(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	fc.details["https://example.org/grant"] = &crawler.Detail{Text: "Deadline: 15 May 2026. Grants up to €5,000. Applications are now closed."}
	recs, err = o.CheckAllTracked(ctx)
	require.NoError(t, err)

	fields := map[string]types.ChangeRecord{}
	for _, r := range recs {
		fields[r.Field] = r
	}
	assert.Len(t, recs, 3)
	assert.Contains(t, fields, types.FieldPageContent)
	assert.Equal(t, "15 May 2026", fields[types.FieldDeadline].NewValue)
	assert.Equal(t, "closed", fields[types.FieldStatus].NewValue)
	assert.Len(t, pub.changes, 3)

	stored, err = store.GetTrackedItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TrackedClosed, stored.Status)

	history, err := store.ListChangeRecords(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestCheckForChangesKeepsSnapshotWhenRecordsFail(t *testing.T) {
	fc := newFakeCrawler()
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	o := newTestOrchestrator(t, testConfig(), nil, fc, store)
	ctx := context.Background()

	item, err := o.TrackURL(ctx, "https://example.org/grant", "Seed grant")
	require.NoError(t, err)
	fc.details["https://example.org/grant"] = &crawler.Detail{Text: "Deadline: 1 May 2026."}
	_, err = o.CheckAllTracked(ctx)
	require.NoError(t, err)
	baseline, err := store.GetTrackedItem(ctx, item.ID)
	require.NoError(t, err)

	fc.details["https://example.org/grant"] = &crawler.Detail{Text: "Deadline: 15 May 2026."}
	store.failAppend = true
	recs, err := o.CheckAllTracked(ctx)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, recs)

	kept, err := store.GetTrackedItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, baseline.ContentHash, kept.ContentHash)
	assert.Equal(t, "1 May 2026", kept.Snapshot.Deadline)
	assert.True(t, kept.LastChanged.IsZero())

	store.failAppend = false
	recs, err = o.CheckAllTracked(ctx)
	require.NoError(t, err)
	fields := map[string]string{}
	for _, r := range recs {
		fields[r.Field] = r.NewValue
	}
	assert.Equal(t, "15 May 2026", fields[types.FieldDeadline])
	assert.Contains(t, fields, types.FieldPageContent)

	history, err := store.ListChangeRecords(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, len(recs))
	updated, err := store.GetTrackedItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(updated.LastChanged))
	assert.Equal(t, "15 May 2026", updated.Snapshot.Deadline)
}

func TestCheckForChangesSkipsFetchFailures(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), nil, newFakeCrawler(), storage.NewMemoryStore())
	recs, err := o.CheckForChanges(context.Background(), []types.TrackedItem{{ID: "x", URL: "https://gone.example.org"}})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestExpireCandidates(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, c := range []types.Candidate{
		{ID: "past", Deadline: "15 February 2026", Status: types.CandidateNew},
		{ID: "today", Deadline: "1 March 2026", Status: types.CandidateNew},
		{ID: "future", Deadline: "1 May 2026", Status: types.CandidateNew},
		{ID: "rolling", Deadline: "rolling", Status: types.CandidateNew},
		{ID: "reviewed", Deadline: "1 January 2026", Status: types.CandidateReviewed},
	} {
		require.NoError(t, store.UpsertCandidate(ctx, c))
	}

	o := newTestOrchestrator(t, testConfig(), nil, newFakeCrawler(), store)
	n, err := o.ExpireCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := store.GetCandidate(ctx, "past")
	require.NoError(t, err)
	assert.Equal(t, types.CandidateExpired, c.Status)
	c, err = store.GetCandidate(ctx, "reviewed")
	require.NoError(t, err)
	assert.Equal(t, types.CandidateReviewed, c.Status)
}

func TestSetCandidateStatusAddedStartsTracking(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertCandidate(ctx, types.Candidate{ID: "c1", Title: "Seed", URL: "https://example.org/seed"}))
	o := newTestOrchestrator(t, testConfig(), nil, newFakeCrawler(), store)

	_, err := o.SetCandidateStatus(ctx, "c1", "bogus")
	assert.Error(t, err)
	_, err = o.SetCandidateStatus(ctx, "missing", types.CandidateReviewed)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	c, err := o.SetCandidateStatus(ctx, "c1", types.CandidateAdded)
	require.NoError(t, err)
	assert.Equal(t, types.CandidateAdded, c.Status)

	item, err := store.GetTrackedItem(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/seed", item.URL)
	assert.Equal(t, types.TrackedOpen, item.Status)
}

func TestManagerLogRingBuffer(t *testing.T) {
	m := NewManager()
	for i := 0; i < 60; i++ {
		m.AddLog(fmt.Sprintf("line %d", i))
	}
	status := m.GetStatus()
	require.Len(t, status.Logs, 50)
	assert.Equal(t, "line 10", status.Logs[0].Message)
	assert.Equal(t, "line 59", status.Logs[49].Message)
	assert.Equal(t, types.RunPending, status.State)

	require.NoError(t, m.Begin("r1"))
	assert.ErrorIs(t, m.Begin("r2"), ErrAlreadyRunning)
	m.Finish(types.RunReport{ID: "r1", State: types.RunCompleted}, nil)
	status = m.GetStatus()
	assert.False(t, status.Running)
	require.NotNil(t, status.LastReport)
	assert.Equal(t, "r1", status.LastReport.ID)
}
