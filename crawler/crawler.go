package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"grantbot/links"
	"grantbot/types"
)

const DefaultMaxItemsPerSource = 20

// Config configures a Crawler
type Config struct {
	Fetcher           FetcherConfig
	MaxItemsPerSource int
}

// Crawler fetches one source and turns its payload into uniform items
type Crawler struct {
	fetcher    *Fetcher
	classifier *links.Classifier
	maxItems   int
	logger     *zap.Logger
}

// New creates a crawler. classifier ranks links on scraped pages.
func New(cfg Config, classifier *links.Classifier, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = links.NewClassifier(nil, nil, links.Weights{})
	}
	maxItems := cfg.MaxItemsPerSource
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerSource
	}
	return &Crawler{
		fetcher:    NewFetcher(cfg.Fetcher),
		classifier: classifier,
		maxItems:   maxItems,
		logger:     logger,
	}
}

// Crawl fetches every URL of src and parses each payload per src.Type.
// A source fails only when none of its URLs could be fetched and parsed;
// the returned error is then the first *FetchError seen.
func (c *Crawler) Crawl(ctx context.Context, src types.Source) ([]types.Item, error) {
	if !src.Type.Valid() {
		return nil, &FetchError{SourceID: src.ID, Kind: KindConfig, Err: fmt.Errorf("unknown source type %q", src.Type)}
	}
	if len(src.URLs) == 0 {
		return nil, &FetchError{SourceID: src.ID, Kind: KindConfig, Err: errors.New("source has no urls")}
	}

	var (
		items    []types.Item
		firstErr error
		ok       int
	)
	for _, rawURL := range src.URLs {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = &FetchError{SourceID: src.ID, URL: rawURL, Kind: classify(err), Err: err}
			}
			break
		}

		got, err := c.crawlURL(ctx, src, rawURL)
		if err != nil {
			c.logger.Warn("Source URL failed", zap.String("source_id", src.ID), zap.String("url", rawURL), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok++
		items = append(items, got...)
	}

	if ok == 0 {
		return nil, firstErr
	}
	if len(items) > c.maxItems {
		items = items[:c.maxItems]
	}
	return items, nil
}

func (c *Crawler) crawlURL(ctx context.Context, src types.Source, rawURL string) ([]types.Item, error) {
	page, err := c.fetcher.Fetch(ctx, src.ID, rawURL)
	if err != nil {
		return nil, err
	}

	var items []types.Item
	switch src.Type {
	case types.SourceRSS:
		items, err = parseFeed(page.Body)
	case types.SourceAPI:
		items, err = parseAPI(page.Body)
	default:
		items, err = c.parseScrape(page)
	}
	if err != nil {
		return nil, &FetchError{SourceID: src.ID, URL: rawURL, Kind: KindParse, Err: err}
	}

	for i := range items {
		items[i].SourceID = src.ID
		items[i].SourceName = src.Name
		items[i].Region = src.Region
	}
	return items, nil
}
