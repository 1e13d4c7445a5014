package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRedirects = 5
	DefaultMaxBodyBytes = 5 << 20
	DefaultUserAgent    = "Mozilla/5.0 (compatible; GrantBot/1.0; +https://github.com/grantbot/grantbot)"
)

// FetcherConfig configures the shared HTTP fetcher
type FetcherConfig struct {
	Timeout           time.Duration
	MaxRedirects      int
	UserAgent         string
	RequestsPerSecond float64 // 0 disables pacing
	MaxBodyBytes      int64
}

// Page is a fetched response body
type Page struct {
	URL         *url.URL // after redirects
	ContentType string
	Body        []byte
}

// Fetcher performs bounded GET requests
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	maxBody   int64
}

// NewFetcher builds a fetcher with timeout, redirect cap and optional pacing
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg = applyFetcherDefaults(cfg)

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Fetcher{client: client, userAgent: cfg.UserAgent, limiter: limiter, maxBody: cfg.MaxBodyBytes}
}

// Fetch GETs rawURL. Every failure is a *FetchError tagged with sourceID.
func (f *Fetcher) Fetch(ctx context.Context, sourceID, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("unsupported url %q", rawURL)
		}
		return nil, &FetchError{SourceID: sourceID, URL: rawURL, Kind: KindConfig, Err: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{SourceID: sourceID, URL: rawURL, Kind: classify(err), Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, URL: rawURL, Kind: KindConfig, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, URL: rawURL, Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			SourceID:   sourceID,
			URL:        rawURL,
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, URL: rawURL, Kind: classify(err), Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &Page{URL: resp.Request.URL, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

func applyFetcherDefaults(cfg FetcherConfig) FetcherConfig {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return cfg
}
