package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantbot/extract"
	"grantbot/scoring"
	"grantbot/types"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Foundation news</title>
<item><title>Cacao ceremony fund opens</title><link>https://fund.example.org/cacao</link>
<description>&lt;p&gt;Support for keepers of cacao traditions.&lt;/p&gt;</description></item>
<item><title>Annual gala dinner</title><link>https://fund.example.org/gala</link>
<description>Join us for the evening.</description></item>
</channel></rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Calls</title>
<entry><title>Seed grants 2026</title><link href="https://example.org/seed"/><summary>Small grants for growers.</summary></entry>
</feed>`

func newTestCrawler(maxItems int) *Crawler {
	return New(Config{
		Fetcher:           FetcherConfig{Timeout: 2 * time.Second},
		MaxItemsPerSource: maxItems,
	}, nil, nil)
}

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlRSSFeedAndScore(t *testing.T) {
	srv := serve(t, "application/rss+xml", rssFeed)
	src := types.Source{ID: "feed", Name: "Feed", URLs: []string{srv.URL}, Region: "global", Type: types.SourceRSS, Enabled: true}

	items, err := newTestCrawler(0).Crawl(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cacao ceremony fund opens", items[0].Title)
	assert.Equal(t, "https://fund.example.org/cacao", items[0].URL)
	assert.Equal(t, "Cacao ceremony fund opens Support for keepers of cacao traditions.", items[0].Text)
	assert.Equal(t, "feed", items[0].SourceID)
	assert.Equal(t, "global", items[1].Region)

	tax := scoring.Taxonomy{Categories: []scoring.Category{
		{Name: "core", Role: scoring.RolePrimary, Weight: 3, Terms: []string{"cacao"}},
		{Name: "ritual", Role: scoring.RoleSecondary, Weight: 2, Terms: []string{"ceremony"}},
	}}
	scorer, err := scoring.NewKeywordScorer(tax, 2)
	require.NoError(t, err)

	var relevant []types.Item
	for _, it := range items {
		res, err := scorer.Score(context.Background(), scoring.Input{Text: it.Text})
		require.NoError(t, err)
		if res.IsRelevant {
			relevant = append(relevant, it)
		}
	}
	require.Len(t, relevant, 1)
	assert.Equal(t, "https://fund.example.org/cacao", relevant[0].URL)
}

func TestCrawlAtomFeed(t *testing.T) {
	srv := serve(t, "application/atom+xml", atomFeed)
	items, err := newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "atom", URLs: []string{srv.URL}, Type: types.SourceRSS})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.org/seed", items[0].URL)
	assert.Contains(t, items[0].Text, "Small grants for growers.")
}

func TestCrawlScrapeClassifiesLinks(t *testing.T) {
	page := `<html><head><title>Funding</title></head><body>
		<nav><a href="/about">About us</a></nav>
		<a href="/contact">Contact Us</a>
		<a href="/grants/2026-innovation">Apply for the 2026 Innovation Grant</a>
		<a href="/funding/seeds">Seed funding programme</a>
	</body></html>`
	srv := serve(t, "text/html", page)

	items, err := newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "s", URLs: []string{srv.URL + "/funding"}, Type: types.SourceScrape})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, srv.URL+"/grants/2026-innovation", items[0].URL)
	assert.Equal(t, "Apply for the 2026 Innovation Grant", items[0].Title)
	assert.Greater(t, items[0].LinkScore, items[1].LinkScore)
}

func TestCrawlScrapeWithoutLinksReturnsPage(t *testing.T) {
	srv := serve(t, "text/html", `<html><head><title>Cacao Grant</title></head><body><p>Deadline: 1 May 2026</p></body></html>`)
	items, err := newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "s", URLs: []string{srv.URL}, Type: types.SourceScrape})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cacao Grant", items[0].Title)
	assert.Contains(t, items[0].Text, "Deadline: 1 May 2026")
}

func TestCrawlAPIPayload(t *testing.T) {
	body := `{"data":[{"name":"Forest fund","link":"https://api.example.org/1","summary":"<b>Forests</b> and people"},{"title":"no url"}]}`
	srv := serve(t, "application/json", body)
	items, err := newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "api", URLs: []string{srv.URL}, Type: types.SourceAPI})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.Item{Title: "Forest fund", URL: "https://api.example.org/1", SourceID: "api", Text: "Forest fund Forests and people"}, items[0])

	arr := serve(t, "application/json", `[{"title":"A","url":"https://x.org/a"}]`)
	items, err = newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "api", URLs: []string{arr.URL}, Type: types.SourceAPI})
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCrawlCapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel><title>t</title>`)
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, `<item><title>Grant %d</title><link>https://x.org/%d</link></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	srv := serve(t, "application/rss+xml", b.String())

	items, err := newTestCrawler(3).Crawl(context.Background(), types.Source{ID: "f", URLs: []string{srv.URL}, Type: types.SourceRSS})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestCrawlFailures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	var loop *httptest.Server
	loop = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loop.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer loop.Close()

	badXML := serve(t, "application/rss+xml", "<<<not xml")

	cases := []struct {
		name   string
		src    types.Source
		kind   ErrorKind
		status int
	}{
		{"http status", types.Source{ID: "a", URLs: []string{notFound.URL}, Type: types.SourceScrape}, KindHTTPStatus, 404},
		{"timeout", types.Source{ID: "b", URLs: []string{slow.URL}, Type: types.SourceScrape}, KindTimeout, 0},
		{"redirects", types.Source{ID: "c", URLs: []string{loop.URL + "/r"}, Type: types.SourceScrape}, KindRedirects, 0},
		{"parse", types.Source{ID: "d", URLs: []string{badXML.URL}, Type: types.SourceRSS}, KindParse, 0},
		{"bad url", types.Source{ID: "e", URLs: []string{"ftp://example.org"}, Type: types.SourceScrape}, KindConfig, 0},
		{"no urls", types.Source{ID: "f", Type: types.SourceScrape}, KindConfig, 0},
		{"bad type", types.Source{ID: "g", URLs: []string{notFound.URL}, Type: "soap"}, KindConfig, 0},
	}

	c := New(Config{Fetcher: FetcherConfig{Timeout: 200 * time.Millisecond}}, nil, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := c.Crawl(context.Background(), tc.src)
			require.Error(t, err)
			assert.Nil(t, items)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.kind, fe.Kind)
			assert.Equal(t, tc.src.ID, fe.SourceID)
			assert.Equal(t, tc.status, fe.StatusCode)
			if tc.kind == KindRedirects {
				assert.ErrorIs(t, err, ErrTooManyRedirects)
			}
		})
	}
}

func TestCrawlPartialURLFailure(t *testing.T) {
	ok := serve(t, "application/rss+xml", atomFeed)
	bad := httptest.NewServer(http.NotFoundHandler())
	defer bad.Close()

	items, err := newTestCrawler(0).Crawl(context.Background(), types.Source{ID: "m", URLs: []string{bad.URL, ok.URL}, Type: types.SourceRSS})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFetcherAllowsFiveRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := len(r.URL.Path) - 1
		if n < 5 {
			http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{})
	page, err := f.Fetch(context.Background(), "s", srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "done", string(page.Body))
	assert.Equal(t, "/xxxxx", page.URL.Path)
}

func TestFetcherSendsUserAgentAndCapsBody(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{MaxBodyBytes: 10, RequestsPerSecond: 50})
	page, err := f.Fetch(context.Background(), "s", srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 10)
	assert.Equal(t, DefaultUserAgent, ua)
}

func TestFetchDetail(t *testing.T) {
	page := `<html><head><title>Cacao Heritage Grant</title></head><body>
		<article><h1>Cacao Heritage Grant</h1>
		<p>The Cacao Heritage Grant supports indigenous communities who keep ceremonial cacao traditions alive across the Andes and the Amazon basin.</p>
		<p>Deadline: 15 March 2026. Grants of up to €50,000 are available for community-led projects.</p>
		</article></body></html>`
	srv := serve(t, "text/html", page)

	d, err := newTestCrawler(0).FetchDetail(context.Background(), "s", srv.URL+"/grant")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/grant", d.URL)
	assert.Contains(t, d.Title, "Cacao Heritage Grant")

	f := extract.Extract(d.Text)
	assert.Equal(t, "15 March 2026", f.Deadline)
	assert.Contains(t, f.Amount, "50,000")
}
