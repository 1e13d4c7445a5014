package crawler

import (
	"bytes"
	"context"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"grantbot/extract"
)

// Detail is the content of a single grant page
type Detail struct {
	URL     string
	Title   string
	Excerpt string
	// Text is the full visible text, used for field extraction and hashing
	Text string
}

// FetchDetail fetches one grant page. Readability supplies the title and
// excerpt; extraction runs over the whole page so sidebars with deadlines
// are not lost.
func (c *Crawler) FetchDetail(ctx context.Context, sourceID, rawURL string) (*Detail, error) {
	page, err := c.fetcher.Fetch(ctx, sourceID, rawURL)
	if err != nil {
		return nil, err
	}

	d := &Detail{URL: page.URL.String(), Text: extract.Text(string(page.Body))}

	article, err := readability.FromReader(bytes.NewReader(page.Body), page.URL)
	if err != nil {
		c.logger.Debug("Readability extraction failed", zap.String("url", rawURL), zap.Error(err))
		return d, nil
	}
	d.Title = article.Title
	d.Excerpt = article.Excerpt
	if d.Text == "" {
		d.Text = article.TextContent
	}
	return d, nil
}
