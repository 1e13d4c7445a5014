package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"grantbot/extract"
	"grantbot/links"
	"grantbot/types"
)

// parseScrape returns the classified links of an HTML page. A page without
// any grant-looking links is returned as a single item of its own.
func (c *Crawler) parseScrape(page *Page) ([]types.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	ranked := c.classifier.Classify(page.URL, links.DocumentAnchors(doc))
	if len(ranked) == 0 {
		title := strings.TrimSpace(doc.Find("title").First().Text())
		text := extract.Text(string(page.Body))
		if title == "" && text == "" {
			return nil, nil
		}
		return []types.Item{{Title: title, URL: page.URL.String(), Text: text}}, nil
	}

	if len(ranked) > c.maxItems {
		ranked = ranked[:c.maxItems]
	}
	items := make([]types.Item, 0, len(ranked))
	for _, l := range ranked {
		items = append(items, types.Item{Title: l.Text, URL: l.URL, Text: l.Text, LinkScore: l.Score})
	}
	return items, nil
}

// parseFeed handles RSS 2.0 and Atom
func parseFeed(body []byte) ([]types.Item, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]types.Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		if fi == nil {
			continue
		}
		desc := fi.Description
		if desc == "" {
			desc = fi.Content
		}
		title := strings.TrimSpace(fi.Title)
		items = append(items, types.Item{
			Title: title,
			URL:   strings.TrimSpace(fi.Link),
			Text:  strings.TrimSpace(title + " " + extract.Text(desc)),
		})
	}
	return items, nil
}

var (
	apiListKeys  = []string{"items", "data", "results", "grants"}
	apiTitleKeys = []string{"title", "name"}
	apiURLKeys   = []string{"url", "link", "href"}
	apiTextKeys  = []string{"description", "summary", "text", "body"}
)

// parseAPI is a JSON pass-through: a top-level array of objects, or an object
// wrapping one under a common list key.
func parseAPI(body []byte) ([]types.Item, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, k := range apiListKeys {
			if l, ok := v[k].([]any); ok {
				list = l
				break
			}
		}
		if list == nil {
			return nil, fmt.Errorf("no item list found in json object")
		}
	default:
		return nil, fmt.Errorf("unexpected json payload %T", raw)
	}

	items := make([]types.Item, 0, len(list))
	for _, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		title := firstString(obj, apiTitleKeys)
		link := firstString(obj, apiURLKeys)
		if title == "" || link == "" {
			continue
		}
		items = append(items, types.Item{
			Title: title,
			URL:   link,
			Text:  strings.TrimSpace(title + " " + extract.Text(firstString(obj, apiTextKeys))),
		})
	}
	return items, nil
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
