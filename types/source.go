package types

// SourceType selects how a source's payload is parsed
type SourceType string

const (
	SourceScrape SourceType = "scrape"
	SourceRSS    SourceType = "rss"
	SourceAPI    SourceType = "api"
)

// Valid reports whether t is a known payload type
func (t SourceType) Valid() bool {
	switch t {
	case SourceScrape, SourceRSS, SourceAPI:
		return true
	}
	return false
}

// Source is one configured origin to crawl. Loaded once per run and never mutated.
type Source struct {
	ID      string     `json:"id" koanf:"id"`
	Name    string     `json:"name" koanf:"name"`
	URLs    []string   `json:"urls" koanf:"urls"`
	Region  string     `json:"region,omitempty" koanf:"region"`
	Type    SourceType `json:"type" koanf:"type"`
	Enabled bool       `json:"enabled" koanf:"enabled"`
}

// Item is the uniform crawler output, whichever payload parser produced it
type Item struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name,omitempty"`
	Region     string `json:"region,omitempty"`
	Text       string `json:"text"`
	// LinkScore is the link classifier score for scraped links, zero otherwise
	LinkScore int `json:"link_score,omitempty"`
}
