package links

import (
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Anchor is a raw outbound link as found on a page
type Anchor struct {
	Href string
	Text string
}

// Link is a classified, absolute link worth following
type Link struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Weights are the additive signals used to score a link
type Weights struct {
	Application   int `koanf:"application"`
	GrantVocab    int `koanf:"grant_vocab"`
	Primary       int `koanf:"primary"`
	Secondary     int `koanf:"secondary"`
	GrantPath     int `koanf:"grant_path"`
	GenericText   int `koanf:"generic_text"`
	ShortText     int `koanf:"short_text"`
	ShortTextRune int `koanf:"short_text_runes"`
}

// DefaultWeights mirrors the tuned production values
var DefaultWeights = Weights{
	Application:   50,
	GrantVocab:    20,
	Primary:       30,
	Secondary:     15,
	GrantPath:     25,
	GenericText:   -30,
	ShortText:     -10,
	ShortTextRune: 15,
}

var applicationPhrases = []string{
	"apply now", "apply here", "apply for", "apply online", "submit application",
	"application form", "call for", "open call", "funding call", "grant application",
	"submit by", "applications open", "now accepting", "request for proposals", "rfp",
	"letter of inquiry", "deadline", "aanvragen", "aanvraag indienen", "solliciteren",
	"inschrijven", "postuler", "convocatoria", "bewerben",
}

var grantVocabulary = []string{
	"grant", "funding", "fund", "fellowship", "award", "programme", "program",
	"opportunity", "scholarship", "prize", "competition", "challenge", "initiative",
	"subsidie", "subsidy", "financiering", "beurs", "bursary", "support",
}

// matched at word starts so "press" does not hit "expression"
var boilerplateRe = regexp.MustCompile(`(?i)\b(?:about|contact|privacy|career|jobs|vacancies|news|blog|press|login|log in|sign in|signup|sign up|cookie|terms of|disclaimer|our team|who we are|annual report|over ons|nieuws|vacatures)`)

var genericTexts = map[string]bool{
	"home": true, "back": true, "more": true, "read more": true, "learn more": true,
	"click here": true, "here": true, "details": true, "more info": true, "lees meer": true,
}

var grantPathRe = regexp.MustCompile(`(?i)/(?:call|grant|funding|fund|program|programme|fellowship|opportunit(?:y|ies)|award|subsidie|subsidies)s?/[^/?#]+`)

const (
	minTextRunes = 5
	maxTextRunes = 300
)

// Classifier ranks a page's links by how much they look like grant pages
type Classifier struct {
	primary   []string
	secondary []string
	weights   Weights
}

// NewClassifier builds a classifier. primary and secondary are lowercase
// taxonomy terms; zero-valued weights fall back to DefaultWeights.
func NewClassifier(primary, secondary []string, w Weights) *Classifier {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	return &Classifier{primary: lowerAll(primary), secondary: lowerAll(secondary), weights: w}
}

// Anchors collects every <a href> from an HTML document
func Anchors(r io.Reader) ([]Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return DocumentAnchors(doc), nil
}

// DocumentAnchors collects anchors from an already parsed document
func DocumentAnchors(doc *goquery.Document) []Anchor {
	var out []Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text, _ = s.Attr("title")
		}
		out = append(out, Anchor{Href: strings.TrimSpace(href), Text: strings.TrimSpace(text)})
	})
	return out
}

// Classify scores, filters, resolves, dedupes and sorts anchors found on
// the page at base. Links that cannot be resolved are dropped.
func (c *Classifier) Classify(base *url.URL, anchors []Anchor) []Link {
	best := make(map[string]int)
	var out []Link

	for _, a := range anchors {
		abs, ok := resolve(base, a.Href)
		if !ok {
			continue
		}
		n := utf8.RuneCountInString(a.Text)
		if n < minTextRunes || n > maxTextRunes {
			continue
		}

		combined := strings.ToLower(abs + " " + a.Text)
		if boilerplateRe.MatchString(combined) {
			continue
		}

		score := c.score(abs, a.Text, combined)
		if score <= 0 {
			continue
		}

		if i, seen := best[abs]; seen {
			if score > out[i].Score {
				out[i] = Link{URL: abs, Text: a.Text, Score: score}
			}
			continue
		}
		best[abs] = len(out)
		out = append(out, Link{URL: abs, Text: a.Text, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (c *Classifier) score(abs, text, combined string) int {
	w := c.weights
	score := 0
	if containsAny(combined, applicationPhrases) {
		score += w.Application
	}
	if containsAny(combined, grantVocabulary) {
		score += w.GrantVocab
	}
	if containsAny(combined, c.primary) {
		score += w.Primary
	}
	if containsAny(combined, c.secondary) {
		score += w.Secondary
	}
	if u, err := url.Parse(abs); err == nil && grantPathRe.MatchString(u.Path) {
		score += w.GrantPath
	}
	lowerText := strings.ToLower(strings.TrimSpace(text))
	if genericTexts[lowerText] {
		score += w.GenericText
	}
	if utf8.RuneCountInString(lowerText) < w.ShortTextRune {
		score += w.ShortText
	}
	return score
}

// resolve turns href into an absolute http(s) URL without fragment
func resolve(base *url.URL, href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" || abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
