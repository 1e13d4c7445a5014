package extract

import (
	"regexp"
	"strings"
)

// Matcher is one pattern in an extraction cascade. It yields the first
// capture group when the pattern has one, otherwise the whole match.
type Matcher struct {
	Name      string
	Pattern   *regexp.Regexp
	Normalize func(string) string
}

// Match runs the matcher against text
func (m Matcher) Match(text string) (string, bool) {
	sub := m.Pattern.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	value := sub[0]
	if len(sub) > 1 && sub[1] != "" {
		value = sub[1]
	}
	value = strings.Trim(strings.TrimSpace(value), ",;:")
	if m.Normalize != nil {
		value = m.Normalize(value)
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// firstMatch returns the result of the first matcher in the list that hits
func firstMatch(matchers []Matcher, text string) (string, bool) {
	for _, m := range matchers {
		if v, ok := m.Match(text); ok {
			return v, true
		}
	}
	return "", false
}

// RollingDeadline is the normalised value for open-ended deadlines
const RollingDeadline = "rolling"

const (
	monthPattern = `(?:jan(?:uary|uari)?|feb(?:ruary|ruari)?|mar(?:ch)?|maart|apr(?:il)?|may|mei|june?|juni|july?|juli|aug(?:ust|ustus)?|sep(?:t(?:ember)?)?|oct(?:ober)?|okt(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	ordinal      = `(?:st|nd|rd|th)?`

	dayMonthYear = `\d{1,2}` + ordinal + `\s+` + monthPattern + `,?\s+\d{4}`
	monthDayYear = monthPattern + `\s+\d{1,2}` + ordinal + `,?\s+\d{4}`
	isoDate      = `\d{4}-\d{2}-\d{2}`
	numericDate  = `\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`

	anyDate = `(` + dayMonthYear + `|` + monthDayYear + `|` + isoDate + `|` + numericDate + `)`
	lead    = `\s*[:\-–]?\s*(?:is\s+)?(?:on\s+)?`
)

// DeadlineMatchers are tried in order; the first hit wins.
var DeadlineMatchers = []Matcher{
	{
		Name:    "deadline-label",
		Pattern: regexp.MustCompile(`(?i)\bdeadline(?:\s+(?:date|for\s+applications|for\s+submissions))?` + lead + anyDate),
	},
	{
		Name:    "closes",
		Pattern: regexp.MustCompile(`(?i)\bclos(?:es|ing|e)(?:\s+date)?` + lead + anyDate),
	},
	{
		Name:    "due",
		Pattern: regexp.MustCompile(`(?i)\bdue(?:\s+(?:date|by|on))?` + lead + anyDate),
	},
	{
		Name:    "month-day-year",
		Pattern: regexp.MustCompile(`(?i)\b(` + monthDayYear + `)`),
	},
	{
		Name:    "day-month-year",
		Pattern: regexp.MustCompile(`(?i)\b(` + dayMonthYear + `)`),
	},
	{
		Name:    "numeric",
		Pattern: regexp.MustCompile(`\b(` + numericDate + `)\b`),
	},
	{
		Name:      "rolling",
		Pattern:   regexp.MustCompile(`(?i)\b(?:rolling(?:\s+(?:basis|deadline|admissions?|applications?))?|ongoing|no\s+(?:fixed\s+)?deadline|open\s+year[\s-]round|doorlopend)\b`),
		Normalize: func(string) string { return RollingDeadline },
	},
}

const (
	currency  = `(?:€|\$|£|us\$|a\$|eur\s?|usd\s?|gbp\s?|aud\s?)`
	number    = `(?:\d{1,3}(?:[,.]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d+)?)`
	magnitude = `(?:\s*(?:million|mln|thousand|k\b|m\b))?`
	money     = currency + `\s?` + number + magnitude
)

// AmountMatchers are tried in order; the first hit wins.
var AmountMatchers = []Matcher{
	{
		Name:    "range",
		Pattern: regexp.MustCompile(`(?i)(` + money + `\s*(?:to|-|–|—)\s*` + currency + `?\s?` + number + magnitude + `)`),
	},
	{
		Name:    "currency",
		Pattern: regexp.MustCompile(`(?i)(` + money + `)`),
	},
	{
		Name:    "currency-word",
		Pattern: regexp.MustCompile(`(?i)\b(` + number + `\s*(?:million|thousand|k)?\s*(?:euros?|dollars?|pounds?))\b`),
	},
	{
		Name:    "bare-up-to",
		Pattern: regexp.MustCompile(`(?i)\b(?:up\s+to|maximum(?:\s+of)?|grants?\s+of|funding\s+of|awards?\s+of)\s+(` + number + magnitude + `)`),
	},
}

var (
	eligibilityRe = regexp.MustCompile(`(?is)\beligib(?:le|ility)[^.:?\n]{0,100}?[.:?]\s*(.*?)(?:\n\s*\n|\bdeadline|\bhow\s+to\s+apply|\z)`)

	closedRe = regexp.MustCompile(`(?i)\b(?:applications?\s+(?:are\s+|is\s+)?(?:now\s+)?closed|no\s+longer\s+accept(?:ing|s)|funding\s+round\s+(?:has\s+|is\s+)?closed|program(?:me)?\s+(?:has\s+)?ended|calls?\s+(?:is\s+|are\s+|has\s+|have\s+)?(?:now\s+)?closed|submissions?\s+(?:are\s+|is\s+)?(?:now\s+)?closed|deadline\s+has\s+passed|aanvragen\s+(?:is\s+)?gesloten)\b`)

	sentenceEnd = regexp.MustCompile(`[.!?]\s+`)
)
