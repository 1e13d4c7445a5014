package extract

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxEligibilityLength bounds the captured eligibility section, in runes
	MaxEligibilityLength = 500

	minSentenceLength = 50
	maxSentenceLength = 500
	maxSentences      = 3
)

// Fields holds the structured signals pulled out of a text corpus.
// Every field is optional; an empty value means "not found".
type Fields struct {
	Deadline    string `json:"deadline,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Eligibility string `json:"eligibility,omitempty"`
	Description string `json:"description,omitempty"`
	Closed      bool   `json:"closed"`
}

// Extract runs every field extraction over text. The extractions are
// independent of each other and never fail.
func Extract(text string) Fields {
	var f Fields
	f.Deadline, _ = Deadline(text)
	f.Amount, _ = Amount(text)
	f.Eligibility, _ = Eligibility(text)
	f.Description = Description(text)
	f.Closed = Closed(text)
	return f
}

// Deadline returns the first deadline found, or "rolling" for open-ended calls
func Deadline(text string) (string, bool) {
	return firstMatch(DeadlineMatchers, text)
}

// Amount returns the first monetary amount found, as it appears in the text
func Amount(text string) (string, bool) {
	return firstMatch(AmountMatchers, text)
}

// Eligibility captures the section following an "eligible"/"eligibility"
// heading up to the next section boundary.
func Eligibility(text string) (string, bool) {
	sub := eligibilityRe.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	section := collapseWhitespace(sub[1])
	if section == "" {
		return "", false
	}
	return truncateRunes(section, MaxEligibilityLength), true
}

// Closed reports whether the text says the application window is shut
func Closed(text string) bool {
	return closedRe.MatchString(text)
}

// Description returns up to three leading sentences of a sensible length
func Description(text string) string {
	var picked []string
	for _, s := range splitSentences(text) {
		n := utf8.RuneCountInString(s)
		if n < minSentenceLength || n > maxSentenceLength {
			continue
		}
		picked = append(picked, s)
		if len(picked) == maxSentences {
			break
		}
	}
	return strings.Join(picked, " ")
}

func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// keep the terminating punctuation, drop the trailing whitespace
		s := strings.TrimSpace(text[last : loc[0]+1])
		if s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
