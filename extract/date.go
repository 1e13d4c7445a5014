package extract

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Day-first layouts are tried before dateparse, which assumes month-first
// for ambiguous numeric dates.
var deadlineLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
}

var (
	ordinalSuffixRe = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
	septRe          = regexp.MustCompile(`(?i)\bsept\b`)
)

// ParseDeadline turns an extracted deadline string into a date.
// Rolling deadlines and unparseable values report false.
func ParseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, RollingDeadline) {
		return time.Time{}, false
	}

	norm := ordinalSuffixRe.ReplaceAllString(s, "$1")
	norm = strings.ReplaceAll(norm, ",", " ")
	norm = septRe.ReplaceAllString(norm, "Sep")
	norm = strings.TrimSuffix(collapseWhitespace(norm), ".")
	norm = strings.ReplaceAll(norm, ". ", " ")

	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseAny(norm); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DaysUntil returns the whole days from now until the deadline, rounded up.
// Past deadlines give zero or a negative number.
func DaysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
