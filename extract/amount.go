package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	amountNumberRe = regexp.MustCompile(`(?i)(\d[\d,.]*)\s*(million|mln|thousand|k\b|m\b)?`)
	europeanRe     = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
)

// ParseAmount returns the largest number found in s with magnitude words
// applied ("€2 million" -> 2000000). Zero means no number was found.
func ParseAmount(s string) float64 {
	var largest float64
	for _, m := range amountNumberRe.FindAllStringSubmatch(s, -1) {
		v, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "million", "mln", "m":
			v *= 1_000_000
		case "thousand", "k":
			v *= 1_000
		}
		if v > largest {
			largest = v
		}
	}
	return largest
}

// parseNumber understands both 50,000.00 and 50.000,00 grouping
func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimRight(raw, ".,")
	if raw == "" {
		return 0, false
	}
	if europeanRe.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	} else {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
