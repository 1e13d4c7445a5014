package deduplication

import (
	"net/url"
	"strings"
	"unicode"

	"grantbot/types"
)

// CandidateID derives the stable identifier of a discovered item.
// The hash covers sourceID|normalizedURL|normalizedTitle so that trivial
// punctuation, casing and tracking parameters do not create new identities.
func CandidateID(sourceID, title, rawURL string) string {
	combined := sourceID + "|" + normalizeURL(rawURL) + "|" + normalizeTitle(title)
	return types.GenerateID(combined)
}

// TrackedID derives the identifier for a tracked grant page
func TrackedID(rawURL string) string {
	return types.GenerateID("tracked|" + normalizeURL(rawURL))
}

// NormalizeURL exposes the URL normalisation used for identities
func NormalizeURL(raw string) string {
	return normalizeURL(raw)
}

func normalizeTitle(t string) string {
	t = strings.ToLower(t)
	t = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, t)
	return strings.Join(strings.Fields(t), " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
