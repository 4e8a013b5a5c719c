package core

import (
	"net/url"
	"strings"
	"unicode"
)

// DomainOf extracts the lowercased host from a URL, stripping a leading
// "www." so "https://www.nsf.gov/x" and "https://nsf.gov/y" reduce to
// the same reputation key. Returns "" for unparseable input.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Excerpt returns at most max runes of s, cut at a word boundary where
// possible, with internal whitespace collapsed.
func Excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := max
	for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimSpace(string(runes[:cut]))
}
