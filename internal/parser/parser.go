// Package parser extracts URLs from seed lists and canonicalizes them
// for dedup. Seed files are free-form text or markdown: bullet lists,
// [text](url) links, and bare URLs all work.
package parser

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	// markdownLinkRegex matches [text](url) links.
	markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)

	// rawURLRegex matches bare URLs in free-form text.
	rawURLRegex = regexp.MustCompile(`https?://[^\s)]+`)
)

// trackingParams are stripped during normalization. They vary per
// referral without changing the document, so left in place they would
// defeat the unique-URL constraint and the seen ledger.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
	"ref", "source",
}

// ParseFile reads a seed file and returns its URLs, validated,
// normalized, and deduplicated in document order.
func ParseFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return ParseContent(string(content)), nil
}

// ParseContent extracts URLs from free-form text. On lines that carry
// markdown links only the link targets are taken, so the URL inside
// the parentheses is not extracted twice; elsewhere bare URLs are
// taken as-is. Invalid and non-http(s) URLs are dropped.
func ParseContent(content string) []string {
	seen := make(map[string]bool)
	urls := []string{}

	add := func(raw string) {
		if ValidateURL(raw) != nil {
			return
		}
		normalized := NormalizeURL(raw)
		if seen[normalized] {
			return
		}
		seen[normalized] = true
		urls = append(urls, normalized)
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if matches := markdownLinkRegex.FindAllStringSubmatch(line, -1); len(matches) > 0 {
			for _, match := range matches {
				add(match[2])
			}
			continue
		}
		for _, raw := range rawURLRegex.FindAllString(line, -1) {
			add(raw)
		}
	}

	return urls
}

// ValidateURL checks that a URL parses and is fetchable over http(s).
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %s: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %s (must be http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url %s has no host", raw)
	}
	return nil
}

// NormalizeURL strips tracking parameters and the fragment and trims
// the trailing slash, yielding the canonical form documents are stored
// and deduplicated under. Unparseable input comes back unchanged.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	if parsed.Path != "" && parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}
