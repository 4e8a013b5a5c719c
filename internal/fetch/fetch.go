// Package fetch retrieves web pages and extracts their readable text
// for triage and analysis. Only HTML content is handled; binary media
// is rejected at the content-type check.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"signalhound/internal/core"
)

// maxBodyBytes caps how much of a page body is read into memory.
const maxBodyBytes = 10 << 20

// newlineRegex collapses runs of blank lines left over after
// boilerplate removal.
var newlineRegex = regexp.MustCompile(`(\n\s*){2,}`)

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: "signalhound/1.0",
	}
}

// FetchDocument retrieves one page and extracts its title and readable
// text. The caller fills in Provider and PublishedAt when known.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (core.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return core.Document{}, fmt.Errorf("failed to fetch %s: status code %d", rawURL, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, perr := mime.ParseMediaType(ct)
		if perr == nil && mediaType != "application/xhtml+xml" && !strings.HasPrefix(mediaType, "text/") {
			return core.Document{}, fmt.Errorf("unsupported content type %s for %s", mediaType, rawURL)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to read body from %s: %w", rawURL, err)
	}

	title, text := ExtractReadableText(string(body))
	return core.Document{
		URL:        rawURL,
		Title:      title,
		Content:    text,
		SourceType: core.SourceTypeWeb,
	}, nil
}

// ExtractReadableText parses HTML and returns the page title and the
// main textual content with boilerplate stripped.
func ExtractReadableText(html string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title := extractTitle(doc)

	// Remove common non-content elements
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner").Remove()

	mainContentSelectors := []string{
		"article", "main", ".main-content", ".entry-content", ".post-content", ".post-body", ".article-body",
		"[role='main']",
		".content", "#content",
	}

	var textBuilder strings.Builder
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			appendBlockText(&textBuilder, s)
		})
		if textBuilder.Len() > 0 {
			break
		}
	}

	// No recognizable content container; fall back to the whole body.
	if textBuilder.Len() == 0 {
		doc.Find("body").Each(func(_ int, s *goquery.Selection) {
			appendBlockText(&textBuilder, s)
		})
	}

	text := newlineRegex.ReplaceAllString(textBuilder.String(), "\n")
	return title, strings.TrimSpace(text)
}

// appendBlockText walks the block-level elements under a selection and
// writes their text separated by paragraph breaks.
func appendBlockText(b *strings.Builder, s *goquery.Selection) {
	s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})
}

// extractTitle tries the document title, then OpenGraph, then the
// first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content"); strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
