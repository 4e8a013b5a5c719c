// Package feeds provides RSS/Atom feed polling for signal discovery
package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"signalhound/internal/core"
)

// maxFeedBytes caps how much of a feed body is read into memory.
const maxFeedBytes = 10 << 20

// RSS represents an RSS feed structure
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Atom represents an Atom feed structure
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Link    []AtomLink  `xml:"link"`
	Entries []AtomEntry `xml:"entry"`
}

// Channel represents an RSS channel
type Channel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"` // content:encoded, when the feed provides full text
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title     string     `xml:"title"`
	Link      []AtomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

// ParsedFeed is the result of one poll: the feed's own metadata, the
// documents it carried, and the validators to send on the next poll.
type ParsedFeed struct {
	Feed         core.Feed
	Documents    []core.Document
	LastModified string
	ETag         string
	NotModified  bool
}

// FeedManager fetches and parses RSS/Atom feeds
type FeedManager struct {
	client    *http.Client
	userAgent string
}

// NewFeedManager creates a new feed manager
func NewFeedManager() *FeedManager {
	return &FeedManager{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "signalhound/1.0",
	}
}

// SetUserAgent overrides the User-Agent header sent to feed hosts.
func (fm *FeedManager) SetUserAgent(userAgent string) {
	if userAgent != "" {
		fm.userAgent = userAgent
	}
}

// SetTimeout overrides the per-request timeout.
func (fm *FeedManager) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		fm.client.Timeout = timeout
	}
}

// FetchFeed fetches and parses a feed, sending the stored validators
// as conditional headers so unchanged feeds cost one cheap 304.
func (fm *FeedManager) FetchFeed(ctx context.Context, feedURL string, lastModified, etag string) (*ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("User-Agent", fm.userAgent)

	resp, err := fm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &ParsedFeed{NotModified: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	parsed, err := fm.parseBody(body, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	parsed.LastModified = resp.Header.Get("Last-Modified")
	parsed.ETag = resp.Header.Get("ETag")
	return parsed, nil
}

// parseBody attempts to parse the body as RSS first, then Atom.
func (fm *FeedManager) parseBody(body []byte, feedURL string) (*ParsedFeed, error) {
	var rss RSS
	if err := xml.Unmarshal(body, &rss); err == nil && rss.Channel.Title != "" {
		return fm.parseRSS(rss, feedURL), nil
	}

	var atom Atom
	if err := xml.Unmarshal(body, &atom); err == nil && atom.Title != "" {
		return fm.parseAtom(atom, feedURL), nil
	}

	return nil, fmt.Errorf("unable to parse as RSS or Atom feed")
}

// parseRSS converts RSS data to core types
func (fm *FeedManager) parseRSS(rss RSS, feedURL string) *ParsedFeed {
	feed := core.Feed{
		ID:          generateFeedID(feedURL),
		URL:         feedURL,
		Title:       rss.Channel.Title,
		Description: rss.Channel.Description,
		Active:      true,
		AddedAt:     time.Now().UTC(),
	}

	var documents []core.Document
	for _, item := range rss.Channel.Items {
		if item.Link == "" {
			continue
		}
		content := item.Content
		if content == "" {
			content = item.Description
		}
		documents = append(documents, core.Document{
			URL:         item.Link,
			Title:       strings.TrimSpace(item.Title),
			Content:     content,
			SourceType:  core.SourceTypeRSS,
			Provider:    "feeds",
			PublishedAt: parseRSSDate(item.PubDate),
		})
	}

	return &ParsedFeed{Feed: feed, Documents: documents}
}

// parseAtom converts Atom data to core types
func (fm *FeedManager) parseAtom(atom Atom, feedURL string) *ParsedFeed {
	feed := core.Feed{
		ID:      generateFeedID(feedURL),
		URL:     feedURL,
		Title:   atom.Title,
		Active:  true,
		AddedAt: time.Now().UTC(),
	}

	var documents []core.Document
	for _, entry := range atom.Entries {
		link := alternateLink(entry.Link)
		if link == "" {
			continue
		}
		content := entry.Content
		if content == "" {
			content = entry.Summary
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		documents = append(documents, core.Document{
			URL:         link,
			Title:       strings.TrimSpace(entry.Title),
			Content:     content,
			SourceType:  core.SourceTypeRSS,
			Provider:    "feeds",
			PublishedAt: parseAtomDate(published),
		})
	}

	return &ParsedFeed{Feed: feed, Documents: documents}
}

// alternateLink picks the main link from an Atom link list.
func alternateLink(links []AtomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	return ""
}

// generateFeedID creates a deterministic ID for a feed based on its URL
func generateFeedID(feedURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedURL)).String()
}

// parseRSSDate parses RSS date formats
func parseRSSDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	// Common RSS date formats
	formats := []string{
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(dateStr)); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// parseAtomDate parses Atom date formats
func parseAtomDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	// Atom uses RFC3339
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dateStr)); err == nil {
		return t.UTC()
	}

	// Fallback to common formats
	return parseRSSDate(dateStr)
}

// ValidateFeedURL checks that the URL serves a parseable feed.
func (fm *FeedManager) ValidateFeedURL(ctx context.Context, feedURL string) error {
	parsed, err := fm.FetchFeed(ctx, feedURL, "", "")
	if err != nil {
		return fmt.Errorf("invalid feed url: %w", err)
	}
	if parsed.NotModified {
		return nil
	}
	if parsed.Feed.Title == "" && len(parsed.Documents) == 0 {
		return fmt.Errorf("invalid feed url: feed is empty")
	}
	return nil
}

// DiscoverFeedURLs finds feed URLs advertised by a website, reading
// <link rel="alternate"> tags first and falling back to common paths.
func (fm *FeedManager) DiscoverFeedURLs(ctx context.Context, websiteURL string) ([]string, error) {
	base, err := url.Parse(websiteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid website url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, websiteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fm.userAgent)

	var candidates []string
	resp, err := fm.client.Do(req)
	if err == nil {
		func() {
			defer func() { _ = resp.Body.Close() }()
			doc, derr := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxFeedBytes))
			if derr != nil {
				return
			}
			doc.Find(`link[rel="alternate"]`).Each(func(_ int, sel *goquery.Selection) {
				linkType, _ := sel.Attr("type")
				if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
					return
				}
				href, ok := sel.Attr("href")
				if !ok || href == "" {
					return
				}
				if ref, perr := url.Parse(href); perr == nil {
					candidates = append(candidates, base.ResolveReference(ref).String())
				}
			})
		}()
	}

	// Common feed URL patterns as a fallback
	baseURL := strings.TrimSuffix(websiteURL, "/")
	candidates = append(candidates,
		baseURL+"/feed",
		baseURL+"/rss",
		baseURL+"/atom.xml",
		baseURL+"/rss.xml",
		baseURL+"/feed.xml",
	)

	var validFeeds []string
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		if err := fm.ValidateFeedURL(ctx, candidate); err == nil {
			validFeeds = append(validFeeds, candidate)
		}
	}

	return validFeeds, nil
}
