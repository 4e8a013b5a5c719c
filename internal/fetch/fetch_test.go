package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalhound/internal/core"
)

const pageFixture = `<html>
<head><title>Grant Portal - New Award</title></head>
<body>
	<nav>Home | About | Contact</nav>
	<article>
		<h1>New Award Announced</h1>
		<p>The agency will fund fifty projects.</p>
		<p>Applications open in July.</p>
	</article>
	<footer>Copyright 2025</footer>
	<script>trackPageView();</script>
</body>
</html>`

func TestExtractReadableText(t *testing.T) {
	title, text := ExtractReadableText(pageFixture)

	if title != "Grant Portal - New Award" {
		t.Errorf("Expected page title, got %q", title)
	}
	if !strings.Contains(text, "The agency will fund fifty projects.") {
		t.Errorf("Expected article text, got %q", text)
	}
	if !strings.Contains(text, "Applications open in July.") {
		t.Errorf("Expected second paragraph, got %q", text)
	}
	if strings.Contains(text, "Home | About") {
		t.Errorf("Expected nav boilerplate removed, got %q", text)
	}
	if strings.Contains(text, "Copyright 2025") {
		t.Errorf("Expected footer removed, got %q", text)
	}
	if strings.Contains(text, "trackPageView") {
		t.Errorf("Expected script removed, got %q", text)
	}
}

func TestExtractReadableText_TitleFallbacks(t *testing.T) {
	ogPage := `<html><head><meta property="og:title" content="OG Title"></head><body><p>x</p></body></html>`
	title, _ := ExtractReadableText(ogPage)
	if title != "OG Title" {
		t.Errorf("Expected OpenGraph fallback, got %q", title)
	}

	h1Page := `<html><body><h1>Heading Title</h1><p>x</p></body></html>`
	title, _ = ExtractReadableText(h1Page)
	if title != "Heading Title" {
		t.Errorf("Expected h1 fallback, got %q", title)
	}
}

func TestExtractReadableText_BodyFallback(t *testing.T) {
	page := `<html><body><div><p>Loose paragraph without a container.</p></div></body></html>`
	_, text := ExtractReadableText(page)
	if !strings.Contains(text, "Loose paragraph without a container.") {
		t.Errorf("Expected body fallback text, got %q", text)
	}
}

func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(pageFixture))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	doc, err := f.FetchDocument(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}

	if doc.URL != server.URL {
		t.Errorf("Expected URL %s, got %s", server.URL, doc.URL)
	}
	if doc.Title != "Grant Portal - New Award" {
		t.Errorf("Expected title, got %q", doc.Title)
	}
	if doc.SourceType != core.SourceTypeWeb {
		t.Errorf("Expected source type %s, got %s", core.SourceTypeWeb, doc.SourceType)
	}
	if !strings.Contains(doc.Content, "fund fifty projects") {
		t.Errorf("Expected extracted content, got %q", doc.Content)
	}
}

func TestFetchDocument_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.FetchDocument(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 404 response")
	}
}

func TestFetchDocument_UnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.FetchDocument(context.Background(), server.URL); err == nil {
		t.Error("Expected error for PDF content type")
	}
}
