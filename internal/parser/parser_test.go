package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "markdown links",
			content:  "- [NSF funding](https://www.nsf.gov/funding)\n- [NIH grants](https://www.nih.gov/grants)",
			expected: []string{"https://www.nsf.gov/funding", "https://www.nih.gov/grants"},
		},
		{
			name:     "raw urls with surrounding text",
			content:  "check https://example.org/grants today\nalso https://example.net/programs tomorrow",
			expected: []string{"https://example.org/grants", "https://example.net/programs"},
		},
		{
			name:     "markdown link target not extracted twice",
			content:  "[Agency portal](https://example.org/portal)",
			expected: []string{"https://example.org/portal"},
		},
		{
			name:     "duplicates collapse after normalization",
			content:  "https://example.org/grants?utm_source=newsletter\nhttps://example.org/grants#section",
			expected: []string{"https://example.org/grants"},
		},
		{
			name:     "unsupported schemes dropped",
			content:  "ftp://example.org/archive\nhttps://example.org/kept",
			expected: []string{"https://example.org/kept"},
		},
		{
			name:     "no urls",
			content:  "just a note to self\n# heading",
			expected: []string{},
		},
		{
			name:     "empty input",
			content:  "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls := ParseContent(tt.content)
			if len(urls) != len(tt.expected) {
				t.Fatalf("Expected %d urls, got %d: %v", len(tt.expected), len(urls), urls)
			}
			for i, want := range tt.expected {
				if urls[i] != want {
					t.Errorf("Expected url %d to be %s, got %s", i, want, urls[i])
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	content := `# Watchlist
- [State broadband office](https://broadband.example.gov/programs)
- https://example.org/grants and some trailing words
not a url at all
- https://broadband.example.gov/programs
`
	path := filepath.Join(t.TempDir(), "seeds.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	urls, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	want := []string{"https://broadband.example.gov/programs", "https://example.org/grants"}
	if len(urls) != len(want) {
		t.Fatalf("Expected %d urls, got %d: %v", len(want), len(urls), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("Expected url %d to be %s, got %s", i, u, urls[i])
		}
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing seed file")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips tracking parameters",
			input:    "https://example.org/grants?utm_source=feed&utm_medium=rss",
			expected: "https://example.org/grants",
		},
		{
			name:     "keeps functional parameters",
			input:    "https://example.org/grants?page=2",
			expected: "https://example.org/grants?page=2",
		},
		{
			name:     "strips fragment",
			input:    "https://example.org/grants#eligibility",
			expected: "https://example.org/grants",
		},
		{
			name:     "trims trailing slash",
			input:    "https://example.org/grants/",
			expected: "https://example.org/grants",
		},
		{
			name:     "keeps root slash",
			input:    "https://example.org/",
			expected: "https://example.org/",
		},
		{
			name:     "mixed tracking and functional parameters",
			input:    "https://example.org/grants?id=7&gclid=abc123",
			expected: "https://example.org/grants?id=7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.org/grants",
		"http://example.org",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("Expected %s to validate, got %v", u, err)
		}
	}

	invalid := []string{
		"",
		"ftp://example.org/archive",
		"https://",
		"not-a-url",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("Expected %q to be rejected", u)
		}
	}
}
