package reputation

import "strings"

// candidatePatterns expands a registrable domain into every reputation
// pattern that could govern it, ordered by match priority: exact first,
// then parent domains (closest ancestor first), then subdomain
// wildcards (most specific first), then the TLD wildcard. The first
// stored pattern found in this order wins.
//
// For "a.b.example.com" the expansion is:
//
//	a.b.example.com
//	b.example.com
//	example.com
//	*.b.example.com
//	*.example.com
//	*.com
func candidatePatterns(domain string) []string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil
	}

	labels := strings.Split(domain, ".")
	patterns := []string{domain}

	// Parent domains: strip leading labels one at a time, keeping at
	// least two labels so the bare TLD never matches as a parent.
	for i := 1; i < len(labels)-1; i++ {
		patterns = append(patterns, strings.Join(labels[i:], "."))
	}

	// Subdomain wildcards over the same ancestor chain.
	for i := 1; i < len(labels)-1; i++ {
		patterns = append(patterns, "*."+strings.Join(labels[i:], "."))
	}

	if len(labels) >= 2 {
		patterns = append(patterns, "*."+labels[len(labels)-1])
	}

	return patterns
}
