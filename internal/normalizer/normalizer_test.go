package normalizer

import "testing"

// TestNormalize verifies the canonicalization rules.
func TestNormalize(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	tests := []struct {
		name string
		raw  string
		base string
		want string
		ok   bool
	}{
		{"https upgrade", "http://example.com/a", "", "https://example.com/a", true},
		{"host lowercased", "https://EXAMPLE.com/A", "", "https://example.com/A", true},
		{"default https port stripped", "https://example.com:443/a", "", "https://example.com/a", true},
		{"default http port stripped then upgraded", "http://example.com:80/a", "", "https://example.com/a", true},
		{"non-default port kept", "https://example.com:8443/a", "", "https://example.com:8443/a", true},
		{"fragment removed", "https://example.com/a#section", "", "https://example.com/a", true},
		{"tracking params stripped", "https://example.com/a?utm_source=x&utm_medium=y", "", "https://example.com/a", true},
		{"real params survive", "https://example.com/a?page=2&utm_source=x", "", "https://example.com/a?page=2", true},
		{"params sorted", "https://example.com/a?b=2&a=1", "", "https://example.com/a?a=1&b=2", true},
		{"relative resolved against base", "/contact", "https://example.com/about", "https://example.com/contact", true},
		{"relative without base rejected", "/contact", "", "", false},
		{"dot segments resolved", "../up", "https://example.com/a/b/c", "https://example.com/a/up", true},
		{"empty rejected", "", "", "", false},
		{"non-http scheme rejected", "ftp://example.com/file", "", "", false},
		{"missing host rejected", "https:///path", "", "", false},
		{"whitespace trimmed", "  https://example.com/a  ", "", "https://example.com/a", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := n.Normalize(tt.raw, tt.base)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q, %q) ok = %v, want %v", tt.raw, tt.base, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
			}
		})
	}
}

// TestNormalizeIdempotent verifies normalize(normalize(x)) == normalize(x).
func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	inputs := []string{
		"http://Example.COM:80/path/?b=2&a=1&utm_source=news#frag",
		"https://www.example.com/",
		"https://example.com/a?z=9&z=1&a=x",
		"https://example.com/deep/path/page.html?q=term",
	}

	for _, raw := range inputs {
		first, ok := n.Normalize(raw, "")
		if !ok {
			t.Fatalf("Normalize(%q) unexpectedly failed", raw)
		}
		second, ok := n.Normalize(first, "")
		if !ok {
			t.Fatalf("re-normalizing %q unexpectedly failed", first)
		}
		if first != second {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", raw, first, second)
		}
	}
}

// TestNormalizeTrailingSlash verifies the optional trailing slash rule.
func TestNormalizeTrailingSlash(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.RemoveTrailingSlash = true
	n := New(cfg)

	got, ok := n.Normalize("https://example.com/about/", "")
	if !ok || got != "https://example.com/about" {
		t.Errorf("expected trailing slash removed, got %q (ok=%v)", got, ok)
	}

	// Root path keeps its slash.
	got, ok = n.Normalize("https://example.com/", "")
	if !ok || got != "https://example.com/" {
		t.Errorf("expected root slash kept, got %q (ok=%v)", got, ok)
	}
}

// TestIsSameDomain verifies domain scoping including www and subdomains.
func TestIsSameDomain(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	tests := []struct {
		name       string
		url        string
		domain     string
		subdomains bool
		want       bool
	}{
		{"exact match", "https://example.com/a", "example.com", false, true},
		{"www stripped from url", "https://www.example.com/a", "example.com", false, true},
		{"www stripped from domain", "https://example.com/a", "www.example.com", false, true},
		{"subdomain rejected without flag", "https://blog.example.com/a", "example.com", false, false},
		{"subdomain accepted with flag", "https://blog.example.com/a", "example.com", true, true},
		{"different domain", "https://other.com/a", "example.com", true, false},
		{"suffix is not subdomain", "https://notexample.com/a", "example.com", true, false},
		{"unparsable", "://bad", "example.com", true, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := n.IsSameDomain(tt.url, tt.domain, tt.subdomains); got != tt.want {
				t.Errorf("IsSameDomain(%q, %q, %v) = %v, want %v", tt.url, tt.domain, tt.subdomains, got, tt.want)
			}
		})
	}
}

// TestMatchesExcludePattern verifies substring and /regex/ patterns.
func TestMatchesExcludePattern(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	tests := []struct {
		name     string
		url      string
		patterns []string
		want     bool
	}{
		{"substring match", "https://example.com/private/page", []string{"/private"}, true},
		{"substring case-insensitive", "https://example.com/Private/page", []string{"/private"}, true},
		{"no match", "https://example.com/public", []string{"/private"}, false},
		{"regex against path", "https://example.com/tag/123", []string{`/^\/tag\/\d+$/`}, true},
		{"regex no match", "https://example.com/tag/abc", []string{`/^\/tag\/\d+$/`}, false},
		{"regex against full url", "https://staging.example.com/a", []string{"/staging\\./"}, true},
		{"invalid regex skipped", "https://example.com/a", []string{"/([/"}, false},
		{"empty patterns", "https://example.com/a", nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := n.MatchesExcludePattern(tt.url, tt.patterns); got != tt.want {
				t.Errorf("MatchesExcludePattern(%q, %v) = %v, want %v", tt.url, tt.patterns, got, tt.want)
			}
		})
	}
}

// TestIsValidCrawlableURL verifies scheme and extension filtering.
func TestIsValidCrawlableURL(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	valid := []string{
		"https://example.com/page",
		"http://example.com/page.html",
		"/relative/path",
		"https://example.com/archive.html?download=file.zip",
	}
	for _, u := range valid {
		if !n.IsValidCrawlableURL(u) {
			t.Errorf("expected %q to be crawlable", u)
		}
	}

	invalid := []string{
		"mailto:user@example.com",
		"javascript:void(0)",
		"data:text/html,hello",
		"tel:+15550100",
		"ftp://example.com/file",
		"https://example.com/image.PNG",
		"https://example.com/doc.pdf",
		"https://example.com/app.js",
		"https://example.com/style.css",
		"https://example.com/font.woff2",
		"#",
		"",
	}
	for _, u := range invalid {
		if n.IsValidCrawlableURL(u) {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

// TestResolveCanonical verifies canonical URL preference rules.
func TestResolveCanonical(t *testing.T) {
	t.Parallel()

	n := New(NewConfig())

	tests := []struct {
		name      string
		original  string
		canonical string
		want      string
	}{
		{"same-domain canonical wins", "https://example.com/a?page=1", "https://example.com/a", "https://example.com/a"},
		{"relative canonical resolved", "https://example.com/a/b", "/a", "https://example.com/a"},
		{"cross-domain canonical rejected", "https://example.com/a", "https://cdn.other.com/a", "https://example.com/a"},
		{"empty canonical falls back", "https://example.com/a", "", "https://example.com/a"},
		{"unparsable canonical falls back", "https://example.com/a", "://bad", "https://example.com/a"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := n.ResolveCanonical(tt.original, tt.canonical, "example.com"); got != tt.want {
				t.Errorf("ResolveCanonical(%q, %q) = %q, want %q", tt.original, tt.canonical, got, tt.want)
			}
		})
	}
}
