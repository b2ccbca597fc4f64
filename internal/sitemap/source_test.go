package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/seoscan/internal/fetcher"
)

// TestDiscoverFromRobots verifies that Sitemap directives in robots.txt
// take precedence over the well-known fallbacks.
func TestDiscoverFromRobots(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "User-agent: *")
		fmt.Fprintln(w, "Disallow: /admin/")
		fmt.Fprintln(w, "Sitemap: https://shop.example.com/sitemap-products.xml")
		fmt.Fprintln(w, "Sitemap: https://shop.example.com/sitemap-pages.xml")
	}))
	defer srv.Close()

	source := New(robotsAwareFetcher(t, srv))
	sitemaps := source.Discover(context.Background(), "shop.example.com")

	want := []string{
		"https://shop.example.com/sitemap-products.xml",
		"https://shop.example.com/sitemap-pages.xml",
	}
	if len(sitemaps) != len(want) {
		t.Fatalf("expected %d sitemaps, got %v", len(want), sitemaps)
	}
	for i, u := range want {
		if sitemaps[i] != u {
			t.Errorf("sitemap[%d] = %q, want %q", i, sitemaps[i], u)
		}
	}
}

// TestDiscoverFallback verifies the well-known paths are returned when
// robots.txt is missing.
func TestDiscoverFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	source := New(robotsAwareFetcher(t, srv))
	sitemaps := source.Discover(context.Background(), "shop.example.com")

	if len(sitemaps) != 2 {
		t.Fatalf("expected 2 fallback sitemaps, got %v", sitemaps)
	}
	if !strings.HasSuffix(sitemaps[0], "/sitemap.xml") {
		t.Errorf("unexpected first fallback %q", sitemaps[0])
	}
	if !strings.HasSuffix(sitemaps[1], "/sitemap_index.xml") {
		t.Errorf("unexpected second fallback %q", sitemaps[1])
	}
}

// TestParseURLSet verifies parsing a plain urlset sitemap.
func TestParseURLSet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>https://example.com/</loc><lastmod>2026-01-01</lastmod></url>
	<url><loc>https://example.com/about</loc></url>
	<url><loc>  https://example.com/contact  </loc></url>
	<url><loc></loc></url>
</urlset>`)
	}))
	defer srv.Close()

	source := New(fetcher.New())
	urls, err := source.Parse(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/contact",
	}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %v", len(want), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("url[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

// TestParseSitemapIndex verifies nested index traversal and tolerance
// of one broken child sitemap.
func TestParseSitemapIndex(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/sitemap-a.xml</loc></sitemap>
	<sitemap><loc>%s/sitemap-broken.xml</loc></sitemap>
	<sitemap><loc>%s/sitemap-b.xml</loc></sitemap>
</sitemapindex>`, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/sitemap-a.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/a</loc></url></urlset>`)
	})
	mux.HandleFunc("/sitemap-broken.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/sitemap-b.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/b</loc></url></urlset>`)
	})

	source := New(fetcher.New())
	urls, err := source.Parse(context.Background(), srv.URL+"/sitemap_index.xml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("expected 2 urls despite broken child, got %v", urls)
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Errorf("unexpected urls %v", urls)
	}
}

// TestParseCyclicIndex verifies the nesting bound stops a self-referencing
// sitemap index.
func TestParseCyclicIndex(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/loop.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s/loop.xml</loc></sitemap></sitemapindex>`, srv.URL)
	})

	source := New(fetcher.New())
	urls, err := source.Parse(context.Background(), srv.URL+"/loop.xml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no urls from cyclic index, got %v", urls)
	}
}

// TestParseMaxURLs verifies the per-parse URL cap.
func TestParseMaxURLs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset>`)
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, `<url><loc>https://example.com/p%d</loc></url>`, i)
		}
		fmt.Fprint(w, `</urlset>`)
	}))
	defer srv.Close()

	source := New(fetcher.New(), WithMaxURLs(5))
	urls, err := source.Parse(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(urls) != 5 {
		t.Errorf("expected 5 urls, got %d", len(urls))
	}
}

// TestParseMalformedXML verifies a parse error surfaces to the caller.
func TestParseMalformedXML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/`)
	}))
	defer srv.Close()

	source := New(fetcher.New())
	if _, err := source.Parse(context.Background(), srv.URL+"/sitemap.xml"); err == nil {
		t.Error("expected error for truncated XML")
	}
}

// robotsAwareFetcher rewrites the https://domain URLs that Discover
// builds onto the local test server so robots.txt lookups hit it.
func robotsAwareFetcher(t *testing.T, srv *httptest.Server) fetcher.Fetcher {
	t.Helper()
	return rewriteFetcher{base: srv.URL, inner: fetcher.New()}
}

type rewriteFetcher struct {
	base  string
	inner fetcher.Fetcher
}

func (f rewriteFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return f.inner.Fetch(ctx, f.base+u.Path)
}
