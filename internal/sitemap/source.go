package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/seoscan/internal/fetcher"
)

// wellKnownPaths are conventional sitemap locations tried when
// robots.txt declares none.
var wellKnownPaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

// maxIndexDepth bounds recursion through nested sitemap indexes.
// Real sites rarely nest past two levels; the bound protects against
// cyclic index references.
const maxIndexDepth = 3

// Source locates and parses sitemaps for a domain.
type Source interface {
	// Discover returns candidate sitemap URLs for the domain.
	Discover(ctx context.Context, domain string) []string

	// Parse fetches one sitemap and returns the page URLs it lists,
	// following nested sitemap indexes.
	Parse(ctx context.Context, sitemapURL string) ([]string, error)
}

// HTTPSource discovers sitemaps over HTTP using robots.txt and the
// well-known fallback paths.
type HTTPSource struct {
	fetcher fetcher.Fetcher

	// maxURLs caps the number of URLs returned per Parse call so a
	// pathological sitemap cannot exhaust memory. Zero means no cap.
	maxURLs int
}

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// WithMaxURLs caps the URLs returned by a single Parse call.
func WithMaxURLs(n int) Option {
	return func(s *HTTPSource) {
		s.maxURLs = n
	}
}

// New creates an HTTPSource on top of the given fetcher.
func New(f fetcher.Fetcher, opts ...Option) *HTTPSource {
	s := &HTTPSource{fetcher: f}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns sitemap URLs for domain: every Sitemap directive in
// robots.txt, or the well-known paths when robots.txt is missing,
// unreadable, or silent. Discover never fails; at worst it returns the
// conventional fallbacks.
func (s *HTTPSource) Discover(ctx context.Context, domain string) []string {
	base := "https://" + strings.TrimSuffix(domain, "/")

	if fromRobots := s.fromRobots(ctx, base); len(fromRobots) > 0 {
		return fromRobots
	}

	fallback := make([]string, 0, len(wellKnownPaths))
	for _, p := range wellKnownPaths {
		fallback = append(fallback, base+p)
	}
	return fallback
}

// fromRobots fetches and parses robots.txt, returning its Sitemap
// directives. Any failure returns nil so the caller falls back.
func (s *HTTPSource) fromRobots(ctx context.Context, base string) []string {
	resp, err := s.fetcher.Fetch(ctx, base+"/robots.txt")
	if err != nil || resp.StatusCode != 200 {
		return nil
	}

	robots, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		return nil
	}

	return robots.Sitemaps
}

// Parse fetches sitemapURL and streams out the <loc> values of its
// <url> entries. Nested <sitemap> index entries are followed up to
// maxIndexDepth; a failure inside one nested sitemap skips it without
// failing the parent.
func (s *HTTPSource) Parse(ctx context.Context, sitemapURL string) ([]string, error) {
	return s.parse(ctx, sitemapURL, 0)
}

func (s *HTTPSource) parse(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	if depth >= maxIndexDepth {
		return nil, fmt.Errorf("sitemap index nesting exceeds %d levels at %s", maxIndexDepth, sitemapURL)
	}

	resp, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("sitemap %s returned status %d", sitemapURL, resp.StatusCode)
	}

	urls, nested, err := decodeSitemap(bytes.NewReader(resp.Body), s.maxURLs)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	for _, child := range nested {
		if s.maxURLs > 0 && len(urls) >= s.maxURLs {
			break
		}
		childURLs, err := s.parse(ctx, child, depth+1)
		if err != nil {
			// One broken child sitemap must not sink its siblings.
			continue
		}
		urls = append(urls, childURLs...)
	}

	if s.maxURLs > 0 && len(urls) > s.maxURLs {
		urls = urls[:s.maxURLs]
	}

	return urls, nil
}

// locEntry decodes the <loc> child of a <url> or <sitemap> element.
type locEntry struct {
	Loc string `xml:"loc"`
}

// decodeSitemap streams tokens from r, collecting page URLs from <url>
// elements and nested sitemap URLs from <sitemap> elements.
//
// Design decision: We use a streaming token decoder rather than
// unmarshalling the whole document because sitemap files are allowed to
// hold 50,000 URLs and we want the cap to stop reading early.
func decodeSitemap(r io.Reader, maxURLs int) (urls, nested []string, err error) {
	decoder := xml.NewDecoder(r)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "url":
			var entry locEntry
			if err := decoder.DecodeElement(&entry, &start); err != nil {
				continue
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				urls = append(urls, loc)
			}
			if maxURLs > 0 && len(urls) >= maxURLs {
				return urls, nested, nil
			}
		case "sitemap":
			var entry locEntry
			if err := decoder.DecodeElement(&entry, &start); err != nil {
				continue
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				nested = append(nested, loc)
			}
		}
	}

	return urls, nested, nil
}
