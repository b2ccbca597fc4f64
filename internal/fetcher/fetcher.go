package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Default fetch settings.
const (
	// DefaultTimeout bounds a single page fetch. 30 seconds covers slow
	// origin servers without letting one page stall the whole crawl.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps how much of a response body is read.
	// 5MB is generous for HTML while preventing memory exhaustion from
	// unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies seoscan in HTTP requests. A descriptive
	// User-Agent lets site operators identify crawler traffic.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/nao1215/seoscan)"
)

// Response is the result of fetching one page. The body is decoded to
// UTF-8 regardless of the origin charset.
type Response struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// Body is the response body decoded to UTF-8, capped at the
	// configured maximum size.
	Body []byte

	// ContentType is the Content-Type header value.
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Response) IsHTML() bool {
	return strings.Contains(r.ContentType, "text/html") ||
		strings.Contains(r.ContentType, "application/xhtml+xml")
}

// Fetcher fetches a single page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// HTTPFetcher fetches pages over plain HTTP(S).
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	headers     map[string]string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders adds custom headers to every request, e.g. authentication
// cookies from the per-site configuration.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithClient replaces the underlying HTTP client. Used in tests.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// New creates an HTTPFetcher with default settings.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch performs a GET of rawURL and returns the decoded response.
// Non-2xx statuses are not errors: the caller decides what a 404 means
// for the entry. Transport failures and decode failures are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	// Decode to UTF-8 using the charset declared in the header or the
	// document itself. charset.NewReader falls back to sniffing.
	limited := io.LimitReader(resp.Body, f.maxBodySize)
	decoded, err := charset.NewReader(limited, contentType)
	if err != nil {
		// Undecodable charset: read the raw bytes rather than dropping
		// the page. Link extraction tolerates mixed encodings.
		decoded = limited
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: contentType,
		FinalURL:    finalURL,
	}, nil
}
