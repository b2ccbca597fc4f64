package model

import "time"

// Render modes recorded on crawl results.
const (
	// RenderModeStatic means the page was processed from raw HTML.
	RenderModeStatic = "static"

	// RenderModeRendered means the page went through the rendering
	// collaborator (JavaScript-assisted DOM) before extraction.
	RenderModeRendered = "rendered"
)

// SEOSignals holds the on-page signals extracted from a single page.
// Extraction itself lives in the seo package; this struct is just the
// transport between the crawler and the report.
type SEOSignals struct {
	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string `json:"meta_description,omitempty"`

	// H1Count is the number of <h1> elements on the page.
	H1Count int `json:"h1_count"`

	// CanonicalURL is the href of <link rel="canonical">, if present.
	CanonicalURL string `json:"canonical_url,omitempty"`

	// RobotsMeta is the content of <meta name="robots">, if present.
	RobotsMeta string `json:"robots_meta,omitempty"`

	// WordCount is the approximate number of words of visible text.
	WordCount int `json:"word_count"`

	// InternalLinkCount and ExternalLinkCount count anchors by scope.
	InternalLinkCount int `json:"internal_link_count"`
	ExternalLinkCount int `json:"external_link_count"`
}

// PageRecord is the outcome of one per-page crawl: the mapping of the
// crawl collaborator's result onto the inventory entry it belongs to.
type PageRecord struct {
	// URL is the original URL that was crawled.
	URL string `json:"url"`

	// NormalizedURL is the inventory key of the crawled entry.
	NormalizedURL string `json:"normalized_url"`

	// Success is true when the page was fetched and processed.
	Success bool `json:"success"`

	// RenderMode is how the page was obtained (static or rendered).
	RenderMode string `json:"render_mode"`

	// StatusCode is the HTTP status of the fetch, 0 on transport errors.
	StatusCode int `json:"status_code,omitempty"`

	// Signals holds the extracted SEO signals. Nil on failure.
	Signals *SEOSignals `json:"signals,omitempty"`

	// Duration is the wall-clock time of the crawl including rendering.
	Duration time.Duration `json:"duration"`

	// Error is the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// CrawledAt is when the crawl finished.
	CrawledAt time.Time `json:"crawled_at"`
}
