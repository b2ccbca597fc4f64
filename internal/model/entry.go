package model

import "time"

// URLState represents the lifecycle state of a URL in the inventory.
//
// The state machine is:
//
//	(none) --Add--> DISCOVERED --queue--> QUEUED_FOR_CRAWL --crawl ok--> CRAWLED
//	                    |                        |
//	                    |                        +--crawl error--> FAILED
//	                    +--policy/limits--> BLOCKED_BY_POLICY
//
// CRAWLED and FAILED are terminal but re-enterable: a re-crawl or retry
// may move an entry back to QUEUED_FOR_CRAWL. BLOCKED_BY_POLICY is final.
type URLState string

// URL lifecycle states.
const (
	// StateDiscovered is the initial state of every admitted URL.
	StateDiscovered URLState = "DISCOVERED"

	// StateQueued marks a URL waiting in the breadth-first crawl queue.
	StateQueued URLState = "QUEUED_FOR_CRAWL"

	// StateCrawled marks a URL whose page was fetched and processed.
	StateCrawled URLState = "CRAWLED"

	// StateFailed marks a URL whose fetch or processing failed.
	// The error is recorded on the entry; discovery continues.
	StateFailed URLState = "FAILED"

	// StateBlocked marks a URL excluded by policy (auth pages, carts,
	// admin areas, depth limits). Blocking is intentional, not an error.
	StateBlocked URLState = "BLOCKED_BY_POLICY"
)

// Terminal reports whether the state is terminal in the lifecycle diagram.
// Terminal states other than BLOCKED_BY_POLICY may still be re-entered
// into the queue for re-crawl or retry.
func (s URLState) Terminal() bool {
	switch s {
	case StateCrawled, StateFailed, StateBlocked:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a path permitted
// by the lifecycle diagram. Same-state updates are allowed so that patches
// (status codes, timestamps) can be applied without a state change.
func (s URLState) CanTransition(next URLState) bool {
	if s == next {
		return true
	}

	switch s {
	case StateDiscovered:
		// Crawl outcomes are only reachable through the queue.
		return next == StateQueued || next == StateBlocked
	case StateQueued:
		return next == StateCrawled || next == StateFailed || next == StateBlocked
	case StateCrawled, StateFailed:
		// Re-crawl and retry re-enter the queue.
		return next == StateQueued
	case StateBlocked:
		return false
	default:
		return false
	}
}

// URLSource identifies how a URL entered the inventory.
type URLSource string

// URL discovery sources.
const (
	// SourceSeed is the job's starting URL (always depth 0).
	SourceSeed URLSource = "SEED"

	// SourceHomepage marks links extracted from the seed page.
	SourceHomepage URLSource = "HOMEPAGE"

	// SourceInternalLink marks links found in fetched HTML during
	// breadth-first discovery.
	SourceInternalLink URLSource = "INTERNAL_LINK"

	// SourceSitemap marks URLs read from XML sitemaps.
	SourceSitemap URLSource = "SITEMAP"

	// SourceRenderedDOM marks links that only appeared after JavaScript
	// rendering, not in the raw HTML.
	SourceRenderedDOM URLSource = "RENDERED_DOM"
)

// URLEntry is one row of the URL inventory: a single distinct URL
// (after normalization) with its discovery provenance and crawl outcome.
//
// Design decision: We keep one mutable entry per normalized URL rather
// than appending events because:
//  1. The normalized URL is the natural dedup key for the whole job
//  2. Downstream consumers want the latest state, not a history
//  3. Entries are never deleted, so aggregate counts stay consistent
type URLEntry struct {
	// OriginalURL is the URL exactly as it was discovered.
	OriginalURL string `json:"original_url"`

	// NormalizedURL is the canonical form used as the dedup key.
	// Unique across the inventory.
	NormalizedURL string `json:"normalized_url"`

	// State is the entry's current lifecycle state.
	State URLState `json:"state"`

	// Source records how the URL was discovered.
	Source URLSource `json:"source"`

	// Depth is the distance from the seed URL. The seed is depth 0;
	// sitemap and homepage URLs are depth 1.
	Depth int `json:"depth"`

	// ParentURL is the normalized URL of the page this URL was found on.
	// Back-reference only; empty for the seed and sitemap entries.
	ParentURL string `json:"parent_url,omitempty"`

	// CanonicalURL is the page's self-declared canonical URL, if any.
	CanonicalURL string `json:"canonical_url,omitempty"`

	// CrawlAttempts counts how many times a crawl was attempted.
	CrawlAttempts int `json:"crawl_attempts"`

	// LastCrawledAt is the time of the most recent crawl attempt.
	// Nil if the URL has never been crawled.
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`

	// ErrorMessage holds the most recent crawl error, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// RenderMode records how the page was obtained ("static" or "rendered").
	RenderMode string `json:"render_mode,omitempty"`

	// StatusCode is the HTTP status of the most recent fetch.
	StatusCode int `json:"status_code,omitempty"`

	// BlockReason is the human-readable policy reason for BLOCKED_BY_POLICY
	// entries ("Admin/dashboard page", "Maximum crawl depth reached", ...).
	BlockReason string `json:"block_reason,omitempty"`

	// DiscoveredAt is when the entry was added to the inventory.
	DiscoveredAt time.Time `json:"discovered_at"`

	// UpdatedAt is when the entry was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the entry. The inventory store hands out
// clones so callers cannot mutate indexed state behind its back.
func (e *URLEntry) Clone() *URLEntry {
	clone := *e
	if e.LastCrawledAt != nil {
		t := *e.LastCrawledAt
		clone.LastCrawledAt = &t
	}
	return &clone
}

// DiscoveryError records one non-fatal failure during discovery or crawl.
// Errors are accumulated on the report; they never abort the job.
type DiscoveryError struct {
	// URL is the URL being processed when the failure occurred.
	URL string `json:"url"`

	// Message is the error text.
	Message string `json:"message"`

	// Phase is the discovery phase active at the time of the failure.
	Phase string `json:"phase"`

	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// DiscoveryStats is a point-in-time snapshot of the inventory, computed
// by a full scan of the store.
type DiscoveryStats struct {
	// Phase is the discovery phase at the time of the snapshot.
	Phase string `json:"phase"`

	// TotalDiscovered is the number of entries in the inventory.
	TotalDiscovered int `json:"total_discovered"`

	// ByState counts entries per lifecycle state.
	ByState map[URLState]int `json:"by_state"`

	// BySource counts entries per discovery source.
	BySource map[URLSource]int `json:"by_source"`

	// MaxDepthReached is the largest depth of any entry.
	MaxDepthReached int `json:"max_depth_reached"`

	// ErrorCount is the number of entries in FAILED state.
	ErrorCount int `json:"error_count"`

	// CoveragePercent is CRAWLED / total * 100, 0 for an empty inventory.
	CoveragePercent float64 `json:"coverage_percent"`

	// Elapsed is the time since the discovery job started.
	Elapsed time.Duration `json:"elapsed"`
}
