package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/seoscan/internal/extractor"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/inventory"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/normalizer"
	"github.com/nao1215/seoscan/internal/ratelimit"
	"github.com/nao1215/seoscan/internal/seo"
	"github.com/nao1215/seoscan/internal/sitemap"
)

// Phase identifies where the discovery engine is in its run.
type Phase string

// Discovery phases, in execution order. FAILED and PAUSED are reachable
// from any phase: FAILED on an unrecoverable setup error (unusable seed
// URL), PAUSED on external abort.
const (
	PhaseInitializing     Phase = "INITIALIZING"
	PhaseSitemapDiscovery Phase = "SITEMAP_DISCOVERY"
	PhaseHomepageCrawl    Phase = "HOMEPAGE_CRAWL"
	PhaseLinkDiscovery    Phase = "LINK_DISCOVERY"
	PhaseCompleted        Phase = "COMPLETED"
	PhaseFailed           Phase = "FAILED"
	PhasePaused           Phase = "PAUSED"
)

// DefaultMaxDepth is the default crawl depth limit.
// Rationale: depth 3 from the homepage reaches the overwhelming majority
// of pages a search engine would weight; deeper pages are usually
// pagination tails and faceted-navigation noise.
const DefaultMaxDepth = 3

// DefaultMaxURLs is the default inventory ceiling.
// Rationale: 500 URLs keeps a default audit under a few minutes at the
// default rate limit while covering small and mid-size sites completely.
const DefaultMaxURLs = 500

// progressInterval is how many processed URLs pass between progress
// emissions during the breadth-first loop.
const progressInterval = 10

// Result is the outcome of one discovery run. Discover always returns
// a Result; failure is communicated through Phase and Errors, never
// through a thrown value.
type Result struct {
	// Phase is the final phase: COMPLETED, PAUSED, or FAILED.
	Phase Phase

	// Stats is the inventory snapshot at the end of the run.
	Stats model.DiscoveryStats

	// Errors lists every non-fatal failure recorded during the run.
	Errors []model.DiscoveryError
}

// Engine orchestrates URL discovery for one site.
type Engine struct {
	seedURL string
	domain  string

	store   *inventory.Store
	norm    *normalizer.Normalizer
	fetcher fetcher.Fetcher
	render  seo.Renderer
	sitemap sitemap.Source
	limiter ratelimit.Limiter
	logger  *slog.Logger

	maxDepth          int
	maxURLs           int
	includeSubdomains bool
	excludePatterns   []string
	sitemapDiscovery  bool
	jsRendering       bool

	onProgress   func(model.DiscoveryStats)
	onDiscovered func(*model.URLEntry)
	onError      func(model.DiscoveryError)

	aborted atomic.Bool

	mu        sync.Mutex
	phase     Phase
	errors    []model.DiscoveryError
	startedAt time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore supplies the URL inventory. Defaults to a fresh in-memory
// store; inject one to share the inventory with the crawl pipeline.
func WithStore(s *inventory.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithNormalizer supplies the URL normalizer.
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(e *Engine) { e.norm = n }
}

// WithFetcher supplies the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithRenderer supplies a renderer for JS-assisted homepage discovery.
// It is only consulted when WithJSRendering(true) is also set.
func WithRenderer(r seo.Renderer) Option {
	return func(e *Engine) { e.render = r }
}

// WithSitemapSource supplies the sitemap discovery collaborator.
func WithSitemapSource(s sitemap.Source) Option {
	return func(e *Engine) { e.sitemap = s }
}

// WithLimiter supplies the rate limiter applied before each fetch in
// the breadth-first loop.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithLogger supplies a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxDepth sets the crawl depth limit. Entries at the limit are
// blocked, not expanded.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.maxDepth = depth }
}

// WithMaxURLs sets the inventory ceiling. Zero or negative disables it.
func WithMaxURLs(n int) Option {
	return func(e *Engine) { e.maxURLs = n }
}

// WithIncludeSubdomains widens the scope to subdomains of the target
// domain.
func WithIncludeSubdomains(include bool) Option {
	return func(e *Engine) { e.includeSubdomains = include }
}

// WithExcludePatterns sets user-configured exclusion patterns. Matching
// candidates are silently dropped at admission.
func WithExcludePatterns(patterns []string) Option {
	return func(e *Engine) { e.excludePatterns = patterns }
}

// WithSitemapDiscovery toggles the sitemap discovery phase.
func WithSitemapDiscovery(enabled bool) Option {
	return func(e *Engine) { e.sitemapDiscovery = enabled }
}

// WithJSRendering toggles rendered-DOM link extraction on the homepage.
func WithJSRendering(enabled bool) Option {
	return func(e *Engine) { e.jsRendering = enabled }
}

// WithProgressFunc registers the progress observer, fired after the
// seed is added, after each phase, and every 10 processed URLs.
func WithProgressFunc(fn func(model.DiscoveryStats)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// WithDiscoveredFunc registers an observer for each admitted URL.
func WithDiscoveredFunc(fn func(*model.URLEntry)) Option {
	return func(e *Engine) { e.onDiscovered = fn }
}

// WithErrorFunc registers an observer for each recorded error.
func WithErrorFunc(fn func(model.DiscoveryError)) Option {
	return func(e *Engine) { e.onError = fn }
}

// New creates a discovery engine for seedURL scoped to domain.
func New(seedURL, domain string, opts ...Option) *Engine {
	e := &Engine{
		seedURL:          seedURL,
		domain:           domain,
		maxDepth:         DefaultMaxDepth,
		maxURLs:          DefaultMaxURLs,
		sitemapDiscovery: true,
		phase:            PhaseInitializing,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = inventory.New()
	}
	if e.norm == nil {
		e.norm = normalizer.New(normalizer.NewConfig())
	}
	if e.fetcher == nil {
		e.fetcher = fetcher.New()
	}
	if e.limiter == nil {
		e.limiter = ratelimit.NopLimiter{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return e
}

// Store returns the engine's URL inventory. The crawl pipeline reads
// discovered entries through it after Discover returns.
func (e *Engine) Store() *inventory.Store {
	return e.store
}

// Abort requests a stop. The breadth-first loop checks the flag once
// per iteration, finishes the current URL, and ends the run in PAUSED.
// Abort is idempotent and safe from any goroutine.
func (e *Engine) Abort() {
	e.aborted.Store(true)
}

// Discover runs the full discovery sequence and always returns a
// Result: partial inventory plus recorded errors on failure, never a
// panic or an error value. The only fatal condition is a seed URL that
// does not normalize.
func (e *Engine) Discover(ctx context.Context) *Result {
	e.mu.Lock()
	e.startedAt = time.Now()
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.recordError("", fmt.Sprintf("unexpected failure: %v", r))
			e.setPhase(PhaseFailed)
		}
	}()

	e.run(ctx)

	return e.result()
}

// run executes the phase sequence.
func (e *Engine) run(ctx context.Context) {
	e.setPhase(PhaseInitializing)

	seedKey, ok := e.addSeed()
	if !ok {
		e.setPhase(PhaseFailed)
		return
	}
	e.emitProgress()

	if e.sitemapDiscovery && e.sitemap != nil {
		e.setPhase(PhaseSitemapDiscovery)
		e.discoverSitemaps(ctx)
		e.emitProgress()
	}

	if e.stopped(ctx) {
		e.setPhase(PhasePaused)
		return
	}

	e.setPhase(PhaseHomepageCrawl)
	e.crawlHomepage(ctx, seedKey)
	e.emitProgress()

	if e.stopped(ctx) {
		e.setPhase(PhasePaused)
		return
	}

	e.setPhase(PhaseLinkDiscovery)
	paused := e.discoverLinks(ctx)
	e.emitProgress()

	if paused {
		e.setPhase(PhasePaused)
		return
	}
	e.setPhase(PhaseCompleted)
}

// addSeed normalizes and admits the seed URL at depth 0, already queued.
// A seed that fails to normalize is the one fatal condition of the run.
func (e *Engine) addSeed() (string, bool) {
	normalized, ok := e.norm.Normalize(e.seedURL, "")
	if !ok {
		e.recordError(e.seedURL, "seed URL cannot be parsed or normalized")
		return "", false
	}

	entry := e.store.Add(&model.URLEntry{
		OriginalURL:   e.seedURL,
		NormalizedURL: normalized,
		State:         model.StateQueued,
		Source:        model.SourceSeed,
		Depth:         0,
	})
	if entry != nil {
		e.notifyDiscovered(entry)
	}

	e.logger.Info("discovery started", "seed", normalized, "domain", e.domain)
	return normalized, true
}

// discoverSitemaps locates the site's sitemaps and admits every URL they
// list at depth 1 with no parent. Per-sitemap failures are recorded and
// skipped; the phase itself never fails.
func (e *Engine) discoverSitemaps(ctx context.Context) {
	locations := e.sitemap.Discover(ctx, e.domain)
	e.logger.Info("sitemap discovery", "candidates", len(locations))

	for _, loc := range locations {
		if e.stopped(ctx) {
			return
		}

		urls, err := e.sitemap.Parse(ctx, loc)
		if err != nil {
			e.recordError(loc, err.Error())
			continue
		}

		for _, u := range urls {
			e.addDiscoveredURL(u, "", 1, model.SourceSitemap)
		}
		e.logger.Info("sitemap parsed", "sitemap", loc, "urls", len(urls))
	}
}

// crawlHomepage extracts links from the seed page, admits them at depth
// 1 with the seed as parent, and marks the seed crawled. A seed fetch
// failure marks the seed FAILED and is recorded; discovery continues
// with whatever the sitemap phase queued.
func (e *Engine) crawlHomepage(ctx context.Context, seedKey string) {
	candidates, statusCode, err := e.extractPageLinks(ctx, seedKey, model.SourceHomepage)
	if err != nil {
		e.recordError(seedKey, err.Error())
		e.store.UpdateState(seedKey, model.StateFailed,
			inventory.WithErrorMessage(err.Error()),
			inventory.WithCrawlAttempt(),
		)
		return
	}

	for _, c := range candidates {
		e.addDiscoveredURL(c.url, seedKey, 1, c.source)
	}

	e.store.UpdateState(seedKey, model.StateCrawled,
		inventory.WithStatusCode(statusCode),
		inventory.WithCrawlAttempt(),
	)
	e.logger.Info("homepage crawled", "links", len(candidates))
}

// discoverLinks runs the breadth-first expansion loop. It returns true
// when the run was aborted mid-loop.
func (e *Engine) discoverLinks(ctx context.Context) (paused bool) {
	processed := 0

	for {
		if e.stopped(ctx) {
			return true
		}
		if e.maxURLs > 0 && e.store.Len() >= e.maxURLs {
			e.logger.Info("URL ceiling reached", "limit", e.maxURLs)
			return false
		}

		entry := e.store.NextToCrawl()
		if entry == nil {
			return false
		}

		// Entries at the depth limit are blocked, never expanded.
		if entry.Depth >= e.maxDepth {
			e.store.UpdateState(entry.NormalizedURL, model.StateBlocked,
				inventory.WithBlockReason("Maximum crawl depth reached"),
			)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return true
		}

		candidates, statusCode, err := e.extractPageLinks(ctx, entry.NormalizedURL, model.SourceInternalLink)
		if err != nil {
			e.recordError(entry.NormalizedURL, err.Error())
			e.store.UpdateState(entry.NormalizedURL, model.StateFailed,
				inventory.WithErrorMessage(err.Error()),
				inventory.WithCrawlAttempt(),
			)
			continue
		}

		for _, c := range candidates {
			e.addDiscoveredURL(c.url, entry.NormalizedURL, entry.Depth+1, c.source)
		}

		e.store.UpdateState(entry.NormalizedURL, model.StateCrawled,
			inventory.WithStatusCode(statusCode),
			inventory.WithCrawlAttempt(),
		)

		processed++
		if processed%progressInterval == 0 {
			e.emitProgress()
		}
	}
}

// candidate is one link found on a page, tagged with the source it will
// carry into the inventory.
type candidate struct {
	url    string
	source model.URLSource
}

// extractPageLinks fetches pageURL and returns its anchor targets.
// With JS rendering enabled and htmlSource == SourceHomepage, the
// rendered DOM is additionally extracted and merged: links present in
// the raw HTML keep the HTML-derived classification, links that only
// appear after rendering are tagged RENDERED_DOM. Raw HTML is always
// extracted first, so the merge is deterministic.
func (e *Engine) extractPageLinks(ctx context.Context, pageURL string, htmlSource model.URLSource) ([]candidate, int, error) {
	resp, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	if !resp.IsHTML() {
		// Non-HTML responses have no links; the page still counts as crawled.
		return nil, resp.StatusCode, nil
	}

	links, err := extractor.ExtractLinks(pageURL, resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	seen := make(map[string]struct{}, len(links))
	candidates := make([]candidate, 0, len(links))
	for _, link := range links {
		if e.norm.MatchesExcludePattern(link.URL, e.excludePatterns) {
			continue
		}
		key, ok := e.norm.Normalize(link.URL, pageURL)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate{url: link.URL, source: htmlSource})
	}

	// JS-assisted extraction is homepage-only to bound rendering cost.
	if e.jsRendering && e.render != nil && htmlSource == model.SourceHomepage {
		rendered, err := e.render.Render(ctx, pageURL)
		if err != nil {
			e.recordError(pageURL, fmt.Sprintf("rendered-DOM extraction: %v", err))
		} else if renderedLinks, err := extractor.ExtractLinks(pageURL, rendered.HTML); err == nil {
			for _, link := range renderedLinks {
				key, ok := e.norm.Normalize(link.URL, pageURL)
				if !ok {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				candidates = append(candidates, candidate{url: link.URL, source: model.SourceRenderedDOM})
			}
		}
	}

	return candidates, resp.StatusCode, nil
}

// addDiscoveredURL is the admission contract for every candidate URL.
// It silently rejects unparsable, out-of-scope, excluded, duplicate, and
// over-ceiling candidates; admitted URLs are either queued for crawl or
// blocked by a built-in policy rule with a human-readable reason.
func (e *Engine) addDiscoveredURL(rawURL, parentKey string, depth int, source model.URLSource) bool {
	if !e.norm.IsValidCrawlableURL(rawURL) {
		return false
	}

	normalized, ok := e.norm.Normalize(rawURL, parentKey)
	if !ok {
		return false
	}
	if !e.norm.IsSameDomain(normalized, e.domain, e.includeSubdomains) {
		return false
	}
	if e.norm.MatchesExcludePattern(normalized, e.excludePatterns) {
		return false
	}
	if e.maxURLs > 0 && e.store.Len() >= e.maxURLs {
		return false
	}

	entry := &model.URLEntry{
		OriginalURL:   rawURL,
		NormalizedURL: normalized,
		Source:        source,
		Depth:         depth,
		ParentURL:     parentKey,
	}

	if reason, blocked := policyBlockReason(normalized); blocked {
		entry.State = model.StateBlocked
		entry.BlockReason = reason
	} else {
		entry.State = model.StateQueued
	}

	added := e.store.Add(entry)
	if added == nil {
		return false
	}

	e.notifyDiscovered(added)
	return true
}

// stopped reports whether the run should end early: external abort or
// context cancellation.
func (e *Engine) stopped(ctx context.Context) bool {
	if e.aborted.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// setPhase advances the phase.
func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	e.logger.Info("phase change", "phase", string(p))
}

// recordError appends a DiscoveryError for the current phase and
// notifies the error observer.
func (e *Engine) recordError(url, message string) {
	e.mu.Lock()
	discErr := model.DiscoveryError{
		URL:       url,
		Message:   message,
		Phase:     string(e.phase),
		Timestamp: time.Now(),
	}
	e.errors = append(e.errors, discErr)
	e.mu.Unlock()

	e.logger.Warn("discovery error", "url", url, "error", message)
	if e.onError != nil {
		e.onError(discErr)
	}
}

// emitProgress snapshots the inventory and fires the progress observer.
// The snapshot reflects the store state at emission time.
func (e *Engine) emitProgress() {
	e.mu.Lock()
	phase := e.phase
	startedAt := e.startedAt
	e.mu.Unlock()

	stats := e.store.Stats(string(phase), startedAt)
	if e.onProgress != nil {
		e.onProgress(stats)
	}
}

// notifyDiscovered fires the discovered observer.
func (e *Engine) notifyDiscovered(entry *model.URLEntry) {
	if e.onDiscovered != nil {
		e.onDiscovered(entry)
	}
}

// result builds the final Result from the engine state.
func (e *Engine) result() *Result {
	e.mu.Lock()
	phase := e.phase
	startedAt := e.startedAt
	errs := make([]model.DiscoveryError, len(e.errors))
	copy(errs, e.errors)
	e.mu.Unlock()

	return &Result{
		Phase:  phase,
		Stats:  e.store.Stats(string(phase), startedAt),
		Errors: errs,
	}
}
