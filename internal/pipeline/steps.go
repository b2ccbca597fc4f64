package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoscan/internal/discovery"
	"github.com/nao1215/seoscan/internal/inventory"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/normalizer"
	"github.com/nao1215/seoscan/internal/ratelimit"
	"github.com/nao1215/seoscan/internal/seo"
)

// DefaultCrawlConcurrency is the default number of concurrent page
// audits. Rationale: 4 workers saturate the default rate limit without
// piling requests onto small origin servers.
const DefaultCrawlConcurrency = 4

// DiscoveryStep runs the URL discovery engine and copies its result
// into the report.
//
// Design decision: Discovery is a pipeline step rather than a
// pre-Execute call because:
// 1. The report accumulates discovery errors alongside crawl errors
// 2. Cancellation between discovery and crawl is handled uniformly
// 3. Batch processing reuses the same step sequence per site
type DiscoveryStep struct {
	// engine performs the actual traversal. Its store is shared with
	// the crawl step.
	engine *discovery.Engine

	// logger for structured logging.
	logger *slog.Logger
}

// DiscoveryStepOption configures a DiscoveryStep.
type DiscoveryStepOption func(*DiscoveryStep)

// WithDiscoveryLogger sets a custom logger for the discovery step.
func WithDiscoveryLogger(logger *slog.Logger) DiscoveryStepOption {
	return func(s *DiscoveryStep) {
		s.logger = logger
	}
}

// NewDiscoveryStep creates a discovery step around the given engine.
func NewDiscoveryStep(engine *discovery.Engine, opts ...DiscoveryStepOption) *DiscoveryStep {
	s := &DiscoveryStep{
		engine: engine,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DiscoveryStep) Name() string {
	return "url_discovery"
}

// Do runs discovery. Discovery never returns an error; its failures are
// carried through the result's phase and error list.
func (s *DiscoveryStep) Do(ctx context.Context, report *model.CrawlReport) error {
	result := s.engine.Discover(ctx)

	report.Phase = string(result.Phase)
	report.Discovery = result.Stats
	for _, e := range result.Errors {
		report.AddError(e)
	}

	s.logger.Info("discovery finished",
		"phase", string(result.Phase),
		"discovered", result.Stats.TotalDiscovered,
		"errors", len(result.Errors),
	)

	return nil
}

// CrawlStep audits every crawlable inventory entry and records one
// PageRecord per attempt. A page failure produces a failed record and a
// FAILED entry state; it never stops the loop.
type CrawlStep struct {
	// store is the shared URL inventory produced by discovery.
	store *inventory.Store

	// auditor performs the per-page fetch and signal extraction.
	auditor *seo.Auditor

	// limiter throttles page audits. Shared with discovery so the
	// whole job honors one rate budget.
	limiter ratelimit.Limiter

	// norm resolves declared canonical URLs. A canonical tag that fails
	// normalization or points off-domain falls back to the page's own URL.
	norm *normalizer.Normalizer

	// concurrency bounds the audit worker pool.
	concurrency int

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLimiter sets the rate limiter applied before each audit.
func WithCrawlLimiter(l ratelimit.Limiter) CrawlStepOption {
	return func(s *CrawlStep) {
		s.limiter = l
	}
}

// WithCrawlConcurrency sets the number of concurrent page audits.
func WithCrawlConcurrency(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlNormalizer sets the normalizer used to resolve canonical
// tags. Pass the same normalizer discovery uses so both stages key
// URLs identically.
func WithCrawlNormalizer(n *normalizer.Normalizer) CrawlStepOption {
	return func(s *CrawlStep) {
		s.norm = n
	}
}

// NewCrawlStep creates a crawl step over the given store and auditor.
func NewCrawlStep(store *inventory.Store, auditor *seo.Auditor, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		store:       store,
		auditor:     auditor,
		limiter:     ratelimit.NopLimiter{},
		norm:        normalizer.New(normalizer.NewConfig()),
		concurrency: DefaultCrawlConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "page_audit"
}

// Do audits every entry that is eligible for a crawl: discovered,
// queued, or already link-expanded during discovery. Blocked entries
// are honored; previously failed entries are not retried by default.
//
// Design decision: We use errgroup.SetLimit rather than a hand-rolled
// worker pool because errgroup handles the concurrency bound and
// context plumbing correctly with far less code.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	entries := s.store.InState(model.StateDiscovered, model.StateQueued, model.StateCrawled)
	s.logger.Info("page audit started",
		"pages", len(entries),
		"concurrency", s.concurrency,
	)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}

			record := s.auditPage(ctx, entry, report.Domain)

			mu.Lock()
			report.Records = append(report.Records, *record)
			if !record.Success {
				report.AddError(model.DiscoveryError{
					URL:       entry.NormalizedURL,
					Message:   record.Error,
					Phase:     report.Phase,
					Timestamp: time.Now(),
				})
			}
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Cancellation mid-loop: keep the records gathered so far.
		s.logger.Warn("page audit interrupted", "error", err)
	}

	s.logger.Info("page audit finished", "records", len(report.Records))
	return nil
}

// auditPage runs one audit and applies the matching state transition.
// Entries enter the queue before the attempt so the lifecycle always
// reads QUEUED_FOR_CRAWL -> CRAWLED/FAILED, whatever state discovery
// left them in.
func (s *CrawlStep) auditPage(ctx context.Context, entry *model.URLEntry, domain string) *model.PageRecord {
	key := entry.NormalizedURL
	s.store.UpdateState(key, model.StateQueued)

	record, err := s.auditor.CrawlPage(ctx, entry)
	if err != nil {
		s.store.UpdateState(key, model.StateFailed,
			inventory.WithErrorMessage(err.Error()),
			inventory.WithCrawlAttempt(),
		)
		return &model.PageRecord{
			URL:           entry.OriginalURL,
			NormalizedURL: key,
			Success:       false,
			Error:         err.Error(),
			CrawledAt:     time.Now(),
		}
	}

	patches := []inventory.Patch{
		inventory.WithStatusCode(record.StatusCode),
		inventory.WithRenderMode(record.RenderMode),
		inventory.WithCrawlAttempt(),
	}
	if record.Signals != nil && record.Signals.CanonicalURL != "" {
		canonical := s.norm.ResolveCanonical(entry.OriginalURL, record.Signals.CanonicalURL, domain)
		patches = append(patches, inventory.WithCanonicalURL(canonical))
	}
	s.store.UpdateState(key, model.StateCrawled, patches...)

	return record
}

// SummarizeStep snapshots the inventory into the report and computes
// the aggregate crawl summary. It must run last.
type SummarizeStep struct {
	// store is the shared URL inventory.
	store *inventory.Store
}

// NewSummarizeStep creates a summarize step over the given store.
func NewSummarizeStep(store *inventory.Store) *SummarizeStep {
	return &SummarizeStep{store: store}
}

// Name returns the step name.
func (s *SummarizeStep) Name() string {
	return "summarize"
}

// Do snapshots the full inventory and aggregates the crawl records.
func (s *SummarizeStep) Do(_ context.Context, report *model.CrawlReport) error {
	report.Entries = s.store.All()
	report.FinishedAt = time.Now()
	report.Summarize()
	return nil
}
