package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoscan/internal/model"
)

// BatchProcessor handles concurrent crawling of multiple sites.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-site execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each seed URL.
	// A factory is required because every site needs its own inventory
	// store and discovery engine; pipeline state must not leak between
	// jobs.
	pipelineFactory func(seedURL string) *Pipeline

	// concurrency is the maximum number of concurrent site crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed crawl reports.
	// Access is synchronized via mutex.
	results []*model.CrawlReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent site crawls.
// Default is 3 if not specified: sites are crawled politely one page at
// a time, so a handful of parallel sites already keeps the job busy.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seedURL string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     3,
		results:         make([]*model.CrawlReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls multiple sites concurrently. It respects the
// configured concurrency limit and context cancellation.
//
// Returns all reports collected, even for sites whose crawl failed; the
// failure details live in each report's Errors list. The error return
// indicates batch-level cancellation only.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seedURLs []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch crawl",
		"total_sites", len(seedURLs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order.
	bp.results = make([]*model.CrawlReport, len(seedURLs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seedURLs {
		i, seed := i, seed
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("crawling site",
				"seed", seed,
				"index", i+1,
				"total", len(seedURLs),
			)

			report := model.NewCrawlReport(seed, domainOf(seed))
			bp.pipelineFactory(seed).Execute(ctx, report)

			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			bp.logger.Info("site crawl finished",
				"seed", seed,
				"success", report.Success,
			)

			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch crawl complete",
		"total_sites", len(seedURLs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback crawls multiple sites and calls a callback
// for each completed job. This is useful for streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. It is called from the goroutine that completed the
// crawl, so it must be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seedURLs []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch crawl with callback",
		"total_sites", len(seedURLs),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seedURLs {
		i, seed := i, seed
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewCrawlReport(seed, domainOf(seed))
			bp.pipelineFactory(seed).Execute(ctx, report)

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}

// domainOf derives the scope domain from a seed URL. A seed that does
// not parse yields an empty domain; discovery will reject it as fatal.
func domainOf(seedURL string) string {
	u, err := url.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
