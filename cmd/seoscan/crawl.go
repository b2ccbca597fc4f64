package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/database"
	"github.com/nao1215/seoscan/internal/discovery"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/inventory"
	"github.com/nao1215/seoscan/internal/log"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/normalizer"
	"github.com/nao1215/seoscan/internal/pipeline"
	"github.com/nao1215/seoscan/internal/ratelimit"
	"github.com/nao1215/seoscan/internal/report"
	"github.com/nao1215/seoscan/internal/seo"
	"github.com/nao1215/seoscan/internal/sitemap"
	"github.com/spf13/cobra"
)

// recentAuditWindow is how far back to look when warning about a
// repeated audit of the same domain. One day covers the common case of
// accidentally re-running the same job twice.
const recentAuditWindow = 24 * time.Hour

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Discover and audit the crawlable URLs of a website",
		Long: `Crawl discovers the URL inventory of a website and audits each page.

Discovery runs in phases: the sitemap (found via robots.txt or the
well-known paths) seeds the inventory, the homepage is crawled for
links, and then internal links are followed breadth-first up to the
depth limit. Pages matching built-in policy rules (login, cart, admin,
API endpoints) are recorded as blocked and never fetched.

Each discovered page is then audited for on-page SEO signals: title,
meta description, headings, canonical URL, robots directives.

Examples:
  # Audit a single site
  seoscan crawl https://example.com

  # Audit multiple sites concurrently
  seoscan crawl site1.example site2.example site3.example

  # Limit discovery depth and inventory size
  seoscan crawl --depth 2 --max-urls 100 https://example.com

  # Skip URLs by pattern (substring or /regex/)
  seoscan crawl -x /tags/ -x '/\?page=\d+$/' https://example.com

  # Output JSON report to a file
  seoscan crawl --json -o report.json https://example.com

  # Use a custom configuration file
  seoscan crawl -c myconfig.yaml https://example.com

Configuration file (.seoscan) example:
  defaults:
    excludePatterns:
      - "/search"
  sites:
    example.com:
      maxDepth: 5
      jsRendering: true
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed URL")
	cmd.Flags().IntP("max-urls", "u", config.DefaultMaxURLs,
		"Maximum number of URLs to discover per site")
	cmd.Flags().IntP("rate", "r", config.DefaultRatePerMinute,
		"Maximum requests per minute per site (0 disables rate limiting)")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of concurrent page audits per site")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("subdomains", false,
		"Include subdomains of the seed domain in the crawl scope")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"URL patterns to skip (substring match, or /.../ for regex; repeatable)")
	cmd.Flags().Bool("no-sitemap", false,
		"Skip the sitemap discovery phase")
	cmd.Flags().Bool("js-render", false,
		"Extract links from the rendered homepage DOM in addition to static HTML")
	cmd.Flags().Bool("no-https-upgrade", false,
		"Do not upgrade http:// URLs to https:// during normalization")
	cmd.Flags().Bool("strip-trailing-slash", false,
		"Treat /path and /path/ as the same URL")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent site crawls")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxURLs, err = cmd.Flags().GetInt("max-urls")
	if err != nil {
		return nil, err
	}

	cfg.RatePerMinute, err = cmd.Flags().GetInt("rate")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.IncludeSubdomains, err = cmd.Flags().GetBool("subdomains")
	if err != nil {
		return nil, err
	}

	cfg.ExcludePatterns, err = cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return nil, err
	}

	noSitemap, err := cmd.Flags().GetBool("no-sitemap")
	if err != nil {
		return nil, err
	}
	cfg.SitemapDiscovery = !noSitemap

	cfg.JSRendering, err = cmd.Flags().GetBool("js-render")
	if err != nil {
		return nil, err
	}

	noHTTPSUpgrade, err := cmd.Flags().GetBool("no-https-upgrade")
	if err != nil {
		return nil, err
	}
	cfg.EnforceHTTPS = !noHTTPSUpgrade

	cfg.RemoveTrailingSlash, err = cmd.Flags().GetBool("strip-trailing-slash")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (seed URLs), normalized to carry a scheme
	cfg.SeedURLs = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.SeedURLs = append(cfg.SeedURLs, ensureScheme(strings.TrimSpace(arg)))
	}

	return cfg, nil
}

// ensureScheme prepends https:// to bare hostnames so "example.com"
// works as a seed. URLs that already carry a scheme pass through
// untouched; truly unparseable seeds fail inside discovery and are
// carried in the report rather than aborting the run.
func ensureScheme(seed string) string {
	if seed == "" || strings.Contains(seed, "://") {
		return seed
	}
	return "https://" + seed
}

// seedDomain derives the crawl scope domain from a seed URL.
func seedDomain(seed string) string {
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// runCrawl executes the crawl across all configured seeds.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.SeedURLs,
		"maxDepth", cfg.MaxDepth,
		"maxURLs", cfg.MaxURLs,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)

		warnRecentAudits(ctx, db, cfg.SeedURLs, logger)
	}

	// Use batch processor for parallel crawling if multiple seeds
	if len(cfg.SeedURLs) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}

	// Single seed or sequential crawling
	return runSequentialCrawl(ctx, cfg, db, logger)
}

// warnRecentAudits warns when a seed's domain was already audited
// within the recent window. Results are still appended; the warning
// only flags a likely duplicate run.
func warnRecentAudits(ctx context.Context, db *database.CrawlDB, seeds []string, logger *slog.Logger) {
	for _, seed := range seeds {
		domain := seedDomain(seed)
		if domain == "" {
			continue
		}
		recent, err := db.HasRecentAudit(ctx, domain, recentAuditWindow)
		if err != nil {
			logger.Debug("recent audit check failed", "domain", domain, "error", err)
			continue
		}
		if recent {
			fmt.Fprintf(os.Stderr, "Note: %s was audited within the last %s; results will be appended to its history.\n",
				domain, recentAuditWindow)
		}
	}
}

// runSequentialCrawl crawls seeds one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	for _, seed := range cfg.SeedURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		crawlReport := model.NewCrawlReport(seed, seedDomain(seed))

		fmt.Printf("Crawling %s...\n", seed)
		startTime := time.Now()

		// Execute the pipeline; per-page and per-phase failures are
		// carried in the report rather than returned.
		createPipelineForSeed(cfg, seed, logger).Execute(ctx, crawlReport)

		elapsed := time.Since(startTime)
		fmt.Printf("Crawl finished in %s (%d URLs discovered)\n\n",
			elapsed.Round(time.Millisecond), crawlReport.Discovery.TotalDiscovered)

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "seed", seed, "error", err)
		}

		// Save to database if enabled
		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to save crawl report", "seed", seed, "error", err)
		}
	}

	return nil
}

// runBatchCrawl crawls multiple seeds concurrently using BatchProcessor.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d sites (concurrency: %d)...\n\n",
		len(cfg.SeedURLs), cfg.BatchSize)

	startTime := time.Now()

	// Create batch processor with a per-seed pipeline factory. Each
	// site gets its own inventory store and discovery engine.
	bp := pipeline.NewBatchProcessor(
		func(seedURL string) *pipeline.Pipeline {
			return createPipelineForSeed(cfg, seedURL, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.SeedURLs, func(crawlReport *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Crawl completed: %s\n", index+1, len(cfg.SeedURLs), crawlReport.Domain)

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "domain", crawlReport.Domain, "error", err)
		}

		// Save to database if enabled
		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to save crawl report", "domain", crawlReport.Domain, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// createPipelineForSeed builds the three-step crawl pipeline for one
// seed, merging the site-specific configuration for its domain.
func createPipelineForSeed(cfg *config.Config, seed string, logger *slog.Logger) *pipeline.Pipeline {
	domain := seedDomain(seed)
	siteConfig := getSiteConfig(cfg, domain)

	// Resolve effective limits (site-specific overrides global)
	maxDepth := cfg.MaxDepth
	if siteConfig.MaxDepth > 0 {
		maxDepth = siteConfig.MaxDepth
	}
	maxURLs := cfg.MaxURLs
	if siteConfig.MaxURLs > 0 {
		maxURLs = siteConfig.MaxURLs
	}
	ratePerMinute := cfg.RatePerMinute
	if siteConfig.RatePerMinute > 0 {
		ratePerMinute = siteConfig.RatePerMinute
	}
	excludePatterns := append([]string{}, cfg.ExcludePatterns...)
	excludePatterns = append(excludePatterns, siteConfig.ExcludePatterns...)
	includeSubdomains := cfg.IncludeSubdomains || siteConfig.IncludeSubdomains
	jsRendering := cfg.JSRendering || siteConfig.JSRendering

	// URL normalization rules shared by discovery and the inventory key
	normCfg := normalizer.NewConfig()
	normCfg.EnforceHTTPS = cfg.EnforceHTTPS
	normCfg.RemoveTrailingSlash = cfg.RemoveTrailingSlash
	norm := normalizer.New(normCfg)

	// HTTP fetcher shared by discovery, sitemap parsing, and page audits
	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(siteConfig.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetcher.WithHeaders(siteConfig.Headers))
	}
	fetch := fetcher.New(fetchOpts...)

	// One limiter per site keeps the rate cap across discovery and audits
	var limiter ratelimit.Limiter = ratelimit.NopLimiter{}
	if ratePerMinute > 0 {
		limiter = ratelimit.NewRequestLimiter(ratePerMinute)
	}

	auditorOpts := []seo.AuditorOption{}
	var renderer seo.Renderer
	if jsRendering {
		renderer = seo.NewFetchRenderer(fetch)
		auditorOpts = append(auditorOpts, seo.WithRenderer(renderer))
	}
	auditor := seo.NewAuditor(fetch, auditorOpts...)

	store := inventory.New()

	engineOpts := []discovery.Option{
		discovery.WithStore(store),
		discovery.WithNormalizer(norm),
		discovery.WithFetcher(fetch),
		discovery.WithSitemapSource(sitemap.New(fetch, sitemap.WithMaxURLs(maxURLs))),
		discovery.WithLimiter(limiter),
		discovery.WithLogger(logger),
		discovery.WithMaxDepth(maxDepth),
		discovery.WithMaxURLs(maxURLs),
		discovery.WithIncludeSubdomains(includeSubdomains),
		discovery.WithExcludePatterns(excludePatterns),
		discovery.WithSitemapDiscovery(cfg.SitemapDiscovery),
		discovery.WithJSRendering(jsRendering),
		discovery.WithProgressFunc(func(stats model.DiscoveryStats) {
			logger.Debug("discovery progress",
				"phase", stats.Phase,
				"discovered", stats.TotalDiscovered,
				"queued", stats.ByState[model.StateQueued],
			)
		}),
	}
	if renderer != nil {
		engineOpts = append(engineOpts, discovery.WithRenderer(renderer))
	}
	engine := discovery.New(seed, domain, engineOpts...)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewDiscoveryStep(engine, pipeline.WithDiscoveryLogger(logger)),
		pipeline.NewCrawlStep(store, auditor,
			pipeline.WithCrawlLimiter(limiter),
			pipeline.WithCrawlConcurrency(cfg.Concurrency),
			pipeline.WithCrawlNormalizer(norm),
			pipeline.WithCrawlLogger(logger),
		),
		pipeline.NewSummarizeStep(store),
	)
	return p
}

// getSiteConfig returns the merged site configuration for a domain.
func getSiteConfig(cfg *config.Config, domain string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(domain)
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions.
		// Reports can include URLs from staging environments.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(crawlReport)
	return err
}

// saveCrawlReport saves the crawl report to the database if enabled.
// If db is nil, this function is a no-op.
func saveCrawlReport(ctx context.Context, db *database.CrawlDB, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveCrawlReport(ctx, crawlReport); err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	logger.Info("crawl report saved to database", "domain", crawlReport.Domain, "jobID", crawlReport.JobID)
	return nil
}
