package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to keep a default audit polite toward origin
// servers while still covering small and mid-size sites completely.
const (
	// DefaultTimeout is set to 30 seconds per request. Slow origins and
	// heavy pages need headroom, but anything beyond 30 seconds is
	// almost always a hung connection rather than a slow render.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth of 3 reaches the overwhelming majority of pages a
	// search engine would weight. Deeper pages are usually pagination
	// tails and faceted-navigation noise. Larger sites may need this
	// increased via CLI flags.
	DefaultMaxDepth = 3

	// DefaultMaxURLs is the inventory ceiling per site. 500 URLs keeps
	// a default audit under a few minutes at the default rate limit.
	// Users can override this via the --max-urls CLI flag.
	DefaultMaxURLs = 500

	// DefaultRatePerMinute caps outbound requests at one per second.
	// This is a politeness setting: an SEO audit should never look like
	// a scraper to the site it is auditing.
	DefaultRatePerMinute = 60

	// DefaultConcurrency of 4 concurrent page audits balances throughput
	// with resource usage. The shared rate limiter still bounds the
	// aggregate request rate.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of concurrent site crawls when
	// processing multiple seeds. Sites are crawled politely one request
	// at a time, so a handful of parallel sites keeps the job busy.
	DefaultBatchSize = 3

	// DefaultUserAgent identifies seoscan in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows
	// operators to identify audit traffic in their logs.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/nao1215/seoscan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "seoscan"
)

// Config holds all configuration options for seoscan.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit. If the configuration grows significantly, consider refactoring
// into sub-structs.
type Config struct {
	// SeedURLs is the list of addresses to audit. Each seed gets its
	// own discovery job and report. Must contain at least one entry.
	SeedURLs []string

	// Timeout is the per-request timeout for HTTP fetches.
	// This applies to individual requests, not the overall job duration.
	Timeout time.Duration

	// MaxDepth is the maximum link distance from the seed URL.
	// Entries at the limit are blocked, never expanded.
	MaxDepth int

	// MaxURLs is the inventory ceiling per site. Discovery stops
	// admitting URLs once the inventory reaches this size.
	MaxURLs int

	// RatePerMinute caps outbound requests per minute for one job.
	// Zero or negative disables rate limiting.
	RatePerMinute int

	// Concurrency is the number of concurrent page audits per site.
	Concurrency int

	// BatchSize is the number of concurrent site crawls when auditing
	// multiple seeds.
	BatchSize int

	// IncludeSubdomains widens the crawl scope to subdomains of the
	// seed's domain.
	IncludeSubdomains bool

	// ExcludePatterns are URL patterns dropped silently at admission.
	// A pattern wrapped in /.../ is a case-insensitive regular
	// expression; anything else is a case-insensitive substring match.
	ExcludePatterns []string

	// SitemapDiscovery toggles the sitemap discovery phase.
	SitemapDiscovery bool

	// JSRendering enables rendered-DOM link extraction on the homepage.
	JSRendering bool

	// EnforceHTTPS upgrades http:// URLs to https:// during
	// normalization. Disable for sites served over plain HTTP only.
	EnforceHTTPS bool

	// RemoveTrailingSlash strips trailing slashes from non-root paths
	// during normalization. Off by default because some sites serve
	// different content with and without the slash.
	RemoveTrailingSlash bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .seoscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file. Populated by LoadConfigFile and applied per seed.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, crawl results are saved for historical comparison.
	// When empty, results are not persisted.
	// Defaults to the XDG data directory (~/.local/share/seoscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save crawl results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify audit
	// traffic in their logs.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory
	// exhaustion. Set to 0 to use the default (5MB).
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		MaxDepth:         DefaultMaxDepth,
		MaxURLs:          DefaultMaxURLs,
		RatePerMinute:    DefaultRatePerMinute,
		Concurrency:      DefaultConcurrency,
		BatchSize:        DefaultBatchSize,
		SitemapDiscovery: true,
		EnforceHTTPS:     true,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for seoscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/seoscan
// On macOS: ~/Library/Application Support/seoscan
// On Windows: %LOCALAPPDATA%\seoscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seoscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for seoscan.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one seed to audit
	if len(c.SeedURLs) == 0 {
		return ErrNoSeed
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Depth must be positive; zero would block the seed itself
	if c.MaxDepth <= 0 {
		return ErrInvalidMaxDepth
	}

	// The ceiling must be positive; zero would admit nothing
	if c.MaxURLs <= 0 {
		return ErrInvalidMaxURLs
	}

	// Concurrency and batch size must be positive
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
