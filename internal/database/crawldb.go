package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoscan/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl reports and URL
// inventories. It manages connection pooling and provides methods for
// saving and querying historical audits.
//
// Design decision: We use a single database file for all audited sites
// rather than one file per domain. This simplifies cross-site queries
// and backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "seoscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection
	// avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Crawl reports store complete job results as JSON with queryable metadata
	CREATE TABLE IF NOT EXISTS crawl_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		phase TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_domain ON crawl_reports(domain);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON crawl_reports(timestamp);

	-- URL entries store the per-URL inventory of each job for
	-- cross-audit comparison without unmarshalling whole reports
	CREATE TABLE IF NOT EXISTS url_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		normalized_url TEXT NOT NULL,
		state TEXT NOT NULL,
		source TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		block_reason TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(job_id, normalized_url)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_job ON url_entries(job_id);
	CREATE INDEX IF NOT EXISTS idx_entries_url ON url_entries(normalized_url);
	CREATE INDEX IF NOT EXISTS idx_entries_domain ON url_entries(domain);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawlReport persists a complete crawl report and its URL
// inventory in one transaction.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, _ := json.Marshal(report.Summary) //nolint:errcheck,errchkjson // CrawlSummary is a plain struct; Marshal won't fail

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_reports (job_id, domain, seed_url, phase, success, report_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.JobID,
		report.Domain,
		report.SeedURL,
		report.Phase,
		boolToInt(report.Success),
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	for _, entry := range report.Entries {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO url_entries (job_id, domain, normalized_url, state, source, depth, status_code, block_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, normalized_url) DO NOTHING
		`,
			report.JobID,
			report.Domain,
			entry.NormalizedURL,
			string(entry.State),
			string(entry.Source),
			entry.Depth,
			entry.StatusCode,
			entry.BlockReason,
		)
		if err != nil {
			return fmt.Errorf("failed to save url entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetLatestCrawlReport retrieves the most recent report for a domain.
// Returns nil without error when the domain has never been audited.
func (cdb *CrawlDB) GetLatestCrawlReport(ctx context.Context, domain string) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE domain = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, domain).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListAuditedDomains returns every domain with at least one stored report.
func (cdb *CrawlDB) ListAuditedDomains(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT domain FROM crawl_reports
	ORDER BY domain
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// ReportMetadata contains summary information about a stored report.
// This is used for displaying audit history without loading full reports.
type ReportMetadata struct {
	// ID is the unique identifier of the report row in the database.
	ID int64

	// JobID is the crawl job's UUID.
	JobID string

	// Domain is the audited domain.
	Domain string

	// Phase is the final discovery phase of the job.
	Phase string

	// Success reports whether the job completed.
	Success bool

	// Timestamp is when the report was stored.
	Timestamp time.Time

	// Summary holds the aggregate crawl counts.
	Summary model.CrawlSummary
}

// GetCrawlHistory retrieves report metadata for a domain, newest first.
// This is more efficient than loading full reports when only metadata
// is needed.
func (cdb *CrawlDB) GetCrawlHistory(ctx context.Context, domain string) ([]ReportMetadata, error) {
	query := `
	SELECT id, job_id, domain, phase, success, timestamp, summary_json
	FROM crawl_reports
	WHERE domain = ?
	ORDER BY timestamp DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var success int
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.JobID, &meta.Domain, &meta.Phase, &success, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Success = success != 0
		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			// A malformed summary leaves the zero value; the report
			// JSON is still intact.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetCrawlReportByID retrieves a full report by its database ID.
// Returns nil without error when no row matches.
func (cdb *CrawlDB) GetCrawlReportByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_reports
	WHERE id = ?
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// HasRecentAudit checks if a domain was audited within the specified
// duration.
func (cdb *CrawlDB) HasRecentAudit(ctx context.Context, domain string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM crawl_reports
	WHERE domain = ? AND timestamp > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := cdb.db.QueryRowContext(ctx, query, domain, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent audit: %w", err)
	}

	return count > 0, nil
}

// URLHistory returns the stored states of one normalized URL across
// jobs, newest first. Useful for spotting pages that flip between
// crawlable and failing.
func (cdb *CrawlDB) URLHistory(ctx context.Context, normalizedURL string) ([]URLHistoryRow, error) {
	query := `
	SELECT job_id, state, source, depth, status_code, block_reason, timestamp
	FROM url_entries
	WHERE normalized_url = ?
	ORDER BY timestamp DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, normalizedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query url history: %w", err)
	}
	defer rows.Close()

	var results []URLHistoryRow
	for rows.Next() {
		var row URLHistoryRow
		var timestamp string

		if err := rows.Scan(&row.JobID, &row.State, &row.Source, &row.Depth, &row.StatusCode, &row.BlockReason, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan url history: %w", err)
		}

		row.Timestamp = parseTimestamp(timestamp)
		results = append(results, row)
	}

	return results, rows.Err()
}

// URLHistoryRow is one historical observation of a URL.
type URLHistoryRow struct {
	JobID       string
	State       string
	Source      string
	Depth       int
	StatusCode  int
	BlockReason string
	Timestamp   time.Time
}

// boolToInt maps Go bools onto SQLite integer columns.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
