package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/seoscan/internal/model"
)

// newTestDB opens a fresh database in a temp directory.
func newTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	cdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = cdb.Close() })
	return cdb
}

// sampleReport builds a small finished report for storage tests.
func sampleReport(domain string) *model.CrawlReport {
	report := model.NewCrawlReport("https://"+domain+"/", domain)
	report.Phase = "COMPLETED"
	report.Success = true
	report.Entries = []*model.URLEntry{
		{
			NormalizedURL: "https://" + domain + "/",
			State:         model.StateCrawled,
			Source:        model.SourceSeed,
			Depth:         0,
			StatusCode:    200,
		},
		{
			NormalizedURL: "https://" + domain + "/admin",
			State:         model.StateBlocked,
			Source:        model.SourceInternalLink,
			Depth:         1,
			BlockReason:   "Admin/dashboard page",
		},
	}
	report.Records = []model.PageRecord{
		{NormalizedURL: "https://" + domain + "/", Success: true, RenderMode: model.RenderModeStatic, Duration: 120 * time.Millisecond},
	}
	report.Discovery = model.DiscoveryStats{TotalDiscovered: 2}
	report.FinishedAt = time.Now()
	report.Summarize()
	return report
}

// TestOpenRequiresExistingDB verifies mode=rw refuses a missing file.
func TestOpenRequiresExistingDB(t *testing.T) {
	t.Parallel()

	opts := Options{CreateIfNotExists: false}
	if _, err := Open(filepath.Join(t.TempDir(), "missing"), opts); err == nil {
		t.Error("expected error for missing database")
	}
}

// TestSaveAndLoadReport verifies the full round trip through JSON storage.
func TestSaveAndLoadReport(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)
	ctx := context.Background()

	report := sampleReport("example.com")
	if err := cdb.SaveCrawlReport(ctx, report); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := cdb.GetLatestCrawlReport(ctx, "example.com")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a stored report")
	}
	if loaded.JobID != report.JobID {
		t.Errorf("job ID mismatch: %q vs %q", loaded.JobID, report.JobID)
	}
	if len(loaded.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(loaded.Entries))
	}
	if loaded.Summary.TotalCrawled != 1 {
		t.Errorf("unexpected summary %+v", loaded.Summary)
	}
}

// TestGetLatestCrawlReportUnknownDomain verifies the nil-without-error
// contract.
func TestGetLatestCrawlReportUnknownDomain(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)

	report, err := cdb.GetLatestCrawlReport(context.Background(), "never-audited.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report, got %+v", report)
	}
}

// TestListAuditedDomains verifies distinct sorted domains.
func TestListAuditedDomains(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)
	ctx := context.Background()

	for _, domain := range []string{"beta.example", "alpha.example", "beta.example"} {
		if err := cdb.SaveCrawlReport(ctx, sampleReport(domain)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	domains, err := cdb.ListAuditedDomains(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(domains) != 2 || domains[0] != "alpha.example" || domains[1] != "beta.example" {
		t.Errorf("unexpected domains %v", domains)
	}
}

// TestGetCrawlHistory verifies metadata rows without full report loads.
func TestGetCrawlHistory(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)
	ctx := context.Background()

	if err := cdb.SaveCrawlReport(ctx, sampleReport("example.com")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := cdb.SaveCrawlReport(ctx, sampleReport("example.com")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	history, err := cdb.GetCrawlHistory(ctx, "example.com")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	for _, meta := range history {
		if meta.Domain != "example.com" || !meta.Success || meta.Phase != "COMPLETED" {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.Summary.TotalDiscovered != 2 {
			t.Errorf("summary not stored: %+v", meta.Summary)
		}
	}

	// Full report by row ID.
	full, err := cdb.GetCrawlReportByID(ctx, history[0].ID)
	if err != nil {
		t.Fatalf("load by ID failed: %v", err)
	}
	if full == nil || full.Domain != "example.com" {
		t.Errorf("unexpected report %+v", full)
	}
}

// TestHasRecentAudit verifies the recency window check.
func TestHasRecentAudit(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)
	ctx := context.Background()

	if err := cdb.SaveCrawlReport(ctx, sampleReport("example.com")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	recent, err := cdb.HasRecentAudit(ctx, "example.com", time.Hour)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !recent {
		t.Error("expected a recent audit")
	}

	recent, err = cdb.HasRecentAudit(ctx, "other.example", time.Hour)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if recent {
		t.Error("expected no audit for unknown domain")
	}
}

// TestURLHistory verifies per-URL rows across jobs.
func TestURLHistory(t *testing.T) {
	t.Parallel()

	cdb := newTestDB(t)
	ctx := context.Background()

	if err := cdb.SaveCrawlReport(ctx, sampleReport("example.com")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := cdb.SaveCrawlReport(ctx, sampleReport("example.com")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	history, err := cdb.URLHistory(ctx, "https://example.com/admin")
	if err != nil {
		t.Fatalf("url history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(history))
	}
	for _, row := range history {
		if row.State != string(model.StateBlocked) {
			t.Errorf("unexpected state %q", row.State)
		}
		if row.BlockReason != "Admin/dashboard page" {
			t.Errorf("unexpected block reason %q", row.BlockReason)
		}
	}
}
