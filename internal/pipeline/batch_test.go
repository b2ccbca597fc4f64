package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nao1215/seoscan/internal/discovery"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/inventory"
	"github.com/nao1215/seoscan/internal/model"
	"github.com/nao1215/seoscan/internal/seo"
)

// newBatchFactory builds a fresh single-site pipeline per seed, the way
// the CLI wires one up.
func newBatchFactory() func(seedURL string) *Pipeline {
	return func(seedURL string) *Pipeline {
		store := inventory.New()
		engine := discovery.New(seedURL, domainOf(seedURL),
			discovery.WithStore(store),
			discovery.WithNormalizer(testNormalizer()),
			discovery.WithSitemapDiscovery(false),
		)

		p := New()
		p.AddSteps(
			NewDiscoveryStep(engine),
			NewCrawlStep(store, seo.NewAuditor(fetcher.New())),
			NewSummarizeStep(store),
		)
		return p
	}
}

func newBatchSite(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Site</title></head><body><h1>Hi</h1></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestProcessBatch verifies reports come back in input order, one per
// seed, including failed sites.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	srv := newBatchSite(t)
	seeds := []string{
		srv.URL + "/",
		"://broken-seed",
		srv.URL + "/other",
	}

	bp := NewBatchProcessor(newBatchFactory(), WithConcurrency(2))
	reports, err := bp.ProcessBatch(context.Background(), seeds)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(reports) != len(seeds) {
		t.Fatalf("expected %d reports, got %d", len(seeds), len(reports))
	}
	for i, report := range reports {
		if report == nil {
			t.Fatalf("report %d is nil", i)
		}
		if report.SeedURL != seeds[i] {
			t.Errorf("report %d out of order: %q", i, report.SeedURL)
		}
	}

	if !reports[0].Success {
		t.Errorf("expected first site to succeed, errors: %v", reports[0].Errors)
	}
	if reports[1].Success {
		t.Error("broken seed must not report success")
	}
	if len(reports[1].Errors) == 0 {
		t.Error("broken seed must carry recorded errors")
	}
}

// TestProcessBatchWithCallback verifies every seed triggers exactly one
// callback with its original index.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	srv := newBatchSite(t)
	seeds := []string{srv.URL + "/", srv.URL + "/two"}

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(newBatchFactory())
	err := bp.ProcessBatchWithCallback(context.Background(), seeds,
		func(report *model.CrawlReport, index int) {
			mu.Lock()
			seen[index] = report.SeedURL
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(seen) != len(seeds) {
		t.Fatalf("expected %d callbacks, got %d", len(seeds), len(seen))
	}
	for i, seed := range seeds {
		if seen[i] != seed {
			t.Errorf("callback %d got %q, want %q", i, seen[i], seed)
		}
	}
}
