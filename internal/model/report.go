package model

import (
	"time"

	"github.com/google/uuid"
)

// CrawlReport is the caller-facing result of one end-to-end crawl job.
// It always returns, even on total failure: a failed job produces a
// report with an empty inventory and a non-empty Errors list, never a
// propagated exception.
type CrawlReport struct {
	// JobID uniquely identifies this crawl job.
	JobID string `json:"job_id"`

	// SeedURL is the address discovery started from.
	SeedURL string `json:"seed_url"`

	// Domain is the scope domain derived from the seed.
	Domain string `json:"domain"`

	// Phase is the discovery engine's final phase
	// (COMPLETED, FAILED, or PAUSED).
	Phase string `json:"phase"`

	// Success is false when discovery failed fatally or was aborted
	// before producing a complete inventory.
	Success bool `json:"success"`

	// StartedAt and FinishedAt bound the whole job.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Entries is a snapshot of the full URL inventory at job end.
	Entries []*URLEntry `json:"entries"`

	// Records holds one PageRecord per crawled URL.
	Records []PageRecord `json:"records"`

	// Errors lists every recorded non-fatal failure.
	Errors []DiscoveryError `json:"errors,omitempty"`

	// Discovery is the final inventory snapshot from the discovery phase.
	Discovery DiscoveryStats `json:"discovery"`

	// Summary aggregates the per-page crawl results.
	Summary CrawlSummary `json:"summary"`
}

// CrawlSummary aggregates per-page crawl outcomes for a job.
type CrawlSummary struct {
	// TotalDiscovered is the inventory size at the end of discovery.
	TotalDiscovered int `json:"total_discovered"`

	// TotalCrawled is the number of crawl attempts (success + failure).
	TotalCrawled int `json:"total_crawled"`

	// Succeeded and Failed count crawl outcomes.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// RenderModes counts records per render mode.
	RenderModes map[string]int `json:"render_modes,omitempty"`

	// AverageRenderTime is the mean PageRecord duration.
	AverageRenderTime time.Duration `json:"average_render_time"`

	// CoveragePercent is crawled / discovered * 100.
	CoveragePercent float64 `json:"coverage_percent"`
}

// NewCrawlReport creates an empty report for the given seed URL with a
// fresh job ID and the start timestamp set to now.
func NewCrawlReport(seedURL, domain string) *CrawlReport {
	return &CrawlReport{
		JobID:     uuid.NewString(),
		SeedURL:   seedURL,
		Domain:    domain,
		StartedAt: time.Now(),
		Entries:   make([]*URLEntry, 0),
		Records:   make([]PageRecord, 0),
		Errors:    make([]DiscoveryError, 0),
	}
}

// Summarize computes the Summary from Records and Discovery.
// Call after the per-page crawl loop has finished.
func (r *CrawlReport) Summarize() {
	s := CrawlSummary{
		TotalDiscovered: r.Discovery.TotalDiscovered,
		TotalCrawled:    len(r.Records),
		RenderModes:     make(map[string]int),
	}

	var totalDuration time.Duration
	for _, rec := range r.Records {
		if rec.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if rec.RenderMode != "" {
			s.RenderModes[rec.RenderMode]++
		}
		totalDuration += rec.Duration
	}

	if len(r.Records) > 0 {
		s.AverageRenderTime = totalDuration / time.Duration(len(r.Records))
	}
	if s.TotalDiscovered > 0 {
		s.CoveragePercent = float64(s.TotalCrawled) / float64(s.TotalDiscovered) * 100
	}

	r.Summary = s
}

// AddError appends a discovery error to the report.
func (r *CrawlReport) AddError(e DiscoveryError) {
	r.Errors = append(r.Errors, e)
}
