package seo

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
)

// Auditor crawls a single page for the pipeline: it decides the render
// mode, fetches or renders the page, extracts SEO signals, and maps the
// result into a PageRecord.
type Auditor struct {
	fetcher  fetcher.Fetcher
	renderer Renderer
	useJS    bool
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithRenderer enables JavaScript-assisted auditing through the given
// renderer. Without it, every page is audited from static HTML.
func WithRenderer(r Renderer) AuditorOption {
	return func(a *Auditor) {
		a.renderer = r
		a.useJS = true
	}
}

// NewAuditor creates an Auditor that fetches pages with f.
func NewAuditor(f fetcher.Fetcher, opts ...AuditorOption) *Auditor {
	a := &Auditor{fetcher: f}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CrawlPage audits one inventory entry and returns its crawl record.
// The returned error indicates the crawl failed; the caller converts it
// into a failed record and continues with the next URL.
func (a *Auditor) CrawlPage(ctx context.Context, entry *model.URLEntry) (*model.PageRecord, error) {
	start := time.Now()

	if a.useJS && a.renderer != nil {
		result, err := a.renderer.Render(ctx, entry.NormalizedURL)
		if err != nil {
			return nil, err
		}
		return &model.PageRecord{
			URL:           entry.OriginalURL,
			NormalizedURL: entry.NormalizedURL,
			Success:       true,
			RenderMode:    model.RenderModeRendered,
			StatusCode:    result.StatusCode,
			Signals:       result.Signals,
			Duration:      time.Since(start),
			CrawledAt:     time.Now(),
		}, nil
	}

	resp, err := a.fetcher.Fetch(ctx, entry.NormalizedURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsHTML() {
		return nil, fmt.Errorf("non-HTML content type %q", resp.ContentType)
	}

	signals, err := ExtractSignals(entry.NormalizedURL, resp.Body)
	if err != nil {
		return nil, err
	}

	return &model.PageRecord{
		URL:           entry.OriginalURL,
		NormalizedURL: entry.NormalizedURL,
		Success:       true,
		RenderMode:    model.RenderModeStatic,
		StatusCode:    resp.StatusCode,
		Signals:       signals,
		Duration:      time.Since(start),
		CrawledAt:     time.Now(),
	}, nil
}
