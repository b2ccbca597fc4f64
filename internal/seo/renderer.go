package seo

import (
	"context"
	"fmt"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
)

// RenderResult is the outcome of rendering one page: the final DOM,
// the HTTP status, and the signals extracted from the rendered markup.
type RenderResult struct {
	// HTML is the serialized DOM after rendering.
	HTML []byte

	// StatusCode is the HTTP status of the underlying navigation.
	StatusCode int

	// Signals are the SEO signals extracted from the rendered DOM.
	Signals *model.SEOSignals
}

// Renderer obtains a page's DOM with JavaScript applied. Implementations
// own their timeout and wait-condition configuration per job.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*RenderResult, error)
}

// FetchRenderer is the default Renderer: it fetches the page over plain
// HTTP and extracts signals from the static markup. It exists so that
// JS-assisted discovery degrades gracefully when no browser backend is
// configured; pages whose links only exist client-side simply yield the
// same links as the static fetch.
type FetchRenderer struct {
	fetcher fetcher.Fetcher
}

// NewFetchRenderer creates a FetchRenderer on top of the given fetcher.
func NewFetchRenderer(f fetcher.Fetcher) *FetchRenderer {
	return &FetchRenderer{fetcher: f}
}

// Render fetches rawURL and extracts signals from the response body.
func (r *FetchRenderer) Render(ctx context.Context, rawURL string) (*RenderResult, error) {
	resp, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}

	signals, err := ExtractSignals(rawURL, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extract signals from %s: %w", rawURL, err)
	}

	return &RenderResult{
		HTML:       resp.Body,
		StatusCode: resp.StatusCode,
		Signals:    signals,
	}, nil
}
