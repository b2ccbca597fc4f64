// Package seo implements the per-page crawl collaborator: fetching or
// rendering a single page, extracting its on-page SEO signals, and
// mapping the outcome into a crawl record.
//
// Rendering is an interface. seoscan does not embed a headless browser;
// the default FetchRenderer obtains the DOM over plain HTTP, and
// callers with a browser backend can supply their own Renderer.
package seo
