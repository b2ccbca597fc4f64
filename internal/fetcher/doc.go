// Package fetcher implements the fetch collaborator: bounded HTTP GET
// of a single page with timeout, body-size cap, and charset-aware
// decoding to UTF-8.
//
// The discovery engine and the crawl pipeline consume the Fetcher
// interface; HTTPFetcher is the default implementation.
package fetcher
