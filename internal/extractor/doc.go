// Package extractor performs structural link extraction from HTML.
//
// It walks the parsed DOM and collects <a href> targets resolved
// against the page URL. Extraction is tolerant: malformed HTML is
// parsed best-effort and individual unparsable hrefs are skipped, never
// surfaced as errors.
package extractor
