// Package main provides the entry point for the seoscan CLI.
//
// seoscan is an SEO site auditing tool. It discovers the URL inventory
// of a site (sitemaps, homepage links, internal links), crawls each
// page, and reports on crawl coverage and on-page SEO signals.
//
// Usage:
//
//	seoscan crawl https://example.com
//	seoscan crawl site1.example site2.example
//
// See --help for all available options.
package main

// main is the entry point for seoscan.
func main() {
	Execute()
}
