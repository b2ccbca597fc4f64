// Package discovery implements the URL discovery engine: a multi-phase
// traversal that turns a single seed URL into a deduplicated,
// policy-filtered, depth-bounded inventory of crawlable pages.
//
// The engine runs four phases in order (initialization, sitemap
// discovery, homepage crawl, breadth-first link discovery) and reports
// progress, discoveries, and per-item errors through observer callbacks.
// A single page failure never halts the traversal; only an unusable
// seed URL aborts the job.
package discovery
