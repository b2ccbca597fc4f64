// Package ratelimit provides the shared request rate limiter used by
// the discovery engine and the crawl pipeline. One limiter is created
// per job and shared across both stages so the global minimum
// inter-request interval holds even when the crawl stage fans out to
// multiple workers.
package ratelimit
