// Package normalizer canonicalizes raw URLs into stable inventory keys
// and classifies whether a URL is crawlable and in scope.
//
// All functions are pure over an immutable Config. Normalization is
// idempotent (normalizing an already-normalized URL is a no-op) and
// silent on failure: malformed URLs are routine input from third-party
// HTML, so every operation returns an ok flag or a fallback value
// instead of an error.
package normalizer
