// Package log provides secure logging utilities for seoscan.
//
// The SecureHandler wraps any slog.Handler and redacts credentials
// before they reach the log output: sensitive attribute keys, token-like
// values, and userinfo embedded in URLs (staging sites behind basic
// auth are routinely audited with user:pass@host seeds).
package log
