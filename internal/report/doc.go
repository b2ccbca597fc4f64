// Package report provides output formatting for crawl reports.
//
// Three formats are supported: a human-readable text summary for the
// terminal, JSON for machine consumption, and GitHub-flavored Markdown
// for documentation and sharing. All writers implement the same Writer
// interface so the CLI can swap formats with a flag.
package report
