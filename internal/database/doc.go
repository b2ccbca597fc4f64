// Package database provides SQLite-based persistence for crawl reports.
//
// Reports are stored as JSON blobs with a queryable metadata row per
// job, plus a per-URL table so historical audits can be compared
// without unmarshalling whole reports. The database lives in the XDG
// data directory by default.
package database
