// Package model defines the data structures shared across seoscan:
// the URL inventory entry with its lifecycle state machine, per-page
// crawl records with extracted SEO signals, and the aggregate crawl
// report returned to callers.
//
// The types in this package carry no behavior beyond small derived
// calculations (state transition checks, summary aggregation). All
// orchestration lives in the discovery and pipeline packages.
package model
