// Package inventory implements the URL inventory store: the single
// source of truth for every URL seen during a discovery job.
//
// The store keeps a primary table keyed by normalized URL plus derived
// indexes by state and by source, and owns the breadth-first traversal
// queue. Entries are created once, mutated through state transitions,
// and never deleted; the store's lifetime equals one discovery job.
//
// All mutation goes through a single mutex so the bounded-worker crawl
// stage can update states concurrently without breaking the index and
// queue invariants.
package inventory
