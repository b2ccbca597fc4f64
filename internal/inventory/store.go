package inventory

import (
	"sort"
	"sync"
	"time"

	"github.com/nao1215/seoscan/internal/model"
)

// Store is the in-memory URL inventory for one discovery job.
//
// Design decision: We keep derived indexes (by state, by source) next to
// the primary table rather than scanning on demand because:
//  1. State counts are read on every progress emission
//  2. The crawl pipeline selects entries by state
//  3. Incremental index maintenance is cheap inside the write lock
type Store struct {
	mu sync.Mutex

	// entries is the primary table, keyed by normalized URL.
	entries map[string]*model.URLEntry

	// byState and bySource index entry keys for O(1) lookups by group.
	byState  map[model.URLState]map[string]struct{}
	bySource map[model.URLSource]map[string]struct{}

	// queue holds the keys of QUEUED_FOR_CRAWL entries in breadth-first
	// order: non-decreasing depth, FIFO within a depth.
	queue []string
}

// Patch mutates fields of an entry during a state update. Patches are
// applied inside the store's lock, after the state transition.
type Patch func(*model.URLEntry)

// WithStatusCode records the HTTP status of the latest fetch.
func WithStatusCode(code int) Patch {
	return func(e *model.URLEntry) { e.StatusCode = code }
}

// WithErrorMessage records the latest crawl error.
func WithErrorMessage(msg string) Patch {
	return func(e *model.URLEntry) { e.ErrorMessage = msg }
}

// WithBlockReason records why the entry was blocked by policy.
func WithBlockReason(reason string) Patch {
	return func(e *model.URLEntry) { e.BlockReason = reason }
}

// WithCanonicalURL records the page's declared canonical URL.
func WithCanonicalURL(canonical string) Patch {
	return func(e *model.URLEntry) { e.CanonicalURL = canonical }
}

// WithRenderMode records how the page was obtained.
func WithRenderMode(mode string) Patch {
	return func(e *model.URLEntry) { e.RenderMode = mode }
}

// WithCrawlAttempt increments the attempt counter and stamps the
// last-crawled time.
func WithCrawlAttempt() Patch {
	return func(e *model.URLEntry) {
		e.CrawlAttempts++
		now := time.Now()
		e.LastCrawledAt = &now
	}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries:  make(map[string]*model.URLEntry),
		byState:  make(map[model.URLState]map[string]struct{}),
		bySource: make(map[model.URLSource]map[string]struct{}),
	}
}

// Add inserts a new entry keyed by its NormalizedURL. It returns nil
// without mutating anything when the key is already present (dedup), or
// a clone of the stored entry on success.
//
// Derived defaults are applied on insert: zero crawl attempts and
// discovery/update timestamps set to now. Entries added directly in
// QUEUED_FOR_CRAWL enter the traversal queue in breadth-first position.
func (s *Store) Add(entry *model.URLEntry) *model.URLEntry {
	if entry == nil || entry.NormalizedURL == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.NormalizedURL]; exists {
		return nil
	}

	stored := entry.Clone()
	stored.CrawlAttempts = 0
	now := time.Now()
	stored.DiscoveredAt = now
	stored.UpdatedAt = now
	if stored.State == "" {
		stored.State = model.StateDiscovered
	}

	s.entries[stored.NormalizedURL] = stored
	s.indexAdd(stored)

	if stored.State == model.StateQueued {
		s.queueInsert(stored.NormalizedURL, stored.Depth)
	}

	return stored.Clone()
}

// UpdateState transitions the entry at key to newState and applies the
// patches. It returns false when the key is absent or the transition is
// not permitted by the lifecycle diagram; in both cases nothing changes.
//
// Queue membership is adjusted as part of the same critical section:
// leaving QUEUED_FOR_CRAWL removes the key, entering it re-inserts the
// key in breadth-first position.
func (s *Store) UpdateState(key string, newState model.URLState, patches ...Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}

	if !entry.State.CanTransition(newState) {
		return false
	}

	if entry.State != newState {
		s.indexRemove(entry)
		wasQueued := entry.State == model.StateQueued
		entry.State = newState
		s.indexAdd(entry)

		if wasQueued && newState != model.StateQueued {
			s.queueRemove(key)
		}
		if !wasQueued && newState == model.StateQueued {
			s.queueInsert(key, entry.Depth)
		}
	}

	for _, patch := range patches {
		patch(entry)
	}
	entry.UpdatedAt = time.Now()

	return true
}

// NextToCrawl pops the front of the breadth-first queue, skipping
// (without re-inserting) any entry whose state changed away from
// QUEUED_FOR_CRAWL since it was queued. Returns nil when the queue is
// exhausted. The returned entry is a clone.
func (s *Store) NextToCrawl() *model.URLEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 {
		key := s.queue[0]
		s.queue = s.queue[1:]

		entry, ok := s.entries[key]
		if !ok || entry.State != model.StateQueued {
			continue
		}
		return entry.Clone()
	}

	return nil
}

// Get returns a clone of the entry at key, or nil if absent.
func (s *Store) Get(key string) *model.URLEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	return entry.Clone()
}

// Len returns the number of entries in the inventory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// QueueLen returns the number of keys currently queued. Stale keys that
// will be skipped by NextToCrawl still count.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// InState returns clones of all entries in the given states, sorted by
// depth then key for deterministic iteration.
func (s *Store) InState(states ...model.URLState) []*model.URLEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*model.URLEntry
	for _, state := range states {
		for key := range s.byState[state] {
			result = append(result, s.entries[key].Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Depth != result[j].Depth {
			return result[i].Depth < result[j].Depth
		}
		return result[i].NormalizedURL < result[j].NormalizedURL
	})

	return result
}

// All returns clones of every entry, sorted by depth then key.
func (s *Store) All() []*model.URLEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*model.URLEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, entry.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Depth != result[j].Depth {
			return result[i].Depth < result[j].Depth
		}
		return result[i].NormalizedURL < result[j].NormalizedURL
	})

	return result
}

// Stats computes a point-in-time snapshot: per-state and per-source
// counts, the maximum depth reached, the error count, and crawl
// coverage as CRAWLED / total * 100.
func (s *Store) Stats(phase string, startedAt time.Time) model.DiscoveryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.DiscoveryStats{
		Phase:           phase,
		TotalDiscovered: len(s.entries),
		ByState:         make(map[model.URLState]int),
		BySource:        make(map[model.URLSource]int),
		Elapsed:         time.Since(startedAt),
	}

	for _, entry := range s.entries {
		stats.ByState[entry.State]++
		stats.BySource[entry.Source]++
		if entry.Depth > stats.MaxDepthReached {
			stats.MaxDepthReached = entry.Depth
		}
	}

	stats.ErrorCount = stats.ByState[model.StateFailed]
	if stats.TotalDiscovered > 0 {
		stats.CoveragePercent = float64(stats.ByState[model.StateCrawled]) / float64(stats.TotalDiscovered) * 100
	}

	return stats
}

// indexAdd registers the entry's key in the state and source indexes.
// Caller holds the lock.
func (s *Store) indexAdd(entry *model.URLEntry) {
	if s.byState[entry.State] == nil {
		s.byState[entry.State] = make(map[string]struct{})
	}
	s.byState[entry.State][entry.NormalizedURL] = struct{}{}

	if s.bySource[entry.Source] == nil {
		s.bySource[entry.Source] = make(map[string]struct{})
	}
	s.bySource[entry.Source][entry.NormalizedURL] = struct{}{}
}

// indexRemove drops the entry's key from the state index. The source
// never changes after Add, so only the state index needs removal.
// Caller holds the lock.
func (s *Store) indexRemove(entry *model.URLEntry) {
	if keys, ok := s.byState[entry.State]; ok {
		delete(keys, entry.NormalizedURL)
	}
}

// queueInsert places key at the breadth-first position for depth: after
// every queued key of depth <= depth, before the first of depth > depth.
// The queue is always sorted by depth, so binary search finds the slot.
// Caller holds the lock.
func (s *Store) queueInsert(key string, depth int) {
	i := sort.Search(len(s.queue), func(i int) bool {
		entry, ok := s.entries[s.queue[i]]
		if !ok {
			return false
		}
		return entry.Depth > depth
	})

	s.queue = append(s.queue, "")
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = key
}

// queueRemove drops key from the queue if present. Caller holds the lock.
func (s *Store) queueRemove(key string) {
	for i, k := range s.queue {
		if k == key {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}
