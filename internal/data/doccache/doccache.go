// # internal/data/doccache/doccache.go
package doccache

import (
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"apexls/internal/shared/observability"
	"apexls/internal/symbols"
)

// State is the cached per-document compile result. An entry is valid only
// for the exact document version it was computed from.
type State struct {
	Table           *symbols.Table
	Diagnostics     []protocol.Diagnostic
	FoldingRanges   []protocol.FoldingRange
	DocumentVersion int32
	DocumentLength  int
	Timestamp       time.Time
	SymbolsIndexed  bool
}

// Update carries the fields of a partial merge. Nil pointer fields (and nil
// slices) are absent and leave the cached value untouched.
type Update struct {
	Table           *symbols.Table
	Diagnostics     []protocol.Diagnostic
	FoldingRanges   []protocol.FoldingRange
	DocumentVersion *int32
	DocumentLength  *int
	SymbolsIndexed  *bool
}

// Stats are cumulative counters plus derived ratios.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Evictions     uint64
	Size          int
	MaxSize       int
	HitRate       float64
	Utilization   float64
}

const DefaultMaxSize = 100

// Cache holds exactly one entry per URI, bounded by maxSize with
// oldest-timestamp eviction.
type Cache struct {
	mu      sync.RWMutex
	maxSize int
	entries map[uri.URI]*State

	hits          uint64
	misses        uint64
	invalidations uint64
	evictions     uint64
}

func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[uri.URI]*State),
	}
}

// Get returns the cached state only when the stored document version
// matches the requested one. Any other case is a miss, never a stale hit.
func (c *Cache) Get(docURI uri.URI, version int32) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[docURI]
	if !ok || entry.DocumentVersion != version {
		c.misses++
		observability.DocCacheRequestsTotal.WithLabelValues("miss").Inc()
		return State{}, false
	}
	c.hits++
	observability.DocCacheRequestsTotal.WithLabelValues("hit").Inc()
	return *entry, true
}

// Peek returns whatever entry is cached for the URI regardless of version,
// without touching hit/miss counters. Background tasks use it to find the
// current table; they re-check the version themselves.
func (c *Cache) Peek(docURI uri.URI) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[docURI]
	if !ok {
		return State{}, false
	}
	return *entry, true
}

// Set stores the state for a URI, evicting the oldest entry first when the
// cache is full and the URI is not already present.
func (c *Cache) Set(docURI uri.URI, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now()
	}
	if _, exists := c.entries[docURI]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	stored := state
	c.entries[docURI] = &stored
}

// Merge combines an update into the existing entry, or creates a new entry
// with safe defaults. The timestamp always refreshes; SymbolsIndexed is
// preserved unless the update carries it.
func (c *Cache) Merge(docURI uri.URI, update Update) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[docURI]
	if !ok {
		if len(c.entries) >= c.maxSize {
			c.evictOldestLocked()
		}
		entry = &State{}
		c.entries[docURI] = entry
	}

	if update.Table != nil {
		entry.Table = update.Table
	}
	if update.Diagnostics != nil {
		entry.Diagnostics = update.Diagnostics
	}
	if update.FoldingRanges != nil {
		entry.FoldingRanges = update.FoldingRanges
	}
	if update.DocumentVersion != nil {
		entry.DocumentVersion = *update.DocumentVersion
	}
	if update.DocumentLength != nil {
		entry.DocumentLength = *update.DocumentLength
	}
	if update.SymbolsIndexed != nil {
		entry.SymbolsIndexed = *update.SymbolsIndexed
	}
	entry.Timestamp = time.Now()
	return *entry
}

// Invalidate removes one entry. Unknown URIs are a no-op.
func (c *Cache) Invalidate(docURI uri.URI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[docURI]; !ok {
		return false
	}
	delete(c.entries, docURI)
	c.invalidations++
	return true
}

// Clear removes all entries. Counters stay cumulative.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uri.URI]*State)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// URIs returns the cached URIs in no particular order.
func (c *Cache) URIs() []uri.URI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uris := make([]uri.URI, 0, len(c.entries))
	for u := range c.entries {
		uris = append(uris, u)
	}
	return uris
}

// Stats reports cumulative counters and derived ratios.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Invalidations: c.invalidations,
		Evictions:     c.evictions,
		Size:          len(c.entries),
		MaxSize:       c.maxSize,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if c.maxSize > 0 {
		s.Utilization = float64(len(c.entries)) / float64(c.maxSize)
	}
	return s
}

// evictOldestLocked drops the entry with the oldest timestamp. Ties fall
// to map iteration order. Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestURI uri.URI
	var oldest time.Time
	first := true
	for u, entry := range c.entries {
		if first || entry.Timestamp.Before(oldest) {
			first = false
			oldestURI = u
			oldest = entry.Timestamp
		}
	}
	if first {
		return
	}
	delete(c.entries, oldestURI)
	c.evictions++
	observability.DocCacheEvictionsTotal.Inc()
}
