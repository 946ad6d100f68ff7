package doccache

import (
	"testing"
	"time"

	"go.lsp.dev/uri"

	"apexls/internal/symbols"
)

func TestCache_VersionGating(t *testing.T) {
	c := NewCache(10)
	docURI := uri.URI("file:///src/A.cls")
	c.Set(docURI, State{DocumentVersion: 1, DocumentLength: 42})

	if _, ok := c.Get(docURI, 2); ok {
		t.Error("expected miss for version 2")
	}
	state, ok := c.Get(docURI, 1)
	if !ok {
		t.Fatal("expected hit for version 1")
	}
	if state.DocumentLength != 42 {
		t.Errorf("unexpected state: %+v", state)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", s)
	}
}

func TestCache_PeekIgnoresVersionAndCounters(t *testing.T) {
	c := NewCache(10)
	docURI := uri.URI("file:///src/A.cls")

	if _, ok := c.Peek(docURI); ok {
		t.Fatal("expected no entry before Set")
	}
	c.Set(docURI, State{DocumentVersion: 7})

	state, ok := c.Peek(docURI)
	if !ok || state.DocumentVersion != 7 {
		t.Fatalf("expected version 7, got %+v (ok=%v)", state, ok)
	}

	s := c.Stats()
	if s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Peek must not touch counters, got %+v", s)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	base := time.Now()

	c.Set("file:///a.cls", State{DocumentVersion: 1, Timestamp: base})
	c.Set("file:///b.cls", State{DocumentVersion: 1, Timestamp: base.Add(time.Second)})
	c.Set("file:///c.cls", State{DocumentVersion: 1, Timestamp: base.Add(2 * time.Second)})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get("file:///a.cls", 1); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.Get("file:///b.cls", 1); !ok {
		t.Error("expected b to survive")
	}
	if _, ok := c.Get("file:///c.cls", 1); !ok {
		t.Error("expected c to survive")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("expected 1 eviction, got %d", got)
	}
}

func TestCache_SetExistingURIDoesNotEvict(t *testing.T) {
	c := NewCache(2)
	base := time.Now()
	c.Set("file:///a.cls", State{DocumentVersion: 1, Timestamp: base})
	c.Set("file:///b.cls", State{DocumentVersion: 1, Timestamp: base.Add(time.Second)})

	// Updating an existing URI at capacity must not evict anything.
	c.Set("file:///a.cls", State{DocumentVersion: 2, Timestamp: base.Add(2 * time.Second)})
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("expected no evictions, got %d", got)
	}
}

func TestCache_Merge(t *testing.T) {
	c := NewCache(10)
	docURI := uri.URI("file:///src/A.cls")
	tbl := symbols.NewTable(docURI, 1)

	version := int32(1)
	indexed := true
	c.Set(docURI, State{Table: tbl, DocumentVersion: version, SymbolsIndexed: indexed})

	// Partial merge: only the length changes, SymbolsIndexed is preserved.
	length := 99
	state := c.Merge(docURI, Update{DocumentLength: &length})
	if state.DocumentLength != 99 {
		t.Errorf("expected merged length, got %d", state.DocumentLength)
	}
	if !state.SymbolsIndexed {
		t.Error("expected SymbolsIndexed preserved")
	}
	if state.Table != tbl {
		t.Error("expected table preserved")
	}

	// Explicit override flips the flag.
	off := false
	state = c.Merge(docURI, Update{SymbolsIndexed: &off})
	if state.SymbolsIndexed {
		t.Error("expected explicit override to win")
	}
}

func TestCache_MergeCreatesEntryWithDefaults(t *testing.T) {
	c := NewCache(10)
	version := int32(3)
	state := c.Merge("file:///new.cls", Update{DocumentVersion: &version})
	if state.DocumentVersion != 3 {
		t.Errorf("unexpected version %d", state.DocumentVersion)
	}
	if state.Table != nil || state.SymbolsIndexed {
		t.Errorf("expected safe defaults, got %+v", state)
	}
	if state.Timestamp.IsZero() {
		t.Error("expected timestamp refresh")
	}
}

func TestCache_InvalidateAndClear(t *testing.T) {
	c := NewCache(10)
	c.Set("file:///a.cls", State{DocumentVersion: 1})
	c.Set("file:///b.cls", State{DocumentVersion: 1})

	if !c.Invalidate("file:///a.cls") {
		t.Error("expected invalidation")
	}
	if c.Invalidate("file:///a.cls") {
		t.Error("expected no-op on second invalidation")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	// Counters stay cumulative after Clear.
	if got := c.Stats().Invalidations; got != 1 {
		t.Errorf("expected cumulative invalidations, got %d", got)
	}
}

func TestCache_StatsRatios(t *testing.T) {
	c := NewCache(4)
	c.Set("file:///a.cls", State{DocumentVersion: 1})
	c.Get("file:///a.cls", 1)
	c.Get("file:///a.cls", 9)

	s := c.Stats()
	if s.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", s.HitRate)
	}
	if s.Utilization != 0.25 {
		t.Errorf("expected utilization 0.25, got %v", s.Utilization)
	}
}
