// # internal/engine/registry/registry.go
package registry

import (
	"sort"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"apexls/internal/shared/observability"
	"apexls/internal/symbols"
)

// Entry is one registered type. FQN is unique (case-insensitive); Name may
// be shared by several entries across namespaces.
type Entry struct {
	FQN       string
	Name      string
	Namespace string
	Kind      symbols.SymbolKind
	SymbolID  string
	FileURI   uri.URI
	IsStdlib  bool
}

type record struct {
	entry Entry
	order uint64
}

// Stats are cumulative until Clear.
type Stats struct {
	TotalTypes  int
	StdlibTypes int
	UserTypes   int
	LookupCount uint64
	HitCount    uint64
	HitRate     float64
}

// Registry is the process-wide, namespace-aware type index. Apex names are
// case-insensitive, so every key is folded.
type Registry struct {
	mu sync.RWMutex

	byFQN       map[string]*record
	byName      map[string][]*record
	byNamespace map[string][]*record
	byFile      map[uri.URI][]*record

	seq     uint64
	lookups uint64
	hits    uint64
}

func NewRegistry() *Registry {
	return &Registry{
		byFQN:       make(map[string]*record),
		byName:      make(map[string][]*record),
		byNamespace: make(map[string][]*record),
		byFile:      make(map[uri.URI][]*record),
	}
}

func fold(s string) string {
	return strings.ToLower(s)
}

// RegisterType is idempotent per FQN: re-registering overwrites the entry
// but keeps its original registration order so tie-breaks stay stable.
func (r *Registry) RegisterType(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(entry)
	r.publishGaugesLocked()
}

// RegisterTypes registers a batch in order.
func (r *Registry) RegisterTypes(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.registerLocked(e)
	}
	r.publishGaugesLocked()
}

func (r *Registry) registerLocked(entry Entry) {
	key := fold(entry.FQN)
	if existing, ok := r.byFQN[key]; ok {
		r.detachLocked(existing)
		entryOrder := existing.order
		rec := &record{entry: entry, order: entryOrder}
		r.attachLocked(key, rec)
		return
	}
	r.seq++
	rec := &record{entry: entry, order: r.seq}
	r.attachLocked(key, rec)
}

func (r *Registry) attachLocked(fqnKey string, rec *record) {
	r.byFQN[fqnKey] = rec
	nameKey := fold(rec.entry.Name)
	r.byName[nameKey] = insertOrdered(r.byName[nameKey], rec)
	nsKey := fold(rec.entry.Namespace)
	r.byNamespace[nsKey] = insertOrdered(r.byNamespace[nsKey], rec)
	if rec.entry.FileURI != "" {
		r.byFile[rec.entry.FileURI] = append(r.byFile[rec.entry.FileURI], rec)
	}
}

func (r *Registry) detachLocked(rec *record) {
	delete(r.byFQN, fold(rec.entry.FQN))
	nameKey := fold(rec.entry.Name)
	r.byName[nameKey] = remove(r.byName[nameKey], rec)
	if len(r.byName[nameKey]) == 0 {
		delete(r.byName, nameKey)
	}
	nsKey := fold(rec.entry.Namespace)
	r.byNamespace[nsKey] = remove(r.byNamespace[nsKey], rec)
	if len(r.byNamespace[nsKey]) == 0 {
		delete(r.byNamespace, nsKey)
	}
	if rec.entry.FileURI != "" {
		r.byFile[rec.entry.FileURI] = remove(r.byFile[rec.entry.FileURI], rec)
		if len(r.byFile[rec.entry.FileURI]) == 0 {
			delete(r.byFile, rec.entry.FileURI)
		}
	}
}

// UnregisterType removes one entry by FQN. Removing an unknown FQN is a
// no-op.
func (r *Registry) UnregisterType(fqn string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byFQN[fold(fqn)]
	if !ok {
		return Entry{}, false
	}
	r.detachLocked(rec)
	r.publishGaugesLocked()
	return rec.entry, true
}

// UnregisterByFileURI removes every entry registered from a file and
// returns them. Unknown files yield an empty slice.
func (r *Registry) UnregisterByFileURI(fileURI uri.URI) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := append([]*record(nil), r.byFile[fileURI]...)
	removed := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		r.detachLocked(rec)
		removed = append(removed, rec.entry)
	}
	r.publishGaugesLocked()
	return removed
}

// GetType is a case-insensitive exact FQN lookup.
func (r *Registry) GetType(fqn string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups++
	rec, ok := r.byFQN[fold(fqn)]
	if !ok {
		observability.RegistryLookupsTotal.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	r.hits++
	observability.RegistryLookupsTotal.WithLabelValues("hit").Inc()
	return rec.entry, true
}

// TypesInNamespace returns every entry sharing the namespace
// (case-insensitive), in registration order.
func (r *Registry) TypesInNamespace(namespace string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.byNamespace[fold(namespace)]
	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, rec.entry)
	}
	return entries
}

// Stats reports cumulative counters. Reset only by Clear.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stdlib := 0
	for _, rec := range r.byFQN {
		if rec.entry.IsStdlib {
			stdlib++
		}
	}
	s := Stats{
		TotalTypes:  len(r.byFQN),
		StdlibTypes: stdlib,
		UserTypes:   len(r.byFQN) - stdlib,
		LookupCount: r.lookups,
		HitCount:    r.hits,
	}
	if s.LookupCount > 0 {
		s.HitRate = float64(s.HitCount) / float64(s.LookupCount)
	}
	return s
}

// Clear removes all entries and resets statistics.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byFQN = make(map[string]*record)
	r.byName = make(map[string][]*record)
	r.byNamespace = make(map[string][]*record)
	r.byFile = make(map[uri.URI][]*record)
	r.seq = 0
	r.lookups = 0
	r.hits = 0
	r.publishGaugesLocked()
}

func (r *Registry) publishGaugesLocked() {
	stdlib := 0
	for _, rec := range r.byFQN {
		if rec.entry.IsStdlib {
			stdlib++
		}
	}
	observability.RegistryTypes.WithLabelValues("stdlib").Set(float64(stdlib))
	observability.RegistryTypes.WithLabelValues("user").Set(float64(len(r.byFQN) - stdlib))
}

func insertOrdered(list []*record, rec *record) []*record {
	list = append(list, rec)
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })
	return list
}

func remove(list []*record, rec *record) []*record {
	for i, candidate := range list {
		if candidate == rec {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
