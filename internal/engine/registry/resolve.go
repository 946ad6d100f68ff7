package registry

// internal/engine/registry/resolve.go

import (
	"strings"

	"apexls/internal/shared/observability"
)

// ResolveContext narrows ambiguous name lookups.
type ResolveContext struct {
	CurrentNamespace    string
	NamespacePreference []string
}

// Resolution is the outcome of a name lookup. Confidence reflects how the
// candidate was chosen: 1.0 for a unique match, a flat discounted value for
// any ambiguity decision. The ordering of the rules is the contract, not
// the numeric value.
type Resolution struct {
	Entry      Entry
	Confidence float64
	Ambiguous  bool
	Candidates int
}

const ambiguousConfidence = 0.5

// ResolveType resolves a bare name. With several candidates the rules
// apply in order, each short-circuiting on a match:
//
//  1. exact match to ctx.CurrentNamespace
//  2. first namespace in ctx.NamespacePreference with a candidate
//  3. standard-library entries before user entries
//  4. first-registered
//
// Zero candidates yield (Resolution{}, false) — unresolved, never an error.
func (r *Registry) ResolveType(name string, ctx *ResolveContext) (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups++
	candidates := r.byName[fold(name)]
	if len(candidates) == 0 {
		observability.RegistryLookupsTotal.WithLabelValues("miss").Inc()
		return Resolution{}, false
	}

	r.hits++
	observability.RegistryLookupsTotal.WithLabelValues("hit").Inc()

	if len(candidates) == 1 {
		return Resolution{Entry: candidates[0].entry, Confidence: 1.0, Candidates: 1}, true
	}

	pick := func(match func(Entry) bool) (Resolution, bool) {
		for _, rec := range candidates {
			if match(rec.entry) {
				return Resolution{
					Entry:      rec.entry,
					Confidence: ambiguousConfidence,
					Ambiguous:  true,
					Candidates: len(candidates),
				}, true
			}
		}
		return Resolution{}, false
	}

	if ctx != nil && ctx.CurrentNamespace != "" {
		if res, ok := pick(func(e Entry) bool {
			return strings.EqualFold(e.Namespace, ctx.CurrentNamespace)
		}); ok {
			return res, true
		}
	}

	if ctx != nil {
		for _, ns := range ctx.NamespacePreference {
			if res, ok := pick(func(e Entry) bool {
				return strings.EqualFold(e.Namespace, ns)
			}); ok {
				return res, true
			}
		}
	}

	if res, ok := pick(func(e Entry) bool { return e.IsStdlib }); ok {
		return res, true
	}

	// Candidates are kept in registration order; the head wins.
	res, _ := pick(func(Entry) bool { return true })
	return res, true
}

// CandidatesFor returns every entry sharing the name, in registration
// order. Useful for validators reporting ambiguity.
func (r *Registry) CandidatesFor(name string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.byName[fold(name)]
	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, rec.entry)
	}
	return entries
}
