// # internal/engine/resolver/resolver.go
package resolver

import (
	"log/slog"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/engine/graph"
	"apexls/internal/engine/registry"
	"apexls/internal/symbols"
)

// Resolver binds raw reference occurrences to declarations: the scope
// chain first (a local shadowing a field wins), then the global registry.
// A name with no candidate anywhere stays unresolved and is surfaced to
// validators, never raised as an error.
type Resolver struct {
	graph    *graph.Graph
	registry *registry.Registry
}

func NewResolver(g *graph.Graph, r *registry.Registry) *Resolver {
	return &Resolver{graph: g, registry: r}
}

// Outcome summarizes one resolution pass over a table.
type Outcome struct {
	Resolved   int
	Deferred   []Deferred
	Unresolved int
}

// ResolveTable attempts to bind every unresolved reference in the table.
// References that miss both the scope chain and the registry become
// deferred candidates for a background retry once more files are loaded.
func (r *Resolver) ResolveTable(tbl *symbols.Table, ctx *registry.ResolveContext) Outcome {
	var out Outcome
	refs := tbl.References()
	for _, i := range tbl.UnresolvedReferences() {
		ref := refs[i]
		if r.resolveReference(tbl, i, ref, ctx) {
			out.Resolved++
			continue
		}
		out.Deferred = append(out.Deferred, Deferred{
			URI:      tbl.URI,
			Version:  tbl.Version,
			RefIndex: i,
			Name:     ref.Name,
		})
	}
	out.Unresolved = len(out.Deferred)
	return out
}

func (r *Resolver) resolveReference(tbl *symbols.Table, i int, ref symbols.Reference, ctx *registry.ResolveContext) bool {
	// 1. Scope chain at the occurrence position.
	if sym, ok := tbl.ResolveAt(ref.Name, ref.Range.Start); ok {
		tbl.BindReference(i, sym.ID, 1.0)
		r.recordEdge(tbl, ref, sym.ID)
		return true
	}

	// 2. Global registry (user types, then stdlib, per the ambiguity policy).
	if res, ok := r.registry.ResolveType(ref.Name, ctx); ok {
		target := res.Entry.SymbolID
		if target == "" {
			target = res.Entry.FQN
		}
		tbl.BindReference(i, target, res.Confidence)
		r.recordEdge(tbl, ref, target)
		return true
	}

	return false
}

// recordEdge adds a graph edge from the enclosing declaration to the
// resolved target. Missing endpoints (stdlib entries without graph nodes,
// tables not yet indexed) are fine: the binding stands, the edge is
// skipped.
func (r *Resolver) recordEdge(tbl *symbols.Table, ref symbols.Reference, targetID string) {
	fromID, ok := r.enclosingSymbolID(tbl, ref)
	if !ok {
		return
	}
	if err := r.graph.AddReference(fromID, targetID, ref.Context, tbl.URI, ref.Range); err != nil {
		if !apexerrors.IsCode(err, apexerrors.CodeNotFound) {
			slog.Warn("failed to record reference edge", "error", err, "from", fromID, "to", targetID)
		}
	}
}

// enclosingSymbolID finds the innermost scope around the occurrence whose
// path names a declared symbol.
func (r *Resolver) enclosingSymbolID(tbl *symbols.Table, ref symbols.Reference) (string, bool) {
	chain := tbl.ScopeHierarchy(ref.Range.Start)
	for i := len(chain) - 1; i >= 0; i-- {
		path := chain[i].Path()
		if path == "" {
			continue
		}
		if _, ok := tbl.SymbolByID(path); ok {
			return path, true
		}
	}
	return "", false
}

// UnresolvedIn returns the occurrences still lacking a binding, for
// validators to report.
func (r *Resolver) UnresolvedIn(tbl *symbols.Table) []symbols.Reference {
	refs := tbl.References()
	var unresolved []symbols.Reference
	for _, i := range tbl.UnresolvedReferences() {
		unresolved = append(unresolved, refs[i])
	}
	return unresolved
}
