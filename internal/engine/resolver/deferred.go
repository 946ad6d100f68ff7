package resolver

// internal/engine/resolver/deferred.go

import (
	"go.lsp.dev/uri"

	"apexls/internal/engine/registry"
	"apexls/internal/shared/observability"
	"apexls/internal/symbols"
)

// Deferred identifies one reference occurrence that could not be resolved
// during synchronous compilation (forward reference, cross-file symbol not
// yet loaded). Attempts counts retry dispatches.
type Deferred struct {
	URI      uri.URI
	Version  int32
	RefIndex int
	Name     string
	Attempts int
}

// DefaultRetryBudget bounds deferred-reference retries so a permanently
// unresolvable name cannot requeue forever.
const DefaultRetryBudget = 3

// ResolveDeferred re-attempts one deferred occurrence against the current
// table version. A stale version (the document was re-compiled since the
// reference was deferred) counts as handled: the newer compile owns the
// reference now.
func (r *Resolver) ResolveDeferred(tbl *symbols.Table, d Deferred, ctx *registry.ResolveContext) bool {
	if tbl == nil || tbl.Version != d.Version {
		return true
	}
	refs := tbl.References()
	if d.RefIndex < 0 || d.RefIndex >= len(refs) {
		return true
	}
	ref := refs[d.RefIndex]
	if ref.Resolved() {
		return true
	}
	return r.resolveReference(tbl, d.RefIndex, ref, ctx)
}

// TableSource is the narrow accessor the background manager satisfies
// with the document cache when re-running deferred resolutions.
type TableSource interface {
	TableFor(docURI uri.URI) (*symbols.Table, bool)
}

// NextAttempt bumps the retry counter and reports whether the budget
// still allows a retry.
func (d *Deferred) NextAttempt(budget int) bool {
	if budget <= 0 {
		budget = DefaultRetryBudget
	}
	d.Attempts++
	if d.Attempts > budget {
		observability.DeferredDiscardedTotal.Inc()
		return false
	}
	observability.DeferredRetriesTotal.Inc()
	return true
}

