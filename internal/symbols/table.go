package symbols

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Table owns the scope tree and symbol arena for one compiled file version.
// It is built single-threaded by the parser collaborator and replaced, not
// mutated, on re-compile. Raw references and attached documentation are the
// only parts touched after publication (by deferred resolution and comment
// association), so they sit behind their own lock.
type Table struct {
	URI       uri.URI
	Version   int32
	CreatedAt time.Time

	root    *Scope
	current *Scope
	byID    map[string]*Symbol

	refMu      sync.RWMutex
	references []Reference
	docs       map[string]string

	comments []Comment

	blockSeq int
}

func NewTable(docURI uri.URI, version int32) *Table {
	root := newScope("", KindFile, protocol.Range{}, nil)
	return &Table{
		URI:       docURI,
		Version:   version,
		CreatedAt: time.Now(),
		root:      root,
		current:   root,
		byID:      make(map[string]*Symbol),
	}
}

// Root returns the file-level scope.
func (t *Table) Root() *Scope {
	return t.root
}

// CurrentScope returns the construction cursor.
func (t *Table) CurrentScope() *Scope {
	return t.current
}

// AddSymbol inserts into the current scope. A duplicate name within one
// scope overwrites the prior entry; duplicate diagnostics are the
// validator's job, not this component's.
func (t *Table) AddSymbol(sym *Symbol) {
	if sym == nil {
		return
	}
	if sym.ID == "" {
		if t.current.path == "" {
			sym.ID = sym.Name
		} else {
			sym.ID = t.current.path + "." + sym.Name
		}
	}
	if sym.ParentID == "" {
		sym.ParentID = t.current.path
	}
	if sym.Location.URI == "" {
		sym.Location.URI = t.URI
	}
	if prev, ok := t.current.Symbols[sym.Name]; ok {
		delete(t.byID, prev.ID)
	}
	t.current.Symbols[sym.Name] = sym
	t.byID[sym.ID] = sym
}

// EnterScope pushes a child scope and moves the cursor into it. Anonymous
// scopes (blocks) receive a synthesized name so shadowed locals in sibling
// blocks keep distinct ids.
func (t *Table) EnterScope(name string, kind SymbolKind, rng protocol.Range) *Scope {
	if name == "" {
		t.blockSeq++
		name = fmt.Sprintf("block%d", t.blockSeq)
	}
	t.current = newScope(name, kind, rng, t.current)
	return t.current
}

// ExitScope pops the cursor. Popping at the file scope is a no-op.
func (t *Table) ExitScope() {
	if t.current.Parent != nil {
		t.current = t.current.Parent
	}
}

// Lookup walks from the current scope outward and returns the first match.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	return t.current.Resolve(name)
}

// FindSymbolInCurrentScope checks only the innermost scope.
func (t *Table) FindSymbolInCurrentScope(name string) (*Symbol, bool) {
	return t.current.Get(name)
}

// SymbolByID resolves an id through the arena.
func (t *Table) SymbolByID(id string) (*Symbol, bool) {
	sym, ok := t.byID[id]
	return sym, ok
}

// AllSymbols returns every symbol in the table, ordered by id.
func (t *Table) AllSymbols() []*Symbol {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	syms := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		syms = append(syms, t.byID[id])
	}
	return syms
}

// SymbolCount returns the arena size.
func (t *Table) SymbolCount() int {
	return len(t.byID)
}

// ScopeHierarchy returns the chain of scopes enclosing pos, innermost last.
// The file scope always encloses.
func (t *Table) ScopeHierarchy(pos protocol.Position) []*Scope {
	chain := []*Scope{t.root}
	cur := t.root
	for {
		var next *Scope
		for _, child := range cur.Children {
			if RangeContains(child.Range, pos) {
				next = child
				break
			}
		}
		if next == nil {
			return chain
		}
		chain = append(chain, next)
		cur = next
	}
}

// ResolveAt resolves a name as seen from pos: the innermost enclosing scope
// wins, then parents outward. A local shadowing a field resolves to the
// local; a miss everywhere returns false, never an error.
func (t *Table) ResolveAt(name string, pos protocol.Position) (*Symbol, bool) {
	chain := t.ScopeHierarchy(pos)
	for i := len(chain) - 1; i >= 0; i-- {
		if sym, ok := chain[i].Get(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// AddReference records a raw name occurrence.
func (t *Table) AddReference(ref Reference) {
	t.refMu.Lock()
	defer t.refMu.Unlock()
	t.references = append(t.references, ref)
}

// References returns a snapshot of the recorded occurrences.
func (t *Table) References() []Reference {
	t.refMu.RLock()
	defer t.refMu.RUnlock()
	return append([]Reference(nil), t.references...)
}

// ReferenceCount returns the number of recorded occurrences.
func (t *Table) ReferenceCount() int {
	t.refMu.RLock()
	defer t.refMu.RUnlock()
	return len(t.references)
}

// BindReference marks occurrence i as resolved to a declaration id.
func (t *Table) BindReference(i int, resolvedID string, confidence float64) {
	t.refMu.Lock()
	defer t.refMu.Unlock()
	if i < 0 || i >= len(t.references) {
		return
	}
	t.references[i].ResolvedID = resolvedID
	t.references[i].Confidence = confidence
}

// UnresolvedReferences returns the indexes of occurrences with no binding.
func (t *Table) UnresolvedReferences() []int {
	t.refMu.RLock()
	defer t.refMu.RUnlock()
	var idx []int
	for i := range t.references {
		if t.references[i].ResolvedID == "" {
			idx = append(idx, i)
		}
	}
	return idx
}
