package symbols

import "go.lsp.dev/protocol"

// Scope is a lexical container of symbols. Nesting mirrors source nesting
// (file -> type -> method/constructor -> blocks). Parent is a back-reference
// into the same owning table.
type Scope struct {
	Name     string
	Kind     SymbolKind
	Range    protocol.Range
	Symbols  map[string]*Symbol
	Children []*Scope
	Parent   *Scope

	path string // scope-qualified id prefix, "" for the file scope
}

func newScope(name string, kind SymbolKind, rng protocol.Range, parent *Scope) *Scope {
	s := &Scope{
		Name:    name,
		Kind:    kind,
		Range:   rng,
		Symbols: make(map[string]*Symbol),
		Parent:  parent,
	}
	if parent == nil || parent.path == "" {
		s.path = name
	} else {
		s.path = parent.path + "." + name
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Path returns the scope-qualified id prefix for symbols declared here.
func (s *Scope) Path() string {
	return s.path
}

// Get checks only this scope.
func (s *Scope) Get(name string) (*Symbol, bool) {
	sym, ok := s.Symbols[name]
	return sym, ok
}

// Resolve walks from this scope outward through parents and returns the
// first match.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Depth returns the number of parents above this scope.
func (s *Scope) Depth() int {
	d := 0
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		d++
	}
	return d
}
