package symbols

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

type SymbolKind int

const (
	KindFile SymbolKind = iota
	KindClass
	KindInterface
	KindTrigger
	KindEnum
	KindEnumValue
	KindMethod
	KindConstructor
	KindProperty
	KindField
	KindVariable
	KindParameter
	KindBlock
)

var kindNames = map[SymbolKind]string{
	KindFile:        "file",
	KindClass:       "class",
	KindInterface:   "interface",
	KindTrigger:     "trigger",
	KindEnum:        "enum",
	KindEnumValue:   "enumvalue",
	KindMethod:      "method",
	KindConstructor: "constructor",
	KindProperty:    "property",
	KindField:       "field",
	KindVariable:    "variable",
	KindParameter:   "parameter",
	KindBlock:       "block",
}

func (k SymbolKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsType reports whether the kind declares a type usable as a registry entry.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindTrigger, KindEnum:
		return true
	}
	return false
}

type Visibility int

const (
	VisibilityDefault Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityPublic
	VisibilityGlobal
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityProtected:
		return "protected"
	case VisibilityPublic:
		return "public"
	case VisibilityGlobal:
		return "global"
	default:
		return "default"
	}
}

type Modifiers struct {
	Visibility Visibility
	Static     bool
	Final      bool
	Abstract   bool
	Virtual    bool
	Override   bool
	Transient  bool
	TestMethod bool
	WebService bool
}

// Location carries the full declaration extent and the identifier token range.
type Location struct {
	URI        uri.URI
	Range      protocol.Range
	Identifier protocol.Range
}

// Symbol is a single named declaration. ParentID is a weak back-reference
// resolved through the owning table's id arena, never an object pointer.
type Symbol struct {
	ID          string
	Name        string
	Kind        SymbolKind
	Location    Location
	Modifiers   Modifiers
	ParentID    string
	Namespace   string
	FQN         string
	Annotations []string
}

// Comment is a raw doc comment captured during parsing, before it has been
// attached to a declaration.
type Comment struct {
	Text  string
	Range protocol.Range
}

type ReferenceContext int

const (
	RefMethodCall ReferenceContext = iota
	RefFieldAccess
	RefConstructorCall
	RefStaticAccess
	RefTypeReference
	RefTypeDeclaration
	RefImport
	RefVariableUsage
)

var refContextNames = map[ReferenceContext]string{
	RefMethodCall:      "method-call",
	RefFieldAccess:     "field-access",
	RefConstructorCall: "constructor-call",
	RefStaticAccess:    "static-access",
	RefTypeReference:   "type-reference",
	RefTypeDeclaration: "type-declaration",
	RefImport:          "import",
	RefVariableUsage:   "variable-usage",
}

func (c ReferenceContext) String() string {
	if name, ok := refContextNames[c]; ok {
		return name
	}
	return "unknown"
}

// Reference is a raw name occurrence recorded during parsing. ResolvedID is
// filled in by the resolver once a declaration is found.
type Reference struct {
	Name       string
	Range      protocol.Range
	Context    ReferenceContext
	ResolvedID string
	Confidence float64
}

// Resolved reports whether the reference has been bound to a declaration.
func (r Reference) Resolved() bool {
	return r.ResolvedID != ""
}

func positionBefore(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// RangeContains reports whether pos falls inside rng (end-exclusive).
func RangeContains(rng protocol.Range, pos protocol.Position) bool {
	if positionBefore(pos, rng.Start) {
		return false
	}
	return positionBefore(pos, rng.End)
}
