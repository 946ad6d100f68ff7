package ports

import (
	"context"

	"go.lsp.dev/uri"

	"apexls/internal/data/stdlib"
	"apexls/internal/symbols"
)

// ErrorSeverity mirrors the severity the parser collaborator reports.
type ErrorSeverity int

const (
	SeverityError ErrorSeverity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

// ParseError is one structured parse or semantic error for a compiled file.
type ParseError struct {
	Line      uint32
	Column    uint32
	EndLine   uint32
	EndColumn uint32
	Message   string
	Severity  ErrorSeverity
	Kind      string
}

// ParseResult is what a compile of one document produces: the scoped
// symbol table (with raw references and doc comments attached) plus any
// structured errors.
type ParseResult struct {
	URI     uri.URI
	Version int32
	Table   *symbols.Table
	Errors  []ParseError
	Length  int
}

// ApexParser abstracts the parser collaborator that turns document text
// into symbol tables. The semantic core consumes its output and never
// inspects source text itself.
type ApexParser interface {
	Parse(ctx context.Context, docURI uri.URI, version int32, content []byte) (*ParseResult, error)
	IsSupportedPath(path string) bool
	SupportedExtensions() []string
}

// StdlibSource abstracts the precompiled standard-library artifact.
type StdlibSource interface {
	Types() ([]stdlib.Type, error)
	MembersOf(fqn string) ([]stdlib.Member, error)
	Close() error
}
