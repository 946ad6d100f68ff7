// # internal/core/app/diagnostics.go
package app

import (
	"go.lsp.dev/protocol"

	"apexls/internal/core/ports"
	"apexls/internal/data/doccache"
)

const diagnosticSource = "apex"

// Diagnostics converts the parser collaborator's structured errors into
// LSP diagnostics.
func Diagnostics(errs []ports.ParseError) []protocol.Diagnostic {
	if len(errs) == 0 {
		return nil
	}
	diags := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		diags = append(diags, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: e.Line, Character: e.Column},
				End:   protocol.Position{Line: e.EndLine, Character: e.EndColumn},
			},
			Severity: diagnosticSeverity(e.Severity),
			Source:   diagnosticSource,
			Message:  e.Message,
			Code:     e.Kind,
		})
	}
	return diags
}

func diagnosticSeverity(s ports.ErrorSeverity) protocol.DiagnosticSeverity {
	switch s {
	case ports.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case ports.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	case ports.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

// AddParseResult stores a compile's diagnostics and document metadata,
// then schedules its symbol table. A result with no table (a parse that
// produced only errors) still updates the cached diagnostics.
func (s *Service) AddParseResult(res *ports.ParseResult) (string, error) {
	if res == nil {
		return "", nil
	}

	diags := Diagnostics(res.Errors)
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	s.Cache.Merge(res.URI, doccache.Update{
		Diagnostics:     diags,
		DocumentVersion: &res.Version,
		DocumentLength:  &res.Length,
	})

	if res.Table == nil {
		return "", nil
	}
	return s.AddSymbolTable(res.Table)
}
