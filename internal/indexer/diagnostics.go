package indexer

import (
	"sort"

	"github.com/dshills/apidl/internal/parser"
	"github.com/dshills/apidl/pkg/types"
)

// DiagnosticSource is the Source of every diagnostic produced here
const DiagnosticSource = "apidl"

// Diagnostics returns the problems found in uri ordered by position: one
// warning for every declaration of uri after the first in each duplicate
// group, and one error for every syntax error of an open document. The
// first declaration of a group may live in another document.
func (x *Indexer) Diagnostics(uri string) []types.Diagnostic {
	uri = NormalizeURI(uri)

	var diags []types.Diagnostic
	for key, group := range x.table.DocumentDuplicates(uri) {
		if len(group) < 2 {
			continue
		}
		first := group[0]
		for _, dup := range group[1:] {
			if dup.Location.URI != uri {
				continue
			}
			diags = append(diags, types.Diagnostic{
				URI:      uri,
				Range:    dup.Location.Range,
				Severity: types.SeverityWarning,
				Source:   DiagnosticSource,
				Message:  types.DuplicateMessage(key, first.Line()),
			})
		}
	}

	x.mu.Lock()
	errs := x.parseErrs[uri]
	x.mu.Unlock()
	for _, e := range errs {
		diags = append(diags, types.Diagnostic{
			URI:      uri,
			Range:    spanRange(e.Span()),
			Severity: types.SeverityError,
			Source:   DiagnosticSource,
			Message:  e.Message,
		})
	}

	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Range.Start, diags[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return diags
}

// ParseErrors returns the syntax errors of an open document
func (x *Indexer) ParseErrors(uri string) parser.ErrorList {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append(parser.ErrorList(nil), x.parseErrs[NormalizeURI(uri)]...)
}

func spanRange(s parser.Span) types.Range {
	return types.Range{
		Start: types.Position{Line: s.Line, Column: s.Column, Offset: s.Start},
		End:   types.Position{Line: s.EndLine, Column: s.EndColumn, Offset: s.End},
	}
}
