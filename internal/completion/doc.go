// Package completion serves completion candidates from the symbol table.
//
// Views (structs, enums, enum values, apis, fields of a struct, all types)
// are computed from the table on demand and cached for a short TTL. A view
// is also rebuilt whenever the table version changes or Invalidate is
// called, so a reindex is visible on the next request.
//
// Classify inspects only the cursor line and a bounded window above it to
// decide which kind of slot the cursor is in:
//
//	c := completion.Classify(text, line, col, completion.DefaultWindow)
//	for _, s := range idx.Contextual(c) {
//	    fmt.Println(s.Label, s.Kind)
//	}
//
// Results are capped at Options.MaxResults.
package completion
