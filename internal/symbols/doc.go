// Package symbols turns parsed apidl programs into indexed symbols.
//
// Collect performs a single walk over a Program and returns its symbols.
// Only members of named typedefs become Field and EnumValue symbols; fields
// of inline structs (api inputs and outputs, nested anonymous structs) are
// request shapes and are never indexed. Apis inside an apilist carry the
// list name as their Parent.
//
// Table stores symbols per document:
//
//	table := symbols.NewTable()
//	table.ReplaceDocument(uri, symbols.Collect(prog, uri))
//
//	if sym, ok := table.Find("User"); ok {
//	    fmt.Println(sym.Detail)
//	}
//	for key, group := range table.Duplicates() {
//	    fmt.Printf("%s declared %d times\n", key, len(group))
//	}
//
// Duplicate detection is scoped to the (parent, name) key of fields and
// enum values across the whole workspace: two structs may share field
// names, but a struct declared in two files with the same field reports
// that field as a duplicate. Reindexing a document replaces its own
// previous symbols first, so an unchanged document never duplicates
// itself.
//
// Table is safe for concurrent use.
package symbols
