package symbols

import (
	"sort"
	"strings"
	"sync"

	"github.com/dshills/apidl/pkg/types"
)

// Table is the workspace symbol index.
//
// Symbols are owned by the document they were collected from. Replacing a
// document swaps all of its symbols at once, so a reindex never leaves a
// mix of old and new declarations. Lookups by key return the most recently
// inserted symbol still present.
type Table struct {
	mu sync.RWMutex

	byKey   map[types.Key][]types.Symbol // insertion order, last is visible
	docs    map[string][]types.Symbol    // uri -> owned symbols in source order
	fields  map[string][]types.Key       // struct name -> field keys in first-seen order
	version uint64
}

// NewTable creates an empty symbol table
func NewTable() *Table {
	return &Table{
		byKey:  make(map[types.Key][]types.Symbol),
		docs:   make(map[string][]types.Symbol),
		fields: make(map[string][]types.Key),
	}
}

// ReplaceDocument drops every symbol previously owned by uri and inserts
// syms in their place.
//
// A field or enum value whose (parent, name) key is already held by another
// stored symbol, from this document or any other, is a duplicate of it. The
// replaced symbols are appended after every other holder of their keys, so
// a reindexed document never becomes the anchor of a group it joined late.
// Structs, enums, apis and api lists are never checked.
func (t *Table) ReplaceDocument(uri string, syms []types.Symbol) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(uri)
	t.insertLocked(uri, syms)
	t.version++
}

func (t *Table) insertLocked(uri string, syms []types.Symbol) {
	if len(syms) == 0 {
		return
	}

	owned := make([]types.Symbol, 0, len(syms))
	for _, sym := range syms {
		sym.Location.URI = uri
		key := sym.Key()
		if sym.Kind == types.KindField {
			t.addFieldLocked(key)
		}
		owned = append(owned, sym)
		t.byKey[key] = append(t.byKey[key], sym)
	}
	t.docs[uri] = owned
}

// RemoveDocument drops every symbol owned by uri. It reports whether the
// document was present.
func (t *Table) RemoveDocument(uri string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.removeLocked(uri) {
		return false
	}
	t.version++
	return true
}

// Load replaces the whole table with syms, grouped by their document URI.
// Documents are inserted in order of first appearance, so duplicate groups
// are rebuilt as if each document had been indexed in that order.
func (t *Table) Load(syms []types.Symbol) {
	byDoc := make(map[string][]types.Symbol)
	var order []string
	for _, sym := range syms {
		uri := sym.Location.URI
		if _, ok := byDoc[uri]; !ok {
			order = append(order, uri)
		}
		byDoc[uri] = append(byDoc[uri], sym)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
	for _, uri := range order {
		t.insertLocked(uri, byDoc[uri])
	}
	t.version++
}

// Reset clears the table
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
	t.version++
}

func (t *Table) clearLocked() {
	t.byKey = make(map[types.Key][]types.Symbol)
	t.docs = make(map[string][]types.Symbol)
	t.fields = make(map[string][]types.Key)
}

// Find looks up a top-level symbol by bare name. A dotted "Parent.member"
// name falls back to a member lookup.
func (t *Table) Find(name string) (types.Symbol, bool) {
	if sym, ok := t.FindKey(types.Key{Name: name}); ok {
		return sym, true
	}
	if i := strings.LastIndex(name, "."); i > 0 && i < len(name)-1 {
		return t.FindKey(types.Key{Parent: name[:i], Name: name[i+1:]})
	}
	return types.Symbol{}, false
}

// FindKey returns the visible symbol for key
func (t *Table) FindKey(key types.Key) (types.Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := t.byKey[key]
	if len(entries) == 0 {
		return types.Symbol{}, false
	}
	return entries[len(entries)-1], true
}

// OfKind returns the visible symbols of kind sorted by key
func (t *Table) OfKind(kind types.SymbolKind) []types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []types.Symbol
	for _, entries := range t.byKey {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Kind == kind {
				out = append(out, entries[i])
				break
			}
		}
	}
	sortSymbols(out)
	return out
}

// FieldsOfStruct returns the fields of the named struct in declaration order
func (t *Table) FieldsOfStruct(name string) []types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := t.fields[name]
	out := make([]types.Symbol, 0, len(keys))
	for _, key := range keys {
		entries := t.byKey[key]
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Kind == types.KindField {
				out = append(out, entries[i])
				break
			}
		}
	}
	return out
}

// Duplicates returns every duplicate group in the workspace. A group lists
// each declaration of a member key in insertion order; its first element is
// the declaration the others duplicate.
func (t *Table) Duplicates() map[types.Key][]types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[types.Key][]types.Symbol)
	for key, entries := range t.byKey {
		if isDuplicate(key, entries) {
			out[key] = append([]types.Symbol(nil), entries...)
		}
	}
	return out
}

// DocumentDuplicates returns the duplicate groups that include at least one
// declaration from uri. Groups are workspace wide and may hold symbols of
// other documents.
func (t *Table) DocumentDuplicates(uri string) map[types.Key][]types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[types.Key][]types.Symbol)
	for i := range t.docs[uri] {
		key := t.docs[uri][i].Key()
		if _, done := out[key]; done {
			continue
		}
		if entries := t.byKey[key]; isDuplicate(key, entries) {
			out[key] = append([]types.Symbol(nil), entries...)
		}
	}
	return out
}

// isDuplicate reports whether a member key has more than one declaration
func isDuplicate(key types.Key, entries []types.Symbol) bool {
	return key.Parent != "" && len(entries) > 1 && entries[0].Kind.IsMember()
}

// DocumentSymbols returns the symbols owned by uri in source order
func (t *Table) DocumentSymbols(uri string) []types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]types.Symbol(nil), t.docs[uri]...)
}

// Documents returns the URIs that own at least one symbol, sorted
func (t *Table) Documents() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	uris := make([]string, 0, len(t.docs))
	for uri := range t.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// All returns every stored symbol, documents in URI order and symbols in
// source order. Shadowed and duplicate symbols are included.
func (t *Table) All() []types.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	uris := make([]string, 0, len(t.docs))
	total := 0
	for uri, syms := range t.docs {
		uris = append(uris, uri)
		total += len(syms)
	}
	sort.Strings(uris)

	out := make([]types.Symbol, 0, total)
	for _, uri := range uris {
		out = append(out, t.docs[uri]...)
	}
	return out
}

// Len returns the number of stored symbols
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, syms := range t.docs {
		n += len(syms)
	}
	return n
}

// Version increases on every mutation. Readers use it to detect staleness.
func (t *Table) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

func (t *Table) removeLocked(uri string) bool {
	old, ok := t.docs[uri]
	if !ok {
		return false
	}
	delete(t.docs, uri)

	touched := make(map[types.Key]struct{}, len(old))
	for i := range old {
		touched[old[i].Key()] = struct{}{}
	}
	for key := range touched {
		entries := t.byKey[key]
		kept := entries[:0]
		for _, sym := range entries {
			if sym.Location.URI != uri {
				kept = append(kept, sym)
			}
		}
		if len(kept) == 0 {
			delete(t.byKey, key)
			t.removeFieldLocked(key)
			continue
		}
		t.byKey[key] = kept
	}
	return true
}

func (t *Table) addFieldLocked(key types.Key) {
	for _, k := range t.fields[key.Parent] {
		if k == key {
			return
		}
	}
	t.fields[key.Parent] = append(t.fields[key.Parent], key)
}

func (t *Table) removeFieldLocked(key types.Key) {
	if key.Parent == "" {
		return
	}
	keys := t.fields[key.Parent]
	for i, k := range keys {
		if k == key {
			keys = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(keys) == 0 {
		delete(t.fields, key.Parent)
		return
	}
	t.fields[key.Parent] = keys
}

func sortSymbols(syms []types.Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		a, b := syms[i].Key(), syms[j].Key()
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return syms[i].Kind < syms[j].Kind
	})
}
