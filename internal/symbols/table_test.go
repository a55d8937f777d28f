package symbols

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dshills/apidl/internal/parser"
	"github.com/dshills/apidl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func index(t *testing.T, table *Table, uri, src string) {
	t.Helper()
	prog, _ := parser.New().Parse(context.Background(), src)
	table.ReplaceDocument(uri, Collect(prog, uri))
}

func TestTable_DuplicateFieldInOneStruct(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { id int id string } Bad")

	dups := table.Duplicates()
	require.Len(t, dups, 1)

	key := types.Key{Parent: "Bad", Name: "id"}
	group := dups[key]
	require.Len(t, group, 2)
	assert.Equal(t, "int", group[0].TypeName)
	assert.Equal(t, "string", group[1].TypeName)
	assert.Equal(t,
		"Duplicate definition of 'Bad.id'. First defined at line 1.",
		types.DuplicateMessage(key, group[0].Line()))
}

func TestTable_DuplicateGroupKeepsSourceOrder(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef enum {\n A\n B\n A\n A\n} E")

	group := table.Duplicates()[types.Key{Parent: "E", Name: "A"}]
	require.Len(t, group, 3)
	assert.Equal(t, 2, group[0].Line())
	assert.Equal(t, 4, group[1].Line())
	assert.Equal(t, 5, group[2].Line())
}

func TestTable_SameFieldInDifferentStructs(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { id int } A typedef struct { id int } B")

	assert.Empty(t, table.Duplicates())
	assert.Len(t, table.FieldsOfStruct("A"), 1)
	assert.Len(t, table.FieldsOfStruct("B"), 1)
}

func TestTable_InlineRepeatsAreNotDuplicates(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, `api "a" { input struct { f int f int f int } }`)
	assert.Empty(t, table.Duplicates())

	index(t, table, testURI, `apilist "x" { api "a" { input struct { f int } } api "b" { input struct { f int } } }`)
	assert.Empty(t, table.Duplicates())

	apis := table.OfKind(types.KindAPI)
	require.Len(t, apis, 2)
	assert.Equal(t, "x", apis[0].Parent)
	assert.Equal(t, "x", apis[1].Parent)
}

func TestTable_TopLevelNamesAreNeverDuplicates(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, `typedef struct { a int } T typedef struct { b int } T api "x" {} api "x" {}`)
	assert.Empty(t, table.Duplicates())

	sym, ok := table.Find("T")
	require.True(t, ok)
	assert.Equal(t, types.KindStruct, sym.Kind)
}

func TestTable_ReindexIsIdempotent(t *testing.T) {
	src := "typedef struct { id int id string name string } Bad typedef enum { A, B } E"
	table := NewTable()

	index(t, table, testURI, src)
	all := table.All()
	dups := table.Duplicates()
	fields := table.FieldsOfStruct("Bad")

	index(t, table, testURI, src)
	assert.Equal(t, all, table.All())
	assert.Equal(t, dups, table.Duplicates())
	assert.Equal(t, fields, table.FieldsOfStruct("Bad"))
	assert.Len(t, dups[types.Key{Parent: "Bad", Name: "id"}], 2)
}

func TestTable_ReplaceDropsOldSymbols(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { id int name string } User")
	require.Len(t, table.FieldsOfStruct("User"), 2)

	index(t, table, testURI, "typedef struct { id int } User")
	fields := table.FieldsOfStruct("User")
	require.Len(t, fields, 1)
	assert.Equal(t, "id", fields[0].Name)

	_, ok := table.Find("User.name")
	assert.False(t, ok)
}

func TestTable_LastWriterWins(t *testing.T) {
	table := NewTable()
	index(t, table, "file:///a.api", "typedef struct { id int } User")
	index(t, table, "file:///b.api", "typedef struct { id string } User")

	sym, ok := table.Find("User")
	require.True(t, ok)
	assert.Equal(t, "file:///b.api", sym.Location.URI)

	field, ok := table.Find("User.id")
	require.True(t, ok)
	assert.Equal(t, "string", field.TypeName)

	dups := table.Duplicates()
	require.Len(t, dups, 1, "the struct name is never checked, its field is")
	group := dups[types.Key{Parent: "User", Name: "id"}]
	require.Len(t, group, 2)
	assert.Equal(t, "file:///a.api", group[0].Location.URI)
	assert.Equal(t, "file:///b.api", group[1].Location.URI)

	assert.True(t, table.RemoveDocument("file:///b.api"))
	sym, ok = table.Find("User")
	require.True(t, ok)
	assert.Equal(t, "file:///a.api", sym.Location.URI)

	fields := table.FieldsOfStruct("User")
	require.Len(t, fields, 1)
	assert.Equal(t, "int", fields[0].TypeName)
	assert.Empty(t, table.Duplicates())
}

func TestTable_DuplicatesAcrossDocuments(t *testing.T) {
	table := NewTable()
	index(t, table, "file:///a.api", "typedef struct { id int } Foo")
	index(t, table, "file:///b.api", "typedef struct { id int } Foo")
	index(t, table, "file:///c.api", "typedef struct { id int } Bar")

	key := types.Key{Parent: "Foo", Name: "id"}
	dups := table.Duplicates()
	require.Len(t, dups, 1)
	require.Len(t, dups[key], 2)
	assert.Equal(t, "file:///a.api", dups[key][0].Location.URI)

	assert.Contains(t, table.DocumentDuplicates("file:///a.api"), key)
	assert.Contains(t, table.DocumentDuplicates("file:///b.api"), key)
	assert.Empty(t, table.DocumentDuplicates("file:///c.api"))

	// Reindexing the first holder moves it behind b.api.
	index(t, table, "file:///a.api", "typedef struct { id int } Foo")
	group := table.Duplicates()[key]
	require.Len(t, group, 2)
	assert.Equal(t, "file:///b.api", group[0].Location.URI)
	assert.Equal(t, "file:///a.api", group[1].Location.URI)

	assert.True(t, table.RemoveDocument("file:///b.api"))
	assert.Empty(t, table.Duplicates())
}

func TestTable_RemoveDocument(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { id int id int } Bad")
	require.NotEmpty(t, table.Duplicates())

	assert.True(t, table.RemoveDocument(testURI))
	assert.False(t, table.RemoveDocument(testURI))
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Duplicates())
	assert.Empty(t, table.FieldsOfStruct("Bad"))
	assert.Empty(t, table.Documents())
}

func TestTable_OfKindSorted(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { z int } Zed typedef struct { a int } Alpha typedef enum { X } Mid")

	structs := table.OfKind(types.KindStruct)
	require.Len(t, structs, 2)
	assert.Equal(t, "Alpha", structs[0].Name)
	assert.Equal(t, "Zed", structs[1].Name)

	assert.Len(t, table.OfKind(types.KindEnum), 1)
	assert.Len(t, table.OfKind(types.KindEnumValue), 1)
	assert.Empty(t, table.OfKind(types.KindAPI))
}

func TestTable_FieldsOfStructOrder(t *testing.T) {
	table := NewTable()
	index(t, table, testURI, "typedef struct { c int a int b int } S")

	var names []string
	for _, f := range table.FieldsOfStruct("S") {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
	assert.Empty(t, table.FieldsOfStruct("Missing"))
}

func TestTable_DocumentViews(t *testing.T) {
	table := NewTable()
	index(t, table, "file:///b.api", "typedef struct { id int id int } B")
	index(t, table, "file:///a.api", "typedef enum { X } A")

	assert.Equal(t, []string{"file:///a.api", "file:///b.api"}, table.Documents())
	assert.Len(t, table.DocumentSymbols("file:///b.api"), 3)
	assert.Len(t, table.DocumentDuplicates("file:///b.api"), 1)
	assert.Empty(t, table.DocumentDuplicates("file:///a.api"))

	all := table.All()
	require.Len(t, all, 5)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, 5, table.Len())
}

func TestTable_LoadRebuildsIndex(t *testing.T) {
	src := sampleTable(t)
	loaded := NewTable()
	loaded.Load(src.All())

	assert.Equal(t, src.All(), loaded.All())
	assert.Equal(t, src.Duplicates(), loaded.Duplicates())
	assert.Equal(t, src.FieldsOfStruct("Bad"), loaded.FieldsOfStruct("Bad"))
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable()
	index(t, table, "file:///a.api", "typedef struct { id int id string } Bad")
	index(t, table, "file:///b.api", `apilist "x" { api "a" {} }`)
	return table
}

func TestTable_ResetAndVersion(t *testing.T) {
	table := sampleTable(t)
	v := table.Version()
	require.NotZero(t, table.Len())

	table.Reset()
	assert.Greater(t, table.Version(), v)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Duplicates())
	_, ok := table.Find("Bad")
	assert.False(t, ok)
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := fmt.Sprintf("file:///doc%d.api", i)
			for j := 0; j < 20; j++ {
				table.ReplaceDocument(uri, []types.Symbol{
					{Name: fmt.Sprintf("S%d", i), Kind: types.KindStruct},
					{Name: "id", Kind: types.KindField, Parent: fmt.Sprintf("S%d", i)},
				})
				table.Find("S0")
				table.OfKind(types.KindField)
				table.Duplicates()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, table.Len())
	assert.Len(t, table.OfKind(types.KindStruct), 8)
}
