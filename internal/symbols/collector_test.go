package symbols

import (
	"context"
	"testing"

	"github.com/dshills/apidl/internal/parser"
	"github.com/dshills/apidl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "file:///ws/user.api"

func collect(t *testing.T, src string) []types.Symbol {
	t.Helper()
	prog, err := parser.New().Parse(context.Background(), src)
	require.NoError(t, err)
	return Collect(prog, testURI)
}

func ofKind(syms []types.Symbol, kind types.SymbolKind) []types.Symbol {
	var out []types.Symbol
	for _, s := range syms {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func TestCollect_TypedefStruct(t *testing.T) {
	syms := collect(t, "typedef struct { id int name string tags string[] } User")
	require.Len(t, syms, 4)

	structs := ofKind(syms, types.KindStruct)
	require.Len(t, structs, 1)
	assert.Equal(t, "User", structs[0].Name)
	assert.Equal(t, "typedef struct User", structs[0].Detail)

	fields := ofKind(syms, types.KindField)
	require.Len(t, fields, 3)
	for _, f := range fields {
		assert.Equal(t, "User", f.Parent)
		assert.Equal(t, testURI, f.Location.URI)
		assert.NoError(t, f.Validate())
	}
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "int", fields[0].TypeName)
	assert.Equal(t, "id int", fields[0].Detail)
	assert.Equal(t, "string[]", fields[2].TypeName)
}

func TestCollect_StructHeritage(t *testing.T) {
	syms := collect(t, "typedef struct extends Base implements A, B { x int } T")
	require.NotEmpty(t, syms)
	assert.Equal(t, "typedef struct T extends Base implements A, B", syms[0].Detail)
}

func TestCollect_Enum(t *testing.T) {
	syms := collect(t, "typedef enum { Active = 1, Disabled } State")
	require.Len(t, syms, 3)

	assert.Equal(t, types.KindEnum, syms[0].Kind)
	assert.Equal(t, "State", syms[0].Name)

	values := ofKind(syms, types.KindEnumValue)
	require.Len(t, values, 2)
	assert.Equal(t, "State", values[0].Parent)
	assert.Equal(t, "Active = 1", values[0].Detail)
	assert.Equal(t, "Disabled", values[1].Detail)
}

func TestCollect_InlineFieldsAreNotSymbols(t *testing.T) {
	syms := collect(t, `api "/users" GET { input struct { f int f int } output struct { ok bool } }`)
	require.Len(t, syms, 1)
	assert.Equal(t, types.KindAPI, syms[0].Kind)
	assert.Equal(t, "/users", syms[0].Name)
	assert.Empty(t, syms[0].Parent)
	assert.Equal(t, `api "/users" GET input struct output struct`, syms[0].Detail)
}

func TestCollect_NestedInlineStructInTypedef(t *testing.T) {
	syms := collect(t, "typedef struct { inner struct { a int a int } } T")
	require.Len(t, syms, 2)
	assert.Equal(t, "inner", syms[1].Name)
	assert.Equal(t, "struct", syms[1].TypeName)
}

func TestCollect_APIList(t *testing.T) {
	syms := collect(t, `apilist "x" { api "a" { input struct { f int } } api "b" { input struct { f int } } }`)

	lists := ofKind(syms, types.KindAPIList)
	require.Len(t, lists, 1)
	assert.Equal(t, "x", lists[0].Name)

	apis := ofKind(syms, types.KindAPI)
	require.Len(t, apis, 2)
	assert.Equal(t, "a", apis[0].Name)
	assert.Equal(t, "b", apis[1].Name)
	for _, api := range apis {
		assert.Equal(t, "x", api.Parent)
	}
	assert.Empty(t, ofKind(syms, types.KindField))
}

func TestCollect_SkipsUnnamedTypedef(t *testing.T) {
	prog, err := parser.New().Parse(context.Background(), "typedef struct { id int }")
	require.Error(t, err)
	assert.Empty(t, Collect(prog, testURI))
}

func TestCollect_NilProgram(t *testing.T) {
	assert.Nil(t, Collect(nil, testURI))
}

func TestCollect_Locations(t *testing.T) {
	syms := collect(t, "typedef struct {\n\tid int\n} User")
	require.Len(t, syms, 2)

	assert.Equal(t, 1, syms[0].Line())
	assert.Equal(t, 3, syms[0].Location.Range.End.Line)

	id := syms[1]
	assert.Equal(t, 2, id.Line())
	assert.Equal(t, 2, id.Location.Range.Start.Column)
	assert.Equal(t, 8, id.Location.Range.End.Column)
}

func TestCollect_Documentation(t *testing.T) {
	syms := collect(t, `// Account holder.
typedef struct {
	// unique id
	id int [[ pk ]]
} User`)
	require.Len(t, syms, 2)
	assert.Equal(t, "Account holder.", syms[0].Documentation)
	assert.Equal(t, "unique id\n[[ pk ]]", syms[1].Documentation)
}

func TestCollect_IgnoresDirectives(t *testing.T) {
	syms := collect(t, "#include \"a.api\"\n#set version 2")
	assert.Empty(t, syms)
}
