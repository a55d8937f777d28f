package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidl/pkg/types"
)

func TestDiagnostics_Duplicates(t *testing.T) {
	root := t.TempDir()
	x := newTestIndexer(t, root, nil)
	uri := filepath.Join(root, "bad.api")

	x.OpenDocument(uri, "typedef struct { id int id string } Bad")
	flush(t, x)

	diags := x.Diagnostics(uri)
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, "Duplicate definition of 'Bad.id'. First defined at line 1.", d.Message)
	assert.Equal(t, types.SeverityWarning, d.Severity)
	assert.Equal(t, DiagnosticSource, d.Source)
	assert.Equal(t, uri, d.URI)
	assert.Equal(t, 1, d.Range.Start.Line)
	assert.Equal(t, 25, d.Range.Start.Column, "the second declaration is flagged")
}

func TestDiagnostics_TripleDeclarationAnchorsOnFirst(t *testing.T) {
	root := t.TempDir()
	x := newTestIndexer(t, root, nil)
	uri := filepath.Join(root, "triple.api")

	x.OpenDocument(uri, "typedef enum {\n  A = 1,\n  A = 2,\n  A = 3\n} E")
	flush(t, x)

	diags := x.Diagnostics(uri)
	require.Len(t, diags, 2)
	for i, d := range diags {
		assert.Equal(t, "Duplicate definition of 'E.A'. First defined at line 2.", d.Message)
		assert.Equal(t, i+3, d.Range.Start.Line)
	}
}

func TestDiagnostics_DuplicateAcrossFiles(t *testing.T) {
	root := t.TempDir()
	a := createTestFile(t, root, "a.api", "typedef struct { id int } Foo")
	b := createTestFile(t, root, "b.api", "typedef struct {\n  id int\n} Foo")
	x := newTestIndexer(t, root, nil)

	_, err := x.IndexWorkspace(context.Background(), WorkspaceOptions{Force: true})
	require.NoError(t, err)

	group := x.Duplicates()[types.Key{Parent: "Foo", Name: "id"}]
	require.Len(t, group, 2)
	assert.Equal(t, a, group[0].Location.URI)
	assert.Equal(t, b, group[1].Location.URI)

	assert.Empty(t, x.Diagnostics(a), "the first declaration is not flagged")
	diags := x.Diagnostics(b)
	require.Len(t, diags, 1)
	assert.Equal(t, "Duplicate definition of 'Foo.id'. First defined at line 1.", diags[0].Message)
	assert.Equal(t, 2, diags[0].Range.Start.Line)
}

func TestDiagnostics_NoFalsePositives(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"same field in two structs", "typedef struct { id int } A\ntypedef struct { id int } B"},
		{"inline input fields", `apilist "x" { api "a" { input struct { f int } } api "b" { input struct { f int } } }`},
		{"repeated inline field", `api "/a" { input struct { f int f int f string } }`},
		{"struct redeclared", "typedef struct {} A\ntypedef struct {} A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			x := newTestIndexer(t, root, nil)
			uri := filepath.Join(root, "ok.api")

			x.OpenDocument(uri, tt.src)
			flush(t, x)

			assert.Empty(t, x.Diagnostics(uri))
			assert.Empty(t, x.Duplicates())
		})
	}
}

func TestDiagnostics_ParseErrorsOfOpenDocuments(t *testing.T) {
	root := t.TempDir()
	x := newTestIndexer(t, root, nil)
	uri := filepath.Join(root, "broken.api")

	x.OpenDocument(uri, "typedef struct { id int id string } Bad\n@\ntypedef struct { ok int } Good")
	flush(t, x)

	diags := x.Diagnostics(uri)
	require.Len(t, diags, 2)
	assert.Equal(t, types.SeverityWarning, diags[0].Severity)
	assert.Equal(t, 1, diags[0].Range.Start.Line)

	assert.Equal(t, types.SeverityError, diags[1].Severity)
	assert.Equal(t, 2, diags[1].Range.Start.Line)
	assert.Equal(t, 1, diags[1].Range.Start.Column)
	assert.Contains(t, diags[1].Message, "unexpected")
	assert.Len(t, x.ParseErrors(uri), 1)

	_, ok := x.FindSymbol("Good")
	assert.True(t, ok, "recovery keeps later declarations")

	x.CloseDocument(uri)
	flush(t, x)
	assert.Empty(t, x.ParseErrors(uri), "closed documents report no syntax errors")
}
