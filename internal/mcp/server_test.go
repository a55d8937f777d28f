package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/internal/logging"
	"github.com/dshills/apidl/internal/storage"
	"github.com/dshills/apidl/pkg/types"
)

const userSource = `typedef struct {
    id int
    email string
} User

typedef enum {
    ACTIVE,
    BLOCKED
} State
`

func newTestServer(t *testing.T) (*Server, *indexer.Indexer, string) {
	t.Helper()

	root := t.TempDir()
	opts := indexer.DefaultOptions(root)
	opts.Debounce = 20 * time.Millisecond
	idx := indexer.New(opts, nil, logging.Nop())
	t.Cleanup(func() { _ = idx.Close() })

	return NewServer(idx, logging.Nop()), idx, root
}

func writeSource(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decode unmarshals the JSON text of a tool result
func decode(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	var text string
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content %T", result.Content[0])
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func indexWorkspace(t *testing.T, s *Server) map[string]interface{} {
	t.Helper()
	result, err := s.handleIndexWorkspace(context.Background(), callTool("index_workspace", nil))
	require.NoError(t, err)
	return decode(t, result)
}

func TestServer_Initialization(t *testing.T) {
	s, idx, _ := newTestServer(t)

	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.Same(t, idx, s.indexer)
	assert.NotNil(t, s.unsubscribe)
}

func TestServer_IndexAndQuery(t *testing.T) {
	s, _, root := newTestServer(t)
	path := writeSource(t, root, "user.api", userSource)
	ctx := context.Background()

	stats := indexWorkspace(t, s)
	assert.EqualValues(t, 1, stats["discovered"])
	assert.EqualValues(t, 1, stats["indexed"])
	assert.NotEmpty(t, stats["session_id"])

	t.Run("find_symbol", func(t *testing.T) {
		result, err := s.handleFindSymbol(ctx, callTool("find_symbol", map[string]interface{}{"name": "User.email"}))
		require.NoError(t, err)
		out := decode(t, result)
		require.Equal(t, true, out["found"])

		sym := out["symbol"].(map[string]interface{})
		assert.Equal(t, "email", sym["name"])
		assert.Equal(t, "field", sym["kind"])
		assert.Equal(t, "User", sym["parent"])
		assert.Equal(t, "string", sym["type_name"])
		assert.Equal(t, path, sym["location"].(map[string]interface{})["uri"])
	})

	t.Run("find_symbol missing", func(t *testing.T) {
		result, err := s.handleFindSymbol(ctx, callTool("find_symbol", map[string]interface{}{"name": "Nope"}))
		require.NoError(t, err)
		assert.Equal(t, false, decode(t, result)["found"])
	})

	t.Run("symbols_of_kind", func(t *testing.T) {
		result, err := s.handleSymbolsOfKind(ctx, callTool("symbols_of_kind", map[string]interface{}{"kind": "enum_value"}))
		require.NoError(t, err)
		out := decode(t, result)
		assert.EqualValues(t, 2, out["count"])
	})

	t.Run("fields_of_struct", func(t *testing.T) {
		result, err := s.handleFieldsOfStruct(ctx, callTool("fields_of_struct", map[string]interface{}{"name": "User"}))
		require.NoError(t, err)
		fields := decode(t, result)["fields"].([]interface{})
		require.Len(t, fields, 2)
		assert.Equal(t, "id", fields[0].(map[string]interface{})["name"])
		assert.Equal(t, "email", fields[1].(map[string]interface{})["name"])
	})

	t.Run("complete", func(t *testing.T) {
		result, err := s.handleComplete(ctx, callTool("complete", map[string]interface{}{
			"uri":    path,
			"line":   float64(3),
			"column": float64(11),
		}))
		require.NoError(t, err)
		out := decode(t, result)
		assert.Equal(t, "struct_field_type", out["context"].(map[string]interface{})["slot"])
		assert.NotEmpty(t, out["items"])
	})

	t.Run("index_status", func(t *testing.T) {
		result, err := s.handleIndexStatus(ctx, callTool("index_status", nil))
		require.NoError(t, err)
		out := decode(t, result)
		assert.Equal(t, string(types.StateIdle), out["status"])
		assert.Equal(t, false, out["indexing"])
		assert.EqualValues(t, 1, out["documents"])
		assert.Contains(t, out, "last_session")
		assert.NotContains(t, out, "cache", "no store configured")
	})
}

func TestServer_IndexStatusReportsCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.api", "typedef struct { id int } A")
	store := storage.NewFileStore(filepath.Join(root, ".apidl", "cache"), true)
	idx := indexer.New(indexer.DefaultOptions(root), store, logging.Nop())
	t.Cleanup(func() { _ = idx.Close() })
	s := NewServer(idx, logging.Nop())
	ctx := context.Background()

	result, err := s.handleIndexStatus(ctx, callTool("index_status", nil))
	require.NoError(t, err)
	cache := decode(t, result)["cache"].(map[string]interface{})
	assert.EqualValues(t, 0, cache["documents"])

	indexWorkspace(t, s)

	result, err = s.handleIndexStatus(ctx, callTool("index_status", nil))
	require.NoError(t, err)
	cache = decode(t, result)["cache"].(map[string]interface{})
	assert.EqualValues(t, 1, cache["documents"])
	assert.EqualValues(t, 2, cache["symbols"])
}

func TestServer_InvalidParams(t *testing.T) {
	s, _, root := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"find_symbol without name", func() error {
			_, err := s.handleFindSymbol(ctx, callTool("find_symbol", map[string]interface{}{}))
			return err
		}},
		{"unknown kind", func() error {
			_, err := s.handleSymbolsOfKind(ctx, callTool("symbols_of_kind", map[string]interface{}{"kind": "function"}))
			return err
		}},
		{"complete at column zero", func() error {
			_, err := s.handleComplete(ctx, callTool("complete", map[string]interface{}{
				"uri": filepath.Join(root, "a.api"), "line": float64(1), "column": float64(0),
			}))
			return err
		}},
		{"complete on a missing file", func() error {
			_, err := s.handleComplete(ctx, callTool("complete", map[string]interface{}{
				"uri": filepath.Join(root, "missing.api"), "line": float64(1), "column": float64(1),
			}))
			return err
		}},
		{"open_document without text", func() error {
			_, err := s.handleOpenDocument(ctx, callTool("open_document", map[string]interface{}{"uri": "a.api"}))
			return err
		}},
		{"change_document on a closed document", func() error {
			_, err := s.handleChangeDocument(ctx, callTool("change_document", map[string]interface{}{
				"uri": filepath.Join(root, "a.api"), "text": "",
			}))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, tt.call(), ErrorCodeInvalidParams)
		})
	}
}

func TestServer_DocumentLifecycle(t *testing.T) {
	s, idx, root := newTestServer(t)
	ctx := context.Background()
	uri := filepath.Join(root, "draft.api")

	_, err := s.handleOpenDocument(ctx, callTool("open_document", map[string]interface{}{
		"uri":  "file://" + uri,
		"text": "typedef struct {\n    id int\n    id string\n} Draft\n",
	}))
	require.NoError(t, err)
	require.NoError(t, idx.Flush(ctx))
	assert.True(t, idx.IsOpen(uri))

	_, ok := idx.FindSymbol("Draft")
	assert.True(t, ok)

	result, err := s.handleDuplicates(ctx, callTool("duplicates", nil))
	require.NoError(t, err)
	out := decode(t, result)
	assert.EqualValues(t, 1, out["count"])

	result, err = s.handleDiagnostics(ctx, callTool("diagnostics", map[string]interface{}{"uri": uri}))
	require.NoError(t, err)
	diags := decode(t, result)["diagnostics"].([]interface{})
	require.Len(t, diags, 1)
	assert.Equal(t, "warning", diags[0].(map[string]interface{})["severity"])

	_, err = s.handleChangeDocument(ctx, callTool("change_document", map[string]interface{}{
		"uri":  uri,
		"text": "typedef struct {} Final\n",
	}))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := idx.FindSymbol("Final")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.handleCloseDocument(ctx, callTool("close_document", map[string]interface{}{"uri": uri}))
	require.NoError(t, err)
	require.NoError(t, idx.Flush(ctx))
	assert.False(t, idx.IsOpen(uri))

	_, ok = idx.FindSymbol("Final")
	assert.False(t, ok, "unsaved buffer symbols are dropped on close")
}

func TestServer_IndexingInProgress(t *testing.T) {
	s, idx, root := newTestServer(t)
	writeSource(t, root, "user.api", userSource)
	ctx := context.Background()

	done := make(chan struct{})
	require.NoError(t, idx.StartWorkspaceIndex(ctx, indexer.WorkspaceOptions{}, func(*indexer.Statistics, error) {
		close(done)
	}))

	// the background session may already be finished
	_, err := s.handleIndexWorkspace(ctx, callTool("index_workspace", nil))
	if err != nil {
		requireCode(t, err, ErrorCodeIndexingInProgress)
	}
	<-done

	result, err := s.handleCancelIndexing(ctx, callTool("cancel_indexing", nil))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, result)["canceled"], "no session is running")
}

func TestServer_IndexWorkspaceBackground(t *testing.T) {
	s, idx, root := newTestServer(t)
	writeSource(t, root, "user.api", userSource)

	result, err := s.handleIndexWorkspace(context.Background(), callTool("index_workspace", map[string]interface{}{
		"wait": false,
	}))
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, result)["started"])

	require.Eventually(t, func() bool {
		return idx.LastStatistics() != nil && !idx.Indexing()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, idx.LastStatistics().Indexed)
}

func TestIndexingError(t *testing.T) {
	requireCode(t, indexingError(types.ErrIndexingInProgress), ErrorCodeIndexingInProgress)
	requireCode(t, indexingError(errors.New("boom")), ErrorCodeInternalError)
}
