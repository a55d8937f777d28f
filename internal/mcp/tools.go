package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another workspace session is already running
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// handleFindSymbol handles the find_symbol tool invocation
func (s *Server) handleFindSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	sym, ok := s.indexer.FindSymbol(name)
	if !ok {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"found": false,
			"name":  name,
		})), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"found":  true,
		"symbol": symbolJSON(sym),
	})), nil
}

// handleSymbolsOfKind handles the symbols_of_kind tool invocation
func (s *Server) handleSymbolsOfKind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "kind")
	if err != nil {
		return nil, err
	}
	kind, err := types.ParseKind(name)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   name,
			"allowed": kindNames(),
		})
	}

	syms := s.indexer.SymbolsOfKind(kind)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind":    string(kind),
		"count":   len(syms),
		"symbols": symbolsJSON(syms),
	})), nil
}

// handleFieldsOfStruct handles the fields_of_struct tool invocation
func (s *Server) handleFieldsOfStruct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	fields := s.indexer.FieldsOfStruct(name)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"struct": name,
		"fields": symbolsJSON(fields),
	})), nil
}

// handleDuplicates handles the duplicates tool invocation
func (s *Server) handleDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dups := s.indexer.Duplicates()

	keys := make([]types.Key, 0, len(dups))
	for k := range dups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	groups := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, map[string]interface{}{
			"name":        k.String(),
			"definitions": symbolsJSON(dups[k]),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":      len(groups),
		"duplicates": groups,
	})), nil
}

// handleComplete handles the complete tool invocation
func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	uri, err := requireString(args, "uri")
	if err != nil {
		return nil, err
	}
	line := getIntDefault(args, "line", 0)
	column := getIntDefault(args, "column", 0)
	if line < 1 || column < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "line and column must be positive", map[string]interface{}{
			"line":   line,
			"column": column,
		})
	}

	c, items, err := s.indexer.Complete(ctx, uri, line, column)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newMCPError(ErrorCodeInvalidParams, "document not found", map[string]interface{}{
			"param":  "uri",
			"reason": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "completion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"context": map[string]interface{}{
			"slot":          c.Slot.String(),
			"prefix":        c.Prefix,
			"qualifier":     c.Qualifier,
			"after_keyword": c.AfterKeyword,
		},
		"items": items,
	})), nil
}

// handleDiagnostics handles the diagnostics tool invocation
func (s *Server) handleDiagnostics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	uri, err := requireString(args, "uri")
	if err != nil {
		return nil, err
	}

	diags := s.indexer.Diagnostics(uri)
	items := make([]interface{}, 0, len(diags))
	for _, d := range diags {
		items = append(items, diagnosticJSON(d))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"uri":         indexer.NormalizeURI(uri),
		"diagnostics": items,
	})), nil
}

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	opts := indexer.WorkspaceOptions{Force: getBoolDefault(args, "force", false)}

	if !getBoolDefault(args, "wait", true) {
		err := s.indexer.StartWorkspaceIndex(ctx, opts, nil)
		if err != nil {
			return nil, indexingError(err)
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"started": true,
		})), nil
	}

	stats, err := s.indexer.IndexWorkspace(ctx, opts)
	if err != nil {
		return nil, indexingError(err)
	}
	return mcp.NewToolResultText(formatJSON(statisticsJSON(stats))), nil
}

// handleCancelIndexing handles the cancel_indexing tool invocation
func (s *Server) handleCancelIndexing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	canceled := s.indexer.CancelIndexing()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"canceled": canceled,
	})), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.indexer.Status()
	table := s.indexer.Table()

	response := map[string]interface{}{
		"status":    string(status.State),
		"message":   status.Message,
		"indexing":  s.indexer.Indexing(),
		"documents": len(table.Documents()),
		"symbols":   table.Len(),
	}
	if !status.Timestamp.IsZero() {
		response["timestamp"] = status.Timestamp.Format(timeFormat)
	}
	if status.SessionID != "" {
		response["session_id"] = status.SessionID
	}
	if blacklist := s.indexer.Blacklist(); len(blacklist) > 0 {
		response["blacklist"] = blacklist
	}
	if last := s.indexer.LastStatistics(); last != nil {
		response["last_session"] = statisticsJSON(last)
	}
	if docs, syms, ok, err := s.indexer.CacheStats(ctx); err != nil {
		response["cache"] = map[string]interface{}{"error": err.Error()}
	} else if ok {
		response["cache"] = map[string]interface{}{
			"documents": docs,
			"symbols":   syms,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleOpenDocument handles the open_document tool invocation
func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, text, err := documentArgs(request)
	if err != nil {
		return nil, err
	}
	s.indexer.OpenDocument(uri, text)
	return documentResult(uri, true), nil
}

// handleChangeDocument handles the change_document tool invocation
func (s *Server) handleChangeDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, text, err := documentArgs(request)
	if err != nil {
		return nil, err
	}
	if !s.indexer.IsOpen(uri) {
		return nil, newMCPError(ErrorCodeInvalidParams, "document is not open", map[string]interface{}{
			"param": "uri",
			"value": uri,
		})
	}
	s.indexer.ChangeDocument(uri, text)
	return documentResult(uri, true), nil
}

// handleCloseDocument handles the close_document tool invocation
func (s *Server) handleCloseDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	uri, err := requireString(args, "uri")
	if err != nil {
		return nil, err
	}
	s.indexer.CloseDocument(uri)
	return documentResult(uri, false), nil
}

// Helper functions

func documentArgs(request mcp.CallToolRequest) (uri, text string, err error) {
	args, err := arguments(request)
	if err != nil {
		return "", "", err
	}
	uri, err = requireString(args, "uri")
	if err != nil {
		return "", "", err
	}
	text, ok := args["text"].(string)
	if !ok {
		return "", "", newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing or not a string",
		})
	}
	return uri, text, nil
}

func documentResult(uri string, open bool) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"uri":  indexer.NormalizeURI(uri),
		"open": open,
	}))
}

// indexingError maps a session start failure onto an MCP error
func indexingError(err error) error {
	if errors.Is(err, types.ErrIndexingInProgress) {
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func symbolJSON(sym types.Symbol) map[string]interface{} {
	out := map[string]interface{}{
		"name": sym.Name,
		"kind": string(sym.Kind),
		"location": map[string]interface{}{
			"uri":   sym.Location.URI,
			"range": sym.Location.Range,
		},
	}
	if sym.Detail != "" {
		out["detail"] = sym.Detail
	}
	if sym.Documentation != "" {
		out["documentation"] = sym.Documentation
	}
	if sym.Parent != "" {
		out["parent"] = sym.Parent
	}
	if sym.TypeName != "" {
		out["type_name"] = sym.TypeName
	}
	return out
}

func symbolsJSON(syms []types.Symbol) []interface{} {
	out := make([]interface{}, 0, len(syms))
	for _, sym := range syms {
		out = append(out, symbolJSON(sym))
	}
	return out
}

func diagnosticJSON(d types.Diagnostic) map[string]interface{} {
	return map[string]interface{}{
		"uri":      d.URI,
		"range":    d.Range,
		"severity": d.Severity.String(),
		"source":   d.Source,
		"message":  d.Message,
	}
}

func statisticsJSON(stats *indexer.Statistics) map[string]interface{} {
	out := map[string]interface{}{
		"session_id":  stats.SessionID,
		"discovered":  stats.Discovered,
		"indexed":     stats.Indexed,
		"failed":      stats.Failed,
		"skipped":     stats.Skipped,
		"blacklisted": stats.Blacklisted,
		"removed":     stats.Removed,
		"symbols":     stats.Symbols,
		"canceled":    stats.Canceled,
		"from_cache":  stats.FromCache,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if stats.Truncated != "" {
		out["truncated"] = stats.Truncated
	}

	if len(stats.Failures) > 0 {
		// Include first few failures
		failureCount := len(stats.Failures)
		if failureCount > 5 {
			out["failures"] = stats.Failures[:5]
			out["failure_count"] = failureCount
		} else {
			out["failures"] = stats.Failures
		}
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments extracts the argument object of a tool call. A call without
// arguments yields an empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
