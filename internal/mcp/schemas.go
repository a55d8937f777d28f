package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/apidl/pkg/types"
)

func kindNames() []string {
	names := make([]string, 0, len(types.AllKinds))
	for _, k := range types.AllKinds {
		names = append(names, string(k))
	}
	return names
}

func uriProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// findSymbolTool returns the tool definition for find_symbol
func findSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_symbol",
		Description: "Look up a declaration by name. Members can be addressed as Parent.member.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name, e.g. User or User.email",
				},
			},
			Required: []string{"name"},
		},
	}
}

// symbolsOfKindTool returns the tool definition for symbols_of_kind
func symbolsOfKindTool() mcp.Tool {
	return mcp.Tool{
		Name:        "symbols_of_kind",
		Description: "List every indexed symbol of one kind",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Symbol kind",
					"enum":        kindNames(),
				},
			},
			Required: []string{"kind"},
		},
	}
}

// fieldsOfStructTool returns the tool definition for fields_of_struct
func fieldsOfStructTool() mcp.Tool {
	return mcp.Tool{
		Name:        "fields_of_struct",
		Description: "List the fields of a struct in declaration order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Struct name",
				},
			},
			Required: []string{"name"},
		},
	}
}

// duplicatesTool returns the tool definition for duplicates
func duplicatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "duplicates",
		Description: "Report names defined more than once across the workspace",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// completeTool returns the tool definition for complete
func completeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "complete",
		Description: "Suggest completions at a cursor position. Open documents use the editor text, others are read from disk.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"uri": uriProperty("Document path or file:// URI"),
				"line": map[string]interface{}{
					"type":        "integer",
					"description": "1-based cursor line",
					"minimum":     1,
				},
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "1-based cursor column",
					"minimum":     1,
				},
			},
			Required: []string{"uri", "line", "column"},
		},
	}
}

// diagnosticsTool returns the tool definition for diagnostics
func diagnosticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "diagnostics",
		Description: "Duplicate definitions and syntax errors of one document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"uri": uriProperty("Document path or file:// URI"),
			},
			Required: []string{"uri"},
		},
	}
}

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Scan the workspace and rebuild the symbol index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ignore the cache and rescan every file",
					"default":     false,
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, start the session in the background and return immediately",
					"default":     true,
				},
			},
		},
	}
}

// cancelIndexingTool returns the tool definition for cancel_indexing
func cancelIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_indexing",
		Description: "Stop the running workspace session. Files already indexed are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Query the indexer state, the statistics of the last session and the cache contents",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// openDocumentTool returns the tool definition for open_document
func openDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "open_document",
		Description: "Start tracking an editor buffer. Its text takes precedence over the file on disk.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"uri": uriProperty("Document path or file:// URI"),
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Full buffer text",
				},
			},
			Required: []string{"uri", "text"},
		},
	}
}

// changeDocumentTool returns the tool definition for change_document
func changeDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "change_document",
		Description: "Replace the text of an editor buffer. Reindexing is debounced.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"uri": uriProperty("Document path or file:// URI"),
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Full buffer text",
				},
			},
			Required: []string{"uri", "text"},
		},
	}
}

// closeDocumentTool returns the tool definition for close_document
func closeDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "close_document",
		Description: "Stop tracking an editor buffer and reindex the file from disk",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"uri": uriProperty("Document path or file:// URI"),
			},
			Required: []string{"uri"},
		},
	}
}
