// Package mcp implements the Model Context Protocol (MCP) server for apidl.
//
// The server exposes the workspace symbol index to AI coding assistants
// and editor bridges over stdio:
//
//   - Queries: find_symbol, symbols_of_kind, fields_of_struct, duplicates,
//     complete, diagnostics
//   - Workspace sessions: index_workspace, cancel_indexing, index_status
//   - Editor buffers: open_document, change_document, close_document
//
// # Tool: find_symbol
//
//	Request:
//	{
//	  "name": "find_symbol",
//	  "arguments": {"name": "User.email"}
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "symbol": {
//	    "name": "email",
//	    "kind": "field",
//	    "parent": "User",
//	    "type_name": "string",
//	    "location": {"uri": "/ws/user.api", "range": {...}}
//	  }
//	}
//
// # Tool: index_workspace
//
// Runs a workspace session and returns its statistics. With "wait": false
// the session runs in the background and progress is reported through
// apidl/status notifications.
//
//	{
//	  "session_id": "5e0c...",
//	  "discovered": 12,
//	  "indexed": 11,
//	  "failed": 1,
//	  "skipped": 0,
//	  "symbols": 214,
//	  "duration_ms": 38
//	}
//
// # Notifications
//
// After every document reindex the server pushes apidl/diagnostics with
// the document's duplicate and syntax diagnostics. Every session state
// transition is pushed as apidl/status.
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32002: Indexing in progress
//
// # Logging
//
// The server logs to stderr; stdout is reserved for the protocol.
//
//	APIDL_LOG_LEVEL=debug apidl serve
package mcp
