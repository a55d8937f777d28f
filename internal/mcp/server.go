package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/internal/logging"
	"github.com/dshills/apidl/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "apidl"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Notification methods pushed to connected clients
const (
	NotifyDiagnostics = "apidl/diagnostics"
	NotifyStatus      = "apidl/status"
)

// Server wraps the MCP server with the workspace index
type Server struct {
	mcp     *server.MCPServer
	indexer *indexer.Indexer
	logger  *slog.Logger

	unsubscribe func()
}

// NewServer creates a tool server over idx. Diagnostics and status
// transitions are forwarded to clients as notifications.
func NewServer(idx *indexer.Indexer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:     mcpServer,
		indexer: idx,
		logger:  logger,
	}
	s.registerTools()

	idx.SetPublisher(s.publishDiagnostics)
	s.unsubscribe = idx.Subscribe(s.publishStatus)

	return s
}

// Serve runs the MCP protocol on stdin/stdout until ctx is done or stdin
// closes
func (s *Server) Serve(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen runs the MCP protocol over the given streams
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	defer s.unsubscribe()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server started", "name", ServerName, "version", ServerVersion)
	err := stdio.Listen(ctx, in, out)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Queries
	s.mcp.AddTool(findSymbolTool(), s.handleFindSymbol)
	s.mcp.AddTool(symbolsOfKindTool(), s.handleSymbolsOfKind)
	s.mcp.AddTool(fieldsOfStructTool(), s.handleFieldsOfStruct)
	s.mcp.AddTool(duplicatesTool(), s.handleDuplicates)
	s.mcp.AddTool(completeTool(), s.handleComplete)
	s.mcp.AddTool(diagnosticsTool(), s.handleDiagnostics)

	// Workspace sessions
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(cancelIndexingTool(), s.handleCancelIndexing)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)

	// Editor buffers
	s.mcp.AddTool(openDocumentTool(), s.handleOpenDocument)
	s.mcp.AddTool(changeDocumentTool(), s.handleChangeDocument)
	s.mcp.AddTool(closeDocumentTool(), s.handleCloseDocument)
}

func (s *Server) publishDiagnostics(uri string, diags []types.Diagnostic) {
	items := make([]interface{}, 0, len(diags))
	for _, d := range diags {
		items = append(items, diagnosticJSON(d))
	}
	s.mcp.SendNotificationToAllClients(NotifyDiagnostics, map[string]any{
		"uri":         uri,
		"diagnostics": items,
	})
}

func (s *Server) publishStatus(status types.Status) {
	s.mcp.SendNotificationToAllClients(NotifyStatus, map[string]any{
		"status":     string(status.State),
		"message":    status.Message,
		"timestamp":  status.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		"session_id": status.SessionID,
	})
}
