package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/internal/mcp"
	"github.com/dshills/apidl/internal/watcher"
	"github.com/dshills/apidl/pkg/types"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the MCP server on stdin/stdout. The workspace is indexed in the
background on startup, and unless disabled a file watcher keeps the index
current while files change on disk.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the workspace for changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("serve")
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	server := mcp.NewServer(ws.indexer, ws.logger)
	g.Go(func() error {
		// stdin closing ends the process
		defer cancel()
		return server.Serve(ctx)
	})

	if ws.cfg.Watch.Enabled && !serveNoWatch {
		w, err := watcher.New(watcher.Options{
			Root:     ws.cfg.Root,
			Debounce: ws.cfg.Watch.Debounce,
		}, ws.indexer, ws.logger)
		if err != nil {
			ws.logger.Warn("file watcher disabled", "error", err)
		} else {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	err = ws.indexer.StartWorkspaceIndex(ctx, indexer.WorkspaceOptions{}, func(stats *indexer.Statistics, err error) {
		if err != nil {
			ws.logger.Error("initial workspace index failed", "error", err)
		}
	})
	if err != nil && !errors.Is(err, types.ErrIndexingInProgress) {
		return err
	}

	// cancel the background session on shutdown
	g.Go(func() error {
		<-ctx.Done()
		ws.indexer.CancelIndexing()
		return nil
	})

	ws.logger.Info("apidl server ready", "root", ws.cfg.Root)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	ws.logger.Info("server stopped")
	return nil
}
