package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/apidl/internal/indexer"
)

var (
	indexForce bool
	indexJSON  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the workspace and write the symbol cache",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Ignore the cache and rescan every file")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("index")
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	stats, err := ws.indexer.IndexWorkspace(cmd.Context(), indexer.WorkspaceOptions{Force: indexForce})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if indexJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	switch {
	case stats.FromCache:
		fmt.Fprintf(out, "Loaded %d symbols from cache in %v\n", stats.Symbols, stats.Duration)
	default:
		fmt.Fprintf(out, "Indexed %d of %d files (%d failed, %d skipped), %d symbols in %v\n",
			stats.Indexed, stats.Discovered, stats.Failed, stats.Skipped, stats.Symbols, stats.Duration)
	}
	if stats.Truncated != "" {
		fmt.Fprintf(out, "Scan stopped early: %s reached\n", stats.Truncated)
	}
	if stats.Canceled {
		fmt.Fprintln(out, "Indexing canceled")
	}
	for _, f := range stats.Failures {
		fmt.Fprintf(out, "  %s: %s\n", f.URI, f.Error)
	}
	return nil
}
