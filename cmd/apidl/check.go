package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Report duplicate definitions and syntax errors",
	Long: `Check parses every workspace file, or only the given files, and prints
duplicate definitions and syntax errors. It exits non-zero when any error is
found.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("check")
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	ctx := cmd.Context()
	files := args
	if len(files) == 0 {
		var truncated string
		files, truncated, err = ws.indexer.Discover(ctx)
		if err != nil {
			return fmt.Errorf("failed to discover files: %w", err)
		}
		if truncated != "" {
			ws.logger.Warn("file discovery stopped early", "limit", truncated)
		}
	}

	// Opening every file routes it through the document path, which keeps
	// syntax errors for diagnostics.
	uris := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		uri := indexer.NormalizeURI(f)
		ws.indexer.OpenDocument(uri, string(data))
		uris = append(uris, uri)
	}
	if err := ws.indexer.Flush(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errorCount, warningCount := 0, 0
	for _, uri := range uris {
		for _, d := range ws.indexer.Diagnostics(uri) {
			fmt.Fprintln(out, d.String())
			switch d.Severity {
			case types.SeverityError:
				errorCount++
			case types.SeverityWarning:
				warningCount++
			}
		}
	}

	fmt.Fprintf(out, "%d files checked, %d errors, %d warnings\n", len(uris), errorCount, warningCount)
	if errorCount > 0 {
		return fmt.Errorf("%d errors found", errorCount)
	}
	return nil
}
