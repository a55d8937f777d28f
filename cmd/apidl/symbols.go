package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/internal/storage"
	"github.com/dshills/apidl/pkg/types"
)

var (
	symbolsKind string
	symbolsJSON bool
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [name]",
	Short: "List indexed symbols",
	Long: `List the symbols of the workspace, optionally filtered by kind. With a
name argument only that symbol is shown; members are addressed as Parent.member.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSymbols,
}

func init() {
	symbolsCmd.Flags().StringVar(&symbolsKind, "kind", "", "Only list symbols of this kind")
	symbolsCmd.Flags().BoolVar(&symbolsJSON, "json", false, "Print symbols as JSON")
	rootCmd.AddCommand(symbolsCmd)
}

func runSymbols(cmd *cobra.Command, args []string) error {
	var kind types.SymbolKind
	if symbolsKind != "" {
		k, err := types.ParseKind(symbolsKind)
		if err != nil {
			return err
		}
		kind = k
	}

	ws, err := openWorkspace("symbols")
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if _, err := ws.indexer.IndexWorkspace(cmd.Context(), indexer.WorkspaceOptions{}); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	var syms []types.Symbol
	switch {
	case len(args) == 1:
		sym, ok := ws.indexer.FindSymbol(args[0])
		if !ok {
			return fmt.Errorf("symbol %q not found", args[0])
		}
		syms = []types.Symbol{sym}
	case kind != "":
		syms = ws.indexer.SymbolsOfKind(kind)
	default:
		syms = ws.indexer.Table().All()
	}

	out := cmd.OutOrStdout()
	if symbolsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		records := make([]storage.Symbol, 0, len(syms))
		for _, s := range syms {
			records = append(records, storage.FromTypesSymbol(s))
		}
		return enc.Encode(records)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tLOCATION\tDETAIL")
	for _, s := range syms {
		key := s.Key()
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\t%s\n", key.String(), s.Kind, s.Location.URI, s.Line(), s.Detail)
	}
	return tw.Flush()
}
