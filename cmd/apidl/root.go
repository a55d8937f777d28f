package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/apidl/internal/config"
	"github.com/dshills/apidl/internal/indexer"
	"github.com/dshills/apidl/internal/logging"
	"github.com/dshills/apidl/internal/storage"
)

var (
	rootFlag    string
	noCacheFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "apidl",
	Short: "apidl - workspace symbol index for API definition files",
	Long: `apidl indexes the typedef, enum and api declarations of a workspace and
answers symbol, completion and diagnostic queries over them. Run "apidl serve"
to expose the index to MCP clients over stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&noCacheFlag, "no-cache", false, "Do not read or write the symbol cache")
}

// workspace bundles what every command needs to talk to the index
type workspace struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Store
	indexer *indexer.Indexer
}

// openWorkspace loads configuration for the selected root and creates the
// indexer with its cache store
func openWorkspace(component string) (*workspace, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.FromSettings(component, cfg.Logging.Level, cfg.Logging.Format))

	var store storage.Store
	if cfg.Cache.Enabled && !noCacheFlag {
		store, err = storage.Open(storage.Backend(cfg.Cache.Backend), cfg.CacheDir(), cfg.Cache.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	return &workspace{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		indexer: indexer.New(indexer.OptionsFromConfig(cfg), store, logger),
	}, nil
}

// Close stops the indexer and releases the cache store
func (w *workspace) Close() error {
	err := w.indexer.Close()
	if w.store != nil {
		if cerr := w.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
