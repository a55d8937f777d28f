// Package config loads apidl settings from defaults, an optional
// <root>/.apidl/config.yaml file and APIDL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the per-workspace directory holding config and cache.
const DirName = ".apidl"

// Config is the full apidl configuration
type Config struct {
	Root       string           `mapstructure:"root"`
	Extensions []string         `mapstructure:"extensions"`
	IgnoreDirs []string         `mapstructure:"ignore_dirs"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Completion CompletionConfig `mapstructure:"completion"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// IndexerConfig bounds document and workspace indexing
type IndexerConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	MaxDepth        int           `mapstructure:"max_depth"`
	MaxFiles        int           `mapstructure:"max_files"`
	MaxScanDuration time.Duration `mapstructure:"max_scan_duration"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ParseTimeout    time.Duration `mapstructure:"parse_timeout"`
	CollectTimeout  time.Duration `mapstructure:"collect_timeout"`
	HardTimeout     time.Duration `mapstructure:"hard_timeout"`
}

// CacheConfig selects and tunes the on-disk symbol cache
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"` // "json" or "sqlite"
	Compress bool          `mapstructure:"compress"`
	TTL      time.Duration `mapstructure:"ttl"`
	Dir      string        `mapstructure:"dir"` // relative paths resolve against Root
}

// CompletionConfig tunes the completion index
type CompletionConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxResults int           `mapstructure:"max_results"`
	Window     int           `mapstructure:"window"`
}

// WatchConfig controls the file system watcher
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoggingConfig selects log level and handler format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConfigError reports an invalid setting
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// DefaultConfig returns the built-in defaults for root
func DefaultConfig(root string) *Config {
	return &Config{
		Root:       root,
		Extensions: []string{".api", ".apidl"},
		IgnoreDirs: []string{".git", "node_modules", "vendor", "build", "dist", "out", "target"},
		Indexer: IndexerConfig{
			Debounce:        300 * time.Millisecond,
			MaxDepth:        20,
			MaxFiles:        10000,
			MaxScanDuration: 2 * time.Minute,
			ReadTimeout:     5 * time.Second,
			ParseTimeout:    10 * time.Second,
			CollectTimeout:  5 * time.Second,
			HardTimeout:     5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  "json",
			Compress: false,
			TTL:      24 * time.Hour,
			Dir:      filepath.Join(DirName, "cache"),
		},
		Completion: CompletionConfig{
			TTL:        30 * time.Second,
			MaxResults: 50,
			Window:     10,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("ignore_dirs", d.IgnoreDirs)

	v.SetDefault("indexer.debounce", d.Indexer.Debounce)
	v.SetDefault("indexer.max_depth", d.Indexer.MaxDepth)
	v.SetDefault("indexer.max_files", d.Indexer.MaxFiles)
	v.SetDefault("indexer.max_scan_duration", d.Indexer.MaxScanDuration)
	v.SetDefault("indexer.read_timeout", d.Indexer.ReadTimeout)
	v.SetDefault("indexer.parse_timeout", d.Indexer.ParseTimeout)
	v.SetDefault("indexer.collect_timeout", d.Indexer.CollectTimeout)
	v.SetDefault("indexer.hard_timeout", d.Indexer.HardTimeout)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.compress", d.Cache.Compress)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.dir", d.Cache.Dir)

	v.SetDefault("completion.ttl", d.Completion.TTL)
	v.SetDefault("completion.max_results", d.Completion.MaxResults)
	v.SetDefault("completion.window", d.Completion.Window)

	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce", d.Watch.Debounce)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads the configuration for the workspace at root.
// A missing config file is not an error; defaults and env still apply.
func Load(root string) (*Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig(abs))

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(abs, DirName))

	v.SetEnvPrefix("APIDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = abs
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
}

// Validate checks the configuration for values the indexer cannot use
func (c *Config) Validate() error {
	if c.Root == "" {
		return &ConfigError{Field: "root", Message: "workspace root is required"}
	}
	if len(c.Extensions) == 0 {
		return &ConfigError{Field: "extensions", Message: "at least one file extension is required"}
	}
	for _, ext := range c.Extensions {
		if ext == "" || ext == "." {
			return &ConfigError{Field: "extensions", Message: "empty file extension"}
		}
	}
	if c.Indexer.Debounce < 0 {
		return &ConfigError{Field: "indexer.debounce", Message: "must not be negative"}
	}
	if c.Indexer.MaxDepth < 1 {
		return &ConfigError{Field: "indexer.max_depth", Message: "must be at least 1"}
	}
	if c.Indexer.MaxFiles < 1 {
		return &ConfigError{Field: "indexer.max_files", Message: "must be at least 1"}
	}
	if c.Indexer.HardTimeout <= 0 {
		return &ConfigError{Field: "indexer.hard_timeout", Message: "must be positive"}
	}
	switch c.Cache.Backend {
	case "json", "sqlite":
	default:
		return &ConfigError{Field: "cache.backend", Message: fmt.Sprintf("unknown backend %q", c.Cache.Backend)}
	}
	if c.Cache.TTL <= 0 {
		return &ConfigError{Field: "cache.ttl", Message: "must be positive"}
	}
	if c.Completion.MaxResults < 1 {
		return &ConfigError{Field: "completion.max_results", Message: "must be at least 1"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// CacheDir returns the absolute cache directory
func (c *Config) CacheDir() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(c.Root, c.Cache.Dir)
}

// HasExtension reports whether path ends in one of the configured extensions
func (c *Config) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
