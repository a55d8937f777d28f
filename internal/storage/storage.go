package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/apidl/pkg/types"
)

const (
	// FormatVersion is written into every cache record. A record with any
	// other version is discarded on load.
	FormatVersion = "1.0.0"

	// DefaultTTL is the maximum age of a usable cache record
	DefaultTTL = 24 * time.Hour
)

// Store persists the flattened symbol table between runs
type Store interface {
	// Load returns the stored record, or an error wrapping
	// types.ErrCacheMissing when nothing has been saved.
	Load(ctx context.Context) (*Record, error)
	// Save replaces the stored record
	Save(ctx context.Context, record *Record) error
	// Clear removes the stored record
	Clear(ctx context.Context) error
	// Stats counts the distinct documents and symbols currently stored.
	// An empty store reports zero for both.
	Stats(ctx context.Context) (documents, symbols int, err error)
	// Close releases held resources
	Close() error
}

// Backend selects a Store implementation
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// Open creates the store for backend under dir
func Open(backend Backend, dir string, compress bool) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(dir, compress), nil
	case BackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(dir, "symbols.db"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// Record is one snapshot of the symbol table
type Record struct {
	Version   string   `json:"version"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	Symbols   []Symbol `json:"symbols"`
}

// Symbol is the persisted form of types.Symbol
type Symbol struct {
	Name          string         `json:"name"`
	Kind          string         `json:"kind"`
	Location      types.Location `json:"location"`
	Documentation string         `json:"documentation"`
	Detail        string         `json:"detail"`
	Parent        string         `json:"parent,omitempty"`
	TypeName      string         `json:"type_name,omitempty"`
}

// NewRecord snapshots syms at now with the current FormatVersion
func NewRecord(syms []types.Symbol, now time.Time) *Record {
	r := &Record{
		Version:   FormatVersion,
		Timestamp: now.UnixMilli(),
		Symbols:   make([]Symbol, 0, len(syms)),
	}
	for _, s := range syms {
		r.Symbols = append(r.Symbols, FromTypesSymbol(s))
	}
	return r
}

// Validate reports whether the record may be used at now. Failures wrap
// types.ErrCacheInvalid.
func (r *Record) Validate(version string, ttl time.Duration, now time.Time) error {
	if r.Version != version {
		return fmt.Errorf("%w: version %q, want %q", types.ErrCacheInvalid, r.Version, version)
	}
	written := time.UnixMilli(r.Timestamp)
	if age := now.Sub(written); ttl > 0 && age > ttl {
		return fmt.Errorf("%w: written %s ago, ttl %s", types.ErrCacheInvalid, age.Round(time.Second), ttl)
	}
	for i := range r.Symbols {
		if _, err := types.ParseKind(r.Symbols[i].Kind); err != nil {
			return fmt.Errorf("%w: %v", types.ErrCacheInvalid, err)
		}
	}
	return nil
}

// WrittenAt returns the record timestamp
func (r *Record) WrittenAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// TypesSymbols converts the stored symbols back to types.Symbol
func (r *Record) TypesSymbols() []types.Symbol {
	out := make([]types.Symbol, len(r.Symbols))
	for i := range r.Symbols {
		out[i] = r.Symbols[i].ToTypesSymbol()
	}
	return out
}

// ToTypesSymbol converts storage Symbol to types.Symbol
func (s *Symbol) ToTypesSymbol() types.Symbol {
	return types.Symbol{
		Name:          s.Name,
		Kind:          types.SymbolKind(s.Kind),
		Location:      s.Location,
		Detail:        s.Detail,
		Documentation: s.Documentation,
		Parent:        s.Parent,
		TypeName:      s.TypeName,
	}
}

// FromTypesSymbol converts types.Symbol to storage Symbol
func FromTypesSymbol(s types.Symbol) Symbol {
	return Symbol{
		Name:          s.Name,
		Kind:          string(s.Kind),
		Location:      s.Location,
		Documentation: s.Documentation,
		Detail:        s.Detail,
		Parent:        s.Parent,
		TypeName:      s.TypeName,
	}
}
