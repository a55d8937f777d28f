package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/apidl/pkg/types"
	"github.com/klauspost/compress/zstd"
)

const (
	jsonFileName = "symbols.json"
	zstdFileName = "symbols.json.zst"
)

// FileStore keeps the cache record as a JSON document on disk, optionally
// zstd-compressed.
type FileStore struct {
	path     string
	compress bool
}

// NewFileStore creates a store under dir. The directory is created on the
// first Save.
func NewFileStore(dir string, compress bool) *FileStore {
	name := jsonFileName
	if compress {
		name = zstdFileName
	}
	return &FileStore{path: filepath.Join(dir, name), compress: compress}
}

// Path returns the cache file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the cache file
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrCacheMissing, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if s.compress {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to init zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var record Record
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", types.ErrCacheInvalid, s.path, err)
	}
	return &record, nil
}

// Save writes record to a temporary file and renames it into place, so a
// crash mid-write never leaves a truncated cache.
func (s *FileStore) Save(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".symbols-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := s.encode(tmp, record); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (s *FileStore) encode(w io.Writer, record *Record) error {
	bw := bufio.NewWriter(w)
	var out io.Writer = bw

	var enc *zstd.Encoder
	if s.compress {
		var err error
		enc, err = zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("failed to init zstd writer: %w", err)
		}
		out = enc
	}

	if err := json.NewEncoder(out).Encode(record); err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush zstd stream: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache: %w", err)
	}
	return nil
}

// Stats decodes the cache file and counts its documents and symbols
func (s *FileStore) Stats(ctx context.Context) (documents, symbols int, err error) {
	record, err := s.Load(ctx)
	if errors.Is(err, types.ErrCacheMissing) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	uris := make(map[string]struct{})
	for i := range record.Symbols {
		uris[record.Symbols[i].Location.URI] = struct{}{}
	}
	return len(uris), len(record.Symbols), nil
}

// Close is a no-op for file stores
func (s *FileStore) Close() error {
	return nil
}
