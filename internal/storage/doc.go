// Package storage persists snapshots of the symbol table so a restarted
// server can skip a cold workspace scan.
//
// Two Store implementations share the Record format:
//   - FileStore: one JSON document, optionally zstd-compressed
//   - SQLiteStore: cache_meta and cached_symbols tables with versioned
//     schema migrations
//
// # Basic Usage
//
//	store, err := storage.Open(storage.BackendJSON, "/ws/.apidl/cache", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Save(ctx, storage.NewRecord(table.All(), time.Now()))
//
//	record, err := store.Load(ctx)
//	if err == nil {
//	    err = record.Validate(storage.FormatVersion, storage.DefaultTTL, time.Now())
//	}
//	if err != nil {
//	    // types.ErrCacheMissing or types.ErrCacheInvalid: rescan
//	}
//
// # Record Format
//
//	{
//	  "version": "1.0.0",
//	  "timestamp": 1760000000000,
//	  "symbols": [
//	    {"name": "User", "kind": "struct", "location": {...}, "documentation": "", "detail": "typedef struct User"}
//	  ]
//	}
//
// A record is rejected when its version differs from FormatVersion or it is
// older than the TTL (24h by default).
//
// # Build Modes
//
// The SQLite driver is picked at build time:
//
//	go build ./...                                  # modernc.org/sqlite, pure Go
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...   # github.com/mattn/go-sqlite3
//
// # Schema Migrations
//
// Migrations are ordered by semantic version. ApplyMigrations runs every
// migration newer than the highest recorded version; RollbackMigration
// undoes the latest one.
package storage
