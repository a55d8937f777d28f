package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dshills/apidl/pkg/types"
)

// SQLiteStore implements Store on a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (or creates) the cache database at dbPath and
// applies pending migrations. ":memory:" is accepted for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Load reads the cache header and every symbol in insertion order
func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	var record Record
	err := s.db.QueryRowContext(ctx,
		`SELECT format_version, written_at_ms FROM cache_meta WHERE id = 1`,
	).Scan(&record.Version, &record.Timestamp)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: empty database", types.ErrCacheMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache header: %w", err)
	}

	query := `
		SELECT uri, name, kind, parent, type_name, detail, documentation,
		       start_line, start_col, start_offset, end_line, end_col, end_offset
		FROM cached_symbols
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	record.Symbols = make([]Symbol, 0)
	for rows.Next() {
		var sym Symbol
		var detail, doc sql.NullString
		start, end := &sym.Location.Range.Start, &sym.Location.Range.End
		err := rows.Scan(
			&sym.Location.URI, &sym.Name, &sym.Kind, &sym.Parent, &sym.TypeName, &detail, &doc,
			&start.Line, &start.Column, &start.Offset, &end.Line, &end.Column, &end.Offset,
		)
		if err != nil {
			return nil, err
		}
		sym.Detail = detail.String
		sym.Documentation = doc.String
		record.Symbols = append(record.Symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &record, nil
}

// Save replaces the cache contents in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := clearWithQuerier(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (id, format_version, written_at_ms) VALUES (1, ?, ?)`,
		record.Version, record.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to write cache header: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cached_symbols (
			seq, uri, name, kind, parent, type_name, detail, documentation,
			start_line, start_col, start_offset, end_line, end_col, end_offset
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare symbol insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range record.Symbols {
		sym := &record.Symbols[i]
		start, end := sym.Location.Range.Start, sym.Location.Range.End
		if _, err := stmt.ExecContext(ctx,
			i, sym.Location.URI, sym.Name, sym.Kind, sym.Parent, sym.TypeName, sym.Detail, sym.Documentation,
			start.Line, start.Column, start.Offset, end.Line, end.Column, end.Offset,
		); err != nil {
			return fmt.Errorf("failed to write symbol %s: %w", sym.Name, err)
		}
	}

	return tx.Commit()
}

// Clear removes the cache header and all symbols
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return clearWithQuerier(ctx, s.db)
}

func clearWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cached_symbols`); err != nil {
		return fmt.Errorf("failed to clear cached symbols: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM cache_meta`); err != nil {
		return fmt.Errorf("failed to clear cache header: %w", err)
	}
	return nil
}

// Stats reports row counts of the cached symbol table
func (s *SQLiteStore) Stats(ctx context.Context) (documents, symbols int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT uri), COUNT(*) FROM cached_symbols`,
	).Scan(&documents, &symbols)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count cached symbols: %w", err)
	}
	return documents, symbols, nil
}
