package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/apidl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSymbols() []types.Symbol {
	loc := func(line int) types.Location {
		return types.Location{
			URI: "file:///ws/user.api",
			Range: types.Range{
				Start: types.Position{Line: line, Column: 1, Offset: line * 10},
				End:   types.Position{Line: line, Column: 12, Offset: line*10 + 11},
			},
		}
	}
	return []types.Symbol{
		{Name: "User", Kind: types.KindStruct, Location: loc(1), Detail: "typedef struct User", Documentation: "A user."},
		{Name: "id", Kind: types.KindField, Location: loc(2), Detail: "id int", Parent: "User", TypeName: "int"},
		{Name: "id", Kind: types.KindField, Location: loc(3), Detail: "id string", Parent: "User", TypeName: "string"},
		{Name: "/users", Kind: types.KindAPI, Location: loc(5), Parent: "v1"},
	}
}

func TestNewRecord(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	r := NewRecord(sampleSymbols(), now)

	assert.Equal(t, FormatVersion, r.Version)
	assert.Equal(t, int64(1_700_000_000_000), r.Timestamp)
	assert.Equal(t, now, r.WrittenAt())
	require.Len(t, r.Symbols, 4)
	assert.Equal(t, "field", r.Symbols[1].Kind)
	assert.Equal(t, sampleSymbols(), r.TypesSymbols())
}

func TestRecord_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		record  *Record
		wantErr bool
	}{
		{"fresh", NewRecord(sampleSymbols(), now.Add(-time.Hour)), false},
		{"expired", NewRecord(sampleSymbols(), now.Add(-25*time.Hour)), true},
		{"version mismatch", &Record{Version: "0.9.0", Timestamp: now.UnixMilli()}, true},
		{"unknown kind", &Record{Version: FormatVersion, Timestamp: now.UnixMilli(), Symbols: []Symbol{{Name: "x", Kind: "macro"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate(FormatVersion, DefaultTTL, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrCacheInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecord_ValidateZeroTTL(t *testing.T) {
	r := NewRecord(nil, time.Now().Add(-1000*time.Hour))
	assert.NoError(t, r.Validate(FormatVersion, 0, time.Now()))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(BackendJSON, dir, true)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(BackendSQLite, dir, false)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open("redis", dir, false)
	assert.Error(t, err)
}

// storeContract exercises behavior every Store must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, types.ErrCacheMissing)
	docs, count, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs)
	assert.Zero(t, count)

	record := NewRecord(sampleSymbols(), time.Now())
	require.NoError(t, store.Save(ctx, record))
	docs, count, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)
	assert.Equal(t, 4, count)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.Version, loaded.Version)
	assert.Equal(t, record.Timestamp, loaded.Timestamp)
	assert.Equal(t, record.Symbols, loaded.Symbols)
	assert.NoError(t, loaded.Validate(FormatVersion, DefaultTTL, time.Now()))

	// Save replaces, it does not append.
	smaller := NewRecord(sampleSymbols()[:1], time.Now())
	require.NoError(t, store.Save(ctx, smaller))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Symbols, 1)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, types.ErrCacheMissing)
	docs, count, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs+count)
	assert.NoError(t, store.Clear(ctx))
}
