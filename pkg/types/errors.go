package types

import "errors"

// Indexing errors shared across packages
var (
	// ErrIndexTimeout is returned when reading, parsing or collecting a
	// single file exceeds its time budget.
	ErrIndexTimeout = errors.New("index timeout")

	// ErrIndexingInProgress is returned when a workspace scan is requested
	// while another one is active.
	ErrIndexingInProgress = errors.New("workspace indexing already in progress")

	// ErrScanLimit is returned when discovery hits its depth, file count or
	// duration ceiling.
	ErrScanLimit = errors.New("scan limit reached")

	// ErrCacheInvalid is returned for caches with a mismatched version or an
	// expired timestamp.
	ErrCacheInvalid = errors.New("cache invalid")

	// ErrCacheMissing is returned when no cache has been written yet.
	ErrCacheMissing = errors.New("cache missing")

	// ErrUnexpected wraps a recovered panic at the session boundary.
	ErrUnexpected = errors.New("unexpected indexing failure")
)
