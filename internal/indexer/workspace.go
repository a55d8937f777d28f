package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/apidl/internal/storage"
	"github.com/dshills/apidl/pkg/types"
)

// WorkspaceOptions controls a single workspace session
type WorkspaceOptions struct {
	Force bool // ignore the cache and rescan
}

// Statistics contains statistics about a workspace session
type Statistics struct {
	SessionID   string        `json:"session_id"`
	Discovered  int           `json:"discovered"`
	Indexed     int           `json:"indexed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`     // open in the editor or blacklisted
	Blacklisted int           `json:"blacklisted"` // subset of Skipped
	Removed     int           `json:"removed"`     // documents no longer on disk
	Symbols     int           `json:"symbols"`
	Duration    time.Duration `json:"duration"`
	Canceled    bool          `json:"canceled"`
	Truncated   string        `json:"truncated,omitempty"`
	FromCache   bool          `json:"from_cache"`
	Failures    []FileFailure `json:"failures,omitempty"`
}

// FileFailure records one file that could not be indexed
type FileFailure struct {
	URI     string `json:"uri"`
	Error   string `json:"error"`
	Timeout bool   `json:"timeout"`
}

// Complete reports whether every discovered file was accounted for
func (s *Statistics) Complete() bool {
	return !s.Canceled && s.Truncated == ""
}

type session struct {
	id      string
	cancel  context.CancelFunc
	expired atomic.Bool // hard timeout fired
}

// IndexWorkspace runs a workspace session in the calling goroutine.
//
// Unless opts.Force is set a fresh cache is loaded instead of scanning.
// Otherwise every discovered file that is neither open in the editor nor
// blacklisted is read, parsed and collected, each stage under its own
// timeout. Per-file failures are recorded in the returned Statistics and
// never fail the session. A canceled session returns its partial
// Statistics with Canceled set and a nil error.
//
// Returns types.ErrIndexingInProgress if another session is active.
func (x *Indexer) IndexWorkspace(ctx context.Context, opts WorkspaceOptions) (*Statistics, error) {
	if !x.lock.TryAcquire() {
		return nil, types.ErrIndexingInProgress
	}
	return x.runSession(ctx, opts)
}

// StartWorkspaceIndex runs a workspace session in a new goroutine. done,
// if not nil, receives the result. The session outlives ctx cancellation;
// stop it with CancelIndexing.
func (x *Indexer) StartWorkspaceIndex(ctx context.Context, opts WorkspaceOptions, done func(*Statistics, error)) error {
	if !x.lock.TryAcquire() {
		return types.ErrIndexingInProgress
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		stats, err := x.runSession(ctx, opts)
		if done != nil {
			done(stats, err)
		}
	}()
	return nil
}

// CancelIndexing asks the active session to stop at its next checkpoint.
// It reports whether a session was running.
func (x *Indexer) CancelIndexing() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.session == nil {
		return false
	}
	x.session.cancel()
	return true
}

// Indexing reports whether a workspace session holds the busy lock
func (x *Indexer) Indexing() bool {
	return x.lock.Held()
}

// runSession expects the caller to hold x.lock.
func (x *Indexer) runSession(parent context.Context, opts WorkspaceOptions) (stats *Statistics, err error) {
	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(x.lock.Release) }
	defer release()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s := &session{id: uuid.NewString(), cancel: cancel}
	x.mu.Lock()
	x.session = s
	x.mu.Unlock()
	defer x.endSession(s)

	hard := time.AfterFunc(x.opts.HardTimeout, func() {
		s.expired.Store(true)
		x.logger.Error("workspace session exceeded hard timeout, releasing busy lock",
			"session", s.id, "timeout", x.opts.HardTimeout)
		cancel()
		release()
		x.setStatus(types.StateError, "Indexing exceeded hard timeout", s.id)
	})
	defer hard.Stop()

	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("panic during workspace session", "session", s.id, "panic", r)
			stats = nil
			err = fmt.Errorf("%w: %v", types.ErrUnexpected, r)
			x.setStatus(types.StateError, fmt.Sprintf("Indexing failed: %v", r), s.id)
		}
	}()

	start := x.now()
	x.setStatus(types.StateIndexing, "Indexing workspace", s.id)
	x.logger.Info("workspace session started", "session", s.id, "root", x.opts.Root, "force", opts.Force)

	stats = &Statistics{SessionID: s.id}
	if !opts.Force && x.loadCache(ctx, stats) {
		stats.Duration = x.now().Sub(start)
		x.finish(s, stats)
		return stats, nil
	}

	x.scan(ctx, stats)
	stats.Symbols = x.table.Len()
	x.completion.Invalidate()

	if stats.Complete() {
		x.saveCache(ctx)
	}
	stats.Duration = x.now().Sub(start)
	x.finish(s, stats)
	return stats, nil
}

func (x *Indexer) endSession(s *session) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.session == s {
		x.session = nil
	}
}

func (x *Indexer) finish(s *session, stats *Statistics) {
	// An expired session released the lock early; a later session may
	// already have recorded its own result.
	x.mu.Lock()
	if !s.expired.Load() {
		x.last = stats
	}
	x.mu.Unlock()

	x.logger.Info("workspace session finished",
		"session", s.id,
		"discovered", stats.Discovered,
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"symbols", stats.Symbols,
		"canceled", stats.Canceled,
		"from_cache", stats.FromCache,
		"duration", stats.Duration)

	if s.expired.Load() {
		return
	}
	var msg string
	switch {
	case stats.FromCache:
		msg = fmt.Sprintf("Loaded %d symbols from cache", stats.Symbols)
	case stats.Canceled:
		msg = fmt.Sprintf("Indexing canceled after %d of %d files", stats.Indexed, stats.Discovered)
	case stats.Truncated != "":
		msg = fmt.Sprintf("Indexed %d files (scan stopped at %s)", stats.Indexed, stats.Truncated)
	default:
		msg = fmt.Sprintf("Indexed %d files, %d failed", stats.Indexed, stats.Failed)
	}
	x.setStatus(types.StateIdle, msg, s.id)
}

// LastStatistics returns the result of the most recent finished session
func (x *Indexer) LastStatistics() *Statistics {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.last
}

func (x *Indexer) loadCache(ctx context.Context, stats *Statistics) bool {
	if x.store == nil {
		return false
	}
	record, err := x.store.Load(ctx)
	if err == nil {
		err = record.Validate(storage.FormatVersion, x.opts.CacheTTL, x.now())
	}
	if err != nil {
		x.logger.Debug("cache not used, rescanning", "error", err)
		return false
	}

	syms := record.TypesSymbols()
	x.table.Load(syms)
	x.completion.Invalidate()
	x.requeueOpenDocuments()

	stats.FromCache = true
	stats.Symbols = len(syms)
	return true
}

// saveCache persists the disk view of the workspace. Symbols of open
// buffers are unsaved edits, so those documents are collected again from
// disk, or left out when that fails.
func (x *Indexer) saveCache(ctx context.Context) {
	if x.store == nil {
		return
	}

	x.mu.Lock()
	all := x.table.All()
	open := make([]string, 0, len(x.docs))
	for uri := range x.docs {
		open = append(open, uri)
	}
	x.mu.Unlock()
	sort.Strings(open)

	syms := all
	if len(open) > 0 {
		skip := make(map[string]struct{}, len(open))
		for _, uri := range open {
			skip[uri] = struct{}{}
		}
		syms = make([]types.Symbol, 0, len(all))
		for _, sym := range all {
			if _, ok := skip[sym.Location.URI]; !ok {
				syms = append(syms, sym)
			}
		}
		for _, uri := range open {
			disk, err := x.diskSymbols(ctx, uri)
			if err != nil {
				x.logger.Debug("open document left out of cache", "uri", uri, "error", err)
				continue
			}
			syms = append(syms, disk...)
		}
		sort.SliceStable(syms, func(i, j int) bool {
			return syms[i].Location.URI < syms[j].Location.URI
		})
	}

	record := storage.NewRecord(syms, x.now())
	if err := x.store.Save(ctx, record); err != nil {
		x.logger.Warn("failed to write cache", "error", err)
	}
}

// CacheStats reports what the cache store currently holds. ok is false
// when the indexer runs without a cache.
func (x *Indexer) CacheStats(ctx context.Context) (documents, symbols int, ok bool, err error) {
	if x.store == nil {
		return 0, 0, false, nil
	}
	documents, symbols, err = x.store.Stats(ctx)
	if err != nil {
		return 0, 0, true, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return documents, symbols, true, nil
}

func (x *Indexer) scan(ctx context.Context, stats *Statistics) {
	files, truncated, err := x.discover(ctx)
	stats.Truncated = truncated
	if truncated != "" {
		x.logger.Warn("workspace discovery truncated",
			"error", fmt.Errorf("%w: %s", types.ErrScanLimit, truncated), "files", len(files))
	}
	if err != nil {
		if ctx.Err() != nil {
			stats.Canceled = true
			return
		}
		x.logger.Error("workspace discovery failed", "root", x.opts.Root, "error", err)
		stats.Failures = append(stats.Failures, FileFailure{URI: x.opts.Root, Error: err.Error()})
		return
	}
	stats.Discovered = len(files)
	if ctx.Err() != nil {
		stats.Canceled = true
		return
	}

	seen := make(map[string]struct{}, len(files))
	for _, path := range files {
		if ctx.Err() != nil {
			stats.Canceled = true
			break
		}
		seen[path] = struct{}{}

		if x.IsOpen(path) {
			stats.Skipped++
			continue
		}
		if _, ok := x.blacklisted(path); ok {
			stats.Skipped++
			stats.Blacklisted++
			continue
		}

		_, err := x.indexFile(ctx, path)
		if errors.Is(err, errDocumentOpen) {
			stats.Skipped++
			continue
		}
		if err != nil {
			timeout := errors.Is(err, types.ErrIndexTimeout)
			if !timeout && ctx.Err() != nil {
				stats.Canceled = true
				break
			}
			stats.Failed++
			stats.Failures = append(stats.Failures, FileFailure{URI: path, Error: err.Error(), Timeout: timeout})
			if timeout {
				x.addBlacklist(path, err.Error())
			}
			x.logger.Warn("failed to index file", "path", path, "error", err)
			continue
		}
		stats.Indexed++

		if ctx.Err() != nil {
			stats.Canceled = true
			break
		}
	}

	if stats.Complete() {
		stats.Removed = x.pruneMissing(seen)
	}
}

// indexFile reads, parses and collects one file from disk and replaces its
// symbols. Syntax errors do not fail the file. Returns errDocumentOpen,
// leaving the table alone, if the file was opened in the editor meanwhile.
func (x *Indexer) indexFile(ctx context.Context, uri string) (int, error) {
	syms, err := x.diskSymbols(ctx, uri)
	if err != nil {
		return 0, err
	}
	if !x.replaceClosed(uri, syms) {
		return 0, errDocumentOpen
	}
	return len(syms), nil
}

// diskSymbols reads, parses and collects the on-disk content of uri
func (x *Indexer) diskSymbols(ctx context.Context, uri string) ([]types.Symbol, error) {
	data, err := bounded(ctx, x.opts.ReadTimeout, "read", func(ctx context.Context) ([]byte, error) {
		return x.readFile(ctx, uri)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	syms, _, err := x.build(ctx, uri, string(data))
	if err != nil {
		return nil, err
	}
	return syms, nil
}

// pruneMissing drops documents that a complete scan no longer found
func (x *Indexer) pruneMissing(seen map[string]struct{}) int {
	removed := 0
	for _, uri := range x.table.Documents() {
		if _, ok := seen[uri]; ok {
			continue
		}
		if x.removeClosed(uri) {
			removed++
		}
	}
	return removed
}

func (x *Indexer) requeueOpenDocuments() {
	x.mu.Lock()
	uris := make([]string, 0, len(x.docs))
	for uri := range x.docs {
		uris = append(uris, uri)
	}
	x.mu.Unlock()

	for _, uri := range uris {
		x.enqueue(job{kind: jobDocument, uri: uri})
	}
}

// Reset clears the symbol table, the blacklist and the cache. Open
// documents are indexed again.
func (x *Indexer) Reset(ctx context.Context) error {
	x.table.Reset()
	x.completion.Invalidate()

	x.mu.Lock()
	x.blacklist = make(map[string]string)
	x.last = nil
	x.mu.Unlock()

	x.requeueOpenDocuments()

	if x.store == nil {
		return nil
	}
	if err := x.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Blacklist returns the files skipped by workspace sessions, with the
// failure that put them there
func (x *Indexer) Blacklist() map[string]string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make(map[string]string, len(x.blacklist))
	for uri, reason := range x.blacklist {
		out[uri] = reason
	}
	return out
}

func (x *Indexer) blacklisted(uri string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	reason, ok := x.blacklist[uri]
	return reason, ok
}

func (x *Indexer) addBlacklist(uri, reason string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.blacklist[uri] = reason
}
