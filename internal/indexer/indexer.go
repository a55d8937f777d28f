package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dshills/apidl/internal/completion"
	"github.com/dshills/apidl/internal/config"
	"github.com/dshills/apidl/internal/logging"
	"github.com/dshills/apidl/internal/parser"
	"github.com/dshills/apidl/internal/storage"
	"github.com/dshills/apidl/internal/symbols"
	"github.com/dshills/apidl/pkg/types"
)

// Options contains configuration for the indexer
type Options struct {
	Root       string
	Extensions []string // lower-case, with leading dot
	IgnoreDirs []string // directory names never descended into
	CacheDir   string   // skipped during discovery

	Debounce        time.Duration
	MaxDepth        int
	MaxFiles        int
	MaxScanDuration time.Duration
	ReadTimeout     time.Duration
	ParseTimeout    time.Duration
	CollectTimeout  time.Duration
	HardTimeout     time.Duration
	CacheTTL        time.Duration

	CompletionTTL  time.Duration
	MaxCompletions int
	ContextWindow  int
}

// DefaultOptions returns the built-in defaults for root
func DefaultOptions(root string) Options {
	return OptionsFromConfig(config.DefaultConfig(root))
}

// OptionsFromConfig maps loaded configuration onto indexer options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:            cfg.Root,
		Extensions:      cfg.Extensions,
		IgnoreDirs:      cfg.IgnoreDirs,
		CacheDir:        cfg.CacheDir(),
		Debounce:        cfg.Indexer.Debounce,
		MaxDepth:        cfg.Indexer.MaxDepth,
		MaxFiles:        cfg.Indexer.MaxFiles,
		MaxScanDuration: cfg.Indexer.MaxScanDuration,
		ReadTimeout:     cfg.Indexer.ReadTimeout,
		ParseTimeout:    cfg.Indexer.ParseTimeout,
		CollectTimeout:  cfg.Indexer.CollectTimeout,
		HardTimeout:     cfg.Indexer.HardTimeout,
		CacheTTL:        cfg.Cache.TTL,
		CompletionTTL:   cfg.Completion.TTL,
		MaxCompletions:  cfg.Completion.MaxResults,
		ContextWindow:   cfg.Completion.Window,
	}
}

// Publisher receives the diagnostics of a document after it is reindexed
type Publisher func(uri string, diags []types.Diagnostic)

// Indexer owns the workspace symbol table and keeps it current.
//
// Editor documents are reindexed on a single worker goroutine in the order
// their jobs are queued. Workspace scans run in the calling goroutine and
// are serialized by an IndexLock. Every method is safe for concurrent use.
type Indexer struct {
	opts       Options
	logger     *slog.Logger
	parser     *parser.Parser
	table      *symbols.Table
	completion *completion.Index
	store      storage.Store // nil disables the cache

	// swappable in tests
	readFile func(ctx context.Context, path string) ([]byte, error)
	parse    func(ctx context.Context, src string) (*parser.Program, error)
	collect  func(prog *parser.Program, uri string) []types.Symbol
	discover func(ctx context.Context) ([]string, string, error)
	now      func() time.Time

	mu           sync.Mutex
	docs         map[string]*document
	parseErrs    map[string]parser.ErrorList
	blacklist    map[string]string // uri -> failure reason
	publish      Publisher
	session      *session
	status       types.Status
	listeners    map[int]func(types.Status)
	nextListener int
	last         *Statistics

	lock IndexLock

	jobs      chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// document is an editor buffer. Its text is authoritative over the disk.
type document struct {
	text    string
	version int
	timer   *time.Timer
	saving  bool
	pending bool // debounce fired during a save
}

type jobKind int

const (
	jobDocument jobKind = iota // reindex an open buffer
	jobDisk                    // reindex or drop a file from disk
	jobBarrier                 // no-op used by Flush
)

type job struct {
	kind jobKind
	uri  string
	ctx  context.Context
	done chan error // optional
}

// New creates an Indexer and starts its document worker.
// store may be nil to run without a cache.
func New(opts Options, store storage.Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Root != "" {
		opts.Root = NormalizeURI(opts.Root)
	}
	if opts.CacheDir != "" {
		opts.CacheDir = NormalizeURI(opts.CacheDir)
	}
	defaults := DefaultOptions(opts.Root)
	if len(opts.Extensions) == 0 {
		opts.Extensions = defaults.Extensions
	}
	if opts.IgnoreDirs == nil {
		opts.IgnoreDirs = defaults.IgnoreDirs
	}
	if opts.HardTimeout <= 0 {
		opts.HardTimeout = defaults.HardTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = defaults.MaxFiles
	}

	p := parser.New()
	table := symbols.NewTable()
	x := &Indexer{
		opts:   opts,
		logger: logger,
		parser: p,
		table:  table,
		completion: completion.New(table, completion.Options{
			TTL:        opts.CompletionTTL,
			MaxResults: opts.MaxCompletions,
			Window:     opts.ContextWindow,
		}),
		store:     store,
		readFile:  readFile,
		parse:     p.Parse,
		collect:   symbols.Collect,
		now:       time.Now,
		docs:      make(map[string]*document),
		parseErrs: make(map[string]parser.ErrorList),
		blacklist: make(map[string]string),
		listeners: make(map[int]func(types.Status)),
		status:    types.Status{State: types.StateIdle, Timestamp: time.Now()},
		jobs:      make(chan job, 256),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	x.discover = x.walkWorkspace
	go x.worker()
	return x
}

// Close stops pending timers, cancels any workspace session and stops the
// worker. The store is not closed.
func (x *Indexer) Close() error {
	x.closeOnce.Do(func() {
		x.mu.Lock()
		for _, doc := range x.docs {
			if doc.timer != nil {
				doc.timer.Stop()
			}
		}
		if x.session != nil {
			x.session.cancel()
		}
		x.mu.Unlock()

		close(x.quit)
		<-x.done
	})
	return nil
}

// Table returns the underlying symbol table
func (x *Indexer) Table() *symbols.Table {
	return x.table
}

// Completion returns the completion index
func (x *Indexer) Completion() *completion.Index {
	return x.completion
}

// SetPublisher installs the diagnostics callback
func (x *Indexer) SetPublisher(p Publisher) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.publish = p
}

// OpenDocument registers an editor buffer and indexes it immediately
func (x *Indexer) OpenDocument(uri, text string) {
	uri = NormalizeURI(uri)

	x.mu.Lock()
	version := 1
	if doc, ok := x.docs[uri]; ok {
		if doc.timer != nil {
			doc.timer.Stop()
		}
		version = doc.version + 1
	}
	x.docs[uri] = &document{text: text, version: version}
	x.mu.Unlock()

	x.enqueue(job{kind: jobDocument, uri: uri})
}

// ChangeDocument replaces the buffer text and (re)starts its debounce timer.
// Unknown documents are opened.
func (x *Indexer) ChangeDocument(uri, text string) {
	uri = NormalizeURI(uri)

	x.mu.Lock()
	defer x.mu.Unlock()

	doc, ok := x.docs[uri]
	if !ok {
		doc = &document{}
		x.docs[uri] = doc
	}
	doc.text = text
	doc.version++
	if doc.timer != nil {
		doc.timer.Stop()
	}
	version := doc.version
	doc.timer = time.AfterFunc(x.opts.Debounce, func() { x.debounceFired(uri, version) })
}

func (x *Indexer) debounceFired(uri string, version int) {
	x.mu.Lock()
	doc, ok := x.docs[uri]
	if !ok || doc.version != version {
		// closed, or superseded by a later edit whose timer is pending
		x.mu.Unlock()
		return
	}
	doc.timer = nil
	if doc.saving {
		doc.pending = true
		x.mu.Unlock()
		x.logger.Debug("reindex deferred until save completes", "uri", uri)
		return
	}
	x.mu.Unlock()

	x.enqueue(job{kind: jobDocument, uri: uri})
}

// SaveBegin suppresses reindexing of uri until SaveEnd
func (x *Indexer) SaveBegin(uri string) {
	uri = NormalizeURI(uri)

	x.mu.Lock()
	defer x.mu.Unlock()
	if doc, ok := x.docs[uri]; ok {
		doc.saving = true
	}
}

// SaveEnd lifts save suppression and reindexes the saved buffer
func (x *Indexer) SaveEnd(uri string) {
	uri = NormalizeURI(uri)

	x.mu.Lock()
	doc, ok := x.docs[uri]
	if !ok {
		x.mu.Unlock()
		return
	}
	doc.saving = false
	doc.pending = false
	if doc.timer != nil {
		doc.timer.Stop()
		doc.timer = nil
	}
	x.mu.Unlock()

	x.enqueue(job{kind: jobDocument, uri: uri})
}

// CloseDocument forgets the editor buffer. The file is then reindexed from
// disk, or dropped if it no longer exists.
func (x *Indexer) CloseDocument(uri string) {
	uri = NormalizeURI(uri)

	x.mu.Lock()
	doc, ok := x.docs[uri]
	if ok {
		if doc.timer != nil {
			doc.timer.Stop()
		}
		delete(x.docs, uri)
		delete(x.parseErrs, uri)
	}
	x.mu.Unlock()

	if ok {
		x.enqueue(job{kind: jobDisk, uri: uri, ctx: context.Background()})
	}
}

// IsOpen reports whether uri is an open editor buffer
func (x *Indexer) IsOpen(uri string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[NormalizeURI(uri)]
	return ok
}

// DocumentText returns the buffer text of an open document
func (x *Indexer) DocumentText(uri string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	doc, ok := x.docs[NormalizeURI(uri)]
	if !ok {
		return "", false
	}
	return doc.text, true
}

// ReindexFile reindexes a file that changed on disk and waits for the
// result. Open documents are left alone.
func (x *Indexer) ReindexFile(ctx context.Context, path string) error {
	return x.submit(ctx, job{kind: jobDisk, uri: NormalizeURI(path), ctx: ctx})
}

// RemoveFile drops the symbols of a deleted file unless it is open
func (x *Indexer) RemoveFile(path string) bool {
	removed := x.removeClosed(NormalizeURI(path))
	if removed {
		x.completion.Invalidate()
	}
	return removed
}

// RemoveTree drops the symbols of every closed document under dir and
// returns how many were removed
func (x *Indexer) RemoveTree(dir string) int {
	dir = NormalizeURI(dir)
	removed := 0
	for _, uri := range x.table.Documents() {
		if isWithin(uri, dir) && x.removeClosed(uri) {
			removed++
		}
	}
	if removed > 0 {
		x.completion.Invalidate()
	}
	return removed
}

// errDocumentOpen reports that a disk result was discarded because the
// document was opened in the editor while it was being read.
var errDocumentOpen = errors.New("document is open in the editor")

// replaceClosed swaps in disk symbols for uri unless it is an open buffer.
// The check and the swap share x.mu with OpenDocument, so a buffer opened
// during the read is never overwritten.
func (x *Indexer) replaceClosed(uri string, syms []types.Symbol) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.docs[uri]; ok {
		return false
	}
	x.table.ReplaceDocument(uri, syms)
	return true
}

// removeClosed drops the symbols of uri unless it is an open buffer
func (x *Indexer) removeClosed(uri string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.docs[uri]; ok {
		return false
	}
	return x.table.RemoveDocument(uri)
}

// Flush waits until every job queued before the call has run
func (x *Indexer) Flush(ctx context.Context) error {
	return x.submit(ctx, job{kind: jobBarrier})
}

func (x *Indexer) submit(ctx context.Context, j job) error {
	j.done = make(chan error, 1)
	select {
	case x.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-x.quit:
		return errClosed
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-x.quit:
		return errClosed
	}
}

var errClosed = errors.New("indexer closed")

func (x *Indexer) enqueue(j job) {
	select {
	case x.jobs <- j:
	case <-x.quit:
	}
}

func (x *Indexer) worker() {
	defer close(x.done)
	for {
		select {
		case <-x.quit:
			return
		case j := <-x.jobs:
			err := x.run(j)
			if j.done != nil {
				j.done <- err
			}
		}
	}
}

func (x *Indexer) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("panic while reindexing", "uri", j.uri, "panic", r)
			err = fmt.Errorf("%w: %v", types.ErrUnexpected, r)
		}
	}()

	switch j.kind {
	case jobDocument:
		x.indexOpenDocument(j.uri)
	case jobDisk:
		return x.indexDiskFile(j.ctx, j.uri)
	}
	return nil
}

// indexOpenDocument reindexes the current text of an open buffer. A buffer
// whose parse times out keeps its previous symbols.
func (x *Indexer) indexOpenDocument(uri string) {
	x.mu.Lock()
	doc, ok := x.docs[uri]
	if !ok {
		x.mu.Unlock()
		return
	}
	text := doc.text
	x.mu.Unlock()

	syms, errs, err := x.build(context.Background(), uri, text)
	if err != nil {
		x.logger.Warn("document reindex failed", "uri", uri, "error", err)
		return
	}

	x.mu.Lock()
	if _, ok := x.docs[uri]; !ok {
		// closed while parsing; the disk job queued by CloseDocument wins
		x.mu.Unlock()
		return
	}
	x.parseErrs[uri] = errs
	x.table.ReplaceDocument(uri, syms)
	publish := x.publish
	x.mu.Unlock()

	x.completion.Invalidate()
	x.logger.Debug("document reindexed", "uri", uri, "symbols", len(syms), "parse_errors", len(errs))

	if publish != nil {
		publish(uri, x.Diagnostics(uri))
	}
}

func (x *Indexer) indexDiskFile(ctx context.Context, uri string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if x.IsOpen(uri) {
		return nil
	}
	if _, err := os.Stat(uri); errors.Is(err, os.ErrNotExist) {
		if x.removeClosed(uri) {
			x.completion.Invalidate()
		}
		return nil
	}

	n, err := x.indexFile(ctx, uri)
	if errors.Is(err, errDocumentOpen) {
		return nil
	}
	if err != nil {
		return err
	}
	x.completion.Invalidate()

	x.mu.Lock()
	delete(x.blacklist, uri)
	x.mu.Unlock()

	x.logger.Debug("file reindexed", "uri", uri, "symbols", n)
	return nil
}

// build parses and collects text, each stage bounded by its timeout.
// Syntax errors are returned separately and do not fail the build.
func (x *Indexer) build(ctx context.Context, uri, text string) ([]types.Symbol, parser.ErrorList, error) {
	var errs parser.ErrorList
	prog, err := bounded(ctx, x.opts.ParseTimeout, "parse", func(ctx context.Context) (*parser.Program, error) {
		prog, err := x.parse(ctx, text)
		if errors.As(err, &errs) {
			return prog, nil
		}
		return prog, err
	})
	if err != nil {
		return nil, nil, err
	}

	syms, err := bounded(ctx, x.opts.CollectTimeout, "collect", func(context.Context) ([]types.Symbol, error) {
		return x.collect(prog, uri), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return syms, errs, nil
}

// Read API

// FindSymbol looks up a symbol by name or "Parent.member"
func (x *Indexer) FindSymbol(name string) (types.Symbol, bool) {
	return x.table.Find(name)
}

// SymbolsOfKind returns the visible symbols of kind
func (x *Indexer) SymbolsOfKind(kind types.SymbolKind) []types.Symbol {
	return x.table.OfKind(kind)
}

// FieldsOfStruct returns the fields of the named struct
func (x *Indexer) FieldsOfStruct(name string) []types.Symbol {
	return x.table.FieldsOfStruct(name)
}

// Duplicates returns every duplicate group in the workspace
func (x *Indexer) Duplicates() map[types.Key][]types.Symbol {
	return x.table.Duplicates()
}

// ContextualCompletions returns capped suggestions for an already
// classified position
func (x *Indexer) ContextualCompletions(c completion.Context) []completion.Suggestion {
	return x.completion.Contextual(c)
}

// Complete classifies the cursor position in uri and returns suggestions.
// Closed documents are read from disk.
func (x *Indexer) Complete(ctx context.Context, uri string, line, column int) (completion.Context, []completion.Suggestion, error) {
	text, ok := x.DocumentText(uri)
	if !ok {
		data, err := bounded(ctx, x.opts.ReadTimeout, "read", func(ctx context.Context) ([]byte, error) {
			return x.readFile(ctx, NormalizeURI(uri))
		})
		if err != nil {
			return completion.Context{}, nil, fmt.Errorf("failed to read document: %w", err)
		}
		text = string(data)
	}
	c, items := x.completion.Complete(text, line, column)
	return c, items, nil
}

// NormalizeURI maps "file://" URIs and relative paths to a clean absolute
// path, which is the document identity used by the table and cache.
func NormalizeURI(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			uri = u.Path
		}
	}
	if abs, err := filepath.Abs(uri); err == nil {
		return abs
	}
	return filepath.Clean(uri)
}

func readFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}
