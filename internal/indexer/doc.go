// Package indexer keeps the workspace symbol table current.
//
// An Indexer owns one symbols.Table and one completion.Index for the life
// of the server process. It is fed from two directions: editor document
// events and workspace sessions.
//
// # Documents
//
// Editor buffers are authoritative over the files on disk:
//
//	x := indexer.New(indexer.DefaultOptions(root), store, logger)
//	defer x.Close()
//
//	x.OpenDocument(uri, text)   // indexed immediately
//	x.ChangeDocument(uri, text) // indexed after the debounce delay
//	x.SaveBegin(uri)            // debounce firing now only marks it pending
//	x.SaveEnd(uri)              // indexed again
//	x.CloseDocument(uri)        // reindexed from disk, or dropped
//
// A burst of ChangeDocument calls restarts one timer per document, so only
// the last text is parsed. Reindex jobs run on a single worker goroutine in
// FIFO order, which keeps passes over one document strictly ordered.
//
// # Workspace Sessions
//
// IndexWorkspace loads a fresh cache or scans the root:
//
//	stats, err := x.IndexWorkspace(ctx, indexer.WorkspaceOptions{})
//	if errors.Is(err, types.ErrIndexingInProgress) {
//	    // another session is running
//	}
//
// Discovery skips hidden and conventional build directories, the cache
// directory and .gitignore matches, and stops at MaxDepth, MaxFiles or
// MaxScanDuration. Each file is read, parsed and collected under its own
// timeout. A failing file is recorded and the scan moves on; a file that
// timed out is blacklisted and skipped by later sessions.
//
// When a session is neither canceled nor truncated:
//
//	stats.Indexed + stats.Failed + stats.Skipped == stats.Discovered
//
// # Cancellation
//
// CancelIndexing cancels the session context. The scan checks it before
// and after every file and at every directory entry, so files already
// indexed keep their symbols and files not yet started contribute none.
// A hard timeout releases the busy lock even if the session never reaches
// a checkpoint. Panics inside a session are recovered and reported as
// types.ErrUnexpected with an error status.
package indexer
