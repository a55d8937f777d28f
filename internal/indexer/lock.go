package indexer

import "sync/atomic"

// IndexLock is the busy flag of the workspace session. Acquisition never
// blocks: a caller that loses the race reports ErrIndexingInProgress.
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = indexing
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. The hard-timeout path may call it while the
// owning session is still running.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a session currently holds the lock
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}
