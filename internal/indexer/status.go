package indexer

import (
	"github.com/dshills/apidl/pkg/types"
)

// Status returns the most recent session status
func (x *Indexer) Status() types.Status {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.status
}

// Subscribe registers fn to receive every status transition. Listeners are
// called synchronously from the indexing goroutine and must not block.
// The returned function removes the listener.
func (x *Indexer) Subscribe(fn func(types.Status)) (unsubscribe func()) {
	x.mu.Lock()
	defer x.mu.Unlock()

	id := x.nextListener
	x.nextListener++
	x.listeners[id] = fn

	return func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		delete(x.listeners, id)
	}
}

func (x *Indexer) setStatus(state types.IndexState, message, sessionID string) {
	x.mu.Lock()
	status := types.Status{
		State:     state,
		Message:   message,
		Timestamp: x.now(),
		SessionID: sessionID,
	}
	x.status = status
	listeners := make([]func(types.Status), 0, len(x.listeners))
	for _, fn := range x.listeners {
		listeners = append(listeners, fn)
	}
	x.mu.Unlock()

	x.logger.Debug("index status", "state", state, "message", message, "session", sessionID)
	for _, fn := range listeners {
		fn(status)
	}
}
