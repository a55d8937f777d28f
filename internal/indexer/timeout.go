package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/apidl/pkg/types"
)

// bounded runs fn with its own deadline of limit and returns as soon as
// either fn finishes or the deadline passes. An fn that ignores its
// context is abandoned, not stopped; its result is discarded.
//
// A deadline miss yields an error wrapping types.ErrIndexTimeout. If ctx
// itself ends first, ctx.Err() is returned instead. A zero limit means no
// stage deadline.
func bounded[T any](ctx context.Context, limit time.Duration, stage string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	stageCtx, cancel := ctx, context.CancelFunc(func() {})
	if limit > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, limit)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%w: %s panicked: %v", types.ErrUnexpected, stage, r)}
			}
		}()
		v, err := fn(stageCtx)
		ch <- result{v: v, err: err}
	}()

	timeout := func() error {
		return fmt.Errorf("%s exceeded %v: %w", stage, limit, types.ErrIndexTimeout)
	}

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			return zero, timeout()
		}
		return r.v, r.err
	case <-stageCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeout()
	}
}
