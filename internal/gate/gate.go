// Package gate serializes every mutating store operation behind one
// store-wide binary semaphore, so a quota check and the write it guards run
// as a single step relative to other mutations.
package gate

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"golang.org/x/sync/semaphore"
)

// Coordinator is the mutation gate. The zero value is not usable; call New.
type Coordinator struct {
	sem *semaphore.Weighted
}

func New() *Coordinator {
	return &Coordinator{sem: semaphore.NewWeighted(1)}
}

// WithExclusiveAccess waits for the gate, runs fn, and releases the gate on
// every exit path, including a panic inside fn (which is then rethrown).
//
// Waiting has no timeout of its own; it ends early only when ctx is done, in
// which case fn is not run and the error wraps common.ErrorInterrupted.
// The gate is not re-entrant: calling WithExclusiveAccess from inside fn
// deadlocks unless ctx is cancelled.
func (c *Coordinator) WithExclusiveAccess(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waiting for mutation gate: %v", common.ErrorInterrupted, err)
	}
	defer c.sem.Release(1)

	return fn(ctx)
}
