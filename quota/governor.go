// Package quota bounds the number of heavy operations — frame
// eviction and swap I/O — allowed in flight at once. It replaces the
// teacher's res/bounds admission-control pattern, visible throughout
// biscuit/src/vm/as.go as `res.Resadd_noblock(bounds.Bounds(...))`
// guarding every loop that might otherwise allocate unboundedly.
//
// The teacher's version grants an opaque "resource" unit from a global
// pool sized at boot and charges call sites by a per-site constant
// (bounds.B_ASPACE_T_K2USER_INNER and friends). This core has a single
// call site that needs the same shape of guard — spt.Table.Load, which
// holds one admission while it allocates a frame (possibly evicting a
// victim to swap) and populates it from a file or swap — so Governor
// exposes just an acquire/release pair sized at construction, built on
// golang.org/x/sync/semaphore instead of a hand-rolled counter so the
// context-aware Acquire path is available to callers that want to
// bound how long they wait.
package quota

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Governor bounds concurrent admission to a guarded operation.
type Governor struct {
	sem *semaphore.Weighted
	max int64
}

// NewGovernor returns a Governor admitting at most max concurrent
// operations.
func NewGovernor(max int) *Governor {
	if max <= 0 {
		panic("quota: governor capacity must be positive")
	}
	return &Governor{sem: semaphore.NewWeighted(int64(max)), max: int64(max)}
}

// TryAcquire admits one operation without blocking, reporting whether
// admission succeeded — the non-blocking shape the teacher's
// Resadd_noblock call sites rely on.
func (g *Governor) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Acquire blocks until an operation is admitted or ctx is done.
func (g *Governor) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns one admission slot.
func (g *Governor) Release() {
	g.sem.Release(1)
}

// Capacity returns the maximum number of concurrently admitted
// operations.
func (g *Governor) Capacity() int {
	return int(g.max)
}
