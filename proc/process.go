// Package proc is the minimal process/thread model the fault handler
// and frame table need: an address space's page table and SPT, the
// saved user stack pointer used by the kernel-mode fault path, and the
// termination/in-flight-operation bookkeeping spec section 5 requires
// ("process termination waits for any in-flight page operations for
// that process to complete before tearing down its SPT and frames").
//
// The kill/alive tracking is grounded on the teacher's
// biscuit/src/tinfo package (Tnote_t's Alive/Killed/Isdoomed fields);
// the stack-size accounting is grounded on biscuit/src/limits
// (Sysatomic_t's atomic Taken/Given pair), repurposed here from a
// system-wide resource limit into one process's own 8 MiB stack
// budget (spec section 6's stack-growth boundary).
package proc

import (
	"sync"
	"sync/atomic"

	"vmcore/frame"
	"vmcore/hw"
	"vmcore/mem"
	"vmcore/pid"
	"vmcore/quota"
	"vmcore/spt"
	"vmcore/swap"
)

// StackLimitBytes is the absolute stack size limit, 8 MiB below
// PHYS_BASE, per spec section 6.
const StackLimitBytes = 8 << 20

// note tracks a process's liveness, mirroring tinfo.Tnote_t trimmed to
// what this core needs: whether the process is still alive, and
// whether it has been marked killed (termination requested but
// in-flight operations have not yet drained).
type note struct {
	mu     sync.Mutex
	alive  bool
	killed bool
}

func (n *note) markKilled() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.killed = true
}

// Killed reports whether the process has been marked for termination.
func (n *note) Killed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.killed
}

// Process is one user process's address-space-level state.
type Process struct {
	ID    pid.ID
	Table *hw.Table
	SPT   *spt.Table

	note note

	// savedESP is the user stack pointer at the last user-to-kernel
	// transition, consulted by the fault handler when a fault arrives
	// from kernel mode (spec section 4.1 step 3).
	savedESP uintptr

	// stackUsed tracks bytes committed to the stack region so growth
	// can be bounded at StackLimitBytes without re-deriving it from the
	// SPT on every fault.
	stackUsed int64

	exitStatus int32
	inflight   sync.WaitGroup
}

// New constructs a process with a fresh page table and SPT.
func New(id pid.ID, frames *frame.Table, pool *mem.Pool, store *swap.Store, io *quota.Governor) *Process {
	ht := hw.NewTable()
	p := &Process{
		ID:    id,
		Table: ht,
	}
	p.note.alive = true
	p.SPT = spt.NewTable(id, ht, frames, pool, store, io)
	return p
}

// SetSavedESP records the user stack pointer at a user-to-kernel
// transition.
func (p *Process) SetSavedESP(esp uintptr) {
	atomic.StoreUintptr((*uintptr)(&p.savedESP), esp)
}

// SavedESP returns the most recently recorded user stack pointer.
func (p *Process) SavedESP() uintptr {
	return atomic.LoadUintptr((*uintptr)(&p.savedESP))
}

// GrowStack reports whether committing one more page to the stack
// stays within StackLimitBytes, reserving the space if so. Mirrors
// limits.Sysatomic_t.Taken: an atomic compare-and-reserve that rolls
// back on overflow rather than locking.
func (p *Process) GrowStack() bool {
	n := atomic.AddInt64(&p.stackUsed, mem.PGSIZE)
	if n > StackLimitBytes {
		atomic.AddInt64(&p.stackUsed, -mem.PGSIZE)
		return false
	}
	return true
}

// BeginOp registers an in-flight page operation; callers must call
// EndOp when done. Exit blocks until every BeginOp has a matching
// EndOp, per spec section 5's cancellation model.
func (p *Process) BeginOp() { p.inflight.Add(1) }

// EndOp completes an in-flight page operation started with BeginOp.
func (p *Process) EndOp() { p.inflight.Done() }

// Kill marks the process for termination with the given exit status
// and waits for in-flight page operations to drain before returning,
// so callers can safely tear down the SPT and frames afterward.
func (p *Process) Kill(status int32) {
	p.note.markKilled()
	atomic.StoreInt32(&p.exitStatus, status)
	p.inflight.Wait()
	p.note.mu.Lock()
	p.note.alive = false
	p.note.mu.Unlock()
}

// Killed reports whether Kill has been called on this process.
func (p *Process) Killed() bool { return p.note.Killed() }

// ExitStatus returns the status passed to Kill, valid once Killed is
// true.
func (p *Process) ExitStatus() int32 { return atomic.LoadInt32(&p.exitStatus) }
