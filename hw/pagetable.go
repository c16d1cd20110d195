// Package hw simulates the per-process hardware page table: the piece
// of the real MMU that the fault handler and frame table consult and
// mutate directly. It is deliberately small, covering only what spec.md
// asks for: installing and clearing a single upage-to-frame mapping,
// and reading-and-clearing the accessed/dirty bits a clock sweep needs.
//
// It is adapted from the teacher's biscuit/src/vm/as.go Vm_t type: the
// lock-then-mutate-pte discipline (Lock_pmap/Page_insert/Page_remove)
// is kept, but everything Vm_t does beyond that — copy-on-write,
// shared/file-backed mappings, vmregion bookkeeping, TLB shootdown
// across CPUs — is dropped. Those exist to support a multi-region,
// multi-CPU address space with mmap and fork; spec.md's Non-goals rule
// all of that out (COW, shared memory, mmap beyond lazy loading,
// NUMA/SMP). What remains is the one page table operation every fault
// path in this spec actually performs: map one user page to one frame,
// or unmap it.
package hw

import (
	"sync"

	"vmcore/mem"
)

// Upage is a page-aligned user virtual address, the unit the page
// table maps.
type Upage uintptr

// entry is one simulated page-table entry: a frame plus permission and
// status bits (mem.PTEPresent/PTEWritable/PTEUser/PTEAccessed/PTEDirty).
type entry struct {
	frame mem.Pa
	bits  uint32
}

// Table is one process's page table. A real MMU walks a multi-level
// radix tree; this simulates only the leaf mapping, since nothing here
// depends on the intermediate directory structure.
type Table struct {
	mu      sync.Mutex
	entries map[Upage]*entry
}

// NewTable returns an empty page table for a newly created process.
func NewTable() *Table {
	return &Table{entries: make(map[Upage]*entry)}
}

// Install maps upage to pa with the given permission bits (mem.PTEUser
// is always added; callers pass mem.PTEWritable if the mapping should
// be writable). It panics if upage is already mapped — callers must
// Clear a stale mapping first, matching the teacher's Page_insert
// invariant that a present PTE is never silently overwritten.
func (t *Table) Install(upage Upage, pa mem.Pa, writable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[upage]; ok && e.bits&mem.PTEPresent != 0 {
		panic("hw: Install over a present mapping")
	}
	bits := uint32(mem.PTEPresent | mem.PTEUser)
	if writable {
		bits |= mem.PTEWritable
	}
	t.entries[upage] = &entry{frame: pa, bits: bits}
}

// Clear removes upage's mapping, if any, and reports whether one was
// present.
func (t *Table) Clear(upage Upage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return false
	}
	delete(t.entries, upage)
	return true
}

// Lookup reports the frame mapped at upage and whether it is present.
func (t *Table) Lookup(upage Upage) (mem.Pa, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return mem.NoFrame, false
	}
	return e.frame, true
}

// Writable reports whether upage is present and mapped writable.
func (t *Table) Writable(upage Upage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return false
	}
	return e.bits&mem.PTEWritable != 0
}

// Touch marks upage accessed, and additionally dirty when write is
// true. This models what the MMU does automatically on every memory
// access; tests call it explicitly to simulate that hardware behavior.
func (t *Table) Touch(upage Upage, write bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return
	}
	e.bits |= mem.PTEAccessed
	if write {
		e.bits |= mem.PTEDirty
	}
}

// CheckAndClearAccessed reports whether upage's accessed bit is set,
// clearing it as a side effect. The clock algorithm uses this to give
// a page a second chance instead of evicting it on first sweep.
func (t *Table) CheckAndClearAccessed(upage Upage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return false
	}
	was := e.bits&mem.PTEAccessed != 0
	e.bits &^= mem.PTEAccessed
	return was
}

// CheckAndClearDirty reports whether upage's dirty bit is set, clearing
// it as a side effect. The frame table consults this before eviction
// to decide whether the page's contents must be written to swap.
func (t *Table) CheckAndClearDirty(upage Upage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	if !ok || e.bits&mem.PTEPresent == 0 {
		return false
	}
	was := e.bits&mem.PTEDirty != 0
	e.bits &^= mem.PTEDirty
	return was
}
