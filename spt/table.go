// Package spt implements the per-process supplemental page table: the
// dictionary from user virtual page to a description of how that page
// should be materialized (spec section 4.2). It is the layer the fault
// handler calls into; it in turn drives the frame table and, through
// it, swap and the simulated hardware page table.
//
// Grounded on Pintos's vm/page.c semantics as referenced by
// userprog/exception.c (the three-way ZERO/FILE/SWAP page type and the
// make_entry/lookup/load/was_accessed operation set), styled after the
// teacher's per-process locking discipline in biscuit/src/vm/as.go
// (Vm_t.Lock_pmap guarding one address space's own state).
package spt

import (
	"context"
	"fmt"
	"sync"

	"vmcore/errno"
	"vmcore/frame"
	"vmcore/hw"
	"vmcore/mem"
	"vmcore/pid"
	"vmcore/quota"
	"vmcore/swap"
)

// Kind is how an SPT entry's contents should be materialized.
type Kind int

const (
	Zero Kind = iota
	File
	Swap
)

// FileSource reads into a supplied buffer: the file-system collaborator
// spec.md treats as external ("read bytes from an open file at an
// offset into a supplied buffer").
type FileSource interface {
	ReadAt(buf []byte, offset int64) (int, error)
}

// Entry is one SPT entry: spec section 3.1's page descriptor.
type Entry struct {
	mu sync.Mutex

	upage    hw.Upage
	owner    pid.ID
	table    *hw.Table
	kind     Kind
	writable bool
	dirty    bool

	file    FileSource
	foff    int64
	nbytes  int

	slot swap.Slot

	resident *frame.Frame
}

// Owner implements frame.Page.
func (e *Entry) Owner() pid.ID { return e.owner }

// Upage implements frame.Page.
func (e *Entry) Upage() hw.Upage { return e.upage }

// Writable implements frame.Page.
func (e *Entry) Writable() bool { return e.writable }

// Table implements frame.Page.
func (e *Entry) Table() *hw.Table { return e.table }

// MarkDirty implements frame.Page: OR's the sticky dirty bit, per spec
// section 3.2 ("access/dirty bit reads are destructive side effects...
// OR-accumulates the dirty bit into a sticky SPT field").
func (e *Entry) MarkDirty() { e.dirty = true }

// IsDirty implements frame.Page.
func (e *Entry) IsDirty() bool { return e.dirty }

// MarkSwapped implements frame.Page: records the swap slot and resets
// the entry to type SWAP, per spec section 4.3 eviction step 4.
func (e *Entry) MarkSwapped(slot swap.Slot) {
	e.slot = slot
	e.kind = Swap
}

// SetResident implements frame.Page.
func (e *Entry) SetResident(f *frame.Frame) { e.resident = f }

// ClearResident implements frame.Page.
func (e *Entry) ClearResident() { e.resident = nil }

// Table is one process's supplemental page table.
type Table struct {
	mu      sync.Mutex
	owner   pid.ID
	hw      *hw.Table
	frames  *frame.Table
	pool    *mem.Pool
	swap    *swap.Store
	io      *quota.Governor // bounds concurrent file/swap I/O during Load
	entries map[hw.Upage]*Entry
}

// NewTable constructs an empty SPT for a process. pool must be the
// same physical frame pool frames was built over, so Load can deref a
// frame's contents once the frame table hands one back. io bounds how
// many Load calls across the whole kernel may be doing file or swap
// I/O concurrently; a nil io performs no admission control.
func NewTable(owner pid.ID, ht *hw.Table, frames *frame.Table, pool *mem.Pool, store *swap.Store, io *quota.Governor) *Table {
	return &Table{
		owner:   owner,
		hw:      ht,
		frames:  frames,
		pool:    pool,
		swap:    store,
		io:      io,
		entries: make(map[hw.Upage]*Entry),
	}
}

// MakeEntry inserts a blank entry for upage. It fails with EEXIST if an
// entry for upage is already registered, per spec section 4.2 and the
// error table's "Duplicate SPT registration" row.
func (t *Table) MakeEntry(upage hw.Upage, writable bool) (*Entry, errno.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[upage]; ok {
		return nil, errno.EEXIST
	}
	e := &Entry{
		upage:    upage,
		owner:    t.owner,
		table:    t.hw,
		writable: writable,
		slot:     swap.NoSlot,
	}
	t.entries[upage] = e
	return e, errno.OK
}

// MakeZero registers a ZERO-type entry for upage, the path used by
// both the loader's BSS and the stack-growth fault path.
func (t *Table) MakeZero(upage hw.Upage, writable bool) (*Entry, errno.Errno) {
	e, errc := t.MakeEntry(upage, writable)
	if errc != errno.OK {
		return nil, errc
	}
	e.kind = Zero
	return e, errno.OK
}

// MakeFile registers a FILE-type entry that lazily loads nbytes bytes
// from (file, foff) when first faulted, zero-filling the remainder of
// the page.
func (t *Table) MakeFile(upage hw.Upage, writable bool, file FileSource, foff int64, nbytes int) (*Entry, errno.Errno) {
	e, errc := t.MakeEntry(upage, writable)
	if errc != errno.OK {
		return nil, errc
	}
	e.kind = File
	e.file = file
	e.foff = foff
	e.nbytes = nbytes
	return e, errno.OK
}

// Lookup returns the entry for upage, if any.
func (t *Table) Lookup(upage hw.Upage) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[upage]
	return e, ok
}

// Load ensures upage is resident, per spec section 4.2's load
// operation. Calling Load twice in a row on the same upage is a no-op
// on the second call (spec section 8's round-trip property): if the
// page is already resident, Load returns success without reallocating
// a frame.
func (t *Table) Load(upage hw.Upage) errno.Errno {
	e, ok := t.Lookup(upage)
	if !ok {
		return errno.EFAULT
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// e.resident is also read and written by frame.Table.evict, running
	// on another process's Load goroutine, while it holds only the
	// frame-table lock (never e.mu). e.mu alone would let that write
	// race with this read, so consult it under the same lock eviction
	// uses instead of relying on e.mu to cover a field eviction does
	// not know about.
	t.frames.Lock()
	resident := e.resident != nil
	t.frames.Unlock()
	if resident {
		return errno.OK
	}

	if t.io != nil {
		_ = t.io.Acquire(context.Background()) // unbounded context never errors
		defer t.io.Release()
	}

	f, errc := t.frames.Alloc(e)
	if errc != errno.OK {
		return errc
	}
	defer f.Unlock()

	pg := t.pool.Deref(f.Pa())
	var err errno.Errno
	switch e.kind {
	case Zero:
		*pg = mem.Page{}
	case File:
		*pg = mem.Page{}
		n, ioerr := e.file.ReadAt(pg[:e.nbytes], e.foff)
		if ioerr != nil || n != e.nbytes {
			err = errno.EIO
		}
	case Swap:
		slot := e.slot
		err = t.swap.SwapIn(slot, pg)
		if err == errno.OK {
			e.slot = swap.NoSlot
			e.kind = Zero // page is no longer on disk; its prior kind is moot
		}
	}
	if err != errno.OK {
		e.ClearResident()
		t.frames.Free(f)
		return err
	}

	t.hw.Install(upage, f.Pa(), e.writable)
	t.hw.CheckAndClearAccessed(upage)
	t.hw.CheckAndClearDirty(upage)
	return errno.OK
}

// WasAccessed reads and clears the hardware accessed bit for e's page,
// per spec section 4.2. The frame table's clock sweep reads and clears
// the same bit directly through hw.Table.CheckAndClearAccessed; this
// method exposes it on the entry for direct testing.
func (e *Entry) WasAccessed() bool {
	return e.table.CheckAndClearAccessed(e.upage)
}

func (e *Entry) String() string {
	return fmt.Sprintf("spt.Entry{upage=%#x kind=%d writable=%v dirty=%v}", e.upage, e.kind, e.writable, e.dirty)
}
