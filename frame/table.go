// Package frame implements the global frame table: the registry of
// every physical user frame currently in use, victim selection by the
// clock (second-chance) algorithm, and eviction. It is the busiest
// subsystem in the core (spec share ~35%) because allocation, eviction,
// and pinning all funnel through one table-wide lock.
//
// It is grounded on Pintos's vm/frame.c (frame_alloc, frame_advance_hand,
// frame_get_victim, frame_do_eviction, frame_try_pin/frame_unpin) for the
// algorithm, and on the teacher's biscuit/src/mem/mem.go Physmem_t for the
// Go shape of "a table-wide lock guarding a pool plus a free/used list".
// The circular clock sweep uses container/list the way the teacher's
// biscuit/src/fs/blk.go BlkList_t threads a doubly linked list of blocks
// through a lock-guarded container.
package frame

import (
	"container/list"
	"sync"

	"vmcore/diag"
	"vmcore/errno"
	"vmcore/hw"
	"vmcore/mem"
	"vmcore/pid"
	"vmcore/swap"
)

// Page is the view the frame table needs of an SPT entry to perform
// eviction without importing the spt package (which imports frame for
// Table/Frame, so the dependency must run one way only). spt.Entry
// implements this interface.
type Page interface {
	Owner() pid.ID
	Upage() hw.Upage
	Writable() bool
	Table() *hw.Table
	MarkDirty()
	IsDirty() bool
	MarkSwapped(slot swap.Slot)
	SetResident(f *Frame)
	ClearResident()
}

// Frame is one frame-table entry: the bookkeeping wrapped around a
// single physical user frame (spec section 3.1's frame descriptor).
type Frame struct {
	mu      sync.Mutex
	pa      mem.Pa
	owner   pid.ID
	page    Page
	pinned  bool
	elem    *list.Element // position in Table.clock, nil while evicting
}

// Pa returns the physical frame this descriptor describes.
func (f *Frame) Pa() mem.Pa { return f.pa }

// Page returns the SPT entry currently resident in this frame.
func (f *Frame) Page() Page {
	return f.page
}

// Lock acquires the frame's per-frame lock, held while the frame is
// being populated, evicted, or freed.
func (f *Frame) Lock() { f.mu.Lock() }

// Unlock releases the per-frame lock.
func (f *Frame) Unlock() { f.mu.Unlock() }

// Table is the global frame table.
type Table struct {
	mu       sync.Mutex // the frame-table lock: outermost in the acquisition order
	pool     *mem.Pool
	swap     *swap.Store
	clock    *list.List // circular sweep order; front/back wrap
	hand     *list.Element
	frames   map[mem.Pa]*Frame
	counters *diag.Counters // may be nil; counted only when non-nil
}

// NewTable constructs a frame table over pool, evicting dirty frames
// into store. Every eviction is recorded against counters, clean or
// dirty; a nil counters performs no accounting.
func NewTable(pool *mem.Pool, store *swap.Store, counters *diag.Counters) *Table {
	return &Table{
		pool:     pool,
		swap:     store,
		clock:    list.New(),
		frames:   make(map[mem.Pa]*Frame),
		counters: counters,
	}
}

// Alloc obtains a resident frame for p, evicting a victim if the
// user-frame pool is exhausted, per spec section 4.3. The returned
// frame is locked (its per-frame lock held) and already linked into
// p/f's bijection; the caller is responsible for populating its
// contents and unlocking it.
func (t *Table) Alloc(p Page) (*Frame, errno.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if pa, _, ok := t.pool.Alloc(); ok {
		f := &Frame{pa: pa, owner: p.Owner(), page: p}
		f.mu.Lock()
		f.elem = t.clock.PushBack(f)
		t.frames[pa] = f
		p.SetResident(f)
		return f, errno.OK
	}

	victim, e := t.selectVictim()
	if e != errno.OK {
		return nil, e
	}
	if e := t.evict(victim, p); e != errno.OK {
		victim.mu.Unlock()
		return nil, e
	}
	return victim, errno.OK
}

// selectVictim runs the clock sweep and returns a locked, list-removed
// frame, per spec section 4.3's victim-selection algorithm. The sweep
// is guaranteed to make progress because at least one non-pinned,
// non-in-flux frame must exist while the pool is under pressure; the
// implementation asserts this rather than looping forever.
func (t *Table) selectVictim() (*Frame, errno.Errno) {
	if t.clock.Len() == 0 {
		return nil, errno.ENOMEM
	}
	limit := 3*t.clock.Len() + 1
	for scanned := 0; scanned < limit; scanned++ {
		if t.hand == nil {
			t.hand = t.clock.Front()
		} else if next := t.hand.Next(); next != nil {
			t.hand = next
		} else {
			t.hand = t.clock.Front()
		}
		f := t.hand.Value.(*Frame)

		if !f.mu.TryLock() {
			continue
		}
		if f.pinned {
			f.mu.Unlock()
			continue
		}
		if f.page.Table().CheckAndClearAccessed(f.page.Upage()) {
			// second chance: accessed bit was set, now cleared
			f.mu.Unlock()
			continue
		}

		next := t.hand.Next()
		t.clock.Remove(t.hand)
		if next == nil {
			t.hand = nil // wrap to Front() on next advance
		} else {
			t.hand = next
		}
		f.elem = nil
		return f, errno.OK
	}
	panic("frame: clock sweep made no progress; all frames pinned or in flux")
}

// evict rebinds f from its current victim page to dst, performing
// swap-out if the victim's contents are dirty, per spec section 4.3's
// seven-step eviction sequence. f arrives locked and removed from the
// clock list; it returns locked and re-appended.
func (t *Table) evict(f *Frame, dst Page) errno.Errno {
	src := f.page
	if f.owner != src.Owner() {
		panic("frame: frame owner out of sync with its resident page's owner")
	}
	srcTable := src.Table()

	if srcTable.CheckAndClearDirty(src.Upage()) {
		src.MarkDirty()
	}
	srcTable.Clear(src.Upage())

	dirty := src.IsDirty()
	if dirty {
		pg := t.pool.Deref(f.pa)
		slot, e := t.swap.SwapOut(pg)
		if e != errno.OK {
			return e
		}
		src.MarkSwapped(slot)
	}
	if t.counters != nil {
		t.counters.IncEviction(dirty)
	}

	src.ClearResident()
	f.page = dst
	f.owner = dst.Owner()
	dst.SetResident(f)

	f.elem = t.clock.PushBack(f)
	return errno.OK
}

// Free removes f from the frame table and returns its physical backing
// to the pool. The caller must hold f's lock.
func (t *Table) Free(f *Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f.elem != nil {
		if t.hand == f.elem {
			t.hand = f.elem.Next()
		}
		t.clock.Remove(f.elem)
		f.elem = nil
	}
	delete(t.frames, f.pa)
	t.pool.Release(f.pa)
}

// TryPin atomically marks f pinned if it was not already, reporting
// success. Pinned frames are never selected as eviction victims.
func (f *Frame) TryPin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinned {
		return false
	}
	f.pinned = true
	return true
}

// Unpin clears f's pinned flag.
func (f *Frame) Unpin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = false
}

// Lock acquires the frame-table lock. A Page's resident frame is set
// and cleared only while this lock is held (see Alloc and evict), so
// callers that need to read a Page's residency without racing an
// eviction of that same page must take it too, rather than relying on
// a lock of their own.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the frame-table lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Len returns the number of frames currently tracked, for tests and
// diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock.Len()
}
