// Package swap implements the fixed-size, block-backed slot allocator
// the frame table evicts dirty pages into. Each slot holds exactly one
// page's worth of bytes; a bitmap under a dedicated lock tracks which
// slots are free, matching spec section 4.4 and the concurrency model's
// swap-bitmap lock (the innermost lock in the table → per-frame → swap
// acquisition order).
//
// It is grounded on the teacher's block-device abstraction
// (biscuit/src/fs/blk.go's Disk_i, a sector read/write interface backed
// by a real file descriptor) rather than an in-memory byte slice, so
// the store actually exercises golang.org/x/sys/unix positioned I/O the
// way the teacher's disk layer exercises its own syscall plumbing.
package swap

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"vmcore/diag"
	"vmcore/errno"
	"vmcore/mem"
)

// Slot identifies one page-sized unit of backing store.
type Slot int

// NoSlot is the sentinel meaning "no slot".
const NoSlot Slot = -1

// Store owns a fixed number of page-sized slots backed by a single
// file, addressed by Pread/Pwrite at slot*PGSIZE rather than through a
// stream offset, so concurrent swap-in/swap-out calls never race over
// a shared file cursor.
type Store struct {
	mu       sync.Mutex // guards free, nfree: the swap-bitmap lock
	fd       int
	free     []bool
	nfree    int
	ncap     int
	counters *diag.Counters // may be nil; counted only when non-nil
}

// NewStore creates a swap store with nslots page-sized slots backed by
// the open file fd. The caller owns fd's lifetime; the store never
// closes it, matching the teacher's convention that Disk_i wraps, but
// does not own, the underlying descriptor. Every SwapOut/SwapIn is
// recorded against counters; a nil counters performs no accounting.
func NewStore(fd int, nslots int, counters *diag.Counters) *Store {
	if nslots <= 0 {
		panic("swap: store size must be positive")
	}
	return &Store{
		fd:       fd,
		free:     make([]bool, nslots),
		nfree:    nslots,
		ncap:     nslots,
		counters: counters,
	}
}

// Capacity returns the total number of slots.
func (s *Store) Capacity() int { return s.ncap }

// Free returns the number of currently unallocated slots.
func (s *Store) Free() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nfree
}

func (s *Store) alloc() (Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nfree == 0 {
		return NoSlot, false
	}
	for i, used := range s.free {
		if !used {
			s.free[i] = true
			s.nfree--
			return Slot(i), true
		}
	}
	panic("swap: nfree out of sync with bitmap")
}

// SwapOut allocates a free slot, writes pg's contents to it, and
// returns the slot index. It fails with errno.ENOSPC when no slot is
// free — per spec section 5, swap exhaustion is fatal to the subsystem
// in this scope, so callers are expected to treat this as unrecoverable
// rather than retry.
func (s *Store) SwapOut(pg *mem.Page) (Slot, errno.Errno) {
	slot, ok := s.alloc()
	if !ok {
		return NoSlot, errno.ENOSPC
	}
	if _, err := unix.Pwrite(s.fd, pg[:], int64(slot)*mem.PGSIZE); err != nil {
		s.SwapFree(slot)
		return NoSlot, errno.EIO
	}
	if s.counters != nil {
		s.counters.IncSwapOut()
	}
	return slot, errno.OK
}

// SwapIn reads slot's contents into pg and frees the slot, matching
// spec section 4.4's swap_in (read then free is a single operation —
// callers never observe a slot that has been read but not yet freed).
func (s *Store) SwapIn(slot Slot, pg *mem.Page) errno.Errno {
	if slot == NoSlot {
		panic("swap: SwapIn of NoSlot")
	}
	n, err := unix.Pread(s.fd, pg[:], int64(slot)*mem.PGSIZE)
	if err != nil || n != len(pg) {
		return errno.EIO
	}
	s.SwapFree(slot)
	if s.counters != nil {
		s.counters.IncSwapIn()
	}
	return errno.OK
}

// SwapFree returns slot to the free pool without reading it, used when
// a swapped page is discarded (process exit) rather than re-read.
func (s *Store) SwapFree(slot Slot) {
	if slot == NoSlot {
		panic("swap: SwapFree of NoSlot")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := int(slot)
	if idx < 0 || idx >= s.ncap {
		panic("swap: free of out-of-range slot")
	}
	if !s.free[idx] {
		panic("swap: double free of slot")
	}
	s.free[idx] = false
	s.nfree++
}

// String renders the store's occupancy for diagnostic dumps.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("swap.Store{slots=%d free=%d}", s.ncap, s.nfree)
}
