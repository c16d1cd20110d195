// Package mem is the physical-frame allocator collaborator described in
// spec section 6: palloc_get_page(USER) / palloc_free_page. It hands out
// fixed-size physical user frames from a preallocated pool and defines the
// page-table-entry permission bits the rest of the paging core shares.
//
// It is adapted from the teacher kernel's biscuit/src/mem package
// (Physmem_t): the free list threaded through an index array under a
// single mutex is kept in spirit, but the per-CPU free-list sharding and
// reference counting are dropped. Per-CPU sharding existed to scale
// allocation across cores, which spec.md's Non-goals rule out (single CPU
// assumed); reference counting existed to support copy-on-write pages,
// which spec.md also rules out. What remains is what the core actually
// needs: a single-owner, single-CPU frame pool.
package mem

import (
	"fmt"
	"sync"
)

// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT = 12

// PGSIZE is the size of a single page/frame in bytes.
const PGSIZE = 1 << PGSHIFT

// PGOFFSET masks the offset of an address within its page.
const PGOFFSET = PGSIZE - 1

// Page-table-entry permission bits, named after the x86 bits the teacher
// kernel manipulates directly (biscuit/src/mem/mem.go PTE_P/PTE_W/PTE_U).
const (
	PTEPresent  = 1 << 0
	PTEWritable = 1 << 1
	PTEUser     = 1 << 2
	PTEAccessed = 1 << 5
	PTEDirty    = 1 << 6
)

// Pa is the identifier of a physical frame: an opaque handle returned by
// the pool, analogous to the teacher's Pa_t physical address. It carries
// no pointer so a freed frame can be reused without invalidating live Go
// pointers into it.
type Pa int32

// NoFrame is the sentinel meaning "no frame". It is -1, not Pa's zero
// value: Pa(0) names the pool's first frame.
const NoFrame Pa = -1

// Page is the byte contents of a single physical frame.
type Page [PGSIZE]byte

// Pool owns a fixed number of physical user frames. It is constructed
// once at boot (mirroring the teacher's Phys_init; spec.md section 9
// cautions this state must "never be re-initialized") and shared by
// every process's frame-table allocation path.
type Pool struct {
	mu     sync.Mutex
	pages  []Page
	nexti  []int32 // free-list links, parallel to pages
	freeHd int32   // head of free list, listEnd-terminated
	nfree  int
	ncap   int
}

const listEnd int32 = -1

// NewPool preallocates n physical frames and returns the pool that owns
// them. n corresponds to the kernel's reserved user-frame budget.
func NewPool(n int) *Pool {
	if n <= 0 {
		panic("mem: pool size must be positive")
	}
	p := &Pool{
		pages: make([]Page, n),
		nexti: make([]int32, n),
		ncap:  n,
		nfree: n,
	}
	for i := 0; i < n; i++ {
		if i == n-1 {
			p.nexti[i] = listEnd
		} else {
			p.nexti[i] = int32(i + 1)
		}
	}
	return p
}

// Capacity returns the total number of frames the pool owns.
func (p *Pool) Capacity() int { return p.ncap }

// Free returns the number of frames currently unallocated.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nfree
}

// AllocZero allocates a frame and zero-fills it, mirroring the teacher's
// Refpg_new. It is the common case: every SPT materialization path wants
// a clean frame to populate.
func (p *Pool) AllocZero() (Pa, *Page, bool) {
	pa, pg, ok := p.Alloc()
	if !ok {
		return NoFrame, nil, false
	}
	*pg = Page{}
	return pa, pg, true
}

// Alloc allocates a frame without clearing its contents, mirroring
// Refpg_new_nozero. Callers about to overwrite every byte (a file-backed
// load, a swap-in) use this to skip a pointless zero-fill.
func (p *Pool) Alloc() (Pa, *Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.freeHd == listEnd && p.nfree == 0 {
		return NoFrame, nil, false
	}
	idx := p.freeHd
	p.freeHd = p.nexti[idx]
	p.nfree--
	return Pa(idx), &p.pages[idx], true
}

// Release returns pa to the free list. The caller must not retain the
// *Page obtained from Alloc/AllocZero/Deref after calling Release.
func (p *Pool) Release(pa Pa) {
	if pa == NoFrame {
		panic("mem: release of NoFrame")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := int32(pa)
	if idx < 0 || int(idx) >= p.ncap {
		panic("mem: release of out-of-range frame")
	}
	p.nexti[idx] = p.freeHd
	p.freeHd = idx
	p.nfree++
}

// Deref returns the byte contents addressed by pa, analogous to the
// teacher's Physmem_t.Dmap direct-map lookup. The returned pointer is
// only valid until pa is released.
func (p *Pool) Deref(pa Pa) *Page {
	if pa == NoFrame {
		panic("mem: deref of NoFrame")
	}
	idx := int(pa)
	if idx < 0 || idx >= p.ncap {
		panic("mem: deref of out-of-range frame")
	}
	return &p.pages[idx]
}

// String renders the pool's occupancy for diagnostic dumps.
func (p *Pool) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("mem.Pool{frames=%d free=%d}", p.ncap, p.nfree)
}
