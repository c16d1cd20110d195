package mem

import "testing"

func TestNewPoolAllFree(t *testing.T) {
	p := NewPool(4)
	if p.Capacity() != 4 {
		t.Fatalf("capacity = %d, want 4", p.Capacity())
	}
	if p.Free() != 4 {
		t.Fatalf("free = %d, want 4", p.Free())
	}
}

func TestAllocExhaustsPool(t *testing.T) {
	p := NewPool(2)
	pa1, pg1, ok := p.Alloc()
	if !ok || pa1 == NoFrame || pg1 == nil {
		t.Fatalf("first alloc failed")
	}
	pa2, pg2, ok := p.Alloc()
	if !ok || pa2 == NoFrame || pg2 == nil {
		t.Fatalf("second alloc failed")
	}
	if pa1 == pa2 {
		t.Fatalf("allocated the same frame twice: %d", pa1)
	}
	if _, _, ok := p.Alloc(); ok {
		t.Fatalf("alloc succeeded past capacity")
	}
	if p.Free() != 0 {
		t.Fatalf("free = %d, want 0", p.Free())
	}
}

func TestAllocZeroClearsContents(t *testing.T) {
	p := NewPool(1)
	pa, pg, ok := p.Alloc()
	if !ok {
		t.Fatalf("alloc failed")
	}
	for i := range pg {
		pg[i] = 0xAB
	}
	p.Release(pa)

	pa2, pg2, ok := p.AllocZero()
	if !ok {
		t.Fatalf("alloc-zero failed")
	}
	if pa2 != pa {
		t.Fatalf("expected reuse of released frame %d, got %d", pa, pa2)
	}
	for i, b := range pg2 {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, b)
		}
	}
}

func TestReleaseThenReallocate(t *testing.T) {
	p := NewPool(1)
	pa, _, ok := p.Alloc()
	if !ok {
		t.Fatalf("alloc failed")
	}
	p.Release(pa)
	if p.Free() != 1 {
		t.Fatalf("free = %d, want 1 after release", p.Free())
	}
	pa2, _, ok := p.Alloc()
	if !ok {
		t.Fatalf("realloc after release failed")
	}
	if pa2 != pa {
		t.Fatalf("expected frame %d reused, got %d", pa, pa2)
	}
}

func TestDerefOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range deref")
		}
	}()
	p := NewPool(1)
	p.Deref(Pa(5))
}

func TestReleaseOfNoFramePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic releasing NoFrame")
		}
	}()
	p := NewPool(1)
	p.Release(NoFrame)
}
