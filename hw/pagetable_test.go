package hw

import (
	"testing"

	"vmcore/mem"
)

func TestInstallLookup(t *testing.T) {
	tb := NewTable()
	tb.Install(Upage(0x1000), mem.Pa(3), true)
	pa, ok := tb.Lookup(Upage(0x1000))
	if !ok || pa != mem.Pa(3) {
		t.Fatalf("lookup = (%v, %v), want (3, true)", pa, ok)
	}
	if !tb.Writable(Upage(0x1000)) {
		t.Fatalf("expected mapping to be writable")
	}
}

func TestInstallOverPresentPanics(t *testing.T) {
	tb := NewTable()
	tb.Install(Upage(0x1000), mem.Pa(1), false)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic installing over present mapping")
		}
	}()
	tb.Install(Upage(0x1000), mem.Pa(2), false)
}

func TestClearThenReinstall(t *testing.T) {
	tb := NewTable()
	tb.Install(Upage(0x2000), mem.Pa(5), false)
	if !tb.Clear(Upage(0x2000)) {
		t.Fatalf("expected Clear to report a present mapping")
	}
	if tb.Clear(Upage(0x2000)) {
		t.Fatalf("second Clear should report nothing present")
	}
	if _, ok := tb.Lookup(Upage(0x2000)); ok {
		t.Fatalf("lookup should fail after clear")
	}
	tb.Install(Upage(0x2000), mem.Pa(9), true)
	pa, ok := tb.Lookup(Upage(0x2000))
	if !ok || pa != mem.Pa(9) {
		t.Fatalf("lookup after reinstall = (%v, %v), want (9, true)", pa, ok)
	}
}

func TestAccessedBitClearsOnRead(t *testing.T) {
	tb := NewTable()
	tb.Install(Upage(0x3000), mem.Pa(1), true)
	if tb.CheckAndClearAccessed(Upage(0x3000)) {
		t.Fatalf("freshly installed page should not be accessed")
	}
	tb.Touch(Upage(0x3000), false)
	if !tb.CheckAndClearAccessed(Upage(0x3000)) {
		t.Fatalf("expected accessed bit set after touch")
	}
	if tb.CheckAndClearAccessed(Upage(0x3000)) {
		t.Fatalf("accessed bit should have been cleared by previous check")
	}
}

func TestDirtyBitTracksWrites(t *testing.T) {
	tb := NewTable()
	tb.Install(Upage(0x4000), mem.Pa(1), true)
	tb.Touch(Upage(0x4000), false)
	if tb.CheckAndClearDirty(Upage(0x4000)) {
		t.Fatalf("read-only touch should not dirty the page")
	}
	tb.Touch(Upage(0x4000), true)
	if !tb.CheckAndClearDirty(Upage(0x4000)) {
		t.Fatalf("expected dirty bit set after write touch")
	}
	if tb.CheckAndClearDirty(Upage(0x4000)) {
		t.Fatalf("dirty bit should have been cleared by previous check")
	}
}

func TestMissingUpageIsInert(t *testing.T) {
	tb := NewTable()
	if _, ok := tb.Lookup(Upage(0x5000)); ok {
		t.Fatalf("lookup of unmapped page should fail")
	}
	if tb.Writable(Upage(0x5000)) {
		t.Fatalf("unmapped page should not be writable")
	}
	if tb.CheckAndClearAccessed(Upage(0x5000)) || tb.CheckAndClearDirty(Upage(0x5000)) {
		t.Fatalf("unmapped page should report no accessed/dirty bits")
	}
	tb.Touch(Upage(0x5000), true) // must not panic
}
