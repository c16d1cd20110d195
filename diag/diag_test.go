package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestCounterIncrements(t *testing.T) {
	var c Counters
	c.IncPageFault()
	c.IncPageFault()
	c.IncEviction(false)
	c.IncEviction(true)
	c.IncSwapIn()
	c.IncSwapOut()

	snap := c.snapshot()
	if snap["page_faults"] != 2 {
		t.Fatalf("page_faults = %d, want 2", snap["page_faults"])
	}
	if snap["clean_evictions"] != 1 || snap["dirty_evictions"] != 1 {
		t.Fatalf("eviction counts = %v", snap)
	}
	if snap["swap_ins"] != 1 || snap["swap_outs"] != 1 {
		t.Fatalf("swap counts = %v", snap)
	}
}

func TestProfileCarriesSampleTypes(t *testing.T) {
	var c Counters
	c.IncPageFault()
	p := c.Profile()
	if len(p.SampleType) != 5 {
		t.Fatalf("expected 5 sample types, got %d", len(p.SampleType))
	}
	if len(p.Sample) != 1 || len(p.Sample[0].Value) != 5 {
		t.Fatalf("expected one sample with 5 values")
	}
}

func TestPrintCountersFormatsGrouping(t *testing.T) {
	var c Counters
	for i := 0; i < 1500; i++ {
		c.IncPageFault()
	}
	var buf bytes.Buffer
	PrintCounters(&buf, &c)
	if !strings.Contains(buf.String(), "1,500") {
		t.Fatalf("expected grouped counter in output, got %q", buf.String())
	}
}

func TestMnemonicOfKnownBytes(t *testing.T) {
	// 0x90 is NOP in both 32- and 64-bit mode.
	if got := Mnemonic([]byte{0x90}); got != "NOP" {
		t.Fatalf("mnemonic of 0x90 = %q, want NOP", got)
	}
}

func TestMnemonicOfGarbageBytes(t *testing.T) {
	if got := Mnemonic(nil); got != "???" {
		t.Fatalf("mnemonic of empty input = %q, want ???", got)
	}
}

func TestCrashIncludesProcVectorAndMnemonic(t *testing.T) {
	var buf bytes.Buffer
	Crash(&buf, 7, 14, "#PF Page-Fault Exception", 0x1234, []byte{0x90})
	out := buf.String()
	for _, want := range []string{"proc 7", "#14", "#PF Page-Fault Exception", "0x1234", "NOP"} {
		if !strings.Contains(out, want) {
			t.Fatalf("crash diagnostic missing %q, got %q", want, out)
		}
	}
}
