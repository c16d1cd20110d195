// Package diag provides the page-fault/eviction counters and crash
// diagnostics spec sections 4.1 and 7 call for ("increment the
// page-fault counter", "all terminations print a diagnostic
// identifying the process, vector, and mnemonic").
//
// The counter/timing-toggle shape is grounded on the teacher's
// biscuit/src/stats package (a single Stats toggle gating cheap atomic
// counters); the stack-dump-on-crash idea is grounded on
// biscuit/src/caller (Callerdump via runtime.Caller). Where the
// teacher prints with plain fmt.Printf, this package additionally
// exercises three of the pack's own diagnostics dependencies: counters
// can be snapshotted on demand into a github.com/google/pprof/profile
// sample so a running kernel can dump a pprof-format profile for
// offline analysis, large counter values are formatted through
// golang.org/x/text/message for locale-aware grouping, and the
// faulting instruction's bytes are decoded with
// golang.org/x/arch/x86/x86asm so a crash diagnostic names the actual
// mnemonic, not just an address.
package diag

import (
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/google/pprof/profile"
	"golang.org/x/arch/x86/x86asm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/number"

	"vmcore/pid"
)

// Counters tracks the fault/eviction activity spec section 7's
// "page_fault_cnt" and section 4.3's eviction bookkeeping ask for.
// All fields are updated with atomic instructions so any thread
// servicing a fault may increment them without additional locking.
type Counters struct {
	PageFaults     int64
	CleanEvictions int64
	DirtyEvictions int64
	SwapIns        int64
	SwapOuts       int64
}

// IncPageFault increments the page-fault counter, step 2 of the fault
// algorithm in spec section 4.1.
func (c *Counters) IncPageFault() { atomic.AddInt64(&c.PageFaults, 1) }

// IncEviction records one eviction, dirty or clean.
func (c *Counters) IncEviction(dirty bool) {
	if dirty {
		atomic.AddInt64(&c.DirtyEvictions, 1)
	} else {
		atomic.AddInt64(&c.CleanEvictions, 1)
	}
}

// IncSwapIn records one swap-in.
func (c *Counters) IncSwapIn() { atomic.AddInt64(&c.SwapIns, 1) }

// IncSwapOut records one swap-out.
func (c *Counters) IncSwapOut() { atomic.AddInt64(&c.SwapOuts, 1) }

func (c *Counters) snapshot() map[string]int64 {
	return map[string]int64{
		"page_faults":     atomic.LoadInt64(&c.PageFaults),
		"clean_evictions": atomic.LoadInt64(&c.CleanEvictions),
		"dirty_evictions": atomic.LoadInt64(&c.DirtyEvictions),
		"swap_ins":        atomic.LoadInt64(&c.SwapIns),
		"swap_outs":       atomic.LoadInt64(&c.SwapOuts),
	}
}

// Profile snapshots the counters into a pprof profile with one sample
// type per counter, so the running core can be dumped and inspected
// with the standard pprof tool offline.
func (c *Counters) Profile() *profile.Profile {
	snap := c.snapshot()
	p := &profile.Profile{}
	values := make([]int64, 0, len(snap))
	// deterministic order: iterate a fixed slice rather than the map
	names := []string{"page_faults", "clean_evictions", "dirty_evictions", "swap_ins", "swap_outs"}
	for _, name := range names {
		p.SampleType = append(p.SampleType, &profile.ValueType{Type: name, Unit: "count"})
		values = append(values, snap[name])
	}
	p.Sample = append(p.Sample, &profile.Sample{Value: values})
	return p
}

// WriteProfile writes the current counters as a gzip-encoded pprof
// profile to w.
func (c *Counters) WriteProfile(w io.Writer) error {
	return c.Profile().Write(w)
}

// printer formats counters with locale-aware thousands separators.
var printer = message.NewPrinter(language.English)

// PrintCounters writes a human-readable counter dump to w, formatting
// each value through golang.org/x/text/message/number so large counts
// (millions of faults in a long-running core) read with grouping
// separators instead of a wall of digits.
func PrintCounters(w io.Writer, c *Counters) {
	snap := c.snapshot()
	fmt.Fprintf(w, "page faults: %s\n", printer.Sprintf("%v", number.Decimal(snap["page_faults"])))
	fmt.Fprintf(w, "evictions:   %s clean, %s dirty\n",
		printer.Sprintf("%v", number.Decimal(snap["clean_evictions"])),
		printer.Sprintf("%v", number.Decimal(snap["dirty_evictions"])))
	fmt.Fprintf(w, "swap:        %s in, %s out\n",
		printer.Sprintf("%v", number.Decimal(snap["swap_ins"])),
		printer.Sprintf("%v", number.Decimal(snap["swap_outs"])))
}

// Mnemonic decodes the x86 instruction at the start of code and
// returns its operation mnemonic, e.g. "MOV" or "PUSH". It returns
// "???" if the bytes cannot be decoded — a crash diagnostic should
// never fail just because its own decoder choked on garbage.
func Mnemonic(code []byte) string {
	inst, err := x86asm.Decode(code, 32)
	if err != nil {
		return "???"
	}
	return inst.Op.String()
}

// Crash prints the diagnostic spec section 7 requires of every
// termination: the offending process, the exception vector, and (when
// instruction bytes are available) its mnemonic.
func Crash(w io.Writer, proc pid.ID, vector int, vectorName string, faultAddr uintptr, instrBytes []byte) {
	mnemonic := "?"
	if len(instrBytes) > 0 {
		mnemonic = Mnemonic(instrBytes)
	}
	fmt.Fprintf(w, "proc %d: unhandled #%d (%s) at %#x, faulting instruction %s\n",
		proc, vector, vectorName, faultAddr, mnemonic)
}

// Stackdump writes the caller's current goroutine stack trace to w,
// mirroring the teacher's caller.Callerdump: a cheap, on-demand dump
// of "how did we get here" for a kernel panic path, not a permanent
// subscription to per-call overhead.
func Stackdump(w io.Writer) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, false)
	w.Write(buf[:n])
}
