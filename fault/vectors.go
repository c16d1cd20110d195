// Package fault implements the page-fault handler and the exception
// vector table it is registered into (spec section 4.1 and 6). It is
// the busiest consumer of every other package here: spt for
// materialization, proc for the owning process, diag for counters and
// crash diagnostics.
//
// Grounded on Pintos's userprog/exception.c: exception_init's vector
// table (DPL split between user-invocable 3/4/5 and kernel-only
// everything else), kill's code-segment-selector dispatch, and
// page_fault's control flow, which this package's Handler.PageFault
// reproduces step for step.
package fault

// VectorInfo names one CPU interrupt vector and its privilege level.
type VectorInfo struct {
	Name string
	DPL  int // 0 = kernel-only, 3 = user-invocable
}

// vectorTable mirrors Pintos's exception_init registrations: vectors
// 0, 1, 3-7, 11-14, 16, 19. Vectors 3 (breakpoint), 4 (overflow), and
// 5 (bound range) are user-invocable; every other vector is
// kernel-only.
var vectorTable = map[int]VectorInfo{
	0:  {"#DE Divide Error", 0},
	1:  {"#DB Debug Exception", 0},
	3:  {"#BP Breakpoint Exception", 3},
	4:  {"#OF Overflow Exception", 3},
	5:  {"#BR Bound Range Exceeded Exception", 3},
	6:  {"#UD Invalid Opcode Exception", 0},
	7:  {"#NM Device Not Available Exception", 0},
	11: {"#NP Segment Not Present", 0},
	12: {"#SS Stack Fault Exception", 0},
	13: {"#GP General Protection Exception", 0},
	14: {"#PF Page-Fault Exception", 0},
	16: {"#MF x87 FPU Floating-Point Error", 0},
	19: {"#XF SIMD Floating-Point Exception", 0},
}

// ExceptionInit returns the registered vector table, keyed by vector
// number, matching spec section 6's exception_init interface.
func ExceptionInit() map[int]VectorInfo {
	out := make(map[int]VectorInfo, len(vectorTable))
	for k, v := range vectorTable {
		out[k] = v
	}
	return out
}

// VectorName returns the mnemonic name for vector, or
// "#?? Unknown Exception" if it is not one of the registered exception
// vectors.
func VectorName(vector int) string {
	if v, ok := vectorTable[vector]; ok {
		return v.Name
	}
	return "#?? Unknown Exception"
}

// UserInvocable reports whether vector may be raised directly by user
// code (DPL 3), as opposed to being kernel-only (DPL 0).
func UserInvocable(vector int) bool {
	v, ok := vectorTable[vector]
	return ok && v.DPL == 3
}
