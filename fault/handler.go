package fault

import (
	"io"

	"vmcore/diag"
	"vmcore/errno"
	"vmcore/hw"
	"vmcore/mem"
	"vmcore/proc"
	"vmcore/util"
)

// PhysBase is the virtual address at which kernel-reserved space
// begins — the top of each user address space, per the glossary.
const PhysBase = 0xC0000000

// SysBadAddr is the sentinel value the kernel-mode trampoline returns
// to a safe user-pointer probe, per spec section 6.
const SysBadAddr = 0xFFFFFFFF

// ErrCode carries the three bits the CPU attaches to a page-fault
// trap: not-present, write, and user-mode, matching the hardware
// encoding Pintos passes straight through.
type ErrCode uint32

const (
	errPresent ErrCode = 1 << 0
	errWrite   ErrCode = 1 << 1
	errUser    ErrCode = 1 << 2
)

// NotPresent reports whether the fault was caused by accessing a page
// with no mapping installed at all, as opposed to a present page whose
// protection was violated.
func (e ErrCode) NotPresent() bool { return e&errPresent == 0 }

// Write reports whether the faulting access was a write.
func (e ErrCode) Write() bool { return e&errWrite != 0 }

// User reports whether the fault occurred in user mode.
func (e ErrCode) User() bool { return e&errUser != 0 }

// MakeErrCode builds an ErrCode from its three components, for tests
// and for callers translating from a different trap-frame encoding.
func MakeErrCode(notPresent, write, user bool) ErrCode {
	var e ErrCode
	if !notPresent {
		e |= errPresent
	}
	if write {
		e |= errWrite
	}
	if user {
		e |= errUser
	}
	return e
}

// TrapFrame is the register snapshot the interrupt dispatcher hands
// the fault handler. EIP and EAX are mutated in place by the
// kernel-mode trampoline (spec section 4.1 step 6); UserESP is only
// meaningful when ErrCode.User() is true.
type TrapFrame struct {
	FaultAddr uintptr
	ErrCode   ErrCode
	EIP       uintptr
	EAX       uintptr
	UserESP   uintptr
	// InstrBytes, when present, are the bytes at EIP, used only to
	// enrich the crash diagnostic with a decoded mnemonic.
	InstrBytes []byte
}

// Outcome is what the caller (the interrupt dispatcher) should do
// after Handler.PageFault returns.
type Outcome int

const (
	// Retry means the mapping was installed; re-execute the faulting
	// instruction.
	Retry Outcome = iota
	// Terminate means the owning process was killed with exit status -1.
	Terminate
	// KernelTrampoline means the trap frame was rewritten to return
	// SysBadAddr to the probe routine that caused the fault; resume
	// kernel execution at the rewritten EIP.
	KernelTrampoline
)

// Handler services page faults (vector 14) and dispatches every other
// registered exception vector.
type Handler struct {
	counters *diag.Counters
	diagOut  io.Writer
}

// NewHandler constructs a Handler that counts faults in counters and
// writes crash diagnostics to diagOut.
func NewHandler(counters *diag.Counters, diagOut io.Writer) *Handler {
	return &Handler{counters: counters, diagOut: diagOut}
}

// PageFault implements spec section 4.1's algorithm. interrupts are
// modeled as already re-enabled by the time this is called — step 1's
// "read the fault address, then re-enable interrupts" is the
// interrupt dispatcher's job, not this core's.
func (h *Handler) PageFault(p *proc.Process, tf *TrapFrame) Outcome {
	faultPage := hw.Upage(util.Rounddown(uint64(tf.FaultAddr), mem.PGSIZE))
	h.counters.IncPageFault()

	esp := tf.UserESP
	if !tf.ErrCode.User() {
		esp = p.SavedESP()
	}

	if tf.ErrCode.NotPresent() {
		if _, ok := p.SPT.Lookup(faultPage); !ok && isStackGrowth(faultPage, tf.FaultAddr, esp) {
			// GrowStack enforces the 8 MiB budget (spec section 6); a
			// page is registered only if the process has room left to
			// grow into. A false result leaves no entry for upage, so
			// the Load below fails and the fault falls through to the
			// ordinary termination path, exactly as a stack overflow
			// should.
			if p.GrowStack() {
				p.SPT.MakeZero(faultPage, true)
			}
		}
		if errc := p.SPT.Load(faultPage); errc == errno.OK {
			return Retry
		}
	}

	if !tf.ErrCode.User() {
		// Kernel-mode bad-address trampoline (spec section 4.1 step 6):
		// the probe routine stashed its return address in EAX.
		tf.EIP = tf.EAX
		tf.EAX = SysBadAddr
		return KernelTrampoline
	}

	if h.diagOut != nil {
		diag.Crash(h.diagOut, p.ID, 14, VectorName(14), tf.FaultAddr, tf.InstrBytes)
	}
	p.Kill(-1)
	return Terminate
}

// isStackGrowth implements spec section 4.1 step 4: fault_page must
// lie within the 8 MiB stack window below PhysBase, and the faulting
// address must be within 32 bytes below esp (accommodating PUSH/PUSHA,
// which check access before decrementing esp).
func isStackGrowth(faultPage hw.Upage, faultAddr, esp uintptr) bool {
	lower := uintptr(PhysBase - proc.StackLimitBytes)
	if uintptr(faultPage) < lower || uintptr(faultPage) >= PhysBase {
		return false
	}
	if faultAddr > esp {
		return false
	}
	return esp-faultAddr <= 32
}

// Segment classifies the code segment selector in a non-page-fault
// trap frame, per spec section 4.1's "fault origin dispatch".
type Segment int

const (
	SegUser Segment = iota
	SegKernel
	SegUnknown
)

// Dispatch services a non-page-fault exception vector, per spec
// section 4.1: user-segment faults kill the process, kernel-segment
// faults panic (a kernel bug), unknown segments kill the process.
func (h *Handler) Dispatch(p *proc.Process, vector int, seg Segment) Outcome {
	switch seg {
	case SegKernel:
		panic("fault: kernel-mode exception " + VectorName(vector))
	default:
		if h.diagOut != nil {
			diag.Crash(h.diagOut, p.ID, vector, VectorName(vector), 0, nil)
		}
		p.Kill(-1)
		return Terminate
	}
}
