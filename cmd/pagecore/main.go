// Command pagecore is a small boot/demo harness that wires the frame
// table, supplemental page table, swap store, and fault handler
// together and drives a few of the concrete scenarios spec section 8
// describes: a lazy executable load, stack growth via PUSH (which, with
// the default single frame, evicts the executable page), and a
// kernel-mode bad-pointer probe; it then routes an unhandled user-mode
// breakpoint through Dispatch. The wild out-of-window write scenario is
// not driven here.
//
// It plays the same role in this repository that the teacher's own
// biscuit/src/kernel/chentry.go plays in theirs: a small, single-
// purpose main package that exercises the library code end to end
// rather than being a production entry point in its own right.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"vmcore/diag"
	"vmcore/fault"
	"vmcore/frame"
	"vmcore/mem"
	"vmcore/proc"
	"vmcore/quota"
	"vmcore/swap"
)

type fileSource struct{ data []byte }

func (f *fileSource) ReadAt(buf []byte, offset int64) (int, error) {
	return copy(buf, f.data[offset:]), nil
}

func main() {
	frames := flag.Int("frames", 1, "number of physical user frames in the pool")
	slots := flag.Int("slots", 4, "number of swap slots")
	flag.Parse()

	pool := mem.NewPool(*frames)
	swapFile, err := os.CreateTemp("", "pagecore-swap")
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagecore: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(swapFile.Name())
	defer swapFile.Close()
	if err := swapFile.Truncate(int64(*slots) * mem.PGSIZE); err != nil {
		fmt.Fprintf(os.Stderr, "pagecore: %v\n", err)
		os.Exit(1)
	}
	var counters diag.Counters
	store := swap.NewStore(int(swapFile.Fd()), *slots, &counters)
	ft := frame.NewTable(pool, store, &counters)
	io := quota.NewGovernor(4)

	handler := fault.NewHandler(&counters, os.Stdout)

	fmt.Println("== registered exception vectors ==")
	for vector, info := range fault.ExceptionInit() {
		fmt.Printf("vector %2d: %-40s user-invocable=%v\n", vector, info.Name, fault.UserInvocable(vector))
	}

	p := proc.New(1, ft, pool, store, io)

	fmt.Println("== lazy executable load ==")
	exe := &fileSource{data: bytes.Repeat([]byte{0x90}, mem.PGSIZE)}
	p.SPT.MakeFile(0x08048000, false, exe, 0, mem.PGSIZE)
	outcome := handler.PageFault(p, &fault.TrapFrame{
		FaultAddr: 0x08048000,
		ErrCode:   fault.MakeErrCode(true, false, true),
		UserESP:   0xBFFFFFFC,
	})
	fmt.Printf("outcome: %v\n", outcomeName(outcome))

	fmt.Println("== stack growth via PUSH ==")
	outcome = handler.PageFault(p, &fault.TrapFrame{
		FaultAddr: 0xBFFFFFF8,
		ErrCode:   fault.MakeErrCode(true, true, true),
		UserESP:   0xBFFFFFFC,
	})
	fmt.Printf("outcome: %v\n", outcomeName(outcome))

	fmt.Println("== kernel probe of a bad user pointer ==")
	probe := proc.New(2, ft, pool, store, io)
	tf := &fault.TrapFrame{
		FaultAddr: 0x00000000,
		ErrCode:   fault.MakeErrCode(true, false, false),
		EAX:       0xDEADBEEF,
	}
	outcome = handler.PageFault(probe, tf)
	fmt.Printf("outcome: %v, eip=%#x eax=%#x\n", outcomeName(outcome), tf.EIP, tf.EAX)

	fmt.Println("== unhandled user-mode exception (breakpoint) ==")
	trapper := proc.New(3, ft, pool, store, io)
	outcome = handler.Dispatch(trapper, 3, fault.SegUser)
	fmt.Printf("outcome: %v\n", outcomeName(outcome))

	fmt.Println("== counters ==")
	diag.PrintCounters(os.Stdout, &counters)
}

func outcomeName(o fault.Outcome) string {
	switch o {
	case fault.Retry:
		return "retry"
	case fault.Terminate:
		return "terminate"
	case fault.KernelTrampoline:
		return "kernel-trampoline"
	default:
		return "unknown"
	}
}
