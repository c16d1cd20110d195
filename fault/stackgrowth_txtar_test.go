package fault

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"vmcore/hw"
	"vmcore/mem"
)

// TestIsStackGrowthFromFixtures drives isStackGrowth from a shared
// txtar archive of scenarios rather than one Go literal per case,
// mirroring how the Go toolchain itself (golang.org/x/tools, a
// dependency this module already carries) stores multi-scenario
// command-line test fixtures as a single text archive.
func TestIsStackGrowthFromFixtures(t *testing.T) {
	data, err := os.ReadFile("../testdata/stack_growth.txtar")
	if err != nil {
		t.Fatalf("read fixture archive: %v", err)
	}
	ar := txtar.Parse(data)
	if len(ar.Files) == 0 {
		t.Fatalf("fixture archive has no cases")
	}

	for _, f := range ar.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			esp, fault, want := parseCase(t, string(f.Data))
			faultPage := hw.Upage(fault &^ (mem.PGSIZE - 1))
			got := isStackGrowth(faultPage, fault, esp)
			if got != want {
				t.Fatalf("isStackGrowth(esp=%#x, fault=%#x) = %v, want %v", esp, fault, got, want)
			}
		})
	}
}

func parseCase(t *testing.T, line string) (esp, fault uintptr, want bool) {
	t.Helper()
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	vals := map[string]string{}
	for _, f := range fields {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			t.Fatalf("malformed fixture field %q", f)
		}
		vals[kv[0]] = kv[1]
	}
	espN, err := strconv.ParseUint(strings.TrimPrefix(vals["esp"], "0x"), 16, 64)
	if err != nil {
		t.Fatalf("parse esp: %v", err)
	}
	faultN, err := strconv.ParseUint(strings.TrimPrefix(vals["fault"], "0x"), 16, 64)
	if err != nil {
		t.Fatalf("parse fault: %v", err)
	}
	wantB, err := strconv.ParseBool(vals["want"])
	if err != nil {
		t.Fatalf("parse want: %v", err)
	}
	return uintptr(espN), uintptr(faultN), wantB
}
