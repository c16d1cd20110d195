package fault

import "testing"

func TestExceptionInitRegistersKnownVectors(t *testing.T) {
	table := ExceptionInit()
	for _, vector := range []int{0, 1, 3, 4, 5, 6, 7, 11, 12, 13, 14, 16, 19} {
		if _, ok := table[vector]; !ok {
			t.Fatalf("expected vector %d registered", vector)
		}
	}
	if _, ok := table[2]; ok {
		t.Fatalf("vector 2 (NMI) is not one of exception_init's registrations")
	}
}

func TestExceptionInitReturnsACopy(t *testing.T) {
	table := ExceptionInit()
	delete(table, 14)
	if !UserInvocable(3) || VectorName(14) == "#?? Unknown Exception" {
		t.Fatalf("mutating the returned table must not affect the package's own vector table")
	}
}

func TestUserInvocableMatchesDPL(t *testing.T) {
	cases := []struct {
		vector int
		want   bool
	}{
		{3, true},
		{4, true},
		{5, true},
		{0, false},
		{14, false},
		{13, false},
		{99, false},
	}
	for _, c := range cases {
		if got := UserInvocable(c.vector); got != c.want {
			t.Fatalf("UserInvocable(%d) = %v, want %v", c.vector, got, c.want)
		}
	}
}

func TestVectorNameKnownAndUnknown(t *testing.T) {
	if got := VectorName(14); got != "#PF Page-Fault Exception" {
		t.Fatalf("VectorName(14) = %q, want the page-fault mnemonic", got)
	}
	if got := VectorName(250); got != "#?? Unknown Exception" {
		t.Fatalf("VectorName(250) = %q, want the unknown-vector fallback", got)
	}
}
