// ============================================================================
// ZERO-ALLOC HELPER VALIDATION SUITE
// ============================================================================

package utils

import (
	"strconv"
	"testing"
)

func TestItoaMatchesStrconv(t *testing.T) {
	cases := []int{0, 1, -1, 9, 10, -10, 224, 4095, -99999, 1 << 40, -(1 << 40)}
	for _, v := range cases {
		if got, want := Itoa(v), strconv.Itoa(v); got != want {
			t.Fatalf("Itoa(%d)=%q, want %q", v, got, want)
		}
	}
}

func TestUtoaMatchesStrconv(t *testing.T) {
	cases := []uint64{0, 1, 9, 10, 1 << 31, 1<<64 - 1}
	for _, v := range cases {
		if got, want := Utoa(v), strconv.FormatUint(v, 10); got != want {
			t.Fatalf("Utoa(%d)=%q, want %q", v, got, want)
		}
	}
}

func TestB2sRoundTrip(t *testing.T) {
	if B2s(nil) != "" {
		t.Fatal("B2s(nil) not empty")
	}
	b := []byte("arrive/wait")
	if B2s(b) != "arrive/wait" {
		t.Fatal("B2s lost content")
	}
	if string(S2b("arrive/wait")) != "arrive/wait" {
		t.Fatal("S2b lost content")
	}
}

func TestMix64Avalanche(t *testing.T) {
	// Single-bit input changes must flip a healthy share of output bits.
	base := Mix64(0x0123456789abcdef)
	for bit := 0; bit < 64; bit++ {
		diff := base ^ Mix64(0x0123456789abcdef^(1<<bit))
		popcount := 0
		for d := diff; d != 0; d &= d - 1 {
			popcount++
		}
		if popcount < 8 {
			t.Fatalf("bit %d: only %d output bits changed", bit, popcount)
		}
	}
}
