//go:build !tinygo

package hal

import (
	"testing"
	"time"
)

func TestHostTimeAdvance(t *testing.T) {
	now := time.Unix(0, 0)
	ht := newHostTime()
	ht.now = func() time.Time { return now }

	ht.advance()
	now = now.Add(2500 * time.Microsecond)
	ht.advance()
	now = now.Add(600 * time.Microsecond)
	ht.advance()

	var got []uint64
	for len(ht.Ticks()) > 0 {
		got = append(got, <-ht.Ticks())
	}
	// 1 on start, 2 for the first 2.5 ms, 1 once the 0.5 ms remainder
	// tops up.
	if len(got) != 4 || got[3] != 4 {
		t.Fatalf("ticks = %v, want [1 2 3 4]", got)
	}
}
