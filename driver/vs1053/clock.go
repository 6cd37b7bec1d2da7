package vs1053

import (
	"runtime"
	"time"
)

// Clock is the time source behind every wait the driver performs.
//
// Delay busy-waits and is used for microsecond settle times and DREQ
// polling; Sleep may hand the CPU to other tasks and is used for
// millisecond pauses.
type Clock interface {
	Now() time.Time
	Delay(d time.Duration)
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Delay(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
		runtime.Gosched()
	}
}

func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
