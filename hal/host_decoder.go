//go:build !tinygo

package hal

import (
	"sync"
	"time"

	"jukebox/driver/vs1053/vs1053sim"

	"tinygo.org/x/drivers"
)

// Simulated chip timing: SM_RESET takes about as long as on the real part
// and playback drains at 128 kbit/s.
const (
	simSoftReset = 200 * time.Microsecond
	simThrottle  = 16000
)

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type hostDecoder struct {
	mu   sync.Mutex
	chip *vs1053sim.Chip
}

func newHostDecoder() *hostDecoder {
	chip := vs1053sim.New(wallClock{})
	chip.SoftResetDelay = simSoftReset
	chip.Throttle = simThrottle
	return &hostDecoder{chip: chip}
}

func (d *hostDecoder) Bus() drivers.SPI     { return d.chip }
func (d *hostDecoder) Reset() Pin           { return d.chip.Reset() }
func (d *hostDecoder) XCS() Pin             { return d.chip.XCS() }
func (d *hostDecoder) XDCS() Pin            { return d.chip.XDCS() }
func (d *hostDecoder) DREQ() Pin            { return d.chip.DREQ() }
func (d *hostDecoder) BusLock() sync.Locker { return &d.mu }
