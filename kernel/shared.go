package kernel

import "sync/atomic"

// Shared is state read by several tasks without going through a mailbox.
//
// Writers own one field each: the LCD task sets the screen, the decoder task
// sets the track.
type Shared struct {
	screen atomic.Uint32
	track  atomic.Int32
	seq    atomic.Uint32
}

// SetScreen records the screen on display and bumps the sequence counter.
func (s *Shared) SetScreen(screen uint8) uint32 {
	s.screen.Store(uint32(screen))
	return s.seq.Add(1)
}

// Screen returns the screen on display.
func (s *Shared) Screen() uint8 {
	return uint8(s.screen.Load())
}

// SetTrack records the index of the track being played, or -1.
func (s *Shared) SetTrack(i int) uint32 {
	s.track.Store(int32(i))
	return s.seq.Add(1)
}

// Track returns the index of the track being played, or -1.
func (s *Shared) Track() int {
	return int(s.track.Load())
}

// Seq returns the number of updates so far.
func (s *Shared) Seq() uint32 {
	return s.seq.Load()
}
