// Package decoder is the playback task. It is the only user of the
// vs1053.Device and holds the bus lock around every call into it.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"jukebox/driver/vs1053"
	"jukebox/hal"
	"jukebox/kernel"
	"jukebox/proto"
	"jukebox/tracklist"
)

var errBadPayload = errors.New("bad payload")

// Config tunes playback.
type Config struct {
	// Segment is how many track bytes go to the chip between mailbox checks.
	Segment int
	// Volume is the attenuation applied at start-up.
	Volume uint8
	// VolumeStep is added to the attenuation by the Volume button. Passing
	// VolumeLimit wraps back to the loudest setting.
	VolumeStep  uint8
	VolumeLimit uint8
	// StatusEvery is the number of segments between status reports.
	StatusEvery int
	// Continuous moves on to the next track when one ends.
	Continuous bool
}

func (c *Config) setDefaults() {
	if c.Segment <= 0 {
		c.Segment = 512
	}
	if c.VolumeStep == 0 {
		c.VolumeStep = 8
	}
	if c.VolumeLimit == 0 {
		c.VolumeLimit = 0x48
	}
	if c.Volume == 0 {
		c.Volume = 0x20
	}
	if c.StatusEvery <= 0 {
		c.StatusEvery = 32
	}
}

// Task is the decoder task.
type Task struct {
	sys    *kernel.System
	dev    *vs1053.Device
	bus    sync.Locker
	tracks *tracklist.List
	led    hal.LED
	log    *slog.Logger
	cfg    Config

	state  proto.PlayerState
	track  int
	src    io.ReadCloser
	buf    []byte
	fed    int
	volume uint8
}

func New(sys *kernel.System, dev *vs1053.Device, bus sync.Locker, tracks *tracklist.List, led hal.LED, log *slog.Logger, cfg Config) *Task {
	cfg.setDefaults()
	return &Task{
		sys:    sys,
		dev:    dev,
		bus:    bus,
		tracks: tracks,
		led:    led,
		log:    log,
		cfg:    cfg,
		track:  -1,
		buf:    make([]byte, cfg.Segment),
		volume: cfg.Volume,
	}
}

// State returns the player state.
func (t *Task) State() proto.PlayerState { return t.state }

// Init brings the chip up and applies the start-up volume.
func (t *Task) Init() error {
	t.bus.Lock()
	defer t.bus.Unlock()
	if err := t.dev.Configure(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	if err := t.dev.SetVolume(t.volume, t.volume); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	return nil
}

// Run initializes the chip and serves the mailbox until ctx is done. While a
// track plays, pending mail is handled between segments.
func (t *Task) Run(ctx context.Context) error {
	if err := t.Init(); err != nil {
		t.log.Error("decoder: init failed", slog.String("err", err.Error()))
		return err
	}
	t.led.Low()
	for {
		t.sys.Beat(kernel.EPDecoder)
		if t.state == proto.StatePlaying {
			for {
				msg, ok := t.sys.TryRecv(kernel.EPDecoder)
				if !ok {
					break
				}
				t.Handle(msg)
			}
			if ctx.Err() != nil {
				t.logerr("stop", t.stop())
				return nil
			}
			if t.state == proto.StatePlaying {
				t.Step()
			}
			continue
		}

		msg, err := t.sys.RecvContext(ctx, kernel.EPDecoder)
		if err != nil {
			t.logerr("stop", t.stop())
			return nil
		}
		t.Handle(msg)
	}
}

// Handle processes one message.
func (t *Task) Handle(msg kernel.Message) {
	switch proto.Kind(msg.Kind) {
	case proto.MsgButton:
		if b, ok := proto.DecodeButtonPayload(msg.Payload()); ok {
			t.button(b)
		}
	case proto.MsgPlayTrack:
		idx, has, ok := proto.DecodePlayPayload(msg.Payload())
		if !ok || !has {
			return
		}
		t.logerr("play", t.play(int(idx)))
	case proto.MsgCommand:
		op, payload, ok := proto.DecodeCommandPayload(msg.Payload())
		if !ok {
			return
		}
		t.reply(op, t.command(op, payload))
	default:
		t.log.Warn("decoder: unexpected message", slog.String("kind", proto.Kind(msg.Kind).String()))
	}
}

func (t *Task) button(b proto.Button) {
	switch b {
	case proto.ButtonPlayPause:
		t.logerr("play/pause", t.toggle())
	case proto.ButtonStop:
		t.logerr("stop", t.stop())
	case proto.ButtonNext:
		t.logerr("next", t.next())
	case proto.ButtonVolume:
		v := t.volume + t.cfg.VolumeStep
		if v > t.cfg.VolumeLimit || v < t.volume {
			v = 0
		}
		t.logerr("volume", t.setVolume(v, v))
	}
}

func (t *Task) command(op proto.Opcode, payload []byte) error {
	switch op {
	case proto.OpPlay:
		idx, has, ok := proto.DecodePlayPayload(payload)
		switch {
		case !ok:
			return errBadPayload
		case has:
			return t.play(int(idx))
		case t.state == proto.StatePlaying:
			return nil
		default:
			return t.toggle()
		}
	case proto.OpStop:
		return t.stop()
	case proto.OpPause:
		if t.state == proto.StatePlaying {
			return t.toggle()
		}
		return nil
	case proto.OpNext:
		return t.next()
	case proto.OpVolume:
		l, r, ok := proto.DecodeVolumePayload(payload)
		if !ok {
			return errBadPayload
		}
		return t.setVolume(l, r)
	case proto.OpBass, proto.OpTreble:
		amp, freq, ok := proto.DecodeTonePayload(payload)
		if !ok {
			return errBadPayload
		}
		t.bus.Lock()
		defer t.bus.Unlock()
		if op == proto.OpBass {
			return t.dev.SetBassEnhancement(amp, freq)
		}
		return t.dev.SetTrebleControl(amp, freq)
	case proto.OpLowPower:
		on, ok := proto.DecodeLowPowerPayload(payload)
		if !ok {
			return errBadPayload
		}
		if on {
			if err := t.stop(); err != nil {
				return err
			}
		}
		t.bus.Lock()
		defer t.bus.Unlock()
		return t.dev.SetLowPowerMode(on)
	default:
		return errBadPayload
	}
}

func (t *Task) reply(op proto.Opcode, err error) {
	if err == nil {
		t.sendTX(proto.OpAck, proto.AckPayload(op, 0))
		return
	}
	code := proto.ErrInternal
	switch {
	case errors.Is(err, errBadPayload):
		code = proto.ErrBadMessage
	case errors.Is(err, tracklist.ErrNoTrack), errors.Is(err, hal.ErrNotFound):
		code = proto.ErrNotFound
	}
	t.log.Warn("decoder: command failed", slog.String("op", op.String()), slog.String("err", err.Error()))
	t.sendTX(proto.OpError, proto.ErrorPayload(code, op, []byte(err.Error())))
}

func (t *Task) toggle() error {
	switch t.state {
	case proto.StatePlaying:
		t.state = proto.StatePaused
		t.led.Low()
	case proto.StatePaused:
		t.state = proto.StatePlaying
		t.led.High()
	default:
		return t.play(t.tracks.Current())
	}
	t.publish()
	return nil
}

func (t *Task) next() error {
	i := t.tracks.Next()
	if i < 0 {
		return tracklist.ErrNoTrack
	}
	return t.play(i)
}

// play stops whatever plays and starts track i.
func (t *Task) play(i int) error {
	if err := t.stop(); err != nil {
		return err
	}
	if err := t.tracks.Select(i); err != nil {
		return err
	}
	src, err := t.tracks.Open(i)
	if err != nil {
		return err
	}

	t.bus.Lock()
	err = t.dev.SetLowPowerMode(false)
	if err == nil {
		err = t.dev.ResetDecodeTime()
	}
	if err == nil {
		err = t.dev.BeginPlayback()
	}
	t.bus.Unlock()
	if err != nil {
		_ = src.Close()
		return err
	}

	t.src = src
	t.track = i
	t.fed = 0
	t.state = proto.StatePlaying
	t.sys.Shared().SetTrack(i)
	t.led.High()
	t.log.Info("decoder: playing", slog.Int("track", i), slog.String("name", t.tracks.Name(i)))

	t.sys.TrySend(kernel.EPDecoder, kernel.EPLCD, uint8(proto.MsgNowPlaying), proto.NowPlayingPayload(uint16(i), t.tracks.Title(i)))
	t.publish()
	return nil
}

// stop cancels the stream in the chip and flushes it with end-fill bytes.
func (t *Task) stop() error {
	if t.state == proto.StateIdle {
		return nil
	}
	t.bus.Lock()
	err := t.dev.CancelDecoding()
	if perr := t.dev.EndPlayback(); err == nil {
		err = perr
	}
	t.bus.Unlock()
	t.release()
	return err
}

// Step feeds one segment of the current track.
func (t *Task) Step() {
	if t.state != proto.StatePlaying || t.src == nil {
		return
	}
	n, rerr := t.src.Read(t.buf)
	if n > 0 {
		t.bus.Lock()
		err := t.dev.Feed(t.buf[:n])
		t.bus.Unlock()
		if err != nil {
			t.logerr("feed", err)
			t.logerr("stop", t.stop())
			return
		}
		t.fed++
		if t.fed >= t.cfg.StatusEvery {
			t.fed = 0
			t.publish()
		}
	}
	switch {
	case rerr == nil:
	case errors.Is(rerr, io.EOF):
		t.finish()
	default:
		t.logerr("read", rerr)
		t.logerr("stop", t.stop())
	}
}

// finish ends a track that played to the end.
func (t *Task) finish() {
	t.bus.Lock()
	err := t.dev.EndPlayback()
	t.bus.Unlock()
	t.logerr("end", err)
	t.release()
	if t.cfg.Continuous {
		t.logerr("next", t.next())
	}
}

func (t *Task) release() {
	if t.src != nil {
		_ = t.src.Close()
		t.src = nil
	}
	t.state = proto.StateIdle
	t.track = -1
	t.sys.Shared().SetTrack(-1)
	t.led.Low()
	t.publish()
}

func (t *Task) setVolume(l, r uint8) error {
	t.bus.Lock()
	err := t.dev.SetVolume(l, r)
	t.bus.Unlock()
	if err != nil {
		return err
	}
	t.volume = l
	t.publish()
	return nil
}

// Status samples the chip and returns the player status.
func (t *Task) Status() proto.Status {
	s := proto.Status{State: t.state, Track: proto.NoTrack, Volume: t.volume}
	if t.state == proto.StateIdle {
		return s
	}
	s.Track = uint16(t.track)

	t.bus.Lock()
	defer t.bus.Unlock()
	if h, err := t.dev.UpdateHeader(); err == nil {
		s.BitRate = uint32(h.BitRate)
	}
	if rate, err := t.dev.SampleRate(); err == nil {
		s.SampleRate = rate
	}
	if sec, err := t.dev.DecodeTime(); err == nil {
		s.DecodeTime = sec
	}
	return s
}

// publish reports the status to the LCD and over the UART. Either may drop
// it when busy; the next report supersedes it.
func (t *Task) publish() {
	payload := proto.StatusPayload(t.Status())
	t.sys.TrySend(kernel.EPDecoder, kernel.EPLCD, uint8(proto.MsgStatus), payload)
	t.sendTX(proto.OpStatus, payload)
}

func (t *Task) sendTX(op proto.Opcode, payload []byte) {
	t.sys.TrySend(kernel.EPDecoder, kernel.EPTX, uint8(proto.MsgFrameOut), proto.FrameOutPayload(op, payload))
}

func (t *Task) logerr(op string, err error) {
	if err != nil {
		t.log.Error("decoder: "+op, slog.String("err", err.Error()))
	}
}
