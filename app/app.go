// Package app wires the HAL, the decoder driver and the tasks together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jukebox/driver/vs1053"
	"jukebox/hal"
	"jukebox/internal/buildinfo"
	"jukebox/kernel"
	"jukebox/tasks/button"
	"jukebox/tasks/decoder"
	"jukebox/tasks/dma"
	"jukebox/tasks/lcd"
	"jukebox/tasks/uart"
	"jukebox/tasks/watchdog"
	"jukebox/tracklist"
)

// Config holds the player settings. Zero values select the defaults.
type Config struct {
	// TrackDir is the storage directory holding the MP3 files. Uploads land
	// there too.
	TrackDir string
	// Debounce is the per-button minimum gap between presses.
	Debounce time.Duration
	// WatchdogPeriod is the time between heartbeat checks.
	WatchdogPeriod time.Duration
	// LogLevel filters structured log records.
	LogLevel slog.Level
	// Decoder tunes the playback task.
	Decoder decoder.Config
}

// DefaultTrackDir is used when Config.TrackDir is empty.
const DefaultTrackDir = "music"

type system struct {
	sys    *kernel.System
	tracks *tracklist.List
	errs   chan error
}

// New starts the player with the default config. The returned step function
// reports the first fatal task error and never blocks.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig is New with an explicit config.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(context.Background(), h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.step
}

// Run starts the player and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func RunWithConfig(h hal.HAL, cfg Config) {
	step := NewWithConfig(h, cfg)
	for {
		if err := step(); err != nil {
			h.Logger().WriteLineString("jukebox: " + err.Error())
			h.LED().High()
			select {}
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (s *system) step() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

func newSystem(ctx context.Context, h hal.HAL, cfg Config) (*system, error) {
	if cfg.TrackDir == "" {
		cfg.TrackDir = DefaultTrackDir
	}
	log := hal.NewSlog(h.Logger(), cfg.LogLevel)
	h.Logger().WriteLineString("jukebox " + buildinfo.String())

	tracks, err := tracklist.Load(h.Storage(), cfg.TrackDir)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	log.Info("tracks loaded", slog.String("dir", cfg.TrackDir), slog.Int("count", tracks.Len()))

	s := &system{sys: kernel.NewSystem(), tracks: tracks, errs: make(chan error, 1)}
	sys := s.sys

	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for range ch {
					sys.Tick()
				}
			}()
		}
	}

	hd := h.Decoder()
	dev := vs1053.New(vs1053.Config{
		Bus:    hd.Bus(),
		Reset:  hd.Reset(),
		XCS:    hd.XCS(),
		XDCS:   hd.XDCS(),
		DREQ:   hd.DREQ(),
		Logger: log.With(slog.String("drv", "vs1053")),
	})

	var events <-chan hal.ButtonEvent
	if b := h.Buttons(); b != nil {
		events = b.Events()
	}

	store := dma.New(sys, h.Storage(), cfg.TrackDir, log)
	store.Stored = func(name string) {
		if err := tracks.Reload(); err != nil {
			log.Error("tracks reload", slog.String("err", err.Error()))
			return
		}
		log.Info("track added", slog.String("name", name), slog.Int("count", tracks.Len()))
	}

	play := decoder.New(sys, dev, hd.BusLock(), tracks, h.LED(), log, cfg.Decoder)
	screen := lcd.New(sys, h.Display(), tracks, log)
	buttons := button.New(sys, events, log, cfg.Debounce)
	tx := uart.NewTX(sys, h.Serial(), log)
	rx := uart.NewRX(sys, h.Serial(), log)
	dog := watchdog.New(sys, log, cfg.WatchdogPeriod)

	s.start(h, "decoder", func() error { return play.Run(ctx) })
	s.start(h, "lcd", func() error { screen.Run(ctx); return nil })
	s.start(h, "button", func() error { buttons.Run(ctx); return nil })
	s.start(h, "tx", func() error { tx.Run(ctx); return nil })
	s.start(h, "rx", func() error { rx.Run(ctx); return nil })
	s.start(h, "dma", func() error { store.Run(ctx); return nil })
	s.start(h, "watchdog", func() error { dog.Run(ctx); return nil })
	return s, nil
}

// start runs one task on its own goroutine. A task that fails or panics is
// reported through step.
func (s *system) start(h hal.HAL, name string, run func() error) {
	go func() {
		defer guard(h, name)
		if err := run(); err != nil {
			select {
			case s.errs <- fmt.Errorf("%s: %w", name, err):
			default:
			}
		}
	}()
}
