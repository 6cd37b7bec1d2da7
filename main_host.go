//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"jukebox/app"
	"jukebox/hal"
)

func main() {
	var cfg hal.HeadlessConfig
	var appCfg app.Config
	var autoplay bool
	var debug bool
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&cfg.Host.Root, "tracks", "", "Directory standing in for the SD card (empty = in memory).")
	flag.StringVar(&appCfg.TrackDir, "dir", app.DefaultTrackDir, "Track directory inside the card.")
	flag.BoolVar(&autoplay, "autoplay", false, "Press play on the first track at startup.")
	flag.BoolVar(&debug, "debug", false, "Log driver traffic.")
	flag.Parse()

	if debug {
		appCfg.LogLevel = slog.LevelDebug
	}

	newApp := func(h hal.HAL) func() error {
		step := app.NewWithConfig(h, appCfg)
		if autoplay {
			hal.Press(h, 0)
		}
		return step
	}

	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, cfg, newApp); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(cfg.Host, newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
