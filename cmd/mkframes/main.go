//go:build !tinygo

// Command mkframes writes UART frame streams for the player: file uploads
// as DMA begin/data/end sequences, and single control commands.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jukebox/proto"
)

const defaultChunk = proto.MaxPayload

func main() {
	var (
		outPath  string
		chunk    int
		play     int
		stop     bool
		pause    bool
		next     bool
		volume   string
		bass     string
		treble   string
		lowPower string
	)
	flag.StringVar(&outPath, "out", "-", "Output path (- for stdout).")
	flag.IntVar(&chunk, "chunk", defaultChunk, "DMA data bytes per frame.")
	flag.IntVar(&play, "play", -1, "Emit a play command for track N (-2 for resume).")
	flag.BoolVar(&stop, "stop", false, "Emit a stop command.")
	flag.BoolVar(&pause, "pause", false, "Emit a pause command.")
	flag.BoolVar(&next, "next", false, "Emit a next-track command.")
	flag.StringVar(&volume, "volume", "", "Emit a volume command: L,R attenuation in -0.5 dB steps.")
	flag.StringVar(&bass, "bass", "", "Emit a bass command: AMP,LIMIT.")
	flag.StringVar(&treble, "treble", "", "Emit a treble command: AMP,LIMIT.")
	flag.StringVar(&lowPower, "lowpower", "", "Emit a low-power command: on|off.")
	flag.Parse()

	if err := run(outPath, chunk, flag.Args(), func(w io.Writer) error {
		if play >= 0 || play == -2 {
			var payload []byte
			if play >= 0 {
				payload = proto.PlayPayload(uint16(play))
			}
			if err := writeFrame(w, proto.OpPlay, payload); err != nil {
				return err
			}
		}
		if stop {
			if err := writeFrame(w, proto.OpStop, nil); err != nil {
				return err
			}
		}
		if pause {
			if err := writeFrame(w, proto.OpPause, nil); err != nil {
				return err
			}
		}
		if next {
			if err := writeFrame(w, proto.OpNext, nil); err != nil {
				return err
			}
		}
		if volume != "" {
			l, r, err := parsePair(volume)
			if err != nil {
				return fmt.Errorf("volume: %w", err)
			}
			if err := writeFrame(w, proto.OpVolume, proto.VolumePayload(l, r)); err != nil {
				return err
			}
		}
		for _, tone := range []struct {
			op  proto.Opcode
			arg string
		}{{proto.OpBass, bass}, {proto.OpTreble, treble}} {
			if tone.arg == "" {
				continue
			}
			a, f, err := parsePair(tone.arg)
			if err != nil {
				return fmt.Errorf("%s: %w", tone.op, err)
			}
			if err := writeFrame(w, tone.op, proto.TonePayload(a, f)); err != nil {
				return err
			}
		}
		if lowPower != "" {
			on, err := parseOnOff(lowPower)
			if err != nil {
				return err
			}
			if err := writeFrame(w, proto.OpLowPower, proto.LowPowerPayload(on)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, "mkframes:", err)
		os.Exit(1)
	}
}

func run(outPath string, chunk int, files []string, commands func(io.Writer) error) (err error) {
	if chunk <= 0 || chunk > proto.MaxPayload {
		return fmt.Errorf("chunk %d out of range 1..%d", chunk, proto.MaxPayload)
	}

	var w io.Writer = os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %q: %w", outPath, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	for _, path := range files {
		if err := uploadFile(w, path, chunk); err != nil {
			return err
		}
	}
	return commands(w)
}

func uploadFile(w io.Writer, path string, chunk int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%q: not a regular file", path)
	}
	if st.Size() > int64(^uint32(0)) {
		return fmt.Errorf("%q: too large", path)
	}
	return writeUpload(w, filepath.Base(path), f, uint32(st.Size()), chunk)
}

// writeUpload emits the DMA frames that store size bytes of r as name.
func writeUpload(w io.Writer, name string, r io.Reader, size uint32, chunk int) error {
	if len(name)+4 > proto.MaxPayload {
		return fmt.Errorf("name %q too long", name)
	}
	if err := writeFrame(w, proto.OpDMABegin, proto.DMABeginPayload(size, name)); err != nil {
		return err
	}

	buf := make([]byte, chunk)
	var sent uint32
	for sent < size {
		n, err := io.ReadFull(r, buf[:min(uint32(chunk), size-sent)])
		if n > 0 {
			if werr := writeFrame(w, proto.OpDMAData, buf[:n]); werr != nil {
				return werr
			}
			sent += uint32(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%s: short read at %d of %d", name, sent, size)
			}
			return fmt.Errorf("read %s: %w", name, err)
		}
	}
	return writeFrame(w, proto.OpDMAEnd, nil)
}

func writeFrame(w io.Writer, op proto.Opcode, payload []byte) error {
	if _, err := w.Write(proto.EncodeFrame(op, payload)); err != nil {
		return fmt.Errorf("write %s frame: %w", op, err)
	}
	return nil
}

func parsePair(s string) (uint8, uint8, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%q: want two comma separated values", s)
	}
	x, err := strconv.ParseUint(strings.TrimSpace(a), 0, 8)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseUint(strings.TrimSpace(b), 0, 8)
	if err != nil {
		return 0, 0, err
	}
	return uint8(x), uint8(y), nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("lowpower: %q is not on or off", s)
}
