//go:build tinygo && baremetal && picocalc

package hal

import (
	"errors"
	"machine"
	"time"
)

const (
	lcdWidth  = 320
	lcdHeight = 320
)

// ili9488 is the PicoCalc panel on SPI1. It is not shared with the decoder.
type ili9488 struct {
	spi *machine.SPI
	cs  machine.Pin
	dc  machine.Pin
	rst machine.Pin

	swap []byte
}

func openILI9488() (*ili9488, error) {
	if machine.SPI1 == nil {
		return nil, errors.New("lcd: SPI1 unavailable")
	}
	if err := machine.SPI1.Configure(machine.SPIConfig{
		SCK:       machine.GP10,
		SDO:       machine.GP11,
		SDI:       machine.GP12,
		Frequency: 40_000_000,
	}); err != nil {
		return nil, err
	}

	p := &ili9488{
		spi:  machine.SPI1,
		cs:   machine.GP13,
		dc:   machine.GP14,
		rst:  machine.GP15,
		swap: make([]byte, lcdWidth*2*4),
	}
	for _, pin := range []machine.Pin{p.cs, p.dc, p.rst} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.High()
	}

	p.rst.Low()
	time.Sleep(64 * time.Millisecond)
	p.rst.High()
	time.Sleep(140 * time.Millisecond)

	p.command(0xC0, 0x17, 0x15)             // PWCTRL1
	p.command(0xC1, 0x41)                   // PWCTRL2
	p.command(0xC5, 0x00, 0x12, 0x80, 0x40) // VMCTRL
	p.command(0x3A, 0x55)                   // COLMOD 16bpp
	p.command(0xB1, 0xA0, 0x11)             // FRMCTRL1
	p.command(0xB6, 0x02, 0x22, 0x27)       // DISCTRL, 320 lines
	p.command(0x21)                         // INVON
	p.command(0x36, 0x40|0x04|0x08)         // MX|MH|BGR
	p.command(0x11)                         // SLPOUT
	time.Sleep(120 * time.Millisecond)
	p.command(0x29) // DISPON
	return p, nil
}

func (p *ili9488) command(op byte, args ...byte) {
	p.cs.Low()
	p.dc.Low()
	p.spi.Tx([]byte{op}, nil)
	p.dc.High()
	if len(args) > 0 {
		p.spi.Tx(args, nil)
	}
	p.cs.High()
}

func (p *ili9488) window(y0, y1 int) {
	p.command(0x2A, 0, 0, byte((lcdWidth-1)>>8), byte(lcdWidth-1))
	p.command(0x2B, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
	p.command(0x2C)
}

// writeRows sends rows [y0,y1] of a little-endian RGB565 buffer. The panel
// wants big-endian pixels.
func (p *ili9488) writeRows(buf []byte, y0, y1 int) error {
	const stride = lcdWidth * 2
	if y0 < 0 || y1 >= lcdHeight || y0 > y1 || len(buf) < (y1+1)*stride {
		return errors.New("lcd: bad region")
	}
	p.window(y0, y1)

	p.cs.Low()
	p.dc.High()
	src := buf[y0*stride : (y1+1)*stride]
	for len(src) > 0 {
		n := min(len(src), len(p.swap))
		for i := 0; i < n; i += 2 {
			p.swap[i] = src[i+1]
			p.swap[i+1] = src[i]
		}
		p.spi.Tx(p.swap[:n], nil)
		src = src[n:]
	}
	p.cs.High()
	return nil
}

// lcdFramebuffer is a 320x320 RGB565 buffer. Present only sends the band of
// rows that changed since the previous Present.
type lcdFramebuffer struct {
	buf    []byte
	digest []uint32
	sent   bool
	panel  *ili9488
}

func newLCDFramebuffer(panel *ili9488) *lcdFramebuffer {
	return &lcdFramebuffer{
		buf:    make([]byte, lcdWidth*lcdHeight*2),
		digest: make([]uint32, lcdHeight),
		panel:  panel,
	}
}

func (f *lcdFramebuffer) Width() int          { return lcdWidth }
func (f *lcdFramebuffer) Height() int         { return lcdHeight }
func (f *lcdFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *lcdFramebuffer) StrideBytes() int    { return lcdWidth * 2 }
func (f *lcdFramebuffer) Buffer() []byte      { return f.buf }

func (f *lcdFramebuffer) ClearRGB(r, g, b uint8) {
	px := rgb565(r, g, b)
	lo, hi := byte(px), byte(px>>8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *lcdFramebuffer) Present() error {
	if f.panel == nil {
		return ErrNotImplemented
	}
	const stride = lcdWidth * 2
	first, last := -1, -1
	for y := range lcdHeight {
		d := rowDigest(f.buf[y*stride : (y+1)*stride])
		if f.sent && d == f.digest[y] {
			continue
		}
		f.digest[y] = d
		if first < 0 {
			first = y
		}
		last = y
	}
	f.sent = true
	if first < 0 {
		return nil
	}
	return f.panel.writeRows(f.buf, first, last)
}

// rowDigest is 32-bit FNV-1a.
func rowDigest(row []byte) uint32 {
	h := uint32(2166136261)
	for _, v := range row {
		h ^= uint32(v)
		h *= 16777619
	}
	return h
}
