package vs1053

// syncWord is HDAT1[15:5] for a locked MPEG stream.
const syncWord = 2047

// Header is a snapshot of the stream header the chip reports in HDAT0 and
// HDAT1. It goes stale as soon as the stream moves on; call UpdateHeader to
// refresh it.
type Header struct {
	SyncValid   bool
	ID          uint8
	Layer       uint8
	Protected   bool
	Pad         bool
	ChannelMode uint8

	// SampleRate is in Hz, zero when unknown.
	SampleRate int
	// BitRate is in bits per second, zero when free-format or invalid.
	BitRate int
}

// DecodeHeader derives a Header from raw HDAT0 and HDAT1 values.
func DecodeHeader(hdat0, hdat1 uint16) Header {
	h := Header{
		SyncValid:   hdat1>>5 == syncWord,
		ID:          uint8(hdat1>>3) & 0x3,
		Layer:       uint8(hdat1>>1) & 0x3,
		Protected:   hdat1&1 != 0,
		Pad:         hdat0&(1<<9) != 0,
		ChannelMode: uint8(hdat0>>6) & 0x3,
	}
	h.SampleRate = sampleRate(uint8(hdat0>>10)&0x3, h.Layer)
	h.BitRate = bitRate(uint8(hdat0>>12)&0xF, h.Layer, h.ID)
	return h
}

// sampleRate cascades from the matched index down to index 0, so the last
// case reached wins.
func sampleRate(idx, layer uint8) int {
	pick := func(l3, l2, other int) int {
		switch layer {
		case 3:
			return l3
		case 2:
			return l2
		}
		return other
	}

	var rate int
	switch idx {
	case 3:
	case 2:
		rate = pick(32000, 16000, 8000)
		fallthrough
	case 1:
		rate = pick(48000, 24000, 12000)
		fallthrough
	case 0:
		rate = pick(44100, 22050, 11025)
	}
	return rate
}

func bitRate(idx, layer, id uint8) int {
	if idx == 0 || idx == 0xF {
		return 0
	}

	var start, inc int
	switch layer {
	case 1:
		start, inc = 32, 8
		if id == 3 {
			inc = 32
		}
	case 2:
		start, inc = 8, 8
		if id == 3 {
			start, inc = 32, 16
		}
	case 3:
		start, inc = 8, 8
		if id == 3 {
			start = 32
		}
	}
	return (start + inc*(int(idx)-1)) * 1024
}

// UpdateHeader reads HDAT0 and HDAT1 and recomputes the header snapshot.
func (d *Device) UpdateHeader() (Header, error) {
	if err := d.Update(RegHDAT0); err != nil {
		return d.header, err
	}
	if err := d.Update(RegHDAT1); err != nil {
		return d.header, err
	}
	d.header = DecodeHeader(d.regs.Get(RegHDAT0), d.regs.Get(RegHDAT1))
	return d.header, nil
}

// Header returns the last snapshot taken by UpdateHeader.
func (d *Device) Header() Header { return d.header }

// BitRate refreshes the header and returns its bit rate.
func (d *Device) BitRate() (int, error) {
	h, err := d.UpdateHeader()
	return h.BitRate, err
}
