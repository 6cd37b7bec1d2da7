// Package tracklist is the playlist: the MP3 files of one storage directory,
// in name order, with a cursor that wraps at both ends.
package tracklist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"jukebox/hal"
)

// ErrNoTrack is returned for an index outside the list.
var ErrNoTrack = errors.New("no such track")

// Ext is the file extension of playable tracks, compared without case.
const Ext = ".mp3"

// List is safe for concurrent use. The decoder task moves the cursor and
// the LCD task reads names.
type List struct {
	st  hal.Storage
	dir string

	mu    sync.RWMutex
	names []string
	cur   int
}

// Load lists dir on st. A missing directory yields an empty list.
func Load(st hal.Storage, dir string) (*List, error) {
	l := &List{st: st, dir: dir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload lists the directory again. The cursor is kept on the same name when
// it still exists and reset to the first track otherwise.
func (l *List) Reload() error {
	entries, err := l.st.List(l.dir)
	if err != nil && !errors.Is(err, hal.ErrNotFound) {
		return fmt.Errorf("tracklist: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !strings.EqualFold(path.Ext(e.Name), Ext) {
			continue
		}
		names = append(names, e.Name)
	}
	sort.Strings(names)

	l.mu.Lock()
	defer l.mu.Unlock()
	prev := ""
	if l.cur < len(l.names) {
		prev = l.names[l.cur]
	}
	l.names = names
	l.cur = 0
	if i := sort.SearchStrings(names, prev); prev != "" && i < len(names) && names[i] == prev {
		l.cur = i
	}
	return nil
}

// Len returns the number of tracks.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// Name returns the file name of track i, or "" when out of range.
func (l *List) Name(i int) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.names) {
		return ""
	}
	return l.names[i]
}

// Title is the file name without its extension.
func (l *List) Title(i int) string {
	name := l.Name(i)
	return strings.TrimSuffix(name, path.Ext(name))
}

// Names returns a copy of the track names.
func (l *List) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.names...)
}

// Current returns the cursor, or -1 for an empty list.
func (l *List) Current() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.names) == 0 {
		return -1
	}
	return l.cur
}

// Select moves the cursor to i.
func (l *List) Select(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.names) {
		return fmt.Errorf("tracklist: select %d of %d: %w", i, len(l.names), ErrNoTrack)
	}
	l.cur = i
	return nil
}

// Next advances the cursor, wrapping to the first track, and returns it.
func (l *List) Next() int { return l.step(1) }

// Prev moves the cursor back, wrapping to the last track, and returns it.
func (l *List) Prev() int { return l.step(-1) }

func (l *List) step(delta int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.names)
	if n == 0 {
		return -1
	}
	l.cur = ((l.cur+delta)%n + n) % n
	return l.cur
}

// Open returns track i positioned at its first audio byte.
func (l *List) Open(i int) (io.ReadCloser, error) {
	name := l.Name(i)
	if name == "" {
		return nil, fmt.Errorf("tracklist: open %d: %w", i, ErrNoTrack)
	}
	f, err := l.st.Open(path.Join(l.dir, name))
	if err != nil {
		return nil, fmt.Errorf("tracklist: open %s: %w", name, err)
	}
	r, err := SkipID3(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("tracklist: %s: %w", name, err)
	}
	return readCloser{Reader: r, Closer: f}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

const id3HeaderLen = 10

// SkipID3 consumes a leading ID3v2 tag, if any. The tag size is the 28-bit
// sync-safe integer at offset 6, plus a 10-byte footer when flag bit 4 is
// set. Bytes read while looking for a tag are handed back when there is none.
func SkipID3(r io.Reader) (io.Reader, error) {
	var hdr [id3HeaderLen]byte
	n, err := io.ReadFull(r, hdr[:])
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return bytes.NewReader(hdr[:n]), nil
	case err != nil:
		return nil, err
	}
	size, ok := id3Size(hdr)
	if !ok {
		return io.MultiReader(bytes.NewReader(hdr[:]), r), nil
	}
	if _, err := io.CopyN(io.Discard, r, size); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("skip id3 tag: %w", err)
	}
	return r, nil
}

func id3Size(hdr [id3HeaderLen]byte) (int64, bool) {
	if string(hdr[:3]) != "ID3" || hdr[3] == 0xFF || hdr[4] == 0xFF {
		return 0, false
	}
	var size int64
	for _, b := range hdr[6:10] {
		if b&0x80 != 0 {
			return 0, false
		}
		size = size<<7 | int64(b)
	}
	if hdr[5]&0x10 != 0 {
		size += id3HeaderLen
	}
	return size, true
}
