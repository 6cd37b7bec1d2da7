package tracklist

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"jukebox/hal"
)

func newTestList(t *testing.T, files map[string]string) *List {
	t.Helper()
	st := hal.NewMemStorage()
	for name, body := range files {
		st.Put("tracks/"+name, []byte(body))
	}
	l, err := Load(st, "tracks")
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	return l
}

func TestLoadFiltersAndSorts(t *testing.T) {
	l := newTestList(t, map[string]string{
		"b.mp3":       "b",
		"a.MP3":       "a",
		"notes.txt":   "x",
		"c.mp3/x.mp3": "nested",
	})

	got := l.Names()
	want := []string{"a.MP3", "b.mp3"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := l.Title(0); got != "a" {
		t.Fatalf("Title(0) = %q, want %q", got, "a")
	}
	if got := l.Name(5); got != "" {
		t.Fatalf("Name(5) = %q, want empty", got)
	}
}

func TestMissingDirectoryIsEmpty(t *testing.T) {
	l, err := Load(hal.NewMemStorage(), "nowhere")
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if l.Len() != 0 || l.Current() != -1 || l.Next() != -1 {
		t.Fatalf("empty list: Len=%d Current=%d", l.Len(), l.Current())
	}
}

func TestCursorWraps(t *testing.T) {
	l := newTestList(t, map[string]string{"1.mp3": "", "2.mp3": "", "3.mp3": ""})

	if got := l.Prev(); got != 2 {
		t.Fatalf("Prev() from 0 = %d, want 2", got)
	}
	if got := l.Next(); got != 0 {
		t.Fatalf("Next() from 2 = %d, want 0", got)
	}
	if err := l.Select(3); !errors.Is(err, ErrNoTrack) {
		t.Fatalf("Select(3) err = %v, want ErrNoTrack", err)
	}
	if err := l.Select(1); err != nil || l.Current() != 1 {
		t.Fatalf("Select(1) err = %v, Current() = %d", err, l.Current())
	}
}

func TestReloadKeepsCursor(t *testing.T) {
	st := hal.NewMemStorage()
	st.Put("t/b.mp3", nil)
	st.Put("t/c.mp3", nil)
	l, err := Load(st, "t")
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	l.Next() // c.mp3

	st.Put("t/a.mp3", nil)
	if err := l.Reload(); err != nil {
		t.Fatalf("Reload() err = %v", err)
	}
	if got := l.Name(l.Current()); got != "c.mp3" {
		t.Fatalf("cursor on %q after reload, want c.mp3", got)
	}
}

func TestOpenSkipsID3(t *testing.T) {
	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0x01, 0x02}
	body := make([]byte, 0x82)
	audio := []byte{0xFF, 0xFB, 0x90, 0x64}
	track := append(append(tag, body...), audio...)

	l := newTestList(t, map[string]string{"x.mp3": string(track)})
	r, err := l.Open(0)
	if err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	defer r.Close()

	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, audio) {
		t.Fatalf("Open() content = % x, want % x", got, audio)
	}
}

func TestSkipID3(t *testing.T) {
	footer := []byte{'I', 'D', '3', 4, 0, 0x10, 0, 0, 0, 2}
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"no tag", []byte("\xFF\xFB\x90\x64abcdefgh"), []byte("\xFF\xFB\x90\x64abcdefgh")},
		{"short", []byte("ID3"), []byte("ID3")},
		{"footer", append(append(footer, make([]byte, 12)...), 'z'), []byte("z")},
		{"bad size byte", []byte{'I', 'D', '3', 4, 0, 0, 0x80, 0, 0, 0, 'q'}, []byte{'I', 'D', '3', 4, 0, 0, 0x80, 0, 0, 0, 'q'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := SkipID3(bytes.NewReader(tt.in))
			if err != nil {
				t.Fatalf("SkipID3() err = %v", err)
			}
			got, _ := io.ReadAll(r)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("SkipID3() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenOutOfRange(t *testing.T) {
	l := newTestList(t, nil)
	if _, err := l.Open(0); !errors.Is(err, ErrNoTrack) {
		t.Fatalf("Open(0) err = %v, want ErrNoTrack", err)
	}
}
