package hal

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemStorage is Storage held in memory. Directories exist implicitly while
// they contain a file.
type MemStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{files: make(map[string][]byte)}
}

func memPath(p string) string { return path.Clean("/" + p) }

// Put stores data at p, replacing any previous content.
func (s *MemStorage) Put(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[memPath(p)] = append([]byte(nil), data...)
}

// Get returns a copy of the content at p.
func (s *MemStorage) Get(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[memPath(p)]
	return append([]byte(nil), b...), ok
}

func (s *MemStorage) List(dir string) ([]FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := memPath(dir)
	if prefix != "/" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var out []FileInfo
	for p, b := range s.files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, isDir := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		fi := FileInfo{Name: name, IsDir: isDir}
		if !isDir {
			fi.Size = int64(len(b))
		}
		out = append(out, fi)
	}
	if len(out) == 0 && prefix != "/" {
		return nil, fmt.Errorf("storage list %q: %w", dir, ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStorage) Open(p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[memPath(p)]
	if !ok {
		return nil, fmt.Errorf("storage open %q: %w", p, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Create truncates p. Content becomes visible as it is written.
func (s *MemStorage) Create(p string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memPath(p)
	s.files[key] = nil
	return &memFile{s: s, key: key}, nil
}

func (s *MemStorage) Remove(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memPath(p)
	if _, ok := s.files[key]; !ok {
		return fmt.Errorf("storage remove %q: %w", p, ErrNotFound)
	}
	delete(s.files, key)
	return nil
}

type memFile struct {
	s      *MemStorage
	key    string
	closed bool
}

func (f *memFile) Write(p []byte) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.closed {
		return 0, fmt.Errorf("storage write %q: file closed", f.key)
	}
	f.s.files[f.key] = append(f.s.files[f.key], p...)
	return len(p), nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}
