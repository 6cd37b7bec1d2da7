//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// dirStorage is Storage on a host directory.
type dirStorage struct {
	root string
}

func (s *dirStorage) resolve(p string) string {
	clean := path.Clean("/" + p)
	return filepath.Join(s.root, filepath.FromSlash(clean))
}

func mapHostErr(op, p string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage %s %q: %w", op, p, ErrNotFound)
	}
	return fmt.Errorf("storage %s %q: %v", op, p, err)
}

func (s *dirStorage) List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, mapHostErr("list", dir, err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *dirStorage) Open(p string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(p))
	if err != nil {
		return nil, mapHostErr("open", p, err)
	}
	return f, nil
}

func (s *dirStorage) Create(p string) (io.WriteCloser, error) {
	full := s.resolve(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, mapHostErr("create", p, err)
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, mapHostErr("create", p, err)
	}
	return f, nil
}

func (s *dirStorage) Remove(p string) error {
	return mapHostErr("remove", p, os.Remove(s.resolve(p)))
}
