//go:build tinygo && baremetal

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"machine"

	"tinygo.org/x/drivers/sdcard"
	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/fatfs"
)

// sdStorage is Storage on a FAT volume on the SD card. Every call holds the
// SPI bus lock the decoder shares.
type sdStorage struct {
	lock sync.Locker
	sd   *sdcard.Device
	fat  *fatfs.FATFS
}

// newSDStorage configures SPI0 for the card. Mount failures leave a storage
// that reports ErrNotReady; removable media is never formatted.
func newSDStorage(lock sync.Locker) *sdStorage {
	s := &sdStorage{lock: lock}

	sd := sdcard.New(machine.SPI0, machine.GP18, machine.GP19, machine.GP16, machine.GP17)
	if err := sd.Configure(); err != nil {
		return s
	}
	fat := fatfs.New(&sd).Configure(&fatfs.Config{SectorSize: fatfs.SectorSize})
	if err := fat.Mount(); err != nil {
		return s
	}
	s.sd = &sd
	s.fat = fat
	return s
}

func (s *sdStorage) ready() error {
	if s.fat == nil {
		return fmt.Errorf("sd: %w", ErrNotReady)
	}
	return nil
}

func (s *sdStorage) List(dir string) ([]FileInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	f, err := s.fat.OpenFile(path.Clean("/"+dir), os.O_RDONLY)
	if err != nil {
		return nil, mapFatErr("open dir", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := f.Readdir(0)
	if err != nil {
		return nil, mapFatErr("readdir", err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		out = append(out, FileInfo{Name: name, Size: e.Size(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (s *sdStorage) Open(p string) (io.ReadCloser, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	f, err := s.fat.OpenFile(path.Clean("/"+p), os.O_RDONLY)
	if err != nil {
		return nil, mapFatErr("open", err)
	}
	return &sdFile{lock: s.lock, f: f}, nil
}

func (s *sdStorage) Create(p string) (io.WriteCloser, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	f, err := s.fat.OpenFile(path.Clean("/"+p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, mapFatErr("create", err)
	}
	return &sdFile{lock: s.lock, f: f}, nil
}

func (s *sdStorage) Remove(p string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return mapFatErr("remove", s.fat.Remove(path.Clean("/"+p)))
}

type sdFile struct {
	lock sync.Locker
	f    tinyfs.File
}

func (w *sdFile) Read(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.f == nil {
		return 0, errors.New("sd: read on closed file")
	}
	return w.f.Read(p)
}

func (w *sdFile) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.f == nil {
		return 0, errors.New("sd: write on closed file")
	}
	return w.f.Write(p)
}

func (w *sdFile) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func mapFatErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var fr fatfs.FileResult
	if errors.As(err, &fr) {
		switch fr {
		case fatfs.FileResultNoFile, fatfs.FileResultNoPath:
			return fmt.Errorf("sd %s: %w", op, ErrNotFound)
		case fatfs.FileResultNotReady, fatfs.FileResultNoFilesystem:
			return fmt.Errorf("sd %s: %w", op, ErrNotReady)
		}
	}
	return fmt.Errorf("sd %s: %v", op, err)
}
