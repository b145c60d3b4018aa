package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ReleaseObserver is notified once per released temp file.
type ReleaseObserver interface {
	TempFileReleased(err error)
}

type TempStorage interface {
	EnsureDir() error
	NewScope() *TempScope
}

type tempStorage struct {
	dir      string
	observer ReleaseObserver
}

func NewTempStorage(dir string, observer ReleaseObserver) TempStorage {
	return &tempStorage{
		dir:      dir,
		observer: observer,
	}
}

func (s *tempStorage) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	return nil
}

// NewScope opens a scope that owns every temp file created through it.
// Callers defer Close right after opening it.
func (s *tempStorage) NewScope() *TempScope {
	return &TempScope{storage: s}
}

// TempFile is a uniquely named file that lives until Release is called.
type TempFile struct {
	path     string
	once     sync.Once
	observer ReleaseObserver
}

func (f *TempFile) Path() string {
	return f.path
}

// Release removes the file. It is safe to call more than once; only the first
// call touches the filesystem. Removal errors are logged and swallowed.
func (f *TempFile) Release() {
	f.once.Do(func() {
		err := os.Remove(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			log.Printf("⚠️  Failed to remove temp file %s: %v\n", f.path, err)
		}
		if f.observer != nil {
			f.observer.TempFileReleased(err)
		}
	})
}

type TempScope struct {
	storage *tempStorage
	mu      sync.Mutex
	files   []*TempFile
}

// Acquire writes r into a new temp file ending in suffix.
func (sc *TempScope) Acquire(r io.Reader, suffix string) (*TempFile, error) {
	f, dst, err := sc.create(suffix)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	return f, nil
}

// Reserve allocates an empty temp file ending in suffix for a derived artifact.
func (sc *TempScope) Reserve(suffix string) (*TempFile, error) {
	f, dst, err := sc.create(suffix)
	if err != nil {
		return nil, err
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to reserve temp file: %w", err)
	}
	return f, nil
}

// Close releases every file acquired in the scope, most recent first.
func (sc *TempScope) Close() {
	sc.mu.Lock()
	files := sc.files
	sc.files = nil
	sc.mu.Unlock()

	for i := len(files) - 1; i >= 0; i-- {
		files[i].Release()
	}
}

func (sc *TempScope) create(suffix string) (*TempFile, *os.File, error) {
	name := fmt.Sprintf("%s%s", uuid.New().String(), suffix)
	path := filepath.Join(sc.storage.dir, name)

	dst, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	// Registered before any bytes are written so a failed copy is still cleaned up.
	f := &TempFile{path: path, observer: sc.storage.observer}
	sc.mu.Lock()
	sc.files = append(sc.files, f)
	sc.mu.Unlock()

	return f, dst, nil
}
