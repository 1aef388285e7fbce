package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Slot is a single durable string cell holding the encrypted vault blob
type Slot interface {
	// Get returns the stored blob; ok is false when nothing is stored
	Get() (blob string, ok bool, err error)
	// Set replaces the stored blob as a whole
	Set(blob string) error
	// Remove deletes the blob. Removing an empty slot is not an error.
	Remove() error
}

// Locker is implemented by slots shared between processes. The vault holds the
// lock for the full read-modify-write of every operation.
type Locker interface {
	Lock() (unlock func() error, err error)
	RLock() (unlock func() error, err error)
}

// MemorySlot keeps the blob in process memory
type MemorySlot struct {
	mu   sync.Mutex
	blob string
	set  bool
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (m *MemorySlot) Get() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blob, m.set, nil
}

func (m *MemorySlot) Set(blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob, m.set = blob, true
	return nil
}

func (m *MemorySlot) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob, m.set = "", false
	return nil
}

// FileSlot stores the blob in one file, replaced atomically on every write and
// guarded by an advisory lock file next to it.
type FileSlot struct {
	path string
	lock *flock.Flock
}

// NewFileSlot creates the parent directory if needed. The file itself is created
// on the first Set.
func NewFileSlot(path string) (*FileSlot, error) {
	if path == "" {
		return nil, errors.New("vault path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileSlot{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the vault file location
func (f *FileSlot) Path() string { return f.path }

func (f *FileSlot) Get() (string, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read vault file: %w", err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func (f *FileSlot) Set(blob string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp vault file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(0600); err != nil {
		return cleanup(fmt.Errorf("failed to set vault file permissions: %w", err))
	}
	if _, err := tmp.WriteString(blob); err != nil {
		return cleanup(fmt.Errorf("failed to write vault file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync vault file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close vault file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace vault file: %w", err)
	}
	return nil
}

func (f *FileSlot) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove vault file: %w", err)
	}
	return nil
}

func (f *FileSlot) Lock() (func() error, error) {
	if err := f.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock vault file: %w", err)
	}
	return f.lock.Unlock, nil
}

func (f *FileSlot) RLock() (func() error, error) {
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock vault file: %w", err)
	}
	return f.lock.Unlock, nil
}
