package dbenv

import (
	"bytes"
	"sync"

	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
)

// memFile backs both WritableFile and RandomAccessFile with an in-memory
// byte buffer, guarded by the owning MemEnv's mutex.
type memFile struct {
	env  *MemEnv
	name string
}

func (f *memFile) Write(p []byte) (int, error) {
	f.env.mu.Lock()
	defer f.env.mu.Unlock()
	f.env.files[f.name] = append(f.env.files[f.name], p...)
	return len(p), nil
}

func (f *memFile) Sync() error { return nil }
func (f *memFile) Close() error { return nil }

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.env.mu.Lock()
	defer f.env.mu.Unlock()
	data := f.env.files[f.name]
	if off < 0 || off > int64(len(data)) {
		return 0, lsmerrors.ErrInvalidArgument
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, bytes.ErrTooLarge
	}
	return n, nil
}

// MemEnv is an in-memory Env implementation used by tests that need a
// full writer-then-reader round trip without touching disk.
type MemEnv struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ Env = (*MemEnv)(nil)

// NewMemEnv returns an empty MemEnv.
func NewMemEnv() *MemEnv {
	return &MemEnv{files: make(map[string][]byte)}
}

func (e *MemEnv) NewWritableFile(name string) (WritableFile, error) {
	e.mu.Lock()
	e.files[name] = nil
	e.mu.Unlock()
	return &memFile{env: e, name: name}, nil
}

func (e *MemEnv) NewRandomAccessFile(name string) (RandomAccessFile, error) {
	e.mu.Lock()
	_, ok := e.files[name]
	e.mu.Unlock()
	if !ok {
		return nil, lsmerrors.ErrNotFound
	}
	return &memFile{env: e, name: name}, nil
}

func (e *MemEnv) RemoveFile(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.files[name]; !ok {
		return lsmerrors.ErrNotFound
	}
	delete(e.files, name)
	return nil
}

func (e *MemEnv) RenameFile(oldname, newname string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[oldname]
	if !ok {
		return lsmerrors.ErrNotFound
	}
	e.files[newname] = data
	delete(e.files, oldname)
	return nil
}

func (e *MemEnv) GetFileSize(name string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return 0, lsmerrors.ErrNotFound
	}
	return int64(len(data)), nil
}

func (e *MemEnv) FileExists(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.files[name]
	return ok
}
