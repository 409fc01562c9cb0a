// Package dbenv defines the minimal filesystem collaborator the writer,
// table cache, and build packages need to actually run against disk,
// generalized from the teacher repo's direct os.Create/os.Open calls
// (sstable/writer.go, sstable/reader.go) into the original's Env seam so
// tests can swap in an in-memory implementation without touching the
// production code paths.
package dbenv

import (
	"io"
	"os"
)

// RandomAccessFile supports unordered reads, as required to serve
// SSTable point lookups without re-reading the whole file.
type RandomAccessFile interface {
	io.ReaderAt
	io.Closer
}

// WritableFile is an append-only, explicitly-flushed output file.
type WritableFile interface {
	io.Writer
	Sync() error
	Close() error
}

// Env is the filesystem surface this module depends on. It deliberately
// covers only what internal/sstable, internal/tablecache, and
// internal/build need — the full environment abstraction (locks,
// background work scheduling, logging sinks) is an external collaborator
// per this module's scope.
type Env interface {
	NewWritableFile(name string) (WritableFile, error)
	NewRandomAccessFile(name string) (RandomAccessFile, error)
	RemoveFile(name string) error
	RenameFile(oldname, newname string) error
	GetFileSize(name string) (int64, error)
	FileExists(name string) bool
}

// osEnv is the concrete, OS-backed Env implementation.
type osEnv struct{}

// Default is the OS-backed Env used outside of tests.
var Default Env = osEnv{}

func (osEnv) NewWritableFile(name string) (WritableFile, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

func (osEnv) NewRandomAccessFile(name string) (RandomAccessFile, error) {
	return os.Open(name)
}

func (osEnv) RemoveFile(name string) error {
	return os.Remove(name)
}

func (osEnv) RenameFile(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (osEnv) GetFileSize(name string) (int64, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (osEnv) FileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
