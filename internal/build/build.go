// Package build implements BuildTable, the driver that writes a sorted
// stream of internal keys out to a new SSTable file, verifies the result
// by reopening it through the table cache, and cleans up after any
// failure. Ported from the original's db/builder.cc.
package build

import (
	"github.com/AmrMurad1/ldbtable/internal/dbenv"
	"github.com/AmrMurad1/ldbtable/internal/filenames"
	"github.com/AmrMurad1/ldbtable/internal/sstable"
	"github.com/AmrMurad1/ldbtable/internal/tablecache"
)

// Source yields internal keys and their values in strictly ascending key
// order; it is satisfied by internal/memtable's Source and by
// internal/sstable's own Iterator (for compaction-style merges driven by
// the caller).
type Source interface {
	Valid() bool
	Key() []byte
	Value() []byte
	Next()
}

// Meta describes the file BuildTable produced.
type Meta struct {
	FileNumber uint64
	FileSize   int64
	Smallest   []byte
	Largest    []byte
}

// BuildTable drains src into a new SSTable named fileNumber under
// dbname, then reopens it via tc to verify it parses correctly. If src
// is empty, no file is created and a Meta with FileSize 0 is returned
// with a nil error. If writing or verification fails, the partial file
// is removed and an error is returned; Meta is only meaningful when err
// is nil.
func BuildTable(dbname string, env dbenv.Env, fileNumber uint64, src Source, opts sstable.Options, tc *tablecache.Cache) (Meta, error) {
	meta := Meta{FileNumber: fileNumber}

	if !src.Valid() {
		return meta, nil
	}

	name := filenames.TableFileName(dbname, fileNumber)
	wf, err := env.NewWritableFile(name)
	if err != nil {
		return meta, err
	}

	w := sstable.NewWriter(wf, opts)
	meta.Smallest = append([]byte(nil), src.Key()...)

	var writeErr error
	for src.Valid() {
		key := src.Key()
		meta.Largest = append([]byte(nil), key...)
		if writeErr = w.Add(key, src.Value()); writeErr != nil {
			break
		}
		src.Next()
	}

	if writeErr == nil {
		writeErr = w.Finish()
	}

	if writeErr == nil {
		meta.FileSize = w.FileSize()
		writeErr = wf.Sync()
	}
	if closeErr := wf.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr == nil && meta.FileSize > 0 {
		if tc != nil {
			it, cleanup, err := tc.NewIterator(fileNumber, uint64(meta.FileSize))
			if err != nil {
				writeErr = err
			} else {
				it.SeekToFirst()
				writeErr = it.Err()
				cleanup.Release()
			}
		}
	}

	if writeErr != nil || meta.FileSize == 0 {
		_ = env.RemoveFile(name)
		if writeErr == nil {
			return Meta{FileNumber: fileNumber}, nil
		}
		return Meta{}, writeErr
	}

	return meta, nil
}
