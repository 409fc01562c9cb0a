package sstable

import (
	"bytes"
	"io"

	"github.com/AmrMurad1/ldbtable/internal/block"
	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/filter"
	"github.com/AmrMurad1/ldbtable/internal/iterator"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/klauspost/compress/s2"
)

// Table is an opened, immutable SSTable ready for point lookups and
// iteration. It holds the parsed index block (and filter block, if
// present) in memory; data blocks are read and decompressed on demand.
type Table struct {
	file         io.ReaderAt
	size         int64
	filterPolicy filter.Policy

	indexBlock  *block.Reader
	filterBlock *filter.Reader // nil if the table has no filter block
}

// Open parses the footer, index block, and (if present) filter block of
// an SSTable stored in file, whose total length is size. policy must
// match the filter policy the table was written with, or be nil to skip
// filter checks entirely.
func Open(file io.ReaderAt, size int64, policy filter.Policy) (*Table, error) {
	if size < FooterSize {
		return nil, lsmerrors.ErrCorruption
	}

	footerBuf := make([]byte, FooterSize)
	if _, err := file.ReadAt(footerBuf, size-FooterSize); err != nil {
		return nil, err
	}
	footer, err := DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	indexData, err := readBlock(file, footer.IndexHandle)
	if err != nil {
		return nil, err
	}
	indexBlock, err := block.NewReader(indexData)
	if err != nil {
		return nil, err
	}

	t := &Table{file: file, size: size, filterPolicy: policy, indexBlock: indexBlock}

	if policy != nil && footer.MetaIndexHandle.Size > 0 {
		metaData, err := readBlock(file, footer.MetaIndexHandle)
		if err != nil {
			return nil, err
		}
		metaReader, err := block.NewReader(metaData)
		if err != nil {
			return nil, err
		}
		it := block.NewIterator(metaReader)
		it.Seek([]byte("filter." + policy.Name()))
		if it.Valid() && bytes.Equal(it.Key(), []byte("filter."+policy.Name())) {
			handle, _, err := DecodeBlockHandle(it.Value())
			if err == nil {
				filterData, err := readBlock(file, handle)
				if err == nil {
					if fr, err := filter.NewReader(policy, filterData); err == nil {
						t.filterBlock = fr
					}
				}
			}
		}
	}

	return t, nil
}

// readBlock reads, verifies, and decompresses the block addressed by
// handle.
func readBlock(file io.ReaderAt, handle BlockHandle) ([]byte, error) {
	buf := make([]byte, handle.Size+BlockTrailerSize)
	if _, err := file.ReadAt(buf, int64(handle.Offset)); err != nil {
		return nil, err
	}

	data := buf[:handle.Size]
	compressionType := buf[handle.Size]
	storedCRC := UnmaskCRC(codec.DecodeFixed32(buf[handle.Size+1:]))

	gotCRC := ChecksumCRC32C(append(append([]byte(nil), data...), compressionType))
	if gotCRC != storedCRC {
		return nil, lsmerrors.ErrCorruption
	}

	switch compressionType {
	case CompressionNone:
		return data, nil
	case CompressionSnappy:
		decoded, err := s2.Decode(nil, data)
		if err != nil {
			return nil, lsmerrors.ErrCorruption
		}
		return decoded, nil
	default:
		return nil, lsmerrors.ErrNotSupported
	}
}

// Get returns the value for the data-block entry exactly matching key
// (internal-key bytes), or lsmerrors.ErrNotFound if no such entry exists
// or the filter block rules it out.
func (t *Table) Get(key []byte) ([]byte, error) {
	indexIt := block.NewIterator(t.indexBlock)
	indexIt.Seek(key)
	if !indexIt.Valid() {
		return nil, lsmerrors.ErrNotFound
	}

	handle, _, err := DecodeBlockHandle(indexIt.Value())
	if err != nil {
		return nil, lsmerrors.ErrCorruption
	}

	if t.filterBlock != nil && !t.filterBlock.KeyMayMatch(handle.Offset, key) {
		return nil, lsmerrors.ErrNotFound
	}

	data, err := readBlock(t.file, handle)
	if err != nil {
		return nil, err
	}
	dataReader, err := block.NewReader(data)
	if err != nil {
		return nil, err
	}

	dataIt := block.NewIterator(dataReader)
	dataIt.Seek(key)
	if !dataIt.Valid() || !bytes.Equal(dataIt.Key(), key) {
		return nil, lsmerrors.ErrNotFound
	}
	return dataIt.Value(), nil
}

// Iterator walks every entry of the table in ascending key order,
// transparently crossing data-block boundaries via the index block. It
// satisfies internal/iterator.Iterator.
type Iterator struct {
	t       *Table
	indexIt *block.Iterator
	dataIt  *block.Iterator
	err     error
}

var _ iterator.Iterator = (*Iterator)(nil)

// NewIterator returns an unpositioned Iterator over t.
func (t *Table) NewIterator() *Iterator {
	return &Iterator{t: t, indexIt: block.NewIterator(t.indexBlock)}
}

// Err returns the first error encountered while reading data blocks, if
// any.
func (it *Iterator) Err() error { return it.err }

func (it *Iterator) loadDataBlock() {
	it.dataIt = nil
	if !it.indexIt.Valid() {
		return
	}
	handle, _, err := DecodeBlockHandle(it.indexIt.Value())
	if err != nil {
		it.err = err
		return
	}
	data, err := readBlock(it.t.file, handle)
	if err != nil {
		it.err = err
		return
	}
	reader, err := block.NewReader(data)
	if err != nil {
		it.err = err
		return
	}
	it.dataIt = block.NewIterator(reader)
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.indexIt.SeekToFirst()
	it.loadDataBlock()
	if it.dataIt != nil {
		it.dataIt.SeekToFirst()
		it.skipEmptyBlocksForward()
	}
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.indexIt.SeekToLast()
	it.loadDataBlock()
	if it.dataIt != nil {
		it.dataIt.SeekToLast()
		it.skipEmptyBlocksBackward()
	}
}

// Seek positions the iterator at the first entry with key >= target.
func (it *Iterator) Seek(target []byte) {
	it.indexIt.Seek(target)
	it.loadDataBlock()
	if it.dataIt != nil {
		it.dataIt.Seek(target)
		it.skipEmptyBlocksForward()
	}
}

// skipEmptyBlocksForward advances past any data block that turned out to
// be empty or was exhausted by Seek, matching the two-level iterator
// pattern the original's table reader uses.
func (it *Iterator) skipEmptyBlocksForward() {
	for it.dataIt != nil && !it.dataIt.Valid() {
		it.indexIt.Next()
		it.loadDataBlock()
		if it.dataIt != nil {
			it.dataIt.SeekToFirst()
		}
	}
}

// skipEmptyBlocksBackward retreats past any data block that turned out
// to be empty or was exhausted moving backward, the mirror image of
// skipEmptyBlocksForward for Prev/SeekToLast.
func (it *Iterator) skipEmptyBlocksBackward() {
	for it.dataIt != nil && !it.dataIt.Valid() {
		it.indexIt.Prev()
		it.loadDataBlock()
		if it.dataIt != nil {
			it.dataIt.SeekToLast()
		}
	}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.dataIt != nil && it.dataIt.Valid()
}

// Key returns the current entry's internal key.
func (it *Iterator) Key() []byte { return it.dataIt.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.dataIt.Value() }

// Next advances to the next entry, crossing into the next data block if
// necessary.
func (it *Iterator) Next() {
	it.dataIt.Next()
	if !it.dataIt.Valid() {
		it.indexIt.Next()
		it.loadDataBlock()
		if it.dataIt != nil {
			it.dataIt.SeekToFirst()
			it.skipEmptyBlocksForward()
		}
	}
}

// Prev moves to the previous entry, crossing into the previous data
// block if necessary. Valid must be true.
func (it *Iterator) Prev() {
	it.dataIt.Prev()
	if !it.dataIt.Valid() {
		it.indexIt.Prev()
		it.loadDataBlock()
		if it.dataIt != nil {
			it.dataIt.SeekToLast()
			it.skipEmptyBlocksBackward()
		}
	}
}
