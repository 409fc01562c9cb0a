// Package block implements the data/index/meta "block" format shared by
// every SSTable section: a sequence of prefix-compressed key/value
// entries followed by a restart-point array, generalized from the
// teacher repo's ad hoc single-predecessor prefix compression
// (sstable/writer.go's lcp-against-prevKey loop) into the original's
// restart-interval scheme so index blocks (restart interval 1) and data
// blocks (restart interval 16) share one implementation.
package block

import (
	"bytes"
	"sort"

	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/iterator"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
)

// DataBlockRestartInterval is the number of entries between restart
// points in data and filter-adjacent blocks.
const DataBlockRestartInterval = 16

// IndexBlockRestartInterval is the restart interval used for index
// blocks, where every entry is its own restart point to keep seeks O(log n)
// without ever having to linear-scan a run of compressed entries.
const IndexBlockRestartInterval = 1

// Builder accumulates key/value entries into a single block's byte
// representation. Keys must be added in ascending order.
type Builder struct {
	restartInterval int
	buf             bytes.Buffer
	restarts        []uint32
	counter         int
	lastKey         []byte
	finished        bool
}

// NewBuilder returns a Builder that places a restart point every
// restartInterval entries (must be >= 1).
func NewBuilder(restartInterval int) *Builder {
	return &Builder{
		restartInterval: restartInterval,
		restarts:        []uint32{0},
	}
}

// Reset clears the builder so it can be reused for another block.
func (b *Builder) Reset() {
	b.buf.Reset()
	b.restarts = []uint32{0}
	b.counter = 0
	b.lastKey = nil
	b.finished = false
}

// Empty reports whether any entries have been added since the last Reset.
func (b *Builder) Empty() bool { return b.buf.Len() == 0 }

// Add appends one key/value entry. key must be > every previously added
// key.
func (b *Builder) Add(key, value []byte) {
	var shared int
	if b.counter < b.restartInterval {
		shared = sharedPrefixLen(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(b.buf.Len()))
		b.counter = 0
	}
	nonShared := len(key) - shared

	var header [3 * 5]byte // room for three varint32s
	n := 0
	n += putVarint32At(header[n:], uint32(shared))
	n += putVarint32At(header[n:], uint32(nonShared))
	n += putVarint32At(header[n:], uint32(len(value)))
	b.buf.Write(header[:n])
	b.buf.Write(key[shared:])
	b.buf.Write(value)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

func putVarint32At(dst []byte, v uint32) int {
	out := codec.PutVarint32(dst[:0], v)
	return len(out)
}

// EstimatedSize returns the approximate encoded size so far, including the
// not-yet-written restart array.
func (b *Builder) EstimatedSize() int {
	return b.buf.Len() + len(b.restarts)*4 + 4
}

// Finish returns the complete encoded block: entries, the restart-point
// array, then a fixed32 restart count.
func (b *Builder) Finish() []byte {
	out := append([]byte(nil), b.buf.Bytes()...)
	for _, r := range b.restarts {
		out = codec.PutFixed32(out, r)
	}
	out = codec.PutFixed32(out, uint32(len(b.restarts)))
	return out
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Reader provides random (Seek) and sequential access to an encoded
// block's entries.
type Reader struct {
	data         []byte
	restarts     []byte // raw restart array, 4 bytes each
	numRestarts  int
	restartsBase int
}

// NewReader parses the restart-count footer and array of an encoded
// block. It does not copy data; data must outlive the Reader.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < 4 {
		return nil, lsmerrors.ErrCorruption
	}
	numRestarts := int(codec.DecodeFixed32(data[len(data)-4:]))
	restartsBase := len(data) - 4 - numRestarts*4
	if numRestarts < 0 || restartsBase < 0 {
		return nil, lsmerrors.ErrCorruption
	}
	return &Reader{
		data:         data,
		restarts:     data[restartsBase : len(data)-4],
		numRestarts:  numRestarts,
		restartsBase: restartsBase,
	}, nil
}

func (r *Reader) restartOffset(i int) int {
	return int(codec.DecodeFixed32(r.restarts[i*4:]))
}

// Entry is one decoded, fully-reconstructed key/value pair.
type Entry struct {
	Key   []byte
	Value []byte
}

// decodeEntryAt parses the entry header at offset off against prevKey,
// returning the reconstructed key, the value, and the offset of the next
// entry.
func decodeEntryAt(data []byte, off int, prevKey []byte) (key, value []byte, next int, err error) {
	if off >= len(data) {
		return nil, nil, 0, lsmerrors.ErrCorruption
	}
	shared, rest, err := codec.GetVarint32(data[off:])
	if err != nil {
		return nil, nil, 0, err
	}
	nonShared, rest, err := codec.GetVarint32(rest)
	if err != nil {
		return nil, nil, 0, err
	}
	valueLen, rest, err := codec.GetVarint32(rest)
	if err != nil {
		return nil, nil, 0, err
	}
	if uint32(len(rest)) < nonShared+valueLen {
		return nil, nil, 0, lsmerrors.ErrCorruption
	}
	if int(shared) > len(prevKey) {
		return nil, nil, 0, lsmerrors.ErrCorruption
	}

	key = make([]byte, shared+nonShared)
	copy(key, prevKey[:shared])
	copy(key[shared:], rest[:nonShared])
	value = rest[nonShared : nonShared+valueLen]

	consumed := len(data[off:]) - len(rest) + int(nonShared+valueLen)
	return key, value, off + consumed, nil
}

// entriesBlock returns the byte range containing entries (excludes the
// restart array and count footer).
func (r *Reader) entriesBlock() []byte {
	return r.data[:r.restartsBase]
}

// Iterator walks a Reader's entries in order, forward or backward. It
// satisfies internal/iterator.Iterator.
type Iterator struct {
	r       *Reader
	offset  int // offset of the entry that Next will parse
	current int // offset of the start of the current (valid) entry
	key     []byte
	value   []byte
	valid   bool
	restart int // index of a restart point with offset <= current
	err     error
}

var _ iterator.Iterator = (*Iterator)(nil)

// NewIterator returns an unpositioned Iterator over r.
func NewIterator(r *Reader) *Iterator {
	return &Iterator{r: r}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.valid }

// Err returns the first corruption error encountered while decoding
// entries, if any.
func (it *Iterator) Err() error { return it.err }

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() []byte { return it.value }

// SeekToFirst positions the iterator at the block's first entry.
func (it *Iterator) SeekToFirst() {
	it.seekToRestart(0, nil)
	it.parseNext(it.offset, nil)
}

// SeekToLast positions the iterator at the block's last entry by jumping
// to the final restart point and scanning forward to the end, since
// restart points only support forward decoding.
func (it *Iterator) SeekToLast() {
	it.seekToRestart(it.r.numRestarts-1, nil)
	it.parseNext(it.offset, nil)
	entriesLen := len(it.r.entriesBlock())
	for it.valid && it.offset < entriesLen {
		prevKey := append([]byte(nil), it.key...)
		it.parseNext(it.offset, prevKey)
	}
}

// markInvalid positions the iterator past the last entry, the same
// terminal state SeekToFirst/Next reach by running off the end of data.
// A non-nil err records why, distinguishing corruption from a clean
// end-of-block.
func (it *Iterator) markInvalid(err error) {
	it.valid = false
	it.current = len(it.r.entriesBlock())
	it.restart = it.r.numRestarts
	if err != nil {
		it.err = err
	}
}

// parseNext decodes the entry at off (prevKey is the key immediately
// before it) and updates the iterator's state, advancing restart to the
// last restart point known to sit strictly before the new entry.
func (it *Iterator) parseNext(off int, prevKey []byte) {
	it.current = off
	entries := it.r.entriesBlock()
	if off >= len(entries) {
		it.markInvalid(nil)
		return
	}
	key, value, next, err := decodeEntryAt(entries, off, prevKey)
	if err != nil {
		it.markInvalid(err)
		return
	}
	it.key = key
	it.value = value
	it.offset = next
	it.valid = true
	for it.restart+1 < it.r.numRestarts && it.r.restartOffset(it.restart+1) < it.current {
		it.restart++
	}
}

func (it *Iterator) seekToRestart(i int, _ []byte) {
	it.offset = it.r.restartOffset(i)
	it.restart = i
}

// Next advances to the next entry. Valid must be true.
func (it *Iterator) Next() {
	prevKey := append([]byte(nil), it.key...)
	it.parseNext(it.offset, prevKey)
}

// Prev moves to the entry immediately before the current one by
// rewinding to the restart point at or before it and re-scanning
// forward, the same backward-via-forward-rescan trick the original's
// Block::Iter::Prev uses since entries only decode in one direction.
// Valid must be true.
func (it *Iterator) Prev() {
	original := it.current
	for it.r.restartOffset(it.restart) >= original {
		if it.restart == 0 {
			it.markInvalid(nil)
			return
		}
		it.restart--
	}

	it.seekToRestart(it.restart, nil)
	it.parseNext(it.offset, nil)
	for it.valid && it.offset < original {
		prevKey := append([]byte(nil), it.key...)
		it.parseNext(it.offset, prevKey)
	}
}

// Seek positions the iterator at the first entry with key >= target,
// using the restart-point array to binary search before linear-scanning
// within the chosen restart interval.
func (it *Iterator) Seek(target []byte) {
	index := sort.Search(it.r.numRestarts, func(i int) bool {
		off := it.r.restartOffset(i)
		key, _, _, err := decodeEntryAt(it.r.entriesBlock(), off, nil)
		if err != nil {
			return true
		}
		return bytes.Compare(key, target) > 0
	})
	if index > 0 {
		index--
	}

	it.seekToRestart(index, nil)
	it.parseNext(it.offset, nil)
	for it.valid && bytes.Compare(it.key, target) < 0 {
		it.Next()
	}
}
