package sstable

import (
	"bufio"
	"io"

	"github.com/AmrMurad1/ldbtable/internal/block"
	"github.com/AmrMurad1/ldbtable/internal/filter"
	"github.com/klauspost/compress/s2"
)

// Options configures a Writer.
type Options struct {
	// BlockSize is the target uncompressed size of a data block before
	// it is flushed.
	BlockSize int
	// FilterPolicy, if non-nil, causes a filter block to be built
	// alongside the data blocks.
	FilterPolicy filter.Policy
	// Compress enables Snappy-compatible (s2) block compression; a
	// block is stored uncompressed if compressing it saves less than
	// 1/8 of its size, matching the original's acceptance threshold.
	Compress bool
}

// DefaultBlockSize matches the original's 4KiB default target.
const DefaultBlockSize = 4096

func (o Options) blockSize() int {
	if o.BlockSize > 0 {
		return o.BlockSize
	}
	return DefaultBlockSize
}

// Writer assembles an SSTable file from internal keys added in strictly
// ascending order.
type Writer struct {
	w    *bufio.Writer
	opts Options

	offset uint64

	dataBlock  *block.Builder
	indexBlock *block.Builder
	filterBldr *filter.Builder

	lastKey    []byte
	numEntries int

	pendingIndexEntry bool
	pendingHandle     BlockHandle

	closed bool
	err    error
}

// NewWriter returns a Writer that streams its output to w.
func NewWriter(w io.Writer, opts Options) *Writer {
	wr := &Writer{
		w:          bufio.NewWriter(w),
		opts:       opts,
		dataBlock:  block.NewBuilder(block.DataBlockRestartInterval),
		indexBlock: block.NewBuilder(block.IndexBlockRestartInterval),
	}
	if opts.FilterPolicy != nil {
		wr.filterBldr = filter.NewBuilder(opts.FilterPolicy)
		wr.filterBldr.StartBlock(0)
	}
	return wr
}

// Add appends one key/value pair. key must be strictly greater than every
// previously added key.
func (wr *Writer) Add(key, value []byte) error {
	if wr.err != nil {
		return wr.err
	}

	if wr.pendingIndexEntry {
		sep := shortestSeparator(wr.lastKey, key)
		handleBytes := wr.pendingHandle.EncodeTo(nil)
		wr.indexBlock.Add(sep, handleBytes)
		wr.pendingIndexEntry = false
	}

	if wr.filterBldr != nil {
		wr.filterBldr.AddKey(key)
	}

	wr.lastKey = append(wr.lastKey[:0], key...)
	wr.numEntries++
	wr.dataBlock.Add(key, value)

	if wr.dataBlock.EstimatedSize() >= wr.opts.blockSize() {
		wr.flush()
	}
	return wr.err
}

// flush writes the current data block to the file and arms the pending
// index entry for the next Add call (or Finish) to close off.
func (wr *Writer) flush() {
	if wr.dataBlock.Empty() {
		return
	}
	if wr.pendingIndexEntry {
		return
	}

	handle := wr.writeBlock(wr.dataBlock)
	if wr.err != nil {
		return
	}
	wr.pendingHandle = handle
	wr.pendingIndexEntry = true

	if wr.filterBldr != nil {
		wr.filterBldr.StartBlock(wr.offset)
	}
}

// writeBlock compresses (if enabled), appends the trailer, and appends
// the block to the file, returning its handle.
func (wr *Writer) writeBlock(b *block.Builder) BlockHandle {
	raw := b.Finish()
	compressionType := byte(CompressionNone)
	payload := raw

	if wr.opts.Compress {
		compressed := s2.Encode(nil, raw)
		if len(compressed) < len(raw)-len(raw)/8 {
			payload = compressed
			compressionType = CompressionSnappy
		}
	}

	handle := wr.writeRawBlock(payload, compressionType)
	b.Reset()
	return handle
}

func (wr *Writer) writeRawBlock(data []byte, compressionType byte) BlockHandle {
	handle := BlockHandle{Offset: wr.offset, Size: uint64(len(data))}

	if _, err := wr.w.Write(data); err != nil {
		wr.err = err
		return handle
	}

	crc := ChecksumCRC32C(append(append([]byte(nil), data...), compressionType))
	trailer := [BlockTrailerSize]byte{compressionType}
	maskedCRC := MaskCRC(crc)
	trailer[1] = byte(maskedCRC)
	trailer[2] = byte(maskedCRC >> 8)
	trailer[3] = byte(maskedCRC >> 16)
	trailer[4] = byte(maskedCRC >> 24)

	if _, err := wr.w.Write(trailer[:]); err != nil {
		wr.err = err
		return handle
	}

	wr.offset += uint64(len(data)) + BlockTrailerSize
	return handle
}

// NumEntries returns the number of entries added so far.
func (wr *Writer) NumEntries() int { return wr.numEntries }

// FileSize returns the number of bytes written (including in-flight
// buffered data) so far.
func (wr *Writer) FileSize() int64 { return int64(wr.offset) }

// Finish flushes any pending data block, writes the filter block,
// metaindex block, index block, and footer, and flushes the underlying
// writer. The Writer must not be used again afterward.
func (wr *Writer) Finish() error {
	if wr.err != nil {
		return wr.err
	}
	wr.closed = true

	wr.flush()
	if wr.err != nil {
		return wr.err
	}

	var filterHandle BlockHandle
	haveFilter := wr.filterBldr != nil
	if haveFilter {
		filterBlock := wr.filterBldr.Finish()
		filterHandle = wr.writeRawBlock(filterBlock, CompressionNone)
	}

	metaIndex := block.NewBuilder(block.IndexBlockRestartInterval)
	if haveFilter {
		key := []byte("filter." + wr.opts.FilterPolicy.Name())
		metaIndex.Add(key, filterHandle.EncodeTo(nil))
	}
	metaIndexHandle := wr.writeBlock(metaIndex)
	if wr.err != nil {
		return wr.err
	}

	if wr.pendingIndexEntry {
		succ := shortSuccessor(wr.lastKey)
		handleBytes := wr.pendingHandle.EncodeTo(nil)
		wr.indexBlock.Add(succ, handleBytes)
		wr.pendingIndexEntry = false
	}
	indexHandle := wr.writeBlock(wr.indexBlock)
	if wr.err != nil {
		return wr.err
	}

	footer := Footer{MetaIndexHandle: metaIndexHandle, IndexHandle: indexHandle}
	if _, err := wr.w.Write(footer.EncodeTo()); err != nil {
		wr.err = err
		return wr.err
	}
	wr.offset += FooterSize

	return wr.w.Flush()
}

// shortestSeparator returns a key >= start and < limit that is as short
// as possible, falling back to start unmodified when no shorter
// separator exists — matching the original's FindShortestSeparator.
func shortestSeparator(start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diff := 0
	for diff < minLen && start[diff] == limit[diff] {
		diff++
	}
	if diff >= minLen {
		return append([]byte(nil), start...)
	}
	if start[diff] >= 0xff || start[diff]+1 >= limit[diff] {
		return append([]byte(nil), start...)
	}
	sep := append([]byte(nil), start[:diff+1]...)
	sep[diff]++
	return sep
}

// shortSuccessor returns the shortest key >= key, used for the final
// index entry where there is no next key to separate from — matching the
// original's FindShortSuccessor.
func shortSuccessor(key []byte) []byte {
	for i, b := range key {
		if b != 0xff {
			out := append([]byte(nil), key[:i+1]...)
			out[i] = b + 1
			return out
		}
	}
	return append([]byte(nil), key...)
}
