// Package sstable implements the on-disk SSTable format: an immutable,
// sorted file of internal keys to values with prefix-compressed data
// blocks, an index block, an optional filter block, and a fixed footer.
// It is grounded on the original's table/format.cc and table_builder.cc,
// and structurally on the teacher repo's sstable/writer.go and
// sstable/reader.go (bufio.Writer-backed writer, os.File-backed reader),
// replacing the teacher's ad hoc footer/index layout with the byte-exact
// one this module targets.
package sstable

import (
	"hash/crc32"

	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
)

// Magic is the 8-byte little-endian magic number terminating every
// footer.
const Magic uint64 = 0xdb4775248b80fb57

// FooterSize is the fixed encoded size of a Footer: a 40-byte handle
// area (two block handles, zero-padded together) plus the 8-byte magic.
const FooterSize = 2*paddedHandleSize + 8

const paddedHandleSize = 20 // room for two varint64s at their max width

// BlockTrailerSize is the 1-byte compression type plus 4-byte masked
// CRC32C appended after every block's raw bytes.
const BlockTrailerSize = 5

// Compression type bytes, as written in each block's trailer.
const (
	CompressionNone = 0
	CompressionSnappy = 1 // s2 is wire-compatible with Snappy
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// ChecksumCRC32C computes the Castagnoli CRC32 of data.
func ChecksumCRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// MaskCRC masks a CRC so it isn't confused with data accidentally
// containing a CRC at its start (the original's stated rationale for
// table/format.cc's crc32c::Mask).
func MaskCRC(c uint32) uint32 {
	return ((c >> 15) | (c << 17)) + 0xa282ead8
}

// UnmaskCRC reverses MaskCRC.
func UnmaskCRC(masked uint32) uint32 {
	rot := masked - 0xa282ead8
	return (rot >> 17) | (rot << 15)
}

// BlockHandle locates a block within the file: its offset and size,
// excluding the trailer.
type BlockHandle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the varint64-encoded handle to dst.
func (h BlockHandle) EncodeTo(dst []byte) []byte {
	dst = codec.PutVarint64(dst, h.Offset)
	dst = codec.PutVarint64(dst, h.Size)
	return dst
}

// DecodeBlockHandle reads a BlockHandle from the front of b, returning it
// along with the remaining bytes.
func DecodeBlockHandle(b []byte) (BlockHandle, []byte, error) {
	offset, rest, err := codec.GetVarint64(b)
	if err != nil {
		return BlockHandle{}, nil, err
	}
	size, rest, err := codec.GetVarint64(rest)
	if err != nil {
		return BlockHandle{}, nil, err
	}
	return BlockHandle{Offset: offset, Size: size}, rest, nil
}

// Footer is the fixed-size trailer of every SSTable file.
type Footer struct {
	MetaIndexHandle BlockHandle
	IndexHandle     BlockHandle
}

// EncodeTo returns the 48-byte encoding of f: both handles encoded back
// to back, the pair zero-padded to 2*paddedHandleSize bytes so the footer
// has a fixed size regardless of how small the varints encode, followed
// by the 8-byte magic.
func (f Footer) EncodeTo() []byte {
	out := make([]byte, 0, FooterSize)

	handles := f.MetaIndexHandle.EncodeTo(nil)
	handles = f.IndexHandle.EncodeTo(handles)
	out = append(out, handles...)
	for len(out) < 2*paddedHandleSize {
		out = append(out, 0)
	}

	out = codec.PutFixed32(out, uint32(Magic&0xffffffff))
	out = codec.PutFixed32(out, uint32(Magic>>32))
	return out
}

// DecodeFooter parses a footer from its trailing FooterSize bytes.
func DecodeFooter(b []byte) (Footer, error) {
	if len(b) != FooterSize {
		return Footer{}, lsmerrors.ErrCorruption
	}
	lo := codec.DecodeFixed32(b[FooterSize-8:])
	hi := codec.DecodeFixed32(b[FooterSize-4:])
	magic := uint64(hi)<<32 | uint64(lo)
	if magic != Magic {
		return Footer{}, lsmerrors.ErrCorruption
	}

	meta, rest, err := DecodeBlockHandle(b)
	if err != nil {
		return Footer{}, lsmerrors.ErrCorruption
	}
	index, _, err := DecodeBlockHandle(rest)
	if err != nil {
		return Footer{}, lsmerrors.ErrCorruption
	}
	return Footer{MetaIndexHandle: meta, IndexHandle: index}, nil
}
