// Package writebatch implements the write-batch wire format: a 12-byte
// header (an 8-byte starting sequence number and a 4-byte count of
// contained records) followed by tagged Put/Delete records, each a
// length-prefixed key (and, for Put, a length-prefixed value). This
// package only encodes and decodes batches (Decode returns the records as
// a slice; there is no separate iterator) — applying one to a
// memtable is external to this module's scope, the same way the
// original's db/dumpfile.cc reads this exact format purely for
// inspection without owning batch application.
package writebatch

import (
	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
)

const headerSize = 8 + 4 // sequence number + record count

// recordTag distinguishes a Put from a Delete record, reusing
// dbformat.ValueType's tag bytes so a batch iterator and a memtable
// insert share one vocabulary.
type recordTag = dbformat.ValueType

// Batch accumulates Put/Delete records for later encoding.
type Batch struct {
	buf   []byte
	count uint32
}

// New returns an empty Batch.
func New() *Batch {
	b := &Batch{}
	b.buf = make([]byte, headerSize)
	return b
}

// Put appends a Put record for key/value.
func (b *Batch) Put(key, value []byte) {
	b.buf = append(b.buf, byte(dbformat.TypeValue))
	b.buf = codec.PutLengthPrefixedSlice(b.buf, key)
	b.buf = codec.PutLengthPrefixedSlice(b.buf, value)
	b.count++
}

// Delete appends a Delete record for key.
func (b *Batch) Delete(key []byte) {
	b.buf = append(b.buf, byte(dbformat.TypeDeletion))
	b.buf = codec.PutLengthPrefixedSlice(b.buf, key)
	b.count++
}

// Count returns the number of records appended so far.
func (b *Batch) Count() int { return int(b.count) }

// SetSequence stamps the batch's starting sequence number (the sequence
// its first record is assigned; subsequent records take seq+1, seq+2, …).
func (b *Batch) SetSequence(seq uint64) {
	copy(b.buf, codec.PutFixed64(nil, seq))
}

// Encode returns the complete wire-format bytes of b.
func (b *Batch) Encode() []byte {
	out := append([]byte(nil), b.buf...)
	copy(out[8:12], codec.PutFixed32(nil, b.count))
	return out
}

// Record is one decoded Put or Delete.
type Record struct {
	Type  dbformat.ValueType
	Key   []byte
	Value []byte // nil for a Delete record
}

// Decode parses a complete wire-format batch, returning its starting
// sequence number and the records it contains in order.
func Decode(data []byte) (sequence uint64, records []Record, err error) {
	if len(data) < headerSize {
		return 0, nil, lsmerrors.ErrCorruption
	}
	sequence = codec.DecodeFixed64(data[:8])
	count := codec.DecodeFixed32(data[8:12])
	rest := data[headerSize:]

	for i := uint32(0); i < count; i++ {
		if len(rest) < 1 {
			return 0, nil, lsmerrors.ErrCorruption
		}
		tag := recordTag(rest[0])
		rest = rest[1:]

		key, next, err := codec.GetLengthPrefixedSlice(rest)
		if err != nil {
			return 0, nil, err
		}
		rest = next

		rec := Record{Type: tag, Key: key}
		if tag == dbformat.TypeValue {
			value, next, err := codec.GetLengthPrefixedSlice(rest)
			if err != nil {
				return 0, nil, err
			}
			rec.Value = value
			rest = next
		} else if tag != dbformat.TypeDeletion {
			return 0, nil, lsmerrors.ErrCorruption
		}
		records = append(records, rec)
	}

	if len(rest) != 0 {
		return 0, nil, lsmerrors.ErrCorruption
	}
	return sequence, records, nil
}
