// Package dbformat implements the internal-key encoding shared by the
// memtable and SSTable layers: a user key followed by an 8-byte packed
// tag of (sequence number, value type), ordered ascending by user key
// then descending by sequence number so the newest version of a key sorts
// first.
package dbformat

import (
	"bytes"
	"encoding/binary"

	"github.com/AmrMurad1/ldbtable/internal/codec"
)

// ValueType distinguishes a live value from a deletion tombstone within
// the packed tag.
type ValueType uint8

const (
	// TypeDeletion marks a tombstone: the key is logically absent as of
	// this sequence number.
	TypeDeletion ValueType = 0
	// TypeValue marks a live value.
	TypeValue ValueType = 1
)

// MaxSequenceNumber is the largest representable sequence number: the tag
// reserves its low byte for the value type, leaving 56 bits.
const MaxSequenceNumber = (uint64(1) << 56) - 1

// PackTag combines seq and vt into the 8-byte tag appended after every
// user key.
func PackTag(seq uint64, vt ValueType) uint64 {
	return (seq << 8) | uint64(vt)
}

// UnpackTag splits a tag back into its sequence number and value type.
func UnpackTag(tag uint64) (seq uint64, vt ValueType) {
	return tag >> 8, ValueType(tag & 0xff)
}

// InternalKey is user_key || fixed64(tag), the key type stored in the
// skiplist and in SSTable data blocks.
type InternalKey []byte

// Append encodes userKey, seq, and vt into dst and returns the result,
// following the arena-allocation-friendly append convention used
// throughout this codebase.
func Append(dst []byte, userKey []byte, seq uint64, vt ValueType) InternalKey {
	dst = append(dst, userKey...)
	dst = codec.PutFixed64(dst, PackTag(seq, vt))
	return InternalKey(dst)
}

// New builds a standalone InternalKey for userKey, seq, and vt.
func New(userKey []byte, seq uint64, vt ValueType) InternalKey {
	buf := make([]byte, 0, len(userKey)+8)
	return Append(buf, userKey, seq, vt)
}

// UserKey returns the user-key portion of k (k must be at least 8 bytes).
func (k InternalKey) UserKey() []byte {
	return k[:len(k)-8]
}

// Tag returns the packed (sequence, type) tag of k.
func (k InternalKey) Tag() uint64 {
	return binary.LittleEndian.Uint64(k[len(k)-8:])
}

// Sequence returns the sequence number encoded in k.
func (k InternalKey) Sequence() uint64 {
	seq, _ := UnpackTag(k.Tag())
	return seq
}

// ValueType returns the value type encoded in k.
func (k InternalKey) ValueType() ValueType {
	_, vt := UnpackTag(k.Tag())
	return vt
}

// Compare orders two internal keys: ascending by user key, then
// descending by sequence number (so a newer write of the same user key
// sorts before an older one), with value type as the final tiebreaker
// (also descending, matching the original's combined-tag comparison).
func Compare(a, b InternalKey) int {
	if c := bytes.Compare(a.UserKey(), b.UserKey()); c != 0 {
		return c
	}
	ta, tb := a.Tag(), b.Tag()
	switch {
	case ta > tb:
		return -1
	case ta < tb:
		return 1
	default:
		return 0
	}
}

// Comparator is Compare adapted to skiplist.Comparator's []byte signature.
func Comparator(a, b []byte) int {
	return Compare(InternalKey(a), InternalKey(b))
}

// LookupKey is the memtable_key used to seek the skiplist for a point
// lookup: a varint32 length prefix followed by the internal key, matching
// the original's EncodeKey helper used by MemTable::Get.
type LookupKey struct {
	data []byte
	// keyStart marks where the internal key begins within data; it runs
	// to the end of data.
	keyStart int
}

// NewLookupKey builds a LookupKey for userKey at seq, searching for the
// first entry with sequence <= seq (so it uses ValueType 1, the larger of
// the two types, to sort before any real entry at the same sequence —
// matching the original's kValueTypeForSeek trick).
func NewLookupKey(userKey []byte, seq uint64) LookupKey {
	internalKeyLen := len(userKey) + 8
	buf := make([]byte, 0, codec.VarintLength(uint64(internalKeyLen))+internalKeyLen)
	buf = codec.PutVarint32(buf, uint32(internalKeyLen))
	keyStart := len(buf)
	buf = Append(buf, userKey, seq, TypeValue)
	return LookupKey{data: buf, keyStart: keyStart}
}

// MemtableKey returns the varint32-length-prefixed internal key used to
// seek the skiplist.
func (lk LookupKey) MemtableKey() []byte { return lk.data }

// InternalKey returns just the internal-key portion (without the length
// prefix).
func (lk LookupKey) InternalKey() InternalKey { return InternalKey(lk.data[lk.keyStart:]) }

// UserKey returns the user-key portion.
func (lk LookupKey) UserKey() []byte { return lk.InternalKey().UserKey() }

// ParseInternalKey reads the internal key out of a length-prefixed
// memtable key (as stored in the skiplist), returning the InternalKey
// view.
func ParseInternalKey(memtableKey []byte) (InternalKey, error) {
	ikey, _, err := codec.GetLengthPrefixedSlice(memtableKey)
	if err != nil {
		return nil, err
	}
	return InternalKey(ikey), nil
}
