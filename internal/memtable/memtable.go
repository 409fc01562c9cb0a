// Package memtable implements the in-memory sorted table that absorbs
// writes before they are flushed to an SSTable: a skiplist of internal
// keys backed by an arena, generalized from the teacher repo's
// mutex-guarded skiplist wrapper to internal-key (sequence-numbered,
// tombstone-aware) semantics.
package memtable

import (
	"bytes"

	"github.com/AmrMurad1/ldbtable/internal/arena"
	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/AmrMurad1/ldbtable/internal/skiplist"
)

// Memtable holds an unbounded, growing set of internal keys in sorted
// order. It has no notion of a write-ahead log or durability; callers
// that need recovery own their own log and replay entries through Add.
type Memtable struct {
	arena *arena.Arena
	table *skiplist.List
}

// New returns an empty Memtable.
func New() *Memtable {
	a := arena.New()
	return &Memtable{
		arena: a,
		table: skiplist.New(keyComparator, a),
	}
}

// keyComparator adapts dbformat.Compare to the skiplist's []byte signature,
// stripping the varint32 length prefix Add stores ahead of every internal
// key (memtable entries are memtable_key, not bare internal_key, matching
// the original's MemTable::KeyComparator).
func keyComparator(a, b []byte) int {
	ak, err := dbformat.ParseInternalKey(a)
	if err != nil {
		panic(err)
	}
	bk, err := dbformat.ParseInternalKey(b)
	if err != nil {
		panic(err)
	}
	return dbformat.Compare(ak, bk)
}

// ApproximateMemoryUsage returns the arena's reported byte usage, used by
// callers to decide when to rotate to a new memtable.
func (m *Memtable) ApproximateMemoryUsage() int64 {
	return m.arena.MemoryUsage()
}

// Add records a single key/value mutation at sequence number seq. vt is
// either dbformat.TypeValue (value is the new contents) or
// dbformat.TypeDeletion (value is ignored).
func (m *Memtable) Add(seq uint64, vt dbformat.ValueType, key, value []byte) {
	internalKeyLen := len(key) + 8
	valueLen := len(value)
	encodedLen := codec.VarintLength(uint64(internalKeyLen)) + internalKeyLen +
		codec.VarintLength(uint64(valueLen)) + valueLen

	buf := m.arena.Allocate(encodedLen)[:0]
	buf = codec.PutVarint32(buf, uint32(internalKeyLen))
	buf = dbformat.Append(buf, key, seq, vt)
	buf = codec.PutVarint32(buf, uint32(valueLen))
	buf = append(buf, value...)

	m.table.Insert(buf)
}

// Get looks up the most recent value for key visible at or before seq. It
// returns lsmerrors.ErrNotFound if the key was deleted or never written.
func (m *Memtable) Get(key []byte, seq uint64) ([]byte, error) {
	lk := dbformat.NewLookupKey(key, seq)
	it := skiplist.NewIterator(m.table)
	it.Seek(lk.MemtableKey())
	if !it.Valid() {
		return nil, lsmerrors.ErrNotFound
	}

	ikeyBytes, rest, err := codec.GetLengthPrefixedSlice(it.Key())
	if err != nil {
		return nil, err
	}
	ik := dbformat.InternalKey(ikeyBytes)
	if !bytes.Equal(ik.UserKey(), key) {
		return nil, lsmerrors.ErrNotFound
	}

	switch ik.ValueType() {
	case dbformat.TypeDeletion:
		return nil, lsmerrors.ErrNotFound
	case dbformat.TypeValue:
		value, _, err := codec.GetLengthPrefixedSlice(rest)
		if err != nil {
			return nil, err
		}
		return value, nil
	default:
		return nil, lsmerrors.ErrCorruption
	}
}

// Iterator returns a skiplist iterator positioned over this memtable's
// raw memtable-key entries (length-prefixed internal key followed by
// length-prefixed value). Callers wanting user-level entries should parse
// each position with dbformat.ParseInternalKey and codec.GetLengthPrefixedSlice.
func (m *Memtable) Iterator() *skiplist.Iterator {
	return skiplist.NewIterator(m.table)
}

// Source adapts a Memtable into internal/build.Source: an ascending
// stream of (internal key, value) pairs ready to hand to BuildTable when
// flushing this memtable to an SSTable.
type Source struct {
	it         *skiplist.Iterator
	key, value []byte
}

// NewSource returns a Source already positioned at the memtable's first
// entry (or invalid, if the memtable is empty).
func (m *Memtable) NewSource() *Source {
	s := &Source{it: skiplist.NewIterator(m.table)}
	s.it.SeekToFirst()
	s.decode()
	return s
}

func (s *Source) decode() {
	if !s.it.Valid() {
		s.key, s.value = nil, nil
		return
	}
	ikey, rest, err := codec.GetLengthPrefixedSlice(s.it.Key())
	if err != nil {
		s.key, s.value = nil, nil
		return
	}
	value, _, err := codec.GetLengthPrefixedSlice(rest)
	if err != nil {
		s.key, s.value = nil, nil
		return
	}
	s.key, s.value = ikey, value
}

// Valid reports whether the source is positioned at an entry.
func (s *Source) Valid() bool { return s.it.Valid() }

// Key returns the current entry's internal key.
func (s *Source) Key() []byte { return s.key }

// Value returns the current entry's value.
func (s *Source) Value() []byte { return s.value }

// Next advances to the next entry.
func (s *Source) Next() {
	s.it.Next()
	s.decode()
}
