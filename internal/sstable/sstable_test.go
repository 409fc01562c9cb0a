package sstable_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/AmrMurad1/ldbtable/internal/filter"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/AmrMurad1/ldbtable/internal/sstable"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	data []byte
}

func (f *memFile) Write(p []byte) (int, error) {
	f.data = append(f.data, p...)
	return len(p), nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("short read")
	}
	return n, nil
}

func buildTable(t *testing.T, n int, opts sstable.Options) (*memFile, []dbformat.InternalKey, [][]byte) {
	t.Helper()
	f := &memFile{}
	w := sstable.NewWriter(f, opts)

	var keys []dbformat.InternalKey
	var values [][]byte
	for i := 0; i < n; i++ {
		ik := dbformat.New([]byte(fmt.Sprintf("key-%05d", i)), uint64(i+1), dbformat.TypeValue)
		v := []byte(fmt.Sprintf("value-for-entry-number-%d", i))
		require.NoError(t, w.Add(ik, v))
		keys = append(keys, ik)
		values = append(values, v)
	}
	require.NoError(t, w.Finish())
	return f, keys, values
}

func TestWriteAndPointGet(t *testing.T) {
	policy := filter.NewBloomFilterPolicy(10)
	f, keys, values := buildTable(t, 500, sstable.Options{FilterPolicy: policy})

	table, err := sstable.Open(f, int64(len(f.data)), policy)
	require.NoError(t, err)

	for i, k := range keys {
		v, err := table.Get(k)
		require.NoError(t, err)
		require.Equal(t, values[i], v)
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	policy := filter.NewBloomFilterPolicy(10)
	f, _, _ := buildTable(t, 100, sstable.Options{FilterPolicy: policy})

	table, err := sstable.Open(f, int64(len(f.data)), policy)
	require.NoError(t, err)

	missing := dbformat.New([]byte("zzz-not-present"), 1, dbformat.TypeValue)
	_, err = table.Get(missing)
	require.ErrorIs(t, err, lsmerrors.ErrNotFound)
}

func TestIteratorCoversAllEntriesAcrossBlocks(t *testing.T) {
	f, keys, values := buildTable(t, 500, sstable.Options{BlockSize: 256})

	table, err := sstable.Open(f, int64(len(f.data)), nil)
	require.NoError(t, err)

	it := table.NewIterator()
	it.SeekToFirst()
	i := 0
	for it.Valid() {
		require.True(t, bytes.Equal(it.Key(), keys[i]), "index %d", i)
		require.Equal(t, values[i], it.Value())
		it.Next()
		i++
	}
	require.NoError(t, it.Err())
	require.Equal(t, len(keys), i)
}

func TestIteratorSeekToLastAndPrevAcrossBlocks(t *testing.T) {
	f, keys, values := buildTable(t, 500, sstable.Options{BlockSize: 256})

	table, err := sstable.Open(f, int64(len(f.data)), nil)
	require.NoError(t, err)

	it := table.NewIterator()
	it.SeekToLast()
	require.True(t, it.Valid())
	require.True(t, bytes.Equal(it.Key(), keys[len(keys)-1]))
	require.Equal(t, values[len(values)-1], it.Value())

	i := len(keys) - 1
	for it.Valid() {
		require.True(t, bytes.Equal(it.Key(), keys[i]), "index %d", i)
		it.Prev()
		i--
	}
	require.NoError(t, it.Err())
	require.Equal(t, -1, i)
}

func TestCompressionRoundTrip(t *testing.T) {
	f, keys, values := buildTable(t, 300, sstable.Options{Compress: true})

	table, err := sstable.Open(f, int64(len(f.data)), nil)
	require.NoError(t, err)

	for i, k := range keys {
		v, err := table.Get(k)
		require.NoError(t, err)
		require.Equal(t, values[i], v)
	}
}

func TestFooterMagicDetectsCorruption(t *testing.T) {
	f, _, _ := buildTable(t, 10, sstable.Options{})
	corrupted := append([]byte(nil), f.data...)
	corrupted[len(corrupted)-1] ^= 0xff
	cf := &memFile{data: corrupted}

	_, err := sstable.Open(cf, int64(len(cf.data)), nil)
	require.ErrorIs(t, err, lsmerrors.ErrCorruption)
}

func TestBlockChecksumDetectsCorruption(t *testing.T) {
	f, keys, _ := buildTable(t, 10, sstable.Options{})
	corrupted := append([]byte(nil), f.data...)
	corrupted[0] ^= 0xff // flip a byte inside the first data block
	cf := &memFile{data: corrupted}

	table, err := sstable.Open(cf, int64(len(cf.data)), nil)
	require.NoError(t, err)

	_, err = table.Get(keys[0])
	require.ErrorIs(t, err, lsmerrors.ErrCorruption)
}

func TestSingleEntryTable(t *testing.T) {
	policy := filter.NewBloomFilterPolicy(10)
	f := &memFile{}
	w := sstable.NewWriter(f, sstable.Options{FilterPolicy: policy})
	ik := dbformat.New([]byte("a"), 1, dbformat.TypeValue)
	require.NoError(t, w.Add(ik, []byte("1")))
	require.NoError(t, w.Finish())

	table, err := sstable.Open(f, int64(len(f.data)), policy)
	require.NoError(t, err)

	v, err := table.Get(ik)
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}
