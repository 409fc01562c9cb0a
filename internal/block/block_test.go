package block_test

import (
	"fmt"
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/block"
	"github.com/stretchr/testify/require"
)

func buildBlock(t *testing.T, restartInterval int, n int) ([]byte, []string) {
	t.Helper()
	b := block.NewBuilder(restartInterval)
	var keys []string
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%04d", i)
		keys = append(keys, k)
		b.Add([]byte(k), []byte(fmt.Sprintf("value-%d", i)))
	}
	return b.Finish(), keys
}

func TestIterateInOrder(t *testing.T) {
	data, keys := buildBlock(t, block.DataBlockRestartInterval, 40)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.SeekToFirst()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Next()
	}
	require.Equal(t, keys, got)
}

func TestSeekFindsExactAndNearestKey(t *testing.T) {
	data, keys := buildBlock(t, block.DataBlockRestartInterval, 40)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.Seek([]byte(keys[20]))
	require.True(t, it.Valid())
	require.Equal(t, keys[20], string(it.Key()))

	it.Seek([]byte("key-0015a"))
	require.True(t, it.Valid())
	require.Equal(t, keys[16], string(it.Key()))
}

func TestSeekPastEndIsInvalid(t *testing.T) {
	data, _ := buildBlock(t, block.DataBlockRestartInterval, 10)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.Seek([]byte("zzz"))
	require.False(t, it.Valid())
}

func TestIndexBlockRestartIntervalOne(t *testing.T) {
	data, keys := buildBlock(t, block.IndexBlockRestartInterval, 8)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	for i, k := range keys {
		it.Seek([]byte(k))
		require.True(t, it.Valid())
		require.Equal(t, k, string(it.Key()), "index %d", i)
	}
}

func TestSeekToLastFindsFinalEntry(t *testing.T) {
	data, keys := buildBlock(t, block.DataBlockRestartInterval, 40)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.SeekToLast()
	require.True(t, it.Valid())
	require.Equal(t, keys[len(keys)-1], string(it.Key()))
}

func TestPrevWalksBackwardAcrossRestartPoints(t *testing.T) {
	data, keys := buildBlock(t, block.DataBlockRestartInterval, 40)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.SeekToLast()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Prev()
	}

	want := make([]string, len(keys))
	for i, k := range keys {
		want[len(keys)-1-i] = k
	}
	require.Equal(t, want, got)
}

func TestNextThenPrevReturnsToSameEntry(t *testing.T) {
	data, keys := buildBlock(t, block.DataBlockRestartInterval, 40)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.Seek([]byte(keys[10]))
	it.Next()
	it.Prev()
	require.True(t, it.Valid())
	require.Equal(t, keys[10], string(it.Key()))
}

func TestValuesMatchKeys(t *testing.T) {
	data, keys := buildBlock(t, 16, 5)
	r, err := block.NewReader(data)
	require.NoError(t, err)

	it := block.NewIterator(r)
	it.SeekToFirst()
	for i := 0; i < len(keys); i++ {
		require.True(t, it.Valid())
		require.Equal(t, fmt.Sprintf("value-%d", i), string(it.Value()))
		it.Next()
	}
}
