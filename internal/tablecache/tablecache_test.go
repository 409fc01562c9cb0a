package tablecache_test

import (
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/dbenv"
	"github.com/AmrMurad1/ldbtable/internal/filenames"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/AmrMurad1/ldbtable/internal/sstable"
	"github.com/AmrMurad1/ldbtable/internal/tablecache"
	"github.com/stretchr/testify/require"
)

func writeTestTable(t *testing.T, env dbenv.Env, dbname string, fileNumber uint64, opts sstable.Options) int64 {
	t.Helper()
	name := filenames.TableFileName(dbname, fileNumber)
	wf, err := env.NewWritableFile(name)
	require.NoError(t, err)

	w := sstable.NewWriter(wf, opts)
	for i := 0; i < 50; i++ {
		key := []byte{'k', byte(i / 26), byte(i % 26)}
		require.NoError(t, w.Add(key, []byte("value")))
	}
	require.NoError(t, w.Finish())
	require.NoError(t, wf.Close())

	size, err := env.GetFileSize(name)
	require.NoError(t, err)
	return size
}

func TestGetThroughCache(t *testing.T) {
	env := dbenv.NewMemEnv()
	size := writeTestTable(t, env, "db", 1, sstable.Options{})

	tc := tablecache.New("db", env, nil, 10, nil, nil)
	v, err := tc.Get(1, uint64(size), []byte{'k', 0, 0})
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
}

func TestGetMissingFileReturnsError(t *testing.T) {
	env := dbenv.NewMemEnv()
	tc := tablecache.New("db", env, nil, 10, nil, nil)
	_, err := tc.Get(999, 100, []byte("k"))
	require.Error(t, err)
	require.ErrorIs(t, err, lsmerrors.ErrNotFound)
}

func TestNewIteratorCoversAllEntries(t *testing.T) {
	env := dbenv.NewMemEnv()
	size := writeTestTable(t, env, "db", 2, sstable.Options{})

	tc := tablecache.New("db", env, nil, 10, nil, nil)
	it, cleanup, err := tc.NewIterator(2, uint64(size))
	require.NoError(t, err)
	defer cleanup.Release()

	it.SeekToFirst()
	count := 0
	for it.Valid() {
		count++
		it.Next()
	}
	require.Equal(t, 50, count)
}

func TestEvictDropsCachedTable(t *testing.T) {
	env := dbenv.NewMemEnv()
	size := writeTestTable(t, env, "db", 3, sstable.Options{})

	tc := tablecache.New("db", env, nil, 10, nil, nil)
	_, err := tc.Get(3, uint64(size), []byte{'k', 0, 0})
	require.NoError(t, err)

	tc.Evict(3)

	v, err := tc.Get(3, uint64(size), []byte{'k', 0, 0})
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
}
