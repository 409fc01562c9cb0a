package dbenv_test

import (
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/dbenv"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/stretchr/testify/require"
)

func TestMemEnvWriteReadRoundTrip(t *testing.T) {
	env := dbenv.NewMemEnv()
	w, err := env.NewWritableFile("a.tmp")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	size, err := env.GetFileSize("a.tmp")
	require.NoError(t, err)
	require.EqualValues(t, 11, size)

	r, err := env.NewRandomAccessFile("a.tmp")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := r.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))
}

func TestMemEnvRenameAndRemove(t *testing.T) {
	env := dbenv.NewMemEnv()
	w, _ := env.NewWritableFile("old")
	_, _ = w.Write([]byte("x"))

	require.NoError(t, env.RenameFile("old", "new"))
	require.False(t, env.FileExists("old"))
	require.True(t, env.FileExists("new"))

	require.NoError(t, env.RemoveFile("new"))
	require.False(t, env.FileExists("new"))
}

func TestMemEnvMissingFileIsNotFound(t *testing.T) {
	env := dbenv.NewMemEnv()
	_, err := env.NewRandomAccessFile("nope")
	require.ErrorIs(t, err, lsmerrors.ErrNotFound)
}
