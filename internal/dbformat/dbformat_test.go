package dbformat_test

import (
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackTag(t *testing.T) {
	tag := dbformat.PackTag(12345, dbformat.TypeValue)
	seq, vt := dbformat.UnpackTag(tag)
	require.Equal(t, uint64(12345), seq)
	require.Equal(t, dbformat.TypeValue, vt)
}

func TestInternalKeyAccessors(t *testing.T) {
	ik := dbformat.New([]byte("hello"), 42, dbformat.TypeValue)
	require.Equal(t, []byte("hello"), ik.UserKey())
	require.Equal(t, uint64(42), ik.Sequence())
	require.Equal(t, dbformat.TypeValue, ik.ValueType())
}

func TestCompareOrdersByUserKeyThenDescendingSequence(t *testing.T) {
	a := dbformat.New([]byte("a"), 5, dbformat.TypeValue)
	b := dbformat.New([]byte("a"), 10, dbformat.TypeValue)
	c := dbformat.New([]byte("b"), 1, dbformat.TypeValue)

	require.Positive(t, dbformat.Compare(a, b)) // seq 5 sorts after seq 10 for same user key
	require.Negative(t, dbformat.Compare(b, c)) // "a" sorts before "b" regardless of seq
	require.Zero(t, dbformat.Compare(a, a))
}

func TestLookupKeyRoundTrip(t *testing.T) {
	lk := dbformat.NewLookupKey([]byte("user-key"), 100)
	require.Equal(t, []byte("user-key"), lk.UserKey())

	ik, err := dbformat.ParseInternalKey(lk.MemtableKey())
	require.NoError(t, err)
	require.Equal(t, []byte("user-key"), ik.UserKey())
	require.Equal(t, uint64(100), ik.Sequence())
	require.Equal(t, dbformat.TypeValue, ik.ValueType())
}
