package memtable_test

import (
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/AmrMurad1/ldbtable/internal/memtable"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	m := memtable.New()
	m.Add(1, dbformat.TypeValue, []byte("k1"), []byte("v1"))

	v, err := m.Get([]byte("k1"), 100)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestGetMissingKey(t *testing.T) {
	m := memtable.New()
	_, err := m.Get([]byte("missing"), 100)
	require.ErrorIs(t, err, lsmerrors.ErrNotFound)
}

func TestGetReturnsMostRecentVersion(t *testing.T) {
	m := memtable.New()
	m.Add(1, dbformat.TypeValue, []byte("k"), []byte("old"))
	m.Add(2, dbformat.TypeValue, []byte("k"), []byte("new"))

	v, err := m.Get([]byte("k"), 100)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestGetHonorsSnapshotSequence(t *testing.T) {
	m := memtable.New()
	m.Add(1, dbformat.TypeValue, []byte("k"), []byte("old"))
	m.Add(5, dbformat.TypeValue, []byte("k"), []byte("new"))

	v, err := m.Get([]byte("k"), 1)
	require.NoError(t, err)
	require.Equal(t, []byte("old"), v)
}

func TestDeletionShadowsOlderValue(t *testing.T) {
	m := memtable.New()
	m.Add(1, dbformat.TypeValue, []byte("k"), []byte("v"))
	m.Add(2, dbformat.TypeDeletion, []byte("k"), nil)

	_, err := m.Get([]byte("k"), 100)
	require.ErrorIs(t, err, lsmerrors.ErrNotFound)
}

func TestSourceOrdersByUserKeyNotByMemtableKeyBytes(t *testing.T) {
	// Regression test: the memtable's skiplist comparator must strip the
	// varint32 memtable_key length prefix before comparing internal keys.
	// Comparing raw memtable_key bytes instead would fold the length
	// prefix, tag, and value bytes into the ordering and could put the
	// entries out of user-key order once value lengths differ enough to
	// perturb the raw byte comparison.
	m := memtable.New()
	m.Add(1, dbformat.TypeValue, []byte("b"), []byte("short"))
	m.Add(2, dbformat.TypeValue, []byte("a"), []byte("a-much-longer-value-than-short"))
	m.Add(3, dbformat.TypeValue, []byte("c"), []byte("v"))

	src := m.NewSource()
	var userKeys []string
	for src.Valid() {
		ik := dbformat.InternalKey(src.Key())
		userKeys = append(userKeys, string(ik.UserKey()))
		src.Next()
	}
	require.Equal(t, []string{"a", "b", "c"}, userKeys)
}

func TestApproximateMemoryUsageGrows(t *testing.T) {
	m := memtable.New()
	before := m.ApproximateMemoryUsage()
	for i := 0; i < 100; i++ {
		m.Add(uint64(i), dbformat.TypeValue, []byte("key"), []byte("some-value-data"))
	}
	require.Greater(t, m.ApproximateMemoryUsage(), before)
}
