package codec_test

import (
	"testing"

	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestFixed32RoundTrip(t *testing.T) {
	b := codec.PutFixed32(nil, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), codec.DecodeFixed32(b))
}

func TestFixed64RoundTrip(t *testing.T) {
	b := codec.PutFixed64(nil, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), codec.DecodeFixed64(b))
}

func TestVarint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 20, 0xffffffff}
	var buf []byte
	for _, v := range values {
		buf = codec.PutVarint32(buf, v)
	}
	for _, want := range values {
		got, rest, err := codec.GetVarint32(buf)
		require.NoError(t, err)
		require.Equal(t, want, got)
		buf = rest
	}
	require.Empty(t, buf)
}

func TestVarintLengthMatchesEncodedSize(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 1 << 14, 1 << 21, 1 << 28, 1 << 35} {
		b := codec.PutVarint64(nil, v)
		require.Equal(t, codec.VarintLength(v), len(b))
	}
}

func TestGetVarint32Truncated(t *testing.T) {
	_, _, err := codec.GetVarint32([]byte{0x80, 0x80})
	require.Error(t, err)
}

func TestLengthPrefixedSliceRoundTrip(t *testing.T) {
	data := []byte("hello world")
	buf := codec.PutLengthPrefixedSlice(nil, data)
	got, rest, err := codec.GetLengthPrefixedSlice(buf)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Empty(t, rest)
}

func TestLengthPrefixedSliceTruncated(t *testing.T) {
	buf := codec.PutVarint32(nil, 10)
	_, _, err := codec.GetLengthPrefixedSlice(buf)
	require.Error(t, err)
}
