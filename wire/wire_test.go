package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/wire"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 32, ^uint64(0)}
	for _, v := range values {
		buf := wire.AppendVarint(nil, v)
		assert.Equal(t, wire.SizeVarint(v), len(buf))
		got, n, err := wire.ConsumeVarint(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestConsumeVarintTruncated(t *testing.T) {
	_, _, err := wire.ConsumeVarint([]byte{0x80, 0x80})
	assert.Error(t, err)
}

func TestConsumeVarintTooLong(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := wire.ConsumeVarint(buf)
	assert.Error(t, err)
}

func TestTagRoundTrip(t *testing.T) {
	buf := wire.AppendTag(nil, 5, wire.Bytes)
	num, typ, n, err := wire.ConsumeTag(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.EqualValues(t, 5, num)
	assert.Equal(t, wire.Bytes, typ)
}

func TestZeroFieldNumberRejected(t *testing.T) {
	buf := wire.AppendVarint(nil, uint64(0)<<3|uint64(wire.Varint))
	_, _, _, err := wire.ConsumeTag(buf)
	assert.Error(t, err)
}

func TestZigZag32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2147483647, -2147483648} {
		assert.Equal(t, v, wire.DecodeZigZag32(wire.EncodeZigZag32(v)))
	}
}

func TestZigZag64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 1 << 62, -(1 << 62)} {
		assert.Equal(t, v, wire.DecodeZigZag64(wire.EncodeZigZag64(v)))
	}
}

func TestConsumeBytesViewsInput(t *testing.T) {
	payload := []byte("hello")
	buf := wire.AppendVarint(nil, uint64(len(payload)))
	buf = append(buf, payload...)

	got, n, err := wire.ConsumeBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, payload, got)
}

func TestConsumeFieldValueSkipsGroup(t *testing.T) {
	var b []byte
	b = wire.AppendTag(b, 1, wire.Varint)
	b = wire.AppendVarint(b, 42)
	b = wire.AppendTag(b, 1, wire.GroupEnd)

	n, err := wire.ConsumeFieldValue(wire.GroupStart, b, 0)
	require.NoError(t, err)
	assert.Equal(t, len(b), n)
}
