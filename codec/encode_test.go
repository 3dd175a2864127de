package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/arena"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/message"
	"github.com/upb-go/upb/wire"
)

func TestEncodeOmitsImplicitZeroValueScalar(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s, _, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "x")

	msg := message.New(l, arena.New())
	require.NoError(t, msg.Set(fd, int32(0)))

	out, err := Encode(msg)
	require.NoError(t, err)
	require.Empty(t, out, "proto3 implicit-presence zero value must not be encoded")
}

func TestEncodeEmitsExplicitPresenceZeroValue(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto2", [][]byte{
		buildMessage("M", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
	})
	s, _, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "x")

	msg := message.New(l, arena.New())
	require.NoError(t, msg.Set(fd, int32(0)))

	out, err := Encode(msg)
	require.NoError(t, err)
	require.NotEmpty(t, out, "proto2 explicit presence must encode an explicitly-set zero value")

	roundtrip := message.New(l, arena.New())
	require.NoError(t, Decode(out, roundtrip))
	has, err := roundtrip.Has(fd)
	require.NoError(t, err)
	require.True(t, has)
}

func TestEncodeRepeatedScalarIsPacked(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("xs", 1, descriptor.TypeInt32, descriptor.Repeated, "")}),
	})
	s, _, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "xs")

	msg := message.New(l, arena.New())
	_, err := msg.AppendRepeated(fd, int32(1))
	require.NoError(t, err)
	_, err = msg.AppendRepeated(fd, int32(2))
	require.NoError(t, err)

	out, err := Encode(msg)
	require.NoError(t, err)

	num, typ, n, err := wire.ConsumeTag(out)
	require.NoError(t, err)
	require.Equal(t, wire.Number(1), num)
	require.Equal(t, wire.Bytes, typ, "packable repeated scalar fields are always packed on encode")

	payload, _, err := wire.ConsumeBytes(out[n:])
	require.NoError(t, err)

	var got []int32
	for len(payload) > 0 {
		v, m, err := wire.ConsumeVarint(payload)
		require.NoError(t, err)
		got = append(got, int32(v))
		payload = payload[m:]
	}
	require.Equal(t, []int32{1, 2}, got)
}

func TestEncodeStringFieldExactBytes(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("M", [][]byte{buildField("name", 1, descriptor.TypeString, descriptor.Optional, "")}),
	})
	s, _, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "name")

	msg := message.New(l, arena.New())
	require.NoError(t, msg.Set(fd, "hi"))

	out, err := Encode(msg)
	require.NoError(t, err)
	require.Equal(t, tagField(nil, 1, []byte("hi")), out)
}

func TestEncodeDecodeMessageFieldRoundTrip(t *testing.T) {
	raw := buildFile("t.proto", "p", "proto3", [][]byte{
		buildMessage("Inner", [][]byte{buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "")}),
		buildMessage("Outer", [][]byte{buildField("inner", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Inner")}),
	})
	s, _, outerL := mustLayout(t, raw, "p.Outer")
	innerFd := fieldOf(t, s, "p.Outer", "inner")
	innerMD, ok := s.LookupMessage("p.Inner")
	require.True(t, ok)
	xFd, ok := innerMD.FieldByName("x")
	require.True(t, ok)

	msg := message.New(outerL, arena.New())
	sub, err := msg.Mutable(innerFd)
	require.NoError(t, err)
	require.NoError(t, sub.Set(xFd, int32(9)))

	out, err := Encode(msg)
	require.NoError(t, err)

	decoded := message.New(outerL, arena.New())
	require.NoError(t, Decode(out, decoded))
	decodedSub, ok, err := decoded.GetMessage(innerFd)
	require.NoError(t, err)
	require.True(t, ok)
	v, err := decodedSub.Get(xFd)
	require.NoError(t, err)
	require.Equal(t, int32(9), v)
}
