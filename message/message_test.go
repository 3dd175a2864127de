package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/arena"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/layout"
	"github.com/upb-go/upb/wire"
)

func tagField(buf []byte, num int32, v []byte) []byte {
	buf = wire.AppendTag(buf, wire.Number(num), wire.Bytes)
	buf = wire.AppendVarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func tagVarint(buf []byte, num int32, v uint64) []byte {
	buf = wire.AppendTag(buf, wire.Number(num), wire.Varint)
	return wire.AppendVarint(buf, v)
}

const (
	fnFileName        = 1
	fnFilePkg         = 2
	fnFileMsg         = 4
	fnFileSyntax      = 12
	fnMsgName         = 1
	fnMsgField        = 2
	fnMsgOneof        = 8
	fnFieldName       = 1
	fnFieldNumber     = 3
	fnFieldLabel      = 4
	fnFieldType       = 5
	fnFieldTypeName   = 6
	fnFieldOneofIndex = 9
	fnOneofName       = 1
)

func buildField(name string, number int32, typ descriptor.Type, label descriptor.Label, typeName string, oneofIndex int32, hasOneof bool) []byte {
	var b []byte
	b = tagField(b, fnFieldName, []byte(name))
	b = tagVarint(b, fnFieldNumber, uint64(number))
	b = tagVarint(b, fnFieldLabel, uint64(label))
	b = tagVarint(b, fnFieldType, uint64(typ))
	if typeName != "" {
		b = tagField(b, fnFieldTypeName, []byte(typeName))
	}
	if hasOneof {
		b = tagVarint(b, fnFieldOneofIndex, uint64(oneofIndex))
	}
	return b
}

func buildOneof(name string) []byte {
	return tagField(nil, fnOneofName, []byte(name))
}

func buildMessage(name string, fields, oneofs [][]byte) []byte {
	var b []byte
	b = tagField(b, fnMsgName, []byte(name))
	for _, f := range fields {
		b = tagField(b, fnMsgField, f)
	}
	for _, o := range oneofs {
		b = tagField(b, fnMsgOneof, o)
	}
	return b
}

func buildFile(name, pkg, syntax string, messages [][]byte) []byte {
	var b []byte
	b = tagField(b, fnFileName, []byte(name))
	b = tagField(b, fnFilePkg, []byte(pkg))
	for _, m := range messages {
		b = tagField(b, fnFileMsg, m)
	}
	b = tagField(b, fnFileSyntax, []byte(syntax))
	return b
}

func mustLayout(t *testing.T, raw []byte, msgName string) (*descriptor.SymTab, *layout.MessageLayout) {
	t.Helper()
	s := descriptor.NewSymTab()
	_, err := s.AddFile(raw)
	require.NoError(t, err)
	md, ok := s.LookupMessage(msgName)
	require.True(t, ok)
	f := layout.NewFactory()
	l, err := f.Layout(md)
	require.NoError(t, err)
	return s, l
}

func fieldOf(t *testing.T, s *descriptor.SymTab, msg, name string) *descriptor.FieldDef {
	t.Helper()
	md, ok := s.LookupMessage(msg)
	require.True(t, ok)
	fd, ok := md.FieldByName(name)
	require.True(t, ok)
	return fd
}

func TestScalarSetAndHasPresence(t *testing.T) {
	x := buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, false)
	raw := buildFile("t.proto", "p", "proto2", [][]byte{buildMessage("M", [][]byte{x}, nil)})
	s, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "x")

	m := New(l, arena.New())
	has, err := m.Has(fd)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, m.Set(fd, int32(42)))
	has, err = m.Has(fd)
	require.NoError(t, err)
	require.True(t, has)
	v, err := m.Get(fd)
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	require.NoError(t, m.Clear(fd))
	has, _ = m.Has(fd)
	require.False(t, has)
}

func TestProto3ImplicitPresenceNeverReportsHas(t *testing.T) {
	x := buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, false)
	raw := buildFile("t2.proto", "p", "proto3", [][]byte{buildMessage("M", [][]byte{x}, nil)})
	s, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "x")

	m := New(l, arena.New())
	require.NoError(t, m.Set(fd, int32(7)))
	has, err := m.Has(fd)
	require.NoError(t, err)
	require.False(t, has, "proto3 scalar fields never report explicit presence")
	v, err := m.Get(fd)
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}

func TestOneofExclusivity(t *testing.T) {
	a := buildField("a", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, true)
	b := buildField("b", 2, descriptor.TypeString, descriptor.Optional, "", 0, true)
	raw := buildFile("t3.proto", "p", "proto3", [][]byte{buildMessage("M", [][]byte{a, b}, [][]byte{buildOneof("u")})})
	s, l := mustLayout(t, raw, "p.M")
	fa := fieldOf(t, s, "p.M", "a")
	fb := fieldOf(t, s, "p.M", "b")
	md, _ := s.LookupMessage("p.M")
	oo, _ := md.OneofByName("u")

	m := New(l, arena.New())
	require.NoError(t, m.Set(fa, int32(5)))
	hasA, _ := m.Has(fa)
	hasB, _ := m.Has(fb)
	require.True(t, hasA)
	require.False(t, hasB)

	cur, ok := m.OneofCase(oo)
	require.True(t, ok)
	require.Equal(t, fa, cur)

	require.NoError(t, m.Set(fb, "hi"))
	hasA, _ = m.Has(fa)
	hasB, _ = m.Has(fb)
	require.False(t, hasA, "setting b must clear a, same oneof")
	require.True(t, hasB)
}

func TestRepeatedFieldAppendAndLen(t *testing.T) {
	x := buildField("xs", 1, descriptor.TypeInt32, descriptor.Repeated, "", 0, false)
	raw := buildFile("t4.proto", "p", "proto3", [][]byte{buildMessage("M", [][]byte{x}, nil)})
	s, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "xs")

	m := New(l, arena.New())
	_, err := m.AppendRepeated(fd, int32(1))
	require.NoError(t, err)
	rf, err := m.AppendRepeated(fd, int32(2))
	require.NoError(t, err)
	require.Equal(t, 2, rf.Len())
	require.Equal(t, int32(1), rf.At(0))
	require.Equal(t, int32(2), rf.At(1))
}

func TestSubmessageMutableAllocatesOnce(t *testing.T) {
	sub := buildField("child", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Node", 0, false)
	raw := buildFile("t5.proto", "p", "proto3", [][]byte{buildMessage("Node", [][]byte{sub}, nil)})
	s, l := mustLayout(t, raw, "p.Node")
	fd := fieldOf(t, s, "p.Node", "child")

	m := New(l, arena.New())
	c1, err := m.Mutable(fd)
	require.NoError(t, err)
	c2, err := m.Mutable(fd)
	require.NoError(t, err)
	require.Same(t, c1, c2)

	has, _ := m.Has(fd)
	require.True(t, has)
}

func TestStringValueIsCopiedIndependentOfCallerBuffer(t *testing.T) {
	x := buildField("s", 1, descriptor.TypeString, descriptor.Optional, "", 0, false)
	raw := buildFile("t6.proto", "p", "proto2", [][]byte{buildMessage("M", [][]byte{x}, nil)})
	s, l := mustLayout(t, raw, "p.M")
	fd := fieldOf(t, s, "p.M", "s")

	m := New(l, arena.New())
	buf := []byte("hello")
	require.NoError(t, m.Set(fd, string(buf)))
	buf[0] = 'X'
	v, err := m.Get(fd)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}
