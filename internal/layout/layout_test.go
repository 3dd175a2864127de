package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/descriptor"
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

// Field numbers below mirror descriptor.proto's own, matching
// descriptor/rawproto.go's fn* constants (unexported, so this test
// hand-assembles the same byte layout rather than importing them).
const (
	fnFileName    = 1
	fnFilePkg     = 2
	fnFileDep     = 3
	fnFileMsg     = 4
	fnFileSyntax  = 12
	fnMsgName     = 1
	fnMsgField    = 2
	fnMsgOneof    = 8
	fnFieldName   = 1
	fnFieldNumber = 3
	fnFieldLabel  = 4
	fnFieldType   = 5
	fnFieldTypeName = 6
	fnFieldOneofIndex = 9
	fnOneofName   = 1
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

func buildFile(name, pkg, syntax string, deps []string, messages [][]byte) []byte {
	var b []byte
	b = tagField(b, fnFileName, []byte(name))
	if pkg != "" {
		b = tagField(b, fnFilePkg, []byte(pkg))
	}
	for _, d := range deps {
		b = tagField(b, fnFileDep, []byte(d))
	}
	for _, m := range messages {
		b = tagField(b, fnFileMsg, m)
	}
	if syntax != "" {
		b = tagField(b, fnFileSyntax, []byte(syntax))
	}
	return b
}

func TestLayoutProto3ScalarIsImplicitPresence(t *testing.T) {
	s := descriptor.NewSymTab()
	x := buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, false)
	raw := buildFile("t.proto", "p", "proto3", nil, [][]byte{buildMessage("M", [][]byte{x}, nil)})
	_, err := s.AddFile(raw)
	require.NoError(t, err)

	m, ok := s.LookupMessage("p.M")
	require.True(t, ok)

	f := NewFactory()
	l, err := f.Layout(m)
	require.NoError(t, err)
	require.Equal(t, 0, l.HasbitCount)

	fl, ok := l.FieldByNumber(1)
	require.True(t, ok)
	require.True(t, fl.IsImplicit())
}

func TestLayoutProto2ScalarGetsHasbit(t *testing.T) {
	s := descriptor.NewSymTab()
	x := buildField("x", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, false)
	raw := buildFile("t2.proto", "p", "proto2", nil, [][]byte{buildMessage("M", [][]byte{x}, nil)})
	_, err := s.AddFile(raw)
	require.NoError(t, err)

	m, _ := s.LookupMessage("p.M")
	f := NewFactory()
	l, err := f.Layout(m)
	require.NoError(t, err)
	require.Equal(t, 1, l.HasbitCount)

	fl, _ := l.FieldByNumber(1)
	require.False(t, fl.IsImplicit())
	require.False(t, fl.IsOneof())
	require.Equal(t, 0, fl.HasbitIndex())
}

func TestLayoutOneofFieldsShareDiscriminator(t *testing.T) {
	s := descriptor.NewSymTab()
	a := buildField("a", 1, descriptor.TypeInt32, descriptor.Optional, "", 0, true)
	b := buildField("b", 2, descriptor.TypeString, descriptor.Optional, "", 0, true)
	raw := buildFile("t3.proto", "p", "proto3", nil,
		[][]byte{buildMessage("M", [][]byte{a, b}, [][]byte{buildOneof("u")})})
	_, err := s.AddFile(raw)
	require.NoError(t, err)

	m, _ := s.LookupMessage("p.M")
	f := NewFactory()
	l, err := f.Layout(m)
	require.NoError(t, err)

	fa, _ := l.FieldByNumber(1)
	fb, _ := l.FieldByNumber(2)
	require.True(t, fa.IsOneof())
	require.True(t, fb.IsOneof())
	require.Equal(t, fa.OneofDiscriminatorSlot(), fb.OneofDiscriminatorSlot())
	require.Equal(t, fa.SlotIndex, fb.SlotIndex, "oneof members share one data slot")
}

func TestLayoutRecursiveMessageTerminates(t *testing.T) {
	s := descriptor.NewSymTab()
	next := buildField("next", 1, descriptor.TypeMessage, descriptor.Optional, ".p.Node", 0, false)
	raw := buildFile("rec.proto", "p", "proto3", nil, [][]byte{buildMessage("Node", [][]byte{next}, nil)})
	_, err := s.AddFile(raw)
	require.NoError(t, err)

	m, _ := s.LookupMessage("p.Node")
	f := NewFactory()
	l, err := f.Layout(m)
	require.NoError(t, err)
	require.Len(t, l.Submsgs, 1)
	require.Same(t, l, l.Submsgs[0], "a self-recursive message shares its own layout")
}
