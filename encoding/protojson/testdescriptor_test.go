package protojson

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/layout"
	"github.com/upb-go/upb/wire"
)

// Hand-rolled FileDescriptorProto builders, mirroring
// message/message_test.go's approach: this repo reads descriptor bytes
// with its own wire package rather than generated descriptor.pb.go
// bindings, so tests build those bytes by hand too.

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
	fnFileName   = 1
	fnFilePkg    = 2
	fnFileMsg    = 4
	fnFileEnum   = 5
	fnFileSyntax = 12

	fnMsgName    = 1
	fnMsgField   = 2
	fnMsgNested  = 3
	fnMsgEnum    = 4
	fnMsgOneof   = 8
	fnMsgOptions = 7

	fnMsgOptionsMapEntry = 7

	fnFieldName       = 1
	fnFieldNumber     = 3
	fnFieldLabel      = 4
	fnFieldType       = 5
	fnFieldTypeName   = 6
	fnFieldOneofIndex = 9
	fnFieldJSONName   = 10

	fnEnumName      = 1
	fnEnumValue     = 2
	fnEnumValueName = 1
	fnEnumValueNum  = 2

	fnOneofName = 1
)

type fieldSpec struct {
	name       string
	number     int32
	typ        descriptor.Type
	label      descriptor.Label
	typeName   string
	jsonName   string
	oneofIndex int32
	hasOneof   bool
}

func buildField(s fieldSpec) []byte {
	var b []byte
	b = tagField(b, fnFieldName, []byte(s.name))
	b = tagVarint(b, fnFieldNumber, uint64(s.number))
	b = tagVarint(b, fnFieldLabel, uint64(s.label))
	b = tagVarint(b, fnFieldType, uint64(s.typ))
	if s.typeName != "" {
		b = tagField(b, fnFieldTypeName, []byte(s.typeName))
	}
	if s.jsonName != "" {
		b = tagField(b, fnFieldJSONName, []byte(s.jsonName))
	}
	if s.hasOneof {
		b = tagVarint(b, fnFieldOneofIndex, uint64(s.oneofIndex))
	}
	return b
}

func buildOneof(name string) []byte {
	return tagField(nil, fnOneofName, []byte(name))
}

func buildEnum(name string, values map[string]int32, order []string) []byte {
	var b []byte
	b = tagField(b, fnEnumName, []byte(name))
	for _, vn := range order {
		var v []byte
		v = tagField(v, fnEnumValueName, []byte(vn))
		v = tagVarint(v, fnEnumValueNum, uint64(uint32(values[vn])))
		b = tagField(b, fnEnumValue, v)
	}
	return b
}

type messageSpec struct {
	name     string
	fields   [][]byte
	nested   [][]byte
	enums    [][]byte
	oneofs   [][]byte
	mapEntry bool
}

func buildMessage(s messageSpec) []byte {
	var b []byte
	b = tagField(b, fnMsgName, []byte(s.name))
	for _, f := range s.fields {
		b = tagField(b, fnMsgField, f)
	}
	for _, n := range s.nested {
		b = tagField(b, fnMsgNested, n)
	}
	for _, e := range s.enums {
		b = tagField(b, fnMsgEnum, e)
	}
	for _, o := range s.oneofs {
		b = tagField(b, fnMsgOneof, o)
	}
	if s.mapEntry {
		opts := tagVarint(nil, fnMsgOptionsMapEntry, 1)
		b = tagField(b, fnMsgOptions, opts)
	}
	return b
}

func buildFile(name, pkg, syntax string, messages, enums [][]byte) []byte {
	var b []byte
	b = tagField(b, fnFileName, []byte(name))
	b = tagField(b, fnFilePkg, []byte(pkg))
	for _, m := range messages {
		b = tagField(b, fnFileMsg, m)
	}
	for _, e := range enums {
		b = tagField(b, fnFileEnum, e)
	}
	b = tagField(b, fnFileSyntax, []byte(syntax))
	return b
}

func mustLayout(t *testing.T, raw []byte, msgName string) (*descriptor.SymTab, *layout.Factory, *layout.MessageLayout) {
	t.Helper()
	s := descriptor.NewSymTab()
	_, err := s.AddFile(raw)
	require.NoError(t, err)
	md, ok := s.LookupMessage(msgName)
	require.True(t, ok)
	f := layout.NewFactory()
	l, err := f.Layout(md)
	require.NoError(t, err)
	return s, f, l
}
