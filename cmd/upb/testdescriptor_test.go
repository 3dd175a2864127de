package main

import (
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
	fnFileName   = 1
	fnFilePkg    = 2
	fnFileMsg    = 4
	fnFileSyntax = 12

	fnMsgName  = 1
	fnMsgField = 2

	fnFieldName   = 1
	fnFieldNumber = 3
	fnFieldLabel  = 4
	fnFieldType   = 5

	fdSetFile = 1
)

func buildField(name string, number int32, typ, label int32) []byte {
	var b []byte
	b = tagField(b, fnFieldName, []byte(name))
	b = tagVarint(b, fnFieldNumber, uint64(number))
	b = tagVarint(b, fnFieldLabel, uint64(label))
	b = tagVarint(b, fnFieldType, uint64(typ))
	return b
}

func buildMessage(name string, fields [][]byte) []byte {
	var b []byte
	b = tagField(b, fnMsgName, []byte(name))
	for _, f := range fields {
		b = tagField(b, fnMsgField, f)
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

func buildFileDescriptorSet(files ...[]byte) []byte {
	var b []byte
	for _, f := range files {
		b = tagField(b, fdSetFile, f)
	}
	return b
}
