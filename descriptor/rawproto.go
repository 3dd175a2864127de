package descriptor

import (
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/wire"
)

// The structs and decoders in this file are a hand-rolled, fixed-schema
// reader for google.protobuf.FileDescriptorProto and its children, built
// directly on this repo's own wire package rather than on a generated
// descriptor.proto binding (spec.md §1: "we consume the layout format but
// do not define the compiler" — the bootstrap descriptor.proto layout is
// data this library reads, not code it generates). Field numbers below
// are the fixed, public field numbers of descriptor.proto.
//
// Grounded structurally on
// _examples/golang-protobuf/internal/filedesc/desc_init.go's raw-bytes
// walking style, adapted from "decode lazily from retained bytes" to
// "decode eagerly into plain structs", since this repo does not need the
// teacher's program-init-time laziness.

type rawField struct {
	name         string
	number       int32
	label        int32 // 1=optional 2=required 3=repeated
	typ          int32 // 1..18, descriptor type
	typeName     string
	extendee     string
	defaultValue string
	hasDefault   bool
	oneofIndex   int32
	hasOneof     bool
	jsonName     string
}

type rawOneof struct {
	name string
}

type rawEnumValue struct {
	name   string
	number int32
}

type rawEnum struct {
	name   string
	values []rawEnumValue
}

type rawMessage struct {
	name      string
	fields    []rawField
	nested    []rawMessage
	enums     []rawEnum
	oneofs    []rawOneof
	extensions []rawField
	mapEntry  bool
}

type rawFile struct {
	name       string
	pkg        string
	dependency []string
	messages   []rawMessage
	enums      []rawEnum
	extensions []rawField
	syntax     string // "proto2", "proto3", or "" (defaults to proto2)
}

const (
	fnFileName       = 1
	fnFilePackage    = 2
	fnFileDependency = 3
	fnFileMessage    = 4
	fnFileEnum       = 5
	fnFileExtension  = 7
	fnFileSyntax     = 12

	fnMsgName      = 1
	fnMsgField     = 2
	fnMsgNested    = 3
	fnMsgEnum      = 4
	fnMsgExtension = 6
	fnMsgOptions   = 7
	fnMsgOneof     = 8

	fnMsgOptionsMapEntry = 7

	fnFieldName         = 1
	fnFieldExtendee     = 2
	fnFieldNumber       = 3
	fnFieldLabel        = 4
	fnFieldType         = 5
	fnFieldTypeName     = 6
	fnFieldDefaultValue = 7
	fnFieldOneofIndex   = 9
	fnFieldJSONName     = 10

	fnEnumName  = 1
	fnEnumValue = 2

	fnEnumValueName   = 1
	fnEnumValueNumber = 2

	fnOneofName = 1
)

func decodeFile(b []byte) (*rawFile, error) {
	f := &rawFile{}
	return f, walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		switch num {
		case fnFileName:
			f.name = string(v)
		case fnFilePackage:
			f.pkg = string(v)
		case fnFileDependency:
			f.dependency = append(f.dependency, string(v))
		case fnFileMessage:
			m, err := decodeMessage(v)
			if err != nil {
				return err
			}
			f.messages = append(f.messages, *m)
		case fnFileEnum:
			e, err := decodeEnum(v)
			if err != nil {
				return err
			}
			f.enums = append(f.enums, *e)
		case fnFileExtension:
			fd, err := decodeField(v)
			if err != nil {
				return err
			}
			f.extensions = append(f.extensions, *fd)
		case fnFileSyntax:
			f.syntax = string(v)
		}
		return nil
	})
}

func decodeMessage(b []byte) (*rawMessage, error) {
	m := &rawMessage{}
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		switch num {
		case fnMsgName:
			m.name = string(v)
		case fnMsgField:
			fd, err := decodeField(v)
			if err != nil {
				return err
			}
			m.fields = append(m.fields, *fd)
		case fnMsgNested:
			nm, err := decodeMessage(v)
			if err != nil {
				return err
			}
			m.nested = append(m.nested, *nm)
		case fnMsgEnum:
			e, err := decodeEnum(v)
			if err != nil {
				return err
			}
			m.enums = append(m.enums, *e)
		case fnMsgExtension:
			fd, err := decodeField(v)
			if err != nil {
				return err
			}
			m.extensions = append(m.extensions, *fd)
		case fnMsgOneof:
			oo, err := decodeOneof(v)
			if err != nil {
				return err
			}
			m.oneofs = append(m.oneofs, *oo)
		case fnMsgOptions:
			mapEntry, err := decodeMessageOptionsMapEntry(v)
			if err != nil {
				return err
			}
			m.mapEntry = mapEntry
		}
		return nil
	})
	return m, err
}

func decodeMessageOptionsMapEntry(b []byte) (bool, error) {
	result := false
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		if num == fnMsgOptionsMapEntry {
			result = scalar != 0
		}
		return nil
	})
	return result, err
}

func decodeField(b []byte) (*rawField, error) {
	fd := &rawField{}
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		switch num {
		case fnFieldName:
			fd.name = string(v)
		case fnFieldExtendee:
			fd.extendee = string(v)
		case fnFieldNumber:
			fd.number = int32(scalar)
		case fnFieldLabel:
			fd.label = int32(scalar)
		case fnFieldType:
			fd.typ = int32(scalar)
		case fnFieldTypeName:
			fd.typeName = string(v)
		case fnFieldDefaultValue:
			fd.defaultValue = string(v)
			fd.hasDefault = true
		case fnFieldOneofIndex:
			fd.oneofIndex = int32(scalar)
			fd.hasOneof = true
		case fnFieldJSONName:
			fd.jsonName = string(v)
		}
		return nil
	})
	return fd, err
}

func decodeOneof(b []byte) (*rawOneof, error) {
	oo := &rawOneof{}
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		if num == fnOneofName {
			oo.name = string(v)
		}
		return nil
	})
	return oo, err
}

func decodeEnum(b []byte) (*rawEnum, error) {
	e := &rawEnum{}
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		switch num {
		case fnEnumName:
			e.name = string(v)
		case fnEnumValue:
			ev, err := decodeEnumValue(v)
			if err != nil {
				return err
			}
			e.values = append(e.values, *ev)
		}
		return nil
	})
	return e, err
}

func decodeEnumValue(b []byte) (*rawEnumValue, error) {
	ev := &rawEnumValue{}
	err := walkMessage(b, func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error {
		switch num {
		case fnEnumValueName:
			ev.name = string(v)
		case fnEnumValueNumber:
			ev.number = int32(scalar)
		}
		return nil
	})
	return ev, err
}

// walkMessage decodes every top-level field of a message and invokes fn
// with: for BytesType, the raw payload in v (scalar unused); for Varint,
// the decoded value in scalar; for fixed32/64, the raw bits in scalar.
// Unsupported or unknown fields/wire types are silently skipped, matching
// FileDescriptorProto's own forward-compatible field model.
func walkMessage(b []byte, fn func(num wire.Number, typ wire.Type, v []byte, scalar uint64) error) error {
	for len(b) > 0 {
		num, typ, n, err := wire.ConsumeTag(b)
		if err != nil {
			return status.Wrap(err, "descriptor: malformed tag")
		}
		b = b[n:]
		switch typ {
		case wire.Varint:
			val, m, err := wire.ConsumeVarint(b)
			if err != nil {
				return status.Wrap(err, "descriptor: malformed varint field %d", num)
			}
			b = b[m:]
			if err := fn(num, typ, nil, val); err != nil {
				return err
			}
		case wire.Fixed32:
			val, m, err := wire.ConsumeFixed32(b)
			if err != nil {
				return err
			}
			b = b[m:]
			if err := fn(num, typ, nil, uint64(val)); err != nil {
				return err
			}
		case wire.Fixed64:
			val, m, err := wire.ConsumeFixed64(b)
			if err != nil {
				return err
			}
			b = b[m:]
			if err := fn(num, typ, nil, val); err != nil {
				return err
			}
		case wire.Bytes:
			v, m, err := wire.ConsumeBytes(b)
			if err != nil {
				return status.Wrap(err, "descriptor: malformed length-delimited field %d", num)
			}
			b = b[m:]
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
		default:
			m, err := wire.ConsumeFieldValue(typ, b, 0)
			if err != nil {
				return err
			}
			b = b[m:]
		}
	}
	return nil
}
