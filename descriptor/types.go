// Package descriptor implements the in-memory representation of .proto
// schemas: FileDef, MessageDef, FieldDef, EnumDef, OneofDef, and the
// SymTab that owns them all (spec.md §3.6, §4.5).
//
// Grounded on _examples/golang-protobuf/internal/filedesc (the
// seed-then-resolve two-pass shape) and
// _examples/golang-protobuf/reflect/protodesc (the "build from a
// FileDescriptorProto" public entry point shape), adapted from the
// teacher's lazy raw-bytes-retaining style to eager construction from the
// plain structs in rawproto.go.
package descriptor

import "fmt"

// Type is the descriptor wire/descriptor type, 1-18, fixed by the
// protobuf descriptor spec (spec.md §3.3).
type Type int8

const (
	TypeDouble Type = iota + 1
	TypeFloat
	TypeInt64
	TypeUint64
	TypeInt32
	TypeFixed64
	TypeFixed32
	TypeBool
	TypeString
	TypeGroup
	TypeMessage
	TypeBytes
	TypeUint32
	TypeEnum
	TypeSfixed32
	TypeSfixed64
	TypeSint32
	TypeSint64
)

func (t Type) String() string {
	names := [...]string{
		"double", "float", "int64", "uint64", "int32", "fixed64", "fixed32",
		"bool", "string", "group", "message", "bytes", "uint32", "enum",
		"sfixed32", "sfixed64", "sint32", "sint64",
	}
	if t < TypeDouble || int(t) > len(names) {
		return fmt.Sprintf("Type(%d)", t)
	}
	return names[t-1]
}

// Category is the coarse dispatch category a Type collapses to for wire
// handling purposes: groups and messages both collapse to "message"
// (spec.md §3.3).
type Category int8

const (
	CategoryVarint Category = iota
	CategoryFixed32
	CategoryFixed64
	CategoryString // string or bytes
	CategoryMessage
	CategoryEnum
)

// CategoryOf returns the wire-handling category for a descriptor Type.
func CategoryOf(t Type) Category {
	switch t {
	case TypeInt32, TypeInt64, TypeUint32, TypeUint64, TypeSint32, TypeSint64, TypeBool:
		return CategoryVarint
	case TypeFixed32, TypeSfixed32, TypeFloat:
		return CategoryFixed32
	case TypeFixed64, TypeSfixed64, TypeDouble:
		return CategoryFixed64
	case TypeString, TypeBytes:
		return CategoryString
	case TypeMessage, TypeGroup:
		return CategoryMessage
	case TypeEnum:
		return CategoryEnum
	default:
		return CategoryVarint
	}
}

// Label is a field's cardinality (spec.md §3.3).
type Label int8

const (
	Optional Label = iota + 1
	Required
	Repeated
)

func (l Label) String() string {
	switch l {
	case Optional:
		return "optional"
	case Required:
		return "required"
	case Repeated:
		return "repeated"
	default:
		return "unknown"
	}
}

// Syntax is a file's declared proto syntax (spec.md §3.6).
type Syntax int8

const (
	Proto2 Syntax = iota + 1
	Proto3
)

func (s Syntax) String() string {
	if s == Proto3 {
		return "proto3"
	}
	return "proto2"
}

// WellKnownType classifies a message by its fixed full name
// (spec.md §3.7).
type WellKnownType int8

const (
	WKTUnspecified WellKnownType = iota
	WKTAny
	WKTFieldMask
	WKTDuration
	WKTTimestamp
	WKTDoubleValue
	WKTFloatValue
	WKTInt64Value
	WKTUInt64Value
	WKTInt32Value
	WKTUInt32Value
	WKTBoolValue
	WKTStringValue
	WKTBytesValue
	WKTValue
	WKTListValue
	WKTStruct
)

// wellKnownByName maps a message's full name to its WellKnownType,
// classified after full-name assignment (spec.md §4.5.2).
var wellKnownByName = map[string]WellKnownType{
	"google.protobuf.Any":         WKTAny,
	"google.protobuf.FieldMask":   WKTFieldMask,
	"google.protobuf.Duration":    WKTDuration,
	"google.protobuf.Timestamp":   WKTTimestamp,
	"google.protobuf.DoubleValue": WKTDoubleValue,
	"google.protobuf.FloatValue":  WKTFloatValue,
	"google.protobuf.Int64Value":  WKTInt64Value,
	"google.protobuf.UInt64Value": WKTUInt64Value,
	"google.protobuf.Int32Value":  WKTInt32Value,
	"google.protobuf.UInt32Value": WKTUInt32Value,
	"google.protobuf.BoolValue":   WKTBoolValue,
	"google.protobuf.StringValue": WKTStringValue,
	"google.protobuf.BytesValue":  WKTBytesValue,
	"google.protobuf.Value":       WKTValue,
	"google.protobuf.ListValue":   WKTListValue,
	"google.protobuf.Struct":      WKTStruct,
}

// IsWrapper reports whether wkt is one of the *Value wrapper types.
func (wkt WellKnownType) IsWrapper() bool {
	switch wkt {
	case WKTDoubleValue, WKTFloatValue, WKTInt64Value, WKTUInt64Value,
		WKTInt32Value, WKTUInt32Value, WKTBoolValue, WKTStringValue, WKTBytesValue:
		return true
	}
	return false
}
