package descriptor

import (
	"strconv"

	"github.com/upb-go/upb/internal/status"
)

// DefaultKind discriminates the typed-default union on a FieldDef
// (spec.md §3.6: "typed default (one of int64/uint64/double/float/bool/
// owned string-bytes)").
type DefaultKind int8

const (
	DefaultNone DefaultKind = iota
	DefaultInt64
	DefaultUint64
	DefaultDouble
	DefaultFloat
	DefaultBool
	DefaultString
	DefaultBytes
	DefaultEnum
)

// DefaultValue is a field's parsed default, valid only for the Kind it
// reports.
type DefaultValue struct {
	Kind   DefaultKind
	Int64  int64
	Uint64 uint64
	Double float64
	Float  float32
	Bool   bool
	Str    string
	Bytes  []byte
	Enum   int32 // resolved enum number, for DefaultEnum
}

// parseDefault parses a raw descriptor default-value string per the
// field's type, following spec.md §4.5.1 step 7 ("Parse default values
// per target type... numbers: strict strtol/strtoul/strtod with
// full-string validation"). Grounded on
// _examples/golang-protobuf/internal/encoding/defval/default.go's
// per-Kind dispatch, reimplemented against this repo's own Type enum.
func parseDefault(raw string, t Type, enum *EnumDef) (DefaultValue, error) {
	switch CategoryOf(t) {
	case CategoryVarint:
		switch t {
		case TypeBool:
			switch raw {
			case "true":
				return DefaultValue{Kind: DefaultBool, Bool: true}, nil
			case "false":
				return DefaultValue{Kind: DefaultBool, Bool: false}, nil
			default:
				return DefaultValue{}, status.New(status.InvalidInput, "invalid bool default %q", raw)
			}
		case TypeUint32, TypeUint64:
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return DefaultValue{}, status.New(status.InvalidInput, "invalid unsigned default %q", raw)
			}
			return DefaultValue{Kind: DefaultUint64, Uint64: v}, nil
		default:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return DefaultValue{}, status.New(status.InvalidInput, "invalid integer default %q", raw)
			}
			return DefaultValue{Kind: DefaultInt64, Int64: v}, nil
		}
	case CategoryFixed32:
		if t == TypeFloat {
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return DefaultValue{}, status.New(status.InvalidInput, "invalid float default %q", raw)
			}
			return DefaultValue{Kind: DefaultFloat, Float: float32(v)}, nil
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return DefaultValue{}, status.New(status.InvalidInput, "invalid fixed32 default %q", raw)
		}
		return DefaultValue{Kind: DefaultInt64, Int64: v}, nil
	case CategoryFixed64:
		if t == TypeDouble {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return DefaultValue{}, status.New(status.InvalidInput, "invalid double default %q", raw)
			}
			return DefaultValue{Kind: DefaultDouble, Double: v}, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return DefaultValue{}, status.New(status.InvalidInput, "invalid fixed64 default %q", raw)
		}
		return DefaultValue{Kind: DefaultInt64, Int64: v}, nil
	case CategoryString:
		if t == TypeBytes {
			return DefaultValue{Kind: DefaultBytes, Bytes: unescapeCBytes(raw)}, nil
		}
		return DefaultValue{Kind: DefaultString, Str: raw}, nil
	case CategoryEnum:
		if enum == nil {
			return DefaultValue{}, status.New(status.SchemaViolation, "enum default %q with no resolved enum type", raw)
		}
		num, ok := enum.NumberByName(raw)
		if !ok {
			return DefaultValue{}, status.New(status.SchemaViolation, "unknown enum default label %q", raw)
		}
		return DefaultValue{Kind: DefaultEnum, Enum: num}, nil
	default:
		return DefaultValue{}, status.New(status.SchemaViolation, "message-typed fields cannot have an explicit default")
	}
}

// unescapeCBytes decodes the C-escape-sequence encoding descriptor.proto
// uses for bytes-typed default values (\n, \t, \xHH, \OOO, ...). Only the
// escapes descriptor.proto's own serializer emits are supported.
func unescapeCBytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '\\':
			out = append(out, '\\')
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		case 'x', 'X':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if v, err := strconv.ParseUint(s[i+1:j], 16, 8); err == nil {
				out = append(out, byte(v))
			}
			i = j - 1
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				if v, err := strconv.ParseUint(s[i:j], 8, 8); err == nil {
					out = append(out, byte(v))
				}
				i = j - 1
			} else {
				out = append(out, s[i])
			}
		}
	}
	return out
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
