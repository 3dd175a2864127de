package protojson

import (
	"encoding/base64"
	"strconv"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/status"
)

// parseScalarValue parses one JSON value as fd's Go-typed scalar value
// (spec.md §4.7.3).
func parseScalarValue(dec *decoder, fd *descriptor.FieldDef) (any, error) {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryEnum:
		return parseEnumValue(dec, fd)
	case descriptor.CategoryString:
		if fd.Type() == descriptor.TypeBytes {
			return parseBytesValue(dec)
		}
		return dec.consumeString()
	case descriptor.CategoryVarint:
		if fd.Type() == descriptor.TypeBool {
			return dec.consumeBool()
		}
		return parseIntegerValue(dec, fd.Type())
	case descriptor.CategoryFixed32:
		if fd.Type() == descriptor.TypeFloat {
			return parseFloatValue(dec, 32)
		}
		return parseIntegerValue(dec, fd.Type())
	case descriptor.CategoryFixed64:
		if fd.Type() == descriptor.TypeDouble {
			return parseFloatValue(dec, 64)
		}
		return parseIntegerValue(dec, fd.Type())
	default:
		return nil, status.New(status.SchemaViolation, "field %s: not a scalar type", fd.FullName())
	}
}

// consumeNumericText reads either a quoted or a bare JSON number token,
// per spec.md §4.7.3 ("Quoted numeric literals are accepted for integer
// types").
func (d *decoder) consumeNumericText() (string, error) {
	b, ok := d.peek()
	if !ok {
		return "", d.errorf("unexpected end of input")
	}
	if b == '"' {
		return d.consumeString()
	}
	return d.consumeRawNumber()
}

func parseIntegerValue(dec *decoder, t descriptor.Type) (any, error) {
	raw, err := dec.consumeNumericText()
	if err != nil {
		return nil, err
	}
	switch t {
	case descriptor.TypeInt32, descriptor.TypeSint32, descriptor.TypeSfixed32:
		v, err := parseIntText(raw, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case descriptor.TypeInt64, descriptor.TypeSint64, descriptor.TypeSfixed64:
		return parseIntText(raw, 64)
	case descriptor.TypeUint32, descriptor.TypeFixed32:
		v, err := parseUintText(raw, 32)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	default: // Uint64, Fixed64
		return parseUintText(raw, 64)
	}
}

func parseFloatValue(dec *decoder, bits int) (any, error) {
	raw, err := dec.consumeNumericText()
	if err != nil {
		return nil, err
	}
	v, err := parseFloatText(raw)
	if err != nil {
		return nil, err
	}
	if bits == 32 {
		return float32(v), nil
	}
	return v, nil
}

func parseEnumValue(dec *decoder, fd *descriptor.FieldDef) (any, error) {
	b, ok := dec.peek()
	if !ok {
		return nil, dec.errorf("unexpected end of input")
	}
	if b == '"' {
		s, err := dec.consumeString()
		if err != nil {
			return nil, err
		}
		if n, ok := fd.EnumType().NumberByName(s); ok {
			return n, nil
		}
		if n, err := strconv.ParseInt(s, 10, 32); err == nil {
			return int32(n), nil
		}
		return nil, status.New(status.SchemaViolation, "unknown enum value %q for %s", s, fd.FullName())
	}
	raw, err := dec.consumeRawNumber()
	if err != nil {
		return nil, err
	}
	n, err := parseIntText(raw, 32)
	if err != nil {
		return nil, err
	}
	return int32(n), nil
}

// parseBytesValue base64-decodes a quoted string into a byte slice
// (spec.md §4.7.3: "whole 4-char groups with = padding"), tolerating the
// unpadded/URL-safe variants some encoders emit.
func parseBytesValue(dec *decoder) (any, error) {
	s, err := dec.consumeString()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return []byte(nil), nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, status.New(status.InvalidInput, "invalid base64 bytes value %q", s)
}
