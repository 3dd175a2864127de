// Package codec implements the wire-format encoder/decoder driver
// (component F, spec.md §4.4): the part of the runtime that walks a
// compiled layout.MessageLayout while consuming or producing protobuf
// binary wire bytes.
//
// Grounded on spec.md §4.4.1/§4.4.2 directly — there is no
// internal/encoding/wire package in the golang-protobuf snapshot in this
// retrieval pack to imitate structurally, so the driver below is written
// against this repo's own wire package and DESIGN.md's field-storage
// decision (arena+index via package message) rather than against a
// teacher file.
package codec

import (
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/message"
	"github.com/upb-go/upb/wire"
)

// Decode parses buf as msg's message type, merging into any existing
// field values (spec.md §4.4.1).
func Decode(buf []byte, msg *message.Message) error {
	_, err := decodeFrame(buf, msg, 0, 0, false)
	return err
}

// decodeFrame decodes fields into msg from b until b is exhausted (a
// top-level message or a length-delimited submessage, isGroup == false)
// or until a matching END_GROUP tag is found (isGroup == true, bounded by
// groupField). It returns the number of bytes of b consumed.
func decodeFrame(b []byte, msg *message.Message, depth int, groupField wire.Number, isGroup bool) (int, error) {
	if depth > wire.MaxDepth {
		return 0, status.New(status.RangeError, "max nesting depth exceeded")
	}
	l := msg.Layout()
	total := 0
	for {
		if len(b) == 0 {
			if isGroup {
				return 0, status.New(status.Truncated, "truncated group")
			}
			return total, nil
		}
		tagStart := b
		num, typ, n, err := wire.ConsumeTag(b)
		if err != nil {
			return 0, err
		}
		b = b[n:]

		if typ == wire.GroupEnd {
			if !isGroup {
				return 0, status.New(status.InvalidInput, "unexpected end-group tag")
			}
			if num != groupField {
				return 0, status.New(status.InvalidInput, "group end field number %d does not match start %d", num, groupField)
			}
			total += n
			return total, nil
		}
		tagBytes := tagStart[:n]

		var consumed int
		if fl, ok := l.FieldByNumber(int32(num)); ok {
			consumed, err = decodeKnownField(fl.Def, tagBytes, typ, b, msg, depth)
		} else {
			consumed, err = skipUnknown(msg, tagBytes, typ, b, depth)
		}
		if err != nil {
			return 0, err
		}
		b = b[consumed:]
		total += n + consumed
	}
}

func skipUnknown(msg *message.Message, tagBytes []byte, typ wire.Type, b []byte, depth int) (int, error) {
	n, err := wire.ConsumeFieldValue(typ, b, depth)
	if err != nil {
		return 0, err
	}
	full := make([]byte, 0, len(tagBytes)+n)
	full = append(full, tagBytes...)
	full = append(full, b[:n]...)
	if err := msg.AppendUnknown(full); err != nil {
		return 0, err
	}
	return n, nil
}

func decodeKnownField(fd *descriptor.FieldDef, tagBytes []byte, typ wire.Type, b []byte, msg *message.Message, depth int) (int, error) {
	cat := descriptor.CategoryOf(fd.Type())

	switch typ {
	case wire.Varint:
		if cat != descriptor.CategoryVarint && cat != descriptor.CategoryEnum {
			return skipUnknown(msg, tagBytes, typ, b, depth)
		}
		v, n, err := wire.ConsumeVarint(b)
		if err != nil {
			return 0, err
		}
		if err := assignScalar(msg, fd, scalarFromVarint(fd.Type(), v)); err != nil {
			return 0, err
		}
		return n, nil

	case wire.Fixed32:
		if cat != descriptor.CategoryFixed32 {
			return skipUnknown(msg, tagBytes, typ, b, depth)
		}
		v, n, err := wire.ConsumeFixed32(b)
		if err != nil {
			return 0, err
		}
		if err := assignScalar(msg, fd, scalarFromFixed32(fd.Type(), v)); err != nil {
			return 0, err
		}
		return n, nil

	case wire.Fixed64:
		if cat != descriptor.CategoryFixed64 {
			return skipUnknown(msg, tagBytes, typ, b, depth)
		}
		v, n, err := wire.ConsumeFixed64(b)
		if err != nil {
			return 0, err
		}
		if err := assignScalar(msg, fd, scalarFromFixed64(fd.Type(), v)); err != nil {
			return 0, err
		}
		return n, nil

	case wire.Bytes:
		raw, n, err := wire.ConsumeBytes(b)
		if err != nil {
			return 0, err
		}
		switch cat {
		case descriptor.CategoryString:
			var v any
			if fd.Type() == descriptor.TypeBytes {
				v = raw
			} else {
				v = string(raw)
			}
			if err := assignScalar(msg, fd, v); err != nil {
				return 0, err
			}
			return n, nil

		case descriptor.CategoryMessage:
			if fd.Type() == descriptor.TypeGroup {
				return skipUnknown(msg, tagBytes, typ, b, depth)
			}
			sub, err := subMessageFor(msg, fd)
			if err != nil {
				return 0, err
			}
			if _, err := decodeFrame(raw, sub, depth+1, 0, false); err != nil {
				return 0, err
			}
			return n, nil

		case descriptor.CategoryVarint, descriptor.CategoryFixed32, descriptor.CategoryFixed64, descriptor.CategoryEnum:
			if !fd.IsRepeated() {
				return skipUnknown(msg, tagBytes, typ, b, depth)
			}
			if err := decodePacked(fd, raw, msg); err != nil {
				return 0, err
			}
			return n, nil

		default:
			return skipUnknown(msg, tagBytes, typ, b, depth)
		}

	case wire.GroupStart:
		if cat != descriptor.CategoryMessage || fd.Type() != descriptor.TypeGroup {
			return skipUnknown(msg, tagBytes, typ, b, depth)
		}
		sub, err := subMessageFor(msg, fd)
		if err != nil {
			return 0, err
		}
		return decodeFrame(b, sub, depth+1, wire.Number(fd.Number()), true)

	default:
		return skipUnknown(msg, tagBytes, typ, b, depth)
	}
}

func subMessageFor(msg *message.Message, fd *descriptor.FieldDef) (*message.Message, error) {
	if fd.IsRepeated() {
		return msg.AppendRepeatedMessage(fd)
	}
	return msg.Mutable(fd)
}

func assignScalar(msg *message.Message, fd *descriptor.FieldDef, v any) error {
	if fd.IsRepeated() {
		_, err := msg.AppendRepeated(fd, v)
		return err
	}
	return msg.Set(fd, v)
}

func decodePacked(fd *descriptor.FieldDef, raw []byte, msg *message.Message) error {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryVarint, descriptor.CategoryEnum:
		for len(raw) > 0 {
			v, n, err := wire.ConsumeVarint(raw)
			if err != nil {
				return err
			}
			raw = raw[n:]
			if _, err := msg.AppendRepeated(fd, scalarFromVarint(fd.Type(), v)); err != nil {
				return err
			}
		}
		return nil
	case descriptor.CategoryFixed32:
		for len(raw) > 0 {
			v, n, err := wire.ConsumeFixed32(raw)
			if err != nil {
				return err
			}
			raw = raw[n:]
			if _, err := msg.AppendRepeated(fd, scalarFromFixed32(fd.Type(), v)); err != nil {
				return err
			}
		}
		return nil
	case descriptor.CategoryFixed64:
		for len(raw) > 0 {
			v, n, err := wire.ConsumeFixed64(raw)
			if err != nil {
				return err
			}
			raw = raw[n:]
			if _, err := msg.AppendRepeated(fd, scalarFromFixed64(fd.Type(), v)); err != nil {
				return err
			}
		}
		return nil
	default:
		return status.New(status.InvalidInput, "field %s: not a packable scalar category", fd.FullName())
	}
}

func scalarFromVarint(t descriptor.Type, v uint64) any {
	switch t {
	case descriptor.TypeBool:
		return v != 0
	case descriptor.TypeInt32:
		return int32(v)
	case descriptor.TypeUint32:
		return uint32(v)
	case descriptor.TypeUint64:
		return v
	case descriptor.TypeSint32:
		return wire.DecodeZigZag32(v)
	case descriptor.TypeSint64:
		return wire.DecodeZigZag64(v)
	case descriptor.TypeEnum:
		return int32(v)
	default: // Int64
		return int64(v)
	}
}

func scalarFromFixed32(t descriptor.Type, v uint32) any {
	switch t {
	case descriptor.TypeFloat:
		return wire.DecodeFloat32(v)
	case descriptor.TypeSfixed32:
		return int32(v)
	default: // Fixed32
		return v
	}
}

func scalarFromFixed64(t descriptor.Type, v uint64) any {
	switch t {
	case descriptor.TypeDouble:
		return wire.DecodeFloat64(v)
	case descriptor.TypeSfixed64:
		return int64(v)
	default: // Fixed64
		return v
	}
}
