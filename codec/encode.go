package codec

import (
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/message"
	"github.com/upb-go/upb/wire"
)

// Encode serializes msg to protobuf binary wire format (spec.md §4.4.2).
// The returned slice is a view into msg's arena; it remains valid for the
// arena's lifetime.
func Encode(msg *message.Message) ([]byte, error) {
	bb := newBackBuffer(msg.Arena(), 64)
	if err := encodeMessage(bb, msg); err != nil {
		return nil, err
	}
	return bb.bytes(), nil
}

// encodeMessage writes msg's unknown-field tail, then its known fields in
// reverse declaration order, each written value-then-tag so that
// chronologically-later writes (which land earlier in the final byte
// order; see backbuffer.go) reconstruct the normal tag-before-value wire
// order.
func encodeMessage(bb *backBuffer, msg *message.Message) error {
	bb.write(msg.UnknownFields())

	fields := msg.Layout().Def.Fields()
	for i := len(fields) - 1; i >= 0; i-- {
		fd := fields[i]
		if err := encodeField(bb, msg, fd); err != nil {
			return err
		}
	}
	return nil
}

func encodeField(bb *backBuffer, msg *message.Message, fd *descriptor.FieldDef) error {
	if fd.IsRepeated() {
		return encodeRepeated(bb, msg, fd)
	}

	cat := descriptor.CategoryOf(fd.Type())
	if cat == descriptor.CategoryMessage {
		has, err := msg.Has(fd)
		if err != nil || !has {
			return err
		}
		sub, ok, err := msg.GetMessage(fd)
		if err != nil || !ok {
			return err
		}
		if fd.Type() == descriptor.TypeGroup {
			return encodeGroup(bb, fd, sub)
		}
		return encodeSingularMessage(bb, fd, sub)
	}

	fl, ok := msg.Layout().FieldByNumber(fd.Number())
	if !ok {
		return nil
	}
	v, err := msg.Get(fd)
	if err != nil {
		return err
	}
	if fl.IsImplicit() {
		if isZeroValue(fd, v) {
			return nil
		}
	} else {
		has, err := msg.Has(fd)
		if err != nil || !has {
			return err
		}
	}
	return encodeScalar(bb, fd, v)
}

func encodeRepeated(bb *backBuffer, msg *message.Message, fd *descriptor.FieldDef) error {
	v, err := msg.Get(fd)
	if err != nil {
		return err
	}
	rf := v.(*message.RepeatedField)
	if rf.Len() == 0 {
		return nil
	}

	cat := descriptor.CategoryOf(fd.Type())
	switch cat {
	case descriptor.CategoryMessage:
		if fd.Type() == descriptor.TypeGroup {
			for i := rf.Len() - 1; i >= 0; i-- {
				if err := encodeGroup(bb, fd, rf.At(i).(*message.Message)); err != nil {
					return err
				}
			}
			return nil
		}
		for i := rf.Len() - 1; i >= 0; i-- {
			if err := encodeSingularMessage(bb, fd, rf.At(i).(*message.Message)); err != nil {
				return err
			}
		}
		return nil
	case descriptor.CategoryString:
		for i := rf.Len() - 1; i >= 0; i-- {
			if err := encodeScalar(bb, fd, rf.At(i)); err != nil {
				return err
			}
		}
		return nil
	default: // packed scalar/enum
		mark := bb.mark()
		for i := rf.Len() - 1; i >= 0; i-- {
			writeRawScalar(bb, fd, rf.At(i))
		}
		bb.write(wire.AppendVarint(nil, uint64(bb.written(mark))))
		bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wire.Bytes))
		return nil
	}
}

func encodeSingularMessage(bb *backBuffer, fd *descriptor.FieldDef, sub *message.Message) error {
	mark := bb.mark()
	if err := encodeMessage(bb, sub); err != nil {
		return err
	}
	bb.write(wire.AppendVarint(nil, uint64(bb.written(mark))))
	bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wire.Bytes))
	return nil
}

func encodeGroup(bb *backBuffer, fd *descriptor.FieldDef, sub *message.Message) error {
	bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wire.GroupEnd))
	if err := encodeMessage(bb, sub); err != nil {
		return err
	}
	bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wire.GroupStart))
	return nil
}

func encodeScalar(bb *backBuffer, fd *descriptor.FieldDef, v any) error {
	cat := descriptor.CategoryOf(fd.Type())
	switch cat {
	case descriptor.CategoryString:
		var raw []byte
		if fd.Type() == descriptor.TypeBytes {
			raw, _ = v.([]byte)
		} else {
			s, _ := v.(string)
			raw = []byte(s)
		}
		bb.write(raw)
		bb.write(wire.AppendVarint(nil, uint64(len(raw))))
		bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wire.Bytes))
		return nil
	default:
		writeRawScalar(bb, fd, v)
		bb.write(wire.AppendTag(nil, wire.Number(fd.Number()), wireTypeOf(fd)))
		return nil
	}
}

// writeRawScalar writes only the value bytes of a numeric/enum/bool
// field, with no tag: used both for a singular field's value and for one
// element of a packed repeated run.
func writeRawScalar(bb *backBuffer, fd *descriptor.FieldDef, v any) {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryFixed32:
		bb.write(wire.AppendFixed32(nil, rawFixed32(fd.Type(), v)))
	case descriptor.CategoryFixed64:
		bb.write(wire.AppendFixed64(nil, rawFixed64(fd.Type(), v)))
	default:
		bb.write(wire.AppendVarint(nil, rawVarint(fd.Type(), v)))
	}
}

func wireTypeOf(fd *descriptor.FieldDef) wire.Type {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryFixed32:
		return wire.Fixed32
	case descriptor.CategoryFixed64:
		return wire.Fixed64
	default:
		return wire.Varint
	}
}

func rawVarint(t descriptor.Type, v any) uint64 {
	switch t {
	case descriptor.TypeBool:
		if v.(bool) {
			return 1
		}
		return 0
	case descriptor.TypeInt32:
		return uint64(int64(v.(int32)))
	case descriptor.TypeInt64:
		return uint64(v.(int64))
	case descriptor.TypeUint32:
		return uint64(v.(uint32))
	case descriptor.TypeUint64:
		return v.(uint64)
	case descriptor.TypeSint32:
		return wire.EncodeZigZag32(v.(int32))
	case descriptor.TypeSint64:
		return wire.EncodeZigZag64(v.(int64))
	case descriptor.TypeEnum:
		return uint64(int64(v.(int32)))
	default:
		return 0
	}
}

func rawFixed32(t descriptor.Type, v any) uint32 {
	switch t {
	case descriptor.TypeFloat:
		return wire.EncodeFloat32(v.(float32))
	case descriptor.TypeSfixed32:
		return uint32(v.(int32))
	default:
		return v.(uint32)
	}
}

func rawFixed64(t descriptor.Type, v any) uint64 {
	switch t {
	case descriptor.TypeDouble:
		return wire.EncodeFloat64(v.(float64))
	case descriptor.TypeSfixed64:
		return uint64(v.(int64))
	default:
		return v.(uint64)
	}
}

func isZeroValue(fd *descriptor.FieldDef, v any) bool {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryString:
		if fd.Type() == descriptor.TypeBytes {
			b, _ := v.([]byte)
			return len(b) == 0
		}
		s, _ := v.(string)
		return s == ""
	case descriptor.CategoryFixed32:
		if fd.Type() == descriptor.TypeFloat {
			f, _ := v.(float32)
			return f == 0
		}
		if fd.Type() == descriptor.TypeSfixed32 {
			i, _ := v.(int32)
			return i == 0
		}
		u, _ := v.(uint32)
		return u == 0
	case descriptor.CategoryFixed64:
		if fd.Type() == descriptor.TypeDouble {
			f, _ := v.(float64)
			return f == 0
		}
		if fd.Type() == descriptor.TypeSfixed64 {
			i, _ := v.(int64)
			return i == 0
		}
		u, _ := v.(uint64)
		return u == 0
	case descriptor.CategoryEnum:
		e, _ := v.(int32)
		return e == 0
	default:
		switch fd.Type() {
		case descriptor.TypeBool:
			b, _ := v.(bool)
			return !b
		case descriptor.TypeUint32:
			u, _ := v.(uint32)
			return u == 0
		case descriptor.TypeUint64:
			u, _ := v.(uint64)
			return u == 0
		case descriptor.TypeInt32, descriptor.TypeSint32:
			i, _ := v.(int32)
			return i == 0
		default:
			i, _ := v.(int64)
			return i == 0
		}
	}
}
