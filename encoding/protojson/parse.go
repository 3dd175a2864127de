package protojson

import (
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/handlers"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/wire"
)

// parseCtx threads per-Unmarshal-call configuration through the
// recursive-descent parser (the frame-stack-free equivalent of spec.md
// §4.7.1's per-frame state, which here lives in Go call stack locals
// instead of an explicit array).
type parseCtx struct {
	opts  UnmarshalOptions
	cache *msgHandlersCache
}

func rejectErr(fd *descriptor.FieldDef) error {
	return status.New(status.InvalidInput, "handler rejected field %s", fd.FullName())
}

// parseValueForMessage parses one JSON value as an instance of md,
// delivering events to sink. It dispatches well-known types to their
// dedicated forms (spec.md §4.7.5) before falling back to the generic
// object-of-fields form.
func parseValueForMessage(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	if depth > wire.MaxDepth {
		return status.New(status.RangeError, "max nesting depth exceeded")
	}
	switch md.WellKnownType() {
	case descriptor.WKTAny:
		return parseAny(dec, sink, md, pc, depth)
	case descriptor.WKTDuration:
		return parseDuration(dec, sink, md)
	case descriptor.WKTTimestamp:
		return parseTimestamp(dec, sink, md)
	case descriptor.WKTFieldMask:
		return parseFieldMask(dec, sink, md)
	case descriptor.WKTValue:
		return parseWKTValue(dec, sink, md, pc, depth)
	case descriptor.WKTStruct:
		return parseStruct(dec, sink, md, pc, depth)
	case descriptor.WKTListValue:
		return parseListValue(dec, sink, md, pc, depth)
	}
	if md.WellKnownType().IsWrapper() {
		return parseWrapper(dec, sink, md)
	}
	return parseObjectFields(dec, sink, md, pc, depth)
}

// parseObjectFields parses the generic `{"field": value, ...}` form
// (spec.md §4.7.7): an object whose members resolve against md's field
// name table.
func parseObjectFields(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	if err := dec.expect('{'); err != nil {
		return err
	}
	first := true
	for {
		b, ok := dec.peek()
		if !ok {
			return dec.errorf("unterminated object for %s", md.FullName())
		}
		if b == '}' {
			dec.pos++
			return nil
		}
		if !first {
			if err := dec.expect(','); err != nil {
				return err
			}
		}
		first = false

		name, err := dec.consumeString()
		if err != nil {
			return err
		}
		if err := dec.expect(':'); err != nil {
			return err
		}

		fd := lookupField(md, name)
		if fd == nil {
			if pc.opts.DiscardUnknown {
				if err := dec.skipValue(depth + 1); err != nil {
					return err
				}
				continue
			}
			return dec.errorf("unknown field %q for %s", name, md.FullName())
		}

		if b, ok := dec.peek(); ok && b == 'n' {
			// A null JSON value always means "field absent" except for
			// a field whose type is itself google.protobuf.Value, which
			// parseWKTValue handles by routing through null_value.
			if fd.Type() != descriptor.TypeMessage || fd.MessageType().WellKnownType() != descriptor.WKTValue {
				if err := dec.consumeLiteral("null"); err != nil {
					return err
				}
				continue
			}
		}

		if err := parseFieldValue(dec, sink, fd, pc, depth); err != nil {
			return err
		}
	}
}

func lookupField(md *descriptor.MessageDef, name string) *descriptor.FieldDef {
	if fd, ok := md.FieldByName(name); ok {
		return fd
	}
	for _, fd := range md.Fields() {
		if fd.JSONName() == name {
			return fd
		}
	}
	return nil
}

// parseFieldValue parses one JSON value into fd, dispatching on map vs.
// repeated vs. singular and scalar vs. message (spec.md §4.7.4, §4.7.6).
func parseFieldValue(dec *decoder, sink *handlers.Sink, fd *descriptor.FieldDef, pc *parseCtx, depth int) error {
	if fd.IsRepeated() && descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage && fd.MessageType().IsMapEntry() {
		return parseMapField(dec, sink, fd, pc, depth)
	}
	if fd.IsRepeated() {
		return parseRepeatedField(dec, sink, fd, pc, depth)
	}
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
		return parseSingularMessage(dec, sink, fd, pc, depth)
	}
	v, err := parseScalarValue(dec, fd)
	if err != nil {
		return err
	}
	if !sink.PutScalar(fd, v) {
		return rejectErr(fd)
	}
	return nil
}

func parseSingularMessage(dec *decoder, sink *handlers.Sink, fd *descriptor.FieldDef, pc *parseCtx, depth int) error {
	child, ok := sink.StartSubMessage(fd)
	if !ok {
		return rejectErr(fd)
	}
	if err := parseValueForMessage(dec, child, fd.MessageType(), pc, depth+1); err != nil {
		return err
	}
	if !sink.EndSubMessage(fd) {
		return rejectErr(fd)
	}
	return nil
}

// parseRepeatedField parses a JSON array into fd's repeated values
// (spec.md §4.7.4: "Repeated fields require a JSON array").
func parseRepeatedField(dec *decoder, sink *handlers.Sink, fd *descriptor.FieldDef, pc *parseCtx, depth int) error {
	if err := dec.expect('['); err != nil {
		return err
	}
	elems, ok := sink.StartSequence(fd, 0)
	if !ok {
		return rejectErr(fd)
	}
	first := true
	for {
		b, ok := dec.peek()
		if !ok {
			return dec.errorf("unterminated array for %s", fd.FullName())
		}
		if b == ']' {
			dec.pos++
			break
		}
		if !first {
			if err := dec.expect(','); err != nil {
				return err
			}
		}
		first = false

		if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
			child, ok := elems.StartSubMessage(fd)
			if !ok {
				return rejectErr(fd)
			}
			if err := parseValueForMessage(dec, child, fd.MessageType(), pc, depth+1); err != nil {
				return err
			}
			if !elems.EndSubMessage(fd) {
				return rejectErr(fd)
			}
			continue
		}
		v, err := parseScalarValue(dec, fd)
		if err != nil {
			return err
		}
		if !elems.PutScalar(fd, v) {
			return rejectErr(fd)
		}
	}
	if !elems.EndSequence(fd) {
		return rejectErr(fd)
	}
	return nil
}

// parseMapField parses a JSON object into fd's map-entry submessages
// (spec.md §4.7.4): each `"key": value` member synthesizes one map-entry
// instance with its key and value fields populated.
func parseMapField(dec *decoder, sink *handlers.Sink, fd *descriptor.FieldDef, pc *parseCtx, depth int) error {
	if err := dec.expect('{'); err != nil {
		return err
	}
	keyFd, valFd := fd.MessageType().MapKeyValue()
	first := true
	for {
		b, ok := dec.peek()
		if !ok {
			return dec.errorf("unterminated map for %s", fd.FullName())
		}
		if b == '}' {
			dec.pos++
			return nil
		}
		if !first {
			if err := dec.expect(','); err != nil {
				return err
			}
		}
		first = false

		keyText, err := dec.consumeString()
		if err != nil {
			return err
		}
		if err := dec.expect(':'); err != nil {
			return err
		}
		keyVal, err := parseMapKeyText(keyText, keyFd)
		if err != nil {
			return err
		}

		entry, ok := sink.StartSubMessage(fd)
		if !ok {
			return rejectErr(fd)
		}
		if !entry.PutScalar(keyFd, keyVal) {
			return rejectErr(keyFd)
		}
		if err := parseFieldValue(dec, entry, valFd, pc, depth+1); err != nil {
			return err
		}
		if !sink.EndSubMessage(fd) {
			return rejectErr(fd)
		}
	}
}

// parseMapKeyText converts a JSON object member name (always raw text,
// since JSON keys are strings) into keyFd's Go value, per spec.md §4.7.4
// ("parse the key string per the key field's type; quoted integers/bools
// allowed" -- map keys are already unquoted text once consumeString has
// run, so this parses that text directly rather than re-lexing JSON).
func parseMapKeyText(text string, keyFd *descriptor.FieldDef) (any, error) {
	switch descriptor.CategoryOf(keyFd.Type()) {
	case descriptor.CategoryString:
		return text, nil
	case descriptor.CategoryVarint:
		if keyFd.Type() == descriptor.TypeBool {
			switch text {
			case "true":
				return true, nil
			case "false":
				return false, nil
			default:
				return nil, status.New(status.InvalidInput, "invalid bool map key %q", text)
			}
		}
		return parseMapIntKey(text, keyFd)
	default:
		return parseMapIntKey(text, keyFd)
	}
}

func parseMapIntKey(text string, keyFd *descriptor.FieldDef) (any, error) {
	switch keyFd.Type() {
	case descriptor.TypeInt32, descriptor.TypeSint32, descriptor.TypeSfixed32:
		v, err := parseIntText(text, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case descriptor.TypeInt64, descriptor.TypeSint64, descriptor.TypeSfixed64:
		return parseIntText(text, 64)
	case descriptor.TypeUint32, descriptor.TypeFixed32:
		v, err := parseUintText(text, 32)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	default:
		return parseUintText(text, 64)
	}
}
