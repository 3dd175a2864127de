package protojson

import (
	"strings"

	"github.com/upb-go/upb/codec"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/message"
)

// printer walks a message.Message and its MessageLayout directly,
// writing canonical proto3 JSON (component K, spec.md §4.8). Unlike the
// parser, the printer does not round-trip through the handlers/Sink
// abstraction: producing JSON text from an existing, fully-populated
// message needs none of the generic field-dispatch indirection that
// makes Sink worthwhile for building an arbitrary message type from a
// token stream (see DESIGN.md's note on this asymmetry).
type printer struct {
	opts  MarshalOptions
	buf   strings.Builder
	depth int
}

func (p *printer) writeByte(c byte)     { p.buf.WriteByte(c) }
func (p *printer) writeRaw(s string)    { p.buf.WriteString(s) }
func (p *printer) newlineIndent() {
	if p.opts.Indent == "" {
		return
	}
	p.buf.WriteByte('\n')
	for i := 0; i < p.depth; i++ {
		p.buf.WriteString(p.opts.Indent)
	}
}

// printMessageValue prints msg, dispatching well-known types to their
// dedicated JSON forms before falling back to the generic object form
// (spec.md §4.8 "Well-Known Types (printer)").
func (p *printer) printMessageValue(msg *message.Message) error {
	md := msg.Layout().Def
	switch md.WellKnownType() {
	case descriptor.WKTAny:
		return p.printAny(msg)
	case descriptor.WKTDuration:
		return p.printDuration(msg)
	case descriptor.WKTTimestamp:
		return p.printTimestamp(msg)
	case descriptor.WKTFieldMask:
		return p.printFieldMask(msg)
	case descriptor.WKTValue:
		return p.printWKTValue(msg)
	case descriptor.WKTStruct:
		return p.printStruct(msg)
	case descriptor.WKTListValue:
		return p.printListValue(msg)
	}
	if md.WellKnownType().IsWrapper() {
		return p.printWrapper(msg)
	}
	return p.printObjectFields(msg)
}

func (p *printer) printObjectFields(msg *message.Message) error {
	md := msg.Layout().Def
	p.writeByte('{')
	p.depth++
	first := true
	for _, fd := range md.Fields() {
		show, err := p.fieldShouldPrint(msg, fd)
		if err != nil {
			return err
		}
		if !show {
			continue
		}
		if !first {
			p.writeByte(',')
		}
		first = false
		p.newlineIndent()
		name := fd.JSONName()
		if p.opts.UseProtoNames {
			name = fd.Name()
		}
		p.writeString(name)
		p.writeRaw(":")
		if p.opts.Indent != "" {
			p.writeRaw(" ")
		}
		if err := p.printFieldValue(msg, fd); err != nil {
			return err
		}
	}
	p.depth--
	if !first {
		p.newlineIndent()
	}
	p.writeByte('}')
	return nil
}

// fieldShouldPrint implements spec.md §4.8's implicit canonical-JSON
// omission rule: explicit-presence fields (message-typed, oneof members,
// proto2 optional/required) print iff set; implicit-presence scalars
// print iff non-default; repeated/map fields print iff non-empty.
func (p *printer) fieldShouldPrint(msg *message.Message, fd *descriptor.FieldDef) (bool, error) {
	if fd.IsRepeated() {
		v, err := msg.Get(fd)
		if err != nil {
			return false, err
		}
		return v.(*message.RepeatedField).Len() > 0, nil
	}
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
		return msg.Has(fd)
	}
	has, err := msg.Has(fd)
	if err != nil {
		return false, err
	}
	if has {
		return true, nil
	}
	v, err := msg.Get(fd)
	if err != nil {
		return false, err
	}
	return !isZeroJSONValue(fd, v), nil
}

func (p *printer) printFieldValue(msg *message.Message, fd *descriptor.FieldDef) error {
	if fd.IsRepeated() {
		if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage && fd.MessageType().IsMapEntry() {
			return p.printMapField(msg, fd)
		}
		return p.printRepeatedField(msg, fd)
	}
	if descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage {
		sub, ok, err := msg.GetMessage(fd)
		if err != nil {
			return err
		}
		if !ok {
			p.writeRaw("null")
			return nil
		}
		return p.printMessageValue(sub)
	}
	v, err := msg.Get(fd)
	if err != nil {
		return err
	}
	return p.printScalarValue(fd, v)
}

func (p *printer) printRepeatedField(msg *message.Message, fd *descriptor.FieldDef) error {
	v, err := msg.Get(fd)
	if err != nil {
		return err
	}
	rf := v.(*message.RepeatedField)
	isMsg := descriptor.CategoryOf(fd.Type()) == descriptor.CategoryMessage

	p.writeByte('[')
	p.depth++
	for i := 0; i < rf.Len(); i++ {
		if i > 0 {
			p.writeByte(',')
		}
		p.newlineIndent()
		if isMsg {
			if err := p.printMessageValue(rf.At(i).(*message.Message)); err != nil {
				return err
			}
			continue
		}
		if err := p.printScalarValue(fd, rf.At(i)); err != nil {
			return err
		}
	}
	p.depth--
	if rf.Len() > 0 {
		p.newlineIndent()
	}
	p.writeByte(']')
	return nil
}

func (p *printer) printMapField(msg *message.Message, fd *descriptor.FieldDef) error {
	v, err := msg.Get(fd)
	if err != nil {
		return err
	}
	rf := v.(*message.RepeatedField)
	keyFd, valFd := fd.MessageType().MapKeyValue()

	p.writeByte('{')
	p.depth++
	for i := 0; i < rf.Len(); i++ {
		if i > 0 {
			p.writeByte(',')
		}
		p.newlineIndent()
		entry := rf.At(i).(*message.Message)
		keyVal, err := entry.Get(keyFd)
		if err != nil {
			return err
		}
		p.writeString(mapKeyText(keyFd, keyVal))
		p.writeRaw(":")
		if p.opts.Indent != "" {
			p.writeRaw(" ")
		}
		if err := p.printFieldValue(entry, valFd); err != nil {
			return err
		}
	}
	p.depth--
	if rf.Len() > 0 {
		p.newlineIndent()
	}
	p.writeByte('}')
	return nil
}

// printWrapper prints a *Value wrapper's inner field directly, with no
// enclosing object (spec.md §4.8: "print the inner field value directly").
func (p *printer) printWrapper(msg *message.Message) error {
	md := msg.Layout().Def
	valueFd, ok := md.FieldByNumber(1)
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing value field", md.FullName())
	}
	v, err := msg.Get(valueFd)
	if err != nil {
		return err
	}
	return p.printScalarValue(valueFd, v)
}

func (p *printer) printDuration(msg *message.Message) error {
	md := msg.Layout().Def
	secondsFd, _ := md.FieldByName("seconds")
	nanosFd, _ := md.FieldByName("nanos")
	secs, err := msg.Get(secondsFd)
	if err != nil {
		return err
	}
	nanos, err := msg.Get(nanosFd)
	if err != nil {
		return err
	}
	s, err := formatDuration(secs.(int64), nanos.(int32))
	if err != nil {
		return err
	}
	p.writeString(s)
	return nil
}

func (p *printer) printTimestamp(msg *message.Message) error {
	md := msg.Layout().Def
	secondsFd, _ := md.FieldByName("seconds")
	nanosFd, _ := md.FieldByName("nanos")
	secs, err := msg.Get(secondsFd)
	if err != nil {
		return err
	}
	nanos, err := msg.Get(nanosFd)
	if err != nil {
		return err
	}
	s, err := formatTimestamp(secs.(int64), nanos.(int32))
	if err != nil {
		return err
	}
	p.writeString(s)
	return nil
}

func (p *printer) printFieldMask(msg *message.Message) error {
	md := msg.Layout().Def
	pathsFd, ok := md.FieldByName("paths")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing paths field", md.FullName())
	}
	v, err := msg.Get(pathsFd)
	if err != nil {
		return err
	}
	rf := v.(*message.RepeatedField)
	parts := make([]string, rf.Len())
	for i := range parts {
		parts[i] = toLowerCamel(rf.At(i).(string))
	}
	p.writeString(strings.Join(parts, ","))
	return nil
}

// printWKTValue prints a google.protobuf.Value by routing to its active
// oneof member (spec.md §4.8: "route to the oneof's active member
// directly; null_value prints null").
func (p *printer) printWKTValue(msg *message.Message) error {
	md := msg.Layout().Def
	if len(md.Oneofs()) == 0 {
		p.writeRaw("null")
		return nil
	}
	fd, ok := msg.OneofCase(md.Oneofs()[0])
	if !ok {
		p.writeRaw("null")
		return nil
	}
	switch fd.Name() {
	case "null_value":
		p.writeRaw("null")
		return nil
	case "struct_value", "list_value":
		sub, ok, err := msg.GetMessage(fd)
		if err != nil {
			return err
		}
		if !ok {
			p.writeRaw("null")
			return nil
		}
		return p.printMessageValue(sub)
	default:
		v, err := msg.Get(fd)
		if err != nil {
			return err
		}
		return p.printScalarValue(fd, v)
	}
}

// printStruct unwraps directly to its inner "fields" map
// (spec.md §4.8: "Struct/ListValue: unwrap to their inner fields/values").
func (p *printer) printStruct(msg *message.Message) error {
	md := msg.Layout().Def
	fieldsFd, ok := md.FieldByName("fields")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing fields map", md.FullName())
	}
	return p.printMapField(msg, fieldsFd)
}

func (p *printer) printListValue(msg *message.Message) error {
	md := msg.Layout().Def
	valuesFd, ok := md.FieldByName("values")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing values field", md.FullName())
	}
	return p.printRepeatedField(msg, valuesFd)
}

// printAny decodes the Any's packed value and prints it per spec.md
// §4.8's Any row: "@type" first, then either the WKT's scalar "value" or
// the payload's own members merged in.
func (p *printer) printAny(msg *message.Message) error {
	md := msg.Layout().Def
	typeURLFd, _ := md.FieldByName("type_url")
	valueFd, _ := md.FieldByName("value")

	hasURL, err := msg.Has(typeURLFd)
	if err != nil {
		return err
	}
	if !hasURL {
		p.writeRaw("{}")
		return nil
	}
	urlV, err := msg.Get(typeURLFd)
	if err != nil {
		return err
	}
	typeURL := urlV.(string)
	valV, err := msg.Get(valueFd)
	if err != nil {
		return err
	}
	payload, _ := valV.([]byte)

	if p.opts.Resolver == nil || p.opts.Factory == nil {
		return status.New(status.Unresolved, "Any: no type resolver configured for %q", typeURL)
	}
	payloadFullName := typeURL
	if i := strings.LastIndexByte(typeURL, '/'); i >= 0 {
		payloadFullName = typeURL[i+1:]
	}
	payloadMD, ok := p.opts.Resolver.LookupMessage(payloadFullName)
	if !ok {
		return status.New(status.Unresolved, "Any: unknown type %q", typeURL)
	}
	payloadLayout, err := p.opts.Factory.Layout(payloadMD)
	if err != nil {
		return err
	}
	payloadMsg := message.New(payloadLayout, msg.Arena())
	if err := codec.Decode(payload, payloadMsg); err != nil {
		return err
	}

	p.writeByte('{')
	p.depth++
	p.newlineIndent()
	p.writeString("@type")
	p.writeRaw(":")
	if p.opts.Indent != "" {
		p.writeRaw(" ")
	}
	p.writeString(typeURL)

	if payloadMD.WellKnownType() != descriptor.WKTUnspecified {
		p.writeByte(',')
		p.newlineIndent()
		p.writeString("value")
		p.writeRaw(":")
		if p.opts.Indent != "" {
			p.writeRaw(" ")
		}
		if err := p.printMessageValue(payloadMsg); err != nil {
			return err
		}
	} else {
		inner := &printer{opts: p.opts, depth: p.depth}
		if err := inner.printObjectFields(payloadMsg); err != nil {
			return err
		}
		members := strings.TrimSpace(inner.buf.String())
		members = strings.TrimPrefix(members, "{")
		members = strings.TrimSuffix(members, "}")
		members = strings.TrimSpace(members)
		if members != "" {
			p.writeByte(',')
			p.writeRaw(members)
		}
	}
	p.depth--
	p.newlineIndent()
	p.writeByte('}')
	return nil
}
