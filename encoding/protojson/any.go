package protojson

import (
	"strings"

	"github.com/upb-go/upb/codec"
	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/handlers"
	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/message"
)

// anyMember is one non-"@type" member of an Any frame's JSON object,
// captured as raw source text (spec.md §4.7.6: "accumulates ... bytes
// after @type" -- here every non-@type member's span, since this parser
// buffers the whole document rather than streaming two contiguous
// ranges).
type anyMember struct {
	name string
	raw  []byte
}

// parseAny implements the Any frame (spec.md §4.7.6): "@type" may appear
// anywhere in the object, so every member is first captured, then the
// payload is parsed against the resolved type and re-encoded to binary.
func parseAny(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	if err := dec.expect('{'); err != nil {
		return err
	}

	var typeURL string
	haveType := false
	var others []anyMember

	first := true
	for {
		b, ok := dec.peek()
		if !ok {
			return dec.errorf("unterminated Any object")
		}
		if b == '}' {
			dec.pos++
			break
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
		if name == "@type" {
			typeURL, err = dec.consumeString()
			if err != nil {
				return err
			}
			haveType = true
			continue
		}
		raw, err := dec.rawSpan(depth + 1)
		if err != nil {
			return err
		}
		others = append(others, anyMember{name: name, raw: raw})
	}

	if !haveType {
		if len(others) > 0 {
			return status.New(status.Unresolved, "Any: missing \"@type\" with other members present")
		}
		return nil
	}
	if pc.opts.Resolver == nil || pc.opts.Factory == nil {
		return status.New(status.Unresolved, "Any: no type resolver configured for %q", typeURL)
	}

	payloadFullName := typeURL
	if i := strings.LastIndexByte(typeURL, '/'); i >= 0 {
		payloadFullName = typeURL[i+1:]
	}
	payloadMD, ok := pc.opts.Resolver.LookupMessage(payloadFullName)
	if !ok {
		return status.New(status.Unresolved, "Any: unknown type %q", typeURL)
	}

	payloadLayout, err := pc.opts.Factory.Layout(payloadMD)
	if err != nil {
		return err
	}

	anyMsg := sink.Closure().(*message.Message)
	payloadMsg := message.New(payloadLayout, anyMsg.Arena())
	payloadSink := pc.cache.newMessageSink(payloadMsg)

	if payloadMD.WellKnownType() != descriptor.WKTUnspecified {
		var valueRaw []byte
		for _, m := range others {
			if m.name != "value" {
				return status.New(status.InvalidInput, "Any: unexpected member %q alongside well-known payload", m.name)
			}
			valueRaw = m.raw
		}
		if valueRaw == nil {
			return status.New(status.InvalidInput, "Any: well-known payload missing \"value\" member")
		}
		if err := parseValueForMessage(newDecoder(valueRaw), payloadSink, payloadMD, pc, depth+1); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		b.WriteByte('{')
		for i, m := range others {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(m.name)
			b.WriteString(`":`)
			b.Write(m.raw)
		}
		b.WriteByte('}')
		if err := parseObjectFields(newDecoder([]byte(b.String())), payloadSink, payloadMD, pc, depth+1); err != nil {
			return err
		}
	}

	payloadBytes, err := codec.Encode(payloadMsg)
	if err != nil {
		return err
	}

	typeURLFd, _ := md.FieldByName("type_url")
	valueFd, _ := md.FieldByName("value")
	if !sink.PutScalar(typeURLFd, typeURL) || !sink.PutScalar(valueFd, payloadBytes) {
		return rejectErr(typeURLFd)
	}
	return nil
}
