package protojson

import (
	"strconv"
	"strings"
	"time"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/handlers"
	"github.com/upb-go/upb/internal/status"
)

// parseRFC3339 parses a Timestamp's wire string form. Proto3 canonical
// JSON requires a literal "Z" or a numeric zone offset; time.RFC3339Nano
// accepts both and any fractional-second precision.
func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseWrapper parses the bare-scalar shorthand JSON form of a *Value
// wrapper message into its single "value" field (field number 1),
// per spec.md §4.7.5's wrapper row.
func parseWrapper(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef) error {
	valueFd, ok := md.FieldByNumber(1)
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing value field", md.FullName())
	}
	if b, ok := dec.peek(); ok && b == 'n' {
		return dec.consumeLiteral("null")
	}
	v, err := parseScalarValue(dec, valueFd)
	if err != nil {
		return err
	}
	if !sink.PutScalar(valueFd, v) {
		return rejectErr(valueFd)
	}
	return nil
}

// parseDuration parses `"<seconds>[.<frac>]s"` into seconds/nanos,
// per spec.md §4.7.5's Duration row.
func parseDuration(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef) error {
	s, err := dec.consumeString()
	if err != nil {
		return err
	}
	if !strings.HasSuffix(s, "s") {
		return status.New(status.InvalidInput, "invalid duration %q", s)
	}
	body := s[:len(s)-1]
	neg := strings.HasPrefix(body, "-")

	secPart := body
	var nanos int64
	if i := strings.IndexByte(body, '.'); i >= 0 {
		secPart = body[:i]
		fracPart := body[i+1:]
		if len(fracPart) == 0 || len(fracPart) > 9 {
			return status.New(status.InvalidInput, "invalid duration fraction in %q", s)
		}
		for len(fracPart) < 9 {
			fracPart += "0"
		}
		n, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return status.New(status.InvalidInput, "invalid duration %q", s)
		}
		nanos = n
		if neg {
			nanos = -nanos
		}
	}
	secs, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return status.New(status.InvalidInput, "invalid duration %q", s)
	}
	if secs < -315576000000 || secs > 315576000000 {
		return status.New(status.RangeError, "duration seconds out of range: %q", s)
	}

	secondsFd, _ := md.FieldByName("seconds")
	nanosFd, _ := md.FieldByName("nanos")
	if !sink.PutScalar(secondsFd, secs) || !sink.PutScalar(nanosFd, int32(nanos)) {
		return rejectErr(secondsFd)
	}
	return nil
}

// parseTimestamp parses an RFC-3339 string into seconds/nanos, per
// spec.md §4.7.5's Timestamp row.
func parseTimestamp(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef) error {
	s, err := dec.consumeString()
	if err != nil {
		return err
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j-i-1 > 9 {
			return status.New(status.InvalidInput, "timestamp fraction too long: %q", s)
		}
	}
	t, err := parseRFC3339(s)
	if err != nil {
		return status.New(status.InvalidInput, "invalid timestamp %q", s)
	}
	secs := t.Unix()
	if secs < -62135596800 {
		return status.New(status.RangeError, "timestamp out of range: %q", s)
	}
	nanos := int32(t.Nanosecond())

	secondsFd, _ := md.FieldByName("seconds")
	nanosFd, _ := md.FieldByName("nanos")
	if !sink.PutScalar(secondsFd, secs) || !sink.PutScalar(nanosFd, nanos) {
		return rejectErr(secondsFd)
	}
	return nil
}

// parseFieldMask parses a comma-joined lowerCamelCase path list into
// repeated snake_case "paths" entries, per spec.md §4.7.5's FieldMask row.
func parseFieldMask(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef) error {
	s, err := dec.consumeString()
	if err != nil {
		return err
	}
	pathsFd, ok := md.FieldByName("paths")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing paths field", md.FullName())
	}
	if s == "" {
		return nil
	}
	for _, p := range strings.Split(s, ",") {
		if !sink.PutScalar(pathsFd, camelToSnake(p)) {
			return rejectErr(pathsFd)
		}
	}
	return nil
}

func camelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseWKTValue parses any JSON value into a google.protobuf.Value's
// oneof, per spec.md §4.7.5's Value row.
func parseWKTValue(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	b, ok := dec.peek()
	if !ok {
		return dec.errorf("unexpected end of input")
	}
	switch {
	case b == 'n':
		if err := dec.consumeLiteral("null"); err != nil {
			return err
		}
		fd, _ := md.FieldByName("null_value")
		if !sink.PutScalar(fd, int32(0)) {
			return rejectErr(fd)
		}
	case b == 't' || b == 'f':
		v, err := dec.consumeBool()
		if err != nil {
			return err
		}
		fd, _ := md.FieldByName("bool_value")
		if !sink.PutScalar(fd, v) {
			return rejectErr(fd)
		}
	case b == '"':
		s, err := dec.consumeString()
		if err != nil {
			return err
		}
		fd, _ := md.FieldByName("string_value")
		if !sink.PutScalar(fd, s) {
			return rejectErr(fd)
		}
	case b == '{':
		fd, _ := md.FieldByName("struct_value")
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
	case b == '[':
		fd, _ := md.FieldByName("list_value")
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
	default:
		raw, err := dec.consumeRawNumber()
		if err != nil {
			return err
		}
		f, err := parseFloatText(raw)
		if err != nil {
			return err
		}
		fd, _ := md.FieldByName("number_value")
		if !sink.PutScalar(fd, f) {
			return rejectErr(fd)
		}
	}
	return nil
}

// parseStruct parses a JSON object directly into a Struct's "fields" map
// (spec.md §4.7.5's Struct row: "re-route to the respective inner
// fields/values member").
func parseStruct(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	fieldsFd, ok := md.FieldByName("fields")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing fields map", md.FullName())
	}
	return parseMapField(dec, sink, fieldsFd, pc, depth)
}

// parseListValue parses a JSON array directly into a ListValue's
// "values" repeated field.
func parseListValue(dec *decoder, sink *handlers.Sink, md *descriptor.MessageDef, pc *parseCtx, depth int) error {
	valuesFd, ok := md.FieldByName("values")
	if !ok {
		return status.New(status.SchemaViolation, "%s: missing values field", md.FullName())
	}
	return parseRepeatedField(dec, sink, valuesFd, pc, depth)
}
