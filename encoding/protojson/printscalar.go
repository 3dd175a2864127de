package protojson

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/upb-go/upb/descriptor"
	"github.com/upb-go/upb/internal/status"
)

func (p *printer) writeString(s string) {
	p.buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			p.buf.WriteString(`\"`)
		case '\\':
			p.buf.WriteString(`\\`)
		case '\n':
			p.buf.WriteString(`\n`)
		case '\r':
			p.buf.WriteString(`\r`)
		case '\t':
			p.buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&p.buf, `\u%04x`, r)
			} else {
				p.buf.WriteRune(r)
			}
		}
	}
	p.buf.WriteByte('"')
}

// printScalarValue prints one scalar field value per spec.md §4.8's
// formatting policy.
func (p *printer) printScalarValue(fd *descriptor.FieldDef, v any) error {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryString:
		if fd.Type() == descriptor.TypeBytes {
			b, _ := v.([]byte)
			p.writeString(base64.StdEncoding.EncodeToString(b))
			return nil
		}
		p.writeString(v.(string))
		return nil
	case descriptor.CategoryEnum:
		n := v.(int32)
		if fd.EnumType() != nil {
			if name, ok := fd.EnumType().NameByNumber(n); ok {
				p.writeString(name)
				return nil
			}
		}
		p.writeRaw(strconv.FormatInt(int64(n), 10))
		return nil
	case descriptor.CategoryVarint:
		if fd.Type() == descriptor.TypeBool {
			if v.(bool) {
				p.writeRaw("true")
			} else {
				p.writeRaw("false")
			}
			return nil
		}
		return p.printIntValue(fd.Type(), v)
	case descriptor.CategoryFixed32:
		if fd.Type() == descriptor.TypeFloat {
			return p.printFloatValue(float64(v.(float32)), 8)
		}
		return p.printIntValue(fd.Type(), v)
	case descriptor.CategoryFixed64:
		if fd.Type() == descriptor.TypeDouble {
			return p.printFloatValue(v.(float64), 17)
		}
		return p.printIntValue(fd.Type(), v)
	default:
		return status.New(status.SchemaViolation, "field %s: not a scalar type", fd.FullName())
	}
}

// printIntValue quotes 64-bit integer values as strings and leaves
// 32-bit values unquoted, per spec.md §4.8.
func (p *printer) printIntValue(t descriptor.Type, v any) error {
	switch t {
	case descriptor.TypeInt32, descriptor.TypeSint32, descriptor.TypeSfixed32:
		p.writeRaw(strconv.FormatInt(int64(v.(int32)), 10))
	case descriptor.TypeUint32, descriptor.TypeFixed32:
		p.writeRaw(strconv.FormatUint(uint64(v.(uint32)), 10))
	case descriptor.TypeInt64, descriptor.TypeSint64, descriptor.TypeSfixed64:
		p.writeString(strconv.FormatInt(v.(int64), 10))
	default: // Uint64, Fixed64
		p.writeString(strconv.FormatUint(v.(uint64), 10))
	}
	return nil
}

func (p *printer) printFloatValue(f float64, prec int) error {
	switch {
	case math.IsNaN(f):
		p.writeString("NaN")
	case math.IsInf(f, 1):
		p.writeString("Infinity")
	case math.IsInf(f, -1):
		p.writeString("-Infinity")
	default:
		p.writeRaw(fmt.Sprintf("%.*g", prec, f))
	}
	return nil
}

// mapKeyText renders a map key as the unquoted text writeString will
// quote; JSON object keys are always strings regardless of the proto
// key type.
func mapKeyText(keyFd *descriptor.FieldDef, v any) string {
	switch descriptor.CategoryOf(keyFd.Type()) {
	case descriptor.CategoryString:
		return v.(string)
	case descriptor.CategoryVarint:
		if keyFd.Type() == descriptor.TypeBool {
			if v.(bool) {
				return "true"
			}
			return "false"
		}
		return formatIntKeyText(keyFd.Type(), v)
	default:
		return formatIntKeyText(keyFd.Type(), v)
	}
}

func formatIntKeyText(t descriptor.Type, v any) string {
	switch t {
	case descriptor.TypeInt32, descriptor.TypeSint32, descriptor.TypeSfixed32:
		return strconv.FormatInt(int64(v.(int32)), 10)
	case descriptor.TypeUint32, descriptor.TypeFixed32:
		return strconv.FormatUint(uint64(v.(uint32)), 10)
	case descriptor.TypeInt64, descriptor.TypeSint64, descriptor.TypeSfixed64:
		return strconv.FormatInt(v.(int64), 10)
	default:
		return strconv.FormatUint(v.(uint64), 10)
	}
}

// isZeroJSONValue reports whether v is fd's implicit-presence default,
// which canonical JSON omits unless the field was explicitly set
// (message.Has reports that case separately).
func isZeroJSONValue(fd *descriptor.FieldDef, v any) bool {
	switch descriptor.CategoryOf(fd.Type()) {
	case descriptor.CategoryString:
		if fd.Type() == descriptor.TypeBytes {
			b, _ := v.([]byte)
			return len(b) == 0
		}
		s, _ := v.(string)
		return s == ""
	case descriptor.CategoryEnum:
		n, _ := v.(int32)
		return n == 0
	case descriptor.CategoryVarint:
		if fd.Type() == descriptor.TypeBool {
			b, _ := v.(bool)
			return !b
		}
		switch vv := v.(type) {
		case int32:
			return vv == 0
		case int64:
			return vv == 0
		case uint32:
			return vv == 0
		case uint64:
			return vv == 0
		}
		return true
	case descriptor.CategoryFixed32:
		switch vv := v.(type) {
		case float32:
			return vv == 0
		case uint32:
			return vv == 0
		case int32:
			return vv == 0
		}
		return true
	case descriptor.CategoryFixed64:
		switch vv := v.(type) {
		case float64:
			return vv == 0
		case uint64:
			return vv == 0
		case int64:
			return vv == 0
		}
		return true
	}
	return true
}

// formatDuration renders seconds/nanos as "<seconds>[.<frac>]s", with
// the sign following the more negative of the two fields so that
// sub-second-magnitude negative durations (e.g. seconds=0, nanos=-500000000)
// still print their sign.
func formatDuration(secs int64, nanos int32) (string, error) {
	if secs < -315576000000 || secs > 315576000000 {
		return "", status.New(status.RangeError, "duration seconds out of range: %d", secs)
	}
	neg := secs < 0 || nanos < 0
	if secs < 0 {
		secs = -secs
	}
	if nanos < 0 {
		nanos = -nanos
	}
	s := strconv.FormatInt(secs, 10)
	if nanos != 0 {
		frac := fmt.Sprintf("%09d", nanos)
		for len(frac) > 0 && frac[len(frac)-1] == '0' {
			frac = frac[:len(frac)-1]
		}
		s += "." + frac
	}
	if neg {
		s = "-" + s
	}
	return s + "s", nil
}

// formatTimestamp renders seconds/nanos as RFC-3339 UTC text with a
// trimmed fractional-second suffix, per spec.md §4.8's Timestamp row.
func formatTimestamp(secs int64, nanos int32) (string, error) {
	if secs < -62135596800 || secs > 253402300799 {
		return "", status.New(status.RangeError, "timestamp seconds out of range: %d", secs)
	}
	t := time.Unix(secs, int64(nanos)).UTC()
	s := t.Format("2006-01-02T15:04:05")
	if nanos != 0 {
		frac := fmt.Sprintf("%09d", nanos)
		for len(frac) > 0 && frac[len(frac)-1] == '0' {
			frac = frac[:len(frac)-1]
		}
		s += "." + frac
	}
	return s + "Z", nil
}
