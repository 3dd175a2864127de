// Package protojson implements the JSON parser and printer (components
// J and K, spec.md §4.7, §4.8): converting between canonical proto3 JSON
// text and live message.Message values, driven against the handlers/sink
// abstraction (component I) the way the binary codec is driven against
// layout.MessageLayout directly.
//
// spec.md describes a streaming lexer feeding a Ragel-generated
// push-down parser across eight sub-machines. Per spec.md §9's own
// design note ("a hand-written recursive-descent parser... is an
// acceptable substitute for the generated DFA, as long as it produces
// the same sink event sequence"), this package instead buffers the full
// input and parses it with a recursive-descent decoder, grounded in
// shape on _examples/golang-protobuf/internal/encoding/json/decode.go's
// byte-cursor Decoder (position tracking, literal/number/string
// scanning), adapted from its token-stream design to direct inline
// value consumption since there is no partial-buffer resumption
// requirement once the whole document is in memory.
package protojson

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/upb-go/upb/internal/status"
	"github.com/upb-go/upb/wire"
)

// decoder is a byte-cursor JSON tokenizer/value-scanner. It tracks only a
// read position, not any frame stack -- the recursive-descent call chain
// in parse.go plays the role of spec.md §4.7.1's explicit frame stack.
type decoder struct {
	data []byte
	pos  int
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) errorf(format string, args ...any) error {
	return status.NewAt(status.InvalidInput, d.pos, format, args...)
}

func isJSONWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (d *decoder) skipWS() {
	for d.pos < len(d.data) && isJSONWhitespace(d.data[d.pos]) {
		d.pos++
	}
}

// peek returns the next non-whitespace byte without consuming it.
func (d *decoder) peek() (byte, bool) {
	d.skipWS()
	if d.pos >= len(d.data) {
		return 0, false
	}
	return d.data[d.pos], true
}

func (d *decoder) atEOF() bool {
	d.skipWS()
	return d.pos >= len(d.data)
}

func (d *decoder) expect(c byte) error {
	b, ok := d.peek()
	if !ok || b != c {
		return d.errorf("expected %q", string(c))
	}
	d.pos++
	return nil
}

func (d *decoder) consumeLiteral(lit string) error {
	d.skipWS()
	if d.pos+len(lit) > len(d.data) || string(d.data[d.pos:d.pos+len(lit)]) != lit {
		return d.errorf("invalid literal, expected %q", lit)
	}
	d.pos += len(lit)
	return nil
}

// consumeBool parses a JSON `true`/`false` literal.
func (d *decoder) consumeBool() (bool, error) {
	b, ok := d.peek()
	if !ok {
		return false, d.errorf("unexpected end of input")
	}
	if b == 't' {
		return true, d.consumeLiteral("true")
	}
	return false, d.consumeLiteral("false")
}

// consumeString parses a JSON string starting at the current position
// (which must be '"'), applying JSON escape rules.
//
// \uXXXX escapes are encoded independently, without surrogate pairing,
// matching the real upb library's documented limitation (DESIGN.md Open
// Question #3, grounded on original_source/upb/json/parser.c's end_hex):
// each raw 16-bit code unit -- even one half of a surrogate pair -- gets
// the same naive 1/2/3-byte UTF-8-like encoding a full code point would,
// rather than being paired with its partner via unicode/utf8 or
// unicode/utf16.
func (d *decoder) consumeString() (string, error) {
	if err := d.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if d.pos >= len(d.data) {
			return "", d.errorf("unterminated string")
		}
		c := d.data[d.pos]
		switch {
		case c == '"':
			d.pos++
			return b.String(), nil
		case c == '\\':
			d.pos++
			if d.pos >= len(d.data) {
				return "", d.errorf("unterminated escape")
			}
			e := d.data[d.pos]
			d.pos++
			switch e {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if d.pos+4 > len(d.data) {
					return "", d.errorf("invalid \\u escape")
				}
				v, err := strconv.ParseUint(string(d.data[d.pos:d.pos+4]), 16, 32)
				if err != nil {
					return "", d.errorf("invalid \\u escape")
				}
				d.pos += 4
				encodeUTF8CodeUnit(&b, uint16(v))
			default:
				return "", d.errorf("invalid escape %q", string(e))
			}
		case c < 0x20:
			return "", d.errorf("invalid control character in string")
		default:
			_, size := utf8.DecodeRune(d.data[d.pos:])
			if size == 0 {
				size = 1
			}
			end := d.pos + size
			if end > len(d.data) {
				end = len(d.data)
			}
			b.Write(d.data[d.pos:end])
			d.pos = end
		}
	}
}

// encodeUTF8CodeUnit appends the naive UTF-8-like byte expansion of a raw
// 16-bit value, including surrogate code points, per consumeString's doc.
func encodeUTF8CodeUnit(b *strings.Builder, cp uint16) {
	switch {
	case cp < 0x80:
		b.WriteByte(byte(cp))
	case cp < 0x800:
		b.WriteByte(byte(0xC0 | (cp >> 6)))
		b.WriteByte(byte(0x80 | (cp & 0x3F)))
	default:
		b.WriteByte(byte(0xE0 | (cp >> 12)))
		b.WriteByte(byte(0x80 | ((cp >> 6) & 0x3F)))
		b.WriteByte(byte(0x80 | (cp & 0x3F)))
	}
}

// consumeRawNumber scans a JSON number literal per RFC 7159 and returns
// its raw text, for later per-field-type parsing (spec.md §4.7.3).
func (d *decoder) consumeRawNumber() (string, error) {
	d.skipWS()
	start := d.pos
	if d.pos < len(d.data) && d.data[d.pos] == '-' {
		d.pos++
	}
	if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
		return "", d.errorf("invalid number")
	}
	if d.data[d.pos] == '0' {
		d.pos++
	} else {
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	if d.pos < len(d.data) && d.data[d.pos] == '.' {
		d.pos++
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return "", d.errorf("invalid number")
		}
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	if d.pos < len(d.data) && (d.data[d.pos] == 'e' || d.data[d.pos] == 'E') {
		d.pos++
		if d.pos < len(d.data) && (d.data[d.pos] == '+' || d.data[d.pos] == '-') {
			d.pos++
		}
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return "", d.errorf("invalid number")
		}
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	return string(d.data[start:d.pos]), nil
}

// skipValue scans past one JSON value (of any kind) without interpreting
// it, for ignore_json_unknown handling (spec.md §4.7.7 "Unknown fields").
func (d *decoder) skipValue(depth int) error {
	if depth > wire.MaxDepth {
		return d.errorf("max nesting depth exceeded")
	}
	b, ok := d.peek()
	if !ok {
		return d.errorf("unexpected end of input")
	}
	switch {
	case b == '{':
		d.pos++
		first := true
		for {
			c, ok := d.peek()
			if !ok {
				return d.errorf("unterminated object")
			}
			if c == '}' {
				d.pos++
				return nil
			}
			if !first {
				if err := d.expect(','); err != nil {
					return err
				}
			}
			first = false
			if _, err := d.consumeString(); err != nil {
				return err
			}
			if err := d.expect(':'); err != nil {
				return err
			}
			if err := d.skipValue(depth + 1); err != nil {
				return err
			}
		}
	case b == '[':
		d.pos++
		first := true
		for {
			c, ok := d.peek()
			if !ok {
				return d.errorf("unterminated array")
			}
			if c == ']' {
				d.pos++
				return nil
			}
			if !first {
				if err := d.expect(','); err != nil {
					return err
				}
			}
			first = false
			if err := d.skipValue(depth + 1); err != nil {
				return err
			}
		}
	case b == '"':
		_, err := d.consumeString()
		return err
	case b == 't':
		return d.consumeLiteral("true")
	case b == 'f':
		return d.consumeLiteral("false")
	case b == 'n':
		return d.consumeLiteral("null")
	default:
		_, err := d.consumeRawNumber()
		return err
	}
}

// rawSpan scans past one JSON value and returns its exact source bytes,
// used by the Any frame (any.go) to re-parse payload members later.
func (d *decoder) rawSpan(depth int) ([]byte, error) {
	start := d.pos
	if err := d.skipValue(depth); err != nil {
		return nil, err
	}
	return d.data[start:d.pos], nil
}
