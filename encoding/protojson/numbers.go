package protojson

import (
	"math"
	"strconv"
	"strings"

	"github.com/upb-go/upb/internal/status"
)

// parseIntText converts raw numeric text to a signed integer of bitSize
// bits, per spec.md §4.7.3: "Integer types first try integer parsing
// (accept decimal, hex, octal per strtol), else fall back to double with
// modulo-1 == 0 and range checks." strconv.ParseInt's base-0 mode
// already accepts the same decimal/0x/0-prefixed-octal forms strtol
// does.
func parseIntText(raw string, bitSize int) (int64, error) {
	if v, err := strconv.ParseInt(raw, 0, bitSize); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.Trunc(f) != f {
		return 0, status.New(status.InvalidInput, "invalid integer value %q", raw)
	}
	v := int64(f)
	if float64(v) != f {
		return 0, status.New(status.RangeError, "integer value %q out of range", raw)
	}
	return v, nil
}

// parseUintText is parseIntText's unsigned counterpart.
func parseUintText(raw string, bitSize int) (uint64, error) {
	if v, err := strconv.ParseUint(raw, 0, bitSize); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.Trunc(f) != f {
		return 0, status.New(status.InvalidInput, "invalid unsigned integer value %q", raw)
	}
	v := uint64(f)
	if float64(v) != f {
		return 0, status.New(status.RangeError, "unsigned integer value %q out of range", raw)
	}
	return v, nil
}

// parseFloatText converts raw numeric text (or the special tokens
// "NaN"/"Infinity"/"-Infinity") to a float64, per spec.md §4.7.3.
func parseFloatText(raw string) (float64, error) {
	switch raw {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, status.New(status.InvalidInput, "invalid number %q", raw)
	}
	return v, nil
}

// looksLikeInfOrNaN reports whether s is one of the three special float
// tokens JSON text may spell out as a quoted string.
func looksLikeInfOrNaN(s string) bool {
	return s == "NaN" || s == "Infinity" || s == "-Infinity"
}

func toLowerCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, c := range s {
		switch {
		case c == '_':
			upperNext = true
		case upperNext:
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			b.WriteRune(c)
			upperNext = false
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
