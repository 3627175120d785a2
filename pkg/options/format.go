package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// Format renders v as a single-line literal. Strings are double-quoted,
// tuples use parentheses (with a trailing comma for one element), lists use
// brackets and maps braces with their keys in insertion order. Floats always
// carry a decimal point or an exponent so they parse back as floats.
// NaN, infinities and strings that are not valid UTF-8 have no literal form
// and fail with UNSUPPORTED_TYPE.
func Format(v Value) (string, error) {
	var sb strings.Builder
	if err := format(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func format(sb *strings.Builder, v Value) error {
	switch v.kind {
	case KindNull:
		sb.WriteString("None")
	case KindBool:
		if v.b {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		s, err := formatFloat(v.f)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	case KindString:
		if err := quote(sb, v.s); err != nil {
			return err
		}
	case KindList:
		sb.WriteByte('[')
		if err := formatItems(sb, v.items); err != nil {
			return err
		}
		sb.WriteByte(']')
	case KindTuple:
		sb.WriteByte('(')
		if err := formatItems(sb, v.items); err != nil {
			return err
		}
		if len(v.items) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case KindMap:
		sb.WriteByte('{')
		i := 0
		for k, item := range v.m.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := quote(sb, k); err != nil {
				return err
			}
			sb.WriteString(": ")
			if err := format(sb, item); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			i++
		}
		sb.WriteByte('}')
	default:
		return errors.New(errors.ErrCodeUnsupportedType, "unsupported value kind %s", v.kind)
	}
	return nil
}

func formatItems(sb *strings.Builder, items []Value) error {
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := format(sb, it); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New(errors.ErrCodeUnsupportedType, "float %v has no literal form", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}

// quote writes s as a double-quoted literal. Strings that are not valid
// UTF-8 cannot be read back byte for byte and fail with UNSUPPORTED_TYPE.
func quote(sb *strings.Builder, s string) error {
	if !utf8.ValidString(s) {
		return errors.New(errors.ErrCodeUnsupportedType, "string %q is not valid UTF-8", s)
	}
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(sb, `\x%02x`, r)
		default:
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	sb.WriteByte('"')
	return nil
}
