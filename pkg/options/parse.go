package options

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// maxDepth bounds container nesting while parsing.
const maxDepth = 256

// SyntaxError describes where a literal stopped making sense. It is the
// cause of every MALFORMED_LITERAL error returned by [Parse].
type SyntaxError struct {
	Offset int // byte offset into the input
	Line   int // 1-based
	Column int // 1-based, in bytes
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Parse reads exactly one literal from s. It accepts the subset written by
// [Format] plus the usual hand-edited variations: single-quoted strings,
// adjacent string concatenation, signs, exponents, trailing commas,
// comments starting with '#' and arbitrary whitespace. Nothing is
// evaluated. Syntax errors fail with MALFORMED_LITERAL wrapping a
// *[SyntaxError].
func Parse(s string) (Value, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, p.fail("empty input")
	}
	v, err := p.value(0)
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return Value{}, p.fail("unexpected %q after value", p.peekRune())
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(format string, args ...any) error {
	line, col := 1, 1
	for i := 0; i < p.pos && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	se := &SyntaxError{Offset: p.pos, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
	return errors.Wrap(errors.ErrCodeMalformedLiteral, se, "malformed option literal")
}

func (p *parser) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			p.pos++
		case c == '\\' && strings.HasPrefix(p.src[p.pos:], "\\\n"):
			p.pos += 2
		case c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, p.fail("nesting deeper than %d", maxDepth)
	}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, p.fail("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '"' || c == '\'':
		return p.stringLit()
	case c == '[':
		p.pos++
		items, err := p.items(']', depth)
		if err != nil {
			return Value{}, err
		}
		return List(items...), nil
	case c == '(':
		return p.paren(depth)
	case c == '{':
		return p.dict(depth)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
			p.pos++
		}
		switch word := p.src[start:p.pos]; word {
		case "None":
			return Null(), nil
		case "True":
			return Bool(true), nil
		case "False":
			return Bool(false), nil
		default:
			p.pos = start
			return Value{}, p.fail("name %q is not a literal", word)
		}
	}
	return Value{}, p.fail("unexpected %q", p.peekRune())
}

// items parses comma-separated values up to and including the closer.
func (p *parser) items(closer byte, depth int) ([]Value, error) {
	items := []Value{}
	for {
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == closer {
			p.pos++
			return items, nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.fail("missing %q", closer)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return items, nil
		default:
			return nil, p.fail("expected ',' or %q, got %q", closer, p.peekRune())
		}
	}
}

// paren parses "()", "(x)" (a parenthesised value) and "(x,)" / "(x, y)"
// (tuples).
func (p *parser) paren(depth int) (Value, error) {
	p.pos++
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ')' {
		p.pos++
		return Tuple(), nil
	}
	first, err := p.value(depth + 1)
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, p.fail("missing ')'")
	}
	switch p.src[p.pos] {
	case ')':
		p.pos++
		return first, nil
	case ',':
		p.pos++
		rest, err := p.items(')', depth)
		if err != nil {
			return Value{}, err
		}
		return Tuple(append([]Value{first}, rest...)...), nil
	}
	return Value{}, p.fail("expected ',' or ')', got %q", p.peekRune())
}

func (p *parser) dict(depth int) (Value, error) {
	p.pos++
	m := NewMap()
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.fail("missing '}'")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return MapOf(m), nil
		}
		if c := p.src[p.pos]; c != '"' && c != '\'' {
			return Value{}, p.fail("map keys must be strings")
		}
		kv, err := p.stringLit()
		if err != nil {
			return Value{}, err
		}
		key, _ := kv.Str()
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return Value{}, p.fail("expected ':' after key %q", key)
		}
		p.pos++
		v, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		m.Set(key, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.fail("missing '}'")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return MapOf(m), nil
		default:
			return Value{}, p.fail("expected ',' or '}', got %q", p.peekRune())
		}
	}
}

// stringLit parses one or more adjacent string literals and concatenates
// them.
func (p *parser) stringLit() (Value, error) {
	var sb strings.Builder
	for {
		if err := p.str(&sb); err != nil {
			return Value{}, err
		}
		save := p.pos
		p.skipSpace()
		if p.pos >= len(p.src) || (p.src[p.pos] != '"' && p.src[p.pos] != '\'') {
			p.pos = save
			return String(sb.String()), nil
		}
	}
}

func (p *parser) str(sb *strings.Builder) error {
	q := p.src[p.pos]
	start := p.pos
	p.pos++
	for {
		if p.pos >= len(p.src) {
			p.pos = start
			return p.fail("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == q:
			p.pos++
			return nil
		case c == '\n':
			return p.fail("newline in string")
		case c == '\\':
			if err := p.escape(sb); err != nil {
				return err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(sb *strings.Builder) error {
	p.pos++
	if p.pos >= len(p.src) {
		return p.fail("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case 'x', 'u', 'U':
		n := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
		if p.pos+n > len(p.src) {
			return p.fail("truncated \\%c escape", c)
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return p.fail("invalid \\%c escape", c)
		}
		sb.WriteRune(rune(code))
		p.pos += n
	default:
		// Unknown escapes are kept verbatim.
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) number() (Value, error) {
	start := p.pos
	neg := false
	for p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		if p.src[p.pos] == '-' {
			neg = !neg
		}
		p.pos++
		p.skipSpace()
	}
	digits := p.pos
	isFloat := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9' || c == '_':
		case c == '.':
			isFloat = true
		case c == 'e' || c == 'E':
			isFloat = true
			if p.pos+1 < len(p.src) && (p.src[p.pos+1] == '+' || p.src[p.pos+1] == '-') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	text := strings.ReplaceAll(p.src[digits:p.pos], "_", "")
	if text == "" || text == "." {
		p.pos = start
		return Value{}, p.fail("invalid number")
	}
	if p.pos < len(p.src) && isIdentStart(p.src[p.pos]) {
		p.pos = start
		return Value{}, p.fail("invalid number")
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return Value{}, p.fail("invalid float %q", text)
		}
		if neg {
			f = -f
		}
		return Float(f), nil
	}
	if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") != "" {
		p.pos = start
		return Value{}, p.fail("leading zeros in integer %q", text)
	}
	if neg {
		text = "-" + text
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		p.pos = start
		return Value{}, p.fail("integer %s out of range", text)
	}
	return Int(i), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
