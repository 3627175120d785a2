// Package options implements the option record model and its text codec.
//
// An option record is a nested tree of [Value]s: null, booleans, integers,
// floats, strings, lists, tuples and string-keyed maps. Maps keep their
// insertion order. Records are stored on disk as a single literal
// expression in a small, Python-compatible subset:
//
//	{"name": "Q0", "gds_pos": (0.0, 0.0), "outline": [], "chip": "chip0"}
//
// [Format] and [Parse] convert between values and text; [Export] and
// [Import] do the same against files. Parsing never evaluates code.
//
// # Tuples
//
// Tuples and lists are distinct kinds and survive a round trip unchanged.
// Code that wants list-only records converts explicitly with
// [TuplesToLists] or imports with [ImportLists]; [CheckNoTuples] reports
// the first tuple left in a record.
package options

import (
	"fmt"
	"math"

	"github.com/matzehuels/qlayout/pkg/geom"
)

// Kind identifies the variant held by a [Value].
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
	KindMap
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "list", "tuple", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is an immutable tagged option value. The zero Value is null.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	items []Value
	m     *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List builds a variable-length sequence.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// Tuple builds a fixed-arity sequence.
func Tuple(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindTuple, items: items}
}

// MapOf wraps a map. A nil map becomes an empty one.
func MapOf(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// PointValue encodes a point as a (x, y) float tuple.
func PointValue(p geom.Point) Value {
	return Tuple(Float(p.X), Float(p.Y))
}

// PointsValue encodes points as a list of (x, y) tuples.
func PointsValue(pts []geom.Point) Value {
	items := make([]Value, len(pts))
	for i, p := range pts {
		items[i] = PointValue(p)
	}
	return List(items...)
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean and whether v is one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer and whether v is one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Str returns the string and whether v is one.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Number returns v as a float64 when it is an int or a float.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Items returns the elements of a list or tuple, nil otherwise. The slice
// must not be modified.
func (v Value) Items() []Value {
	if v.kind == KindList || v.kind == KindTuple {
		return v.items
	}
	return nil
}

// IsSequence reports whether v is a list or a tuple.
func (v Value) IsSequence() bool { return v.kind == KindList || v.kind == KindTuple }

// Map returns the map and whether v is one.
func (v Value) Map() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Point decodes a two-element numeric list or tuple.
func (v Value) Point() (geom.Point, bool) {
	items := v.Items()
	if len(items) != 2 {
		return geom.Point{}, false
	}
	x, okx := items[0].Number()
	y, oky := items[1].Number()
	if !okx || !oky {
		return geom.Point{}, false
	}
	return geom.Point{X: x, Y: y}, true
}

// Points decodes a sequence of points.
func (v Value) Points() ([]geom.Point, bool) {
	if !v.IsSequence() {
		return nil, false
	}
	out := make([]geom.Point, len(v.items))
	for i, it := range v.items {
		p, ok := it.Point()
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

// Clone returns a deep copy. Maps are copied; scalars are shared.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList, KindTuple:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: v.kind, items: items}
	case KindMap:
		return MapOf(v.m.Clone())
	}
	return v
}

// Equal reports structural equality. Ints and floats never compare equal
// to each other, nor do lists and tuples.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindString:
		return a.s == b.s
	case KindList, KindTuple:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return a.m.Equal(b.m)
	}
	return false
}

// Equal lets go-cmp compare values structurally.
func (v Value) Equal(o Value) bool { return Equal(v, o) }

// String renders v in the literal syntax. Values that cannot be formatted
// render as their error text.
func (v Value) String() string {
	s, err := Format(v)
	if err != nil {
		return "!" + err.Error()
	}
	return s
}
