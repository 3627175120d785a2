package options

import (
	"iter"
	"slices"

	"github.com/matzehuels/qlayout/pkg/geom"
)

// Map is a string-keyed map that remembers insertion order. Setting an
// existing key keeps its position.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set stores v under key and returns m for chaining.
func (m *Map) Set(key string, v Value) *Map {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.vals[key]; !ok {
		return false
	}
	delete(m.vals, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	for k, v := range m.All() {
		out.Set(k, v.Clone())
	}
	return out
}

// Equal reports whether both maps hold equal values under the same keys in
// the same order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, k := range m.keys {
		if o.keys[i] != k || !Equal(m.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// Sub returns the nested map under key.
func (m *Map) Sub(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.Map()
}

// Ensure returns the nested map under key, creating it when absent. An
// existing non-map value is replaced.
func (m *Map) Ensure(key string) *Map {
	if sub, ok := m.Sub(key); ok {
		return sub
	}
	sub := NewMap()
	m.Set(key, MapOf(sub))
	return sub
}

// Str returns the string under key, or "".
func (m *Map) Str(key string) string {
	v, _ := m.Get(key)
	s, _ := v.Str()
	return s
}

// Number returns the numeric value under key.
func (m *Map) Number(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.Number()
}

// Point returns the point under key.
func (m *Map) Point(key string) (geom.Point, bool) {
	v, ok := m.Get(key)
	if !ok {
		return geom.Point{}, false
	}
	return v.Point()
}

// Points returns the point list under key.
func (m *Map) Points(key string) ([]geom.Point, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.Points()
}
