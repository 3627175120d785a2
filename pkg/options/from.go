package options

import (
	"reflect"
	"slices"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// From converts a Go value into a [Value]. It accepts nil, booleans, all
// integer and float kinds, strings, [Value], *[Map], [geom.Point] (as a
// tuple), slices (as lists), arrays (as tuples) and string-keyed maps
// (entries in sorted key order). Pointers are followed. Anything else,
// such as structs or channels, fails with UNSUPPORTED_TYPE.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Map:
		return MapOf(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case geom.Point:
		return PointValue(t), nil
	case []geom.Point:
		return PointsValue(t), nil
	}
	return fromReflect(reflect.ValueOf(x))
}

// MustFrom is like [From] but panics on error. It is meant for literals in
// tests and package-level templates.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return Value{}, errors.New(errors.ErrCodeUnsupportedType, "unsigned value %d overflows int64", u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := From(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		if rv.Kind() == reflect.Array {
			return Tuple(items...), nil
		}
		return List(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, errors.New(errors.ErrCodeUnsupportedType, "map keys must be strings, got %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		m := NewMap()
		for _, k := range keys {
			v, err := From(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, err
			}
			m.Set(k, v)
		}
		return MapOf(m), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromReflect(rv.Elem())
	case reflect.Invalid:
		return Null(), nil
	}
	return Value{}, errors.New(errors.ErrCodeUnsupportedType, "unsupported option type %s", rv.Type())
}
