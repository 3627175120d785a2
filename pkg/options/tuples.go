package options

import (
	"fmt"
	"strings"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// TuplesToLists returns a deep copy of v in which every tuple, at any depth,
// has become a list.
func TuplesToLists(v Value) Value {
	switch v.kind {
	case KindList, KindTuple:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = TuplesToLists(it)
		}
		return List(items...)
	case KindMap:
		m := NewMap()
		for k, it := range v.m.All() {
			m.Set(k, TuplesToLists(it))
		}
		return MapOf(m)
	}
	return v
}

// CheckNoTuples returns an INVALID_FORMAT error naming the first tuple found
// in v, searched depth first in order. The path uses map keys and list
// indices, e.g. "ops.q0.gds_pos" or "bridges[2]".
func CheckNoTuples(v Value) error {
	if path, ok := findTuple(v, nil); ok {
		where := strings.Join(path, "")
		if where == "" {
			where = "<root>"
		}
		return errors.New(errors.ErrCodeInvalidFormat, "the value at %s is a tuple; convert it to a list", where)
	}
	return nil
}

func findTuple(v Value, path []string) ([]string, bool) {
	switch v.kind {
	case KindTuple:
		return path, true
	case KindList:
		for i, it := range v.items {
			if p, ok := findTuple(it, append(path, fmt.Sprintf("[%d]", i))); ok {
				return p, true
			}
		}
	case KindMap:
		for k, it := range v.m.All() {
			seg := k
			if len(path) > 0 {
				seg = "." + k
			}
			if p, ok := findTuple(it, append(path, seg)); ok {
				return p, true
			}
		}
	}
	return nil, false
}
