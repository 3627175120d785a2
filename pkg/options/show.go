package options

import (
	"fmt"
	"io"
	"strings"
)

// pointsPerLine is how many coordinates Show puts on one line for long
// point lists.
const pointsPerLine = 10

// Show prints v as an indented outline: maps as "key:" headings with their
// entries indented four spaces, point lists wrapped ten per line and
// everything else in literal form.
func Show(w io.Writer, v Value) error {
	m, ok := v.Map()
	if !ok {
		_, err := fmt.Fprintln(w, v.String())
		return err
	}
	return showMap(w, m, 0)
}

func showMap(w io.Writer, m *Map, indent int) error {
	pad := strings.Repeat(" ", indent)
	for k, v := range m.All() {
		var err error
		switch {
		case v.Kind() == KindMap:
			sub, _ := v.Map()
			if _, err = fmt.Fprintf(w, "%s%s:\n", pad, k); err == nil {
				err = showMap(w, sub, indent+4)
			}
		case v.Kind() == KindList && len(v.Items()) > pointsPerLine && isPointList(v):
			err = showPoints(w, k, v.Items(), indent)
		default:
			_, err = fmt.Fprintf(w, "%s%s: %s\n", pad, k, v.String())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isPointList(v Value) bool {
	_, ok := v.Points()
	return ok
}

func showPoints(w io.Writer, key string, pts []Value, indent int) error {
	pad := strings.Repeat(" ", indent)
	inner := strings.Repeat(" ", indent+4)
	if _, err := fmt.Fprintf(w, "%s%s:\n", pad, key); err != nil {
		return err
	}
	for i := 0; i < len(pts); i += pointsPerLine {
		end := min(i+pointsPerLine, len(pts))
		parts := make([]string, 0, end-i)
		for _, p := range pts[i:end] {
			parts = append(parts, p.String())
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", inner, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
