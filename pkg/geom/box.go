package geom

import "math"

// Box is an axis-aligned bounding box. A Box value is always valid; the
// absence of geometry is expressed by an ok == false return alongside it.
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// BoxOf returns the bounding box of pts. It returns false for an empty slice.
func BoxOf(pts []Point) (Box, bool) {
	if len(pts) == 0 {
		return Box{}, false
	}
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Extend(p)
	}
	return b, true
}

// Extend returns the smallest box containing b and p.
func (b Box) Extend(p Point) Box {
	return Box{
		Min: Point{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)},
		Max: Point{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)},
	}
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	return b.Extend(o.Min).Extend(o.Max)
}

// Width returns the extent along X.
func (b Box) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the extent along Y.
func (b Box) Height() float64 { return b.Max.Y - b.Min.Y }

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

// Translate returns b moved by (dx, dy).
func (b Box) Translate(dx, dy float64) Box {
	d := Point{dx, dy}
	return Box{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Corners returns the four corners counter-clockwise from Min.
func (b Box) Corners() []Point {
	return []Point{b.Min, {b.Max.X, b.Min.Y}, b.Max, {b.Min.X, b.Max.Y}}
}

// Contains reports whether p lies inside b, boundary included.
func (b Box) Contains(p Point) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X && b.Min.Y <= p.Y && p.Y <= b.Max.Y
}

// Degenerate reports whether the box has zero width or zero height.
func (b Box) Degenerate() bool {
	return b.Width() == 0 || b.Height() == 0
}

// UnionAll folds boxes into one. It returns false when boxes is empty.
func UnionAll(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out, true
}
