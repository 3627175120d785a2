package geom

import "math"

// Intersect returns the intersection point of two segments.
//
// The determinant of the two direction vectors decides solvability: a zero
// determinant means the segments are parallel or collinear and no point is
// reported, even for overlapping collinear segments. Otherwise the point is
// computed with the cross-product form of the two-line solution and accepted
// only when it lies inside both segments' axis-aligned bounds (inclusive).
func Intersect(s1, s2 Segment) (Point, bool) {
	x1, y1, x2, y2 := s1.A.X, s1.A.Y, s1.B.X, s1.B.Y
	x3, y3, x4, y4 := s2.A.X, s2.A.Y, s2.B.X, s2.B.Y

	det := Cross(Point{x1 - x2, y1 - y2}, Point{x3 - x4, y3 - y4})
	if det == 0 {
		return Point{}, false
	}

	c1 := x1*y2 - y1*x2
	c2 := x3*y4 - y3*x4
	p := Point{
		X: Cross(Point{c1, x1 - x2}, Point{c2, x3 - x4}) / det,
		Y: Cross(Point{c1, y1 - y2}, Point{c2, y3 - y4}) / det,
	}

	if !within(p.X, x1, x2) || !within(p.Y, y1, y2) ||
		!within(p.X, x3, x4) || !within(p.Y, y3, y4) {
		return Point{}, false
	}
	return p, true
}

func within(v, a, b float64) bool {
	return math.Min(a, b) <= v && v <= math.Max(a, b)
}

// PathIntersections returns every intersection between a segment of p1 and
// a segment of p2. The scan is exhaustive, O(n·m) in the segment counts.
// Results are ordered by p1 segment index, then p2 segment index. Points
// shared by adjacent segments (a crossing exactly on a vertex) are reported
// once per segment pair and are not deduplicated.
func PathIntersections(p1, p2 Path) []Point {
	segs1 := p1.Segments()
	segs2 := p2.Segments()

	var out []Point
	for _, s1 := range segs1 {
		for _, s2 := range segs2 {
			if p, ok := Intersect(s1, s2); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// PathsCross reports whether p1 and p2 share at least one intersection.
func PathsCross(p1, p2 Path) bool {
	for _, s1 := range p1.Segments() {
		for _, s2 := range p2.Segments() {
			if _, ok := Intersect(s1, s2); ok {
				return true
			}
		}
	}
	return false
}
