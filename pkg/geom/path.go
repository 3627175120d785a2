package geom

import "math"

// Segment is an ordered pair of points. Endpoint order is kept for bounds
// checks but has no meaning for intersection tests.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// Box returns the segment's axis-aligned bounding box.
func (s Segment) Box() Box {
	b, _ := BoxOf([]Point{s.A, s.B})
	return b
}

// Distance returns the shortest distance from p to any point of the
// segment.
func (s Segment) Distance(p Point) float64 {
	d := s.B.Sub(s.A)
	l2 := d.X*d.X + d.Y*d.Y
	if l2 == 0 {
		return p.Dist(s.A)
	}
	t := ((p.X-s.A.X)*d.X + (p.Y-s.A.Y)*d.Y) / l2
	t = max(0, min(1, t))
	return p.Dist(Point{s.A.X + d.X*t, s.A.Y + d.Y*t})
}

// Path is an ordered polyline. Valid paths have at least two points.
type Path []Point

// Valid reports whether the path has at least two points.
func (p Path) Valid() bool { return len(p) >= 2 }

// Segments decomposes the path into consecutive segments.
func (p Path) Segments() []Segment {
	if len(p) < 2 {
		return nil
	}
	segs := make([]Segment, len(p)-1)
	for i := range segs {
		segs[i] = Segment{A: p[i], B: p[i+1]}
	}
	return segs
}

// Distance returns the shortest distance from q to the path, or +Inf for
// a path without segments.
func (p Path) Distance(q Point) float64 {
	best := math.Inf(1)
	for _, s := range p.Segments() {
		best = math.Min(best, s.Distance(q))
	}
	return best
}

// Length returns the total arc length of the path.
func (p Path) Length() float64 {
	var l float64
	for i := 1; i < len(p); i++ {
		l += p[i-1].Dist(p[i])
	}
	return l
}

// Station is a point located on a path by arc length.
type Station struct {
	Point   Point   // Location on the path
	S       float64 // Arc length from the first point
	Segment int     // Index of the segment containing the point
	Angle   float64 // Direction of that segment in radians
}

// PointAt returns the point at arc length s, clamped to [0, Length()].
// The returned station reports the segment it fell on; a station exactly on
// an interior vertex belongs to the segment that starts there. It returns
// false for paths with fewer than two points.
func (p Path) PointAt(s float64) (Station, bool) {
	if len(p) < 2 {
		return Station{}, false
	}
	if s < 0 {
		s = 0
	}
	var walked float64
	last := len(p) - 2
	for i := 0; i <= last; i++ {
		a, b := p[i], p[i+1]
		l := a.Dist(b)
		if s < walked+l || i == last {
			t := 0.0
			if l > 0 {
				t = (s - walked) / l
			}
			if t > 1 {
				t = 1
			}
			return Station{
				Point:   Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t},
				S:       walked + t*l,
				Segment: i,
				Angle:   DirectionAngle(a, b),
			}, true
		}
		walked += l
	}
	return Station{}, false
}

// VertexStations returns the arc-length positions of the interior vertices.
func (p Path) VertexStations() []float64 {
	if len(p) < 3 {
		return nil
	}
	out := make([]float64, 0, len(p)-2)
	var walked float64
	for i := 1; i < len(p)-1; i++ {
		walked += p[i-1].Dist(p[i])
		out = append(out, walked)
	}
	return out
}
