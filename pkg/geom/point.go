package geom

import (
	"fmt"
	"math"
)

// Point is a pair of real coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// String formats the point as "(x, y)".
func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Subtract returns the vector v1 - v2.
func Subtract(v1, v2 Point) Point { return v1.Sub(v2) }

// Cross returns the z component of the 2D cross product v1 × v2.
func Cross(v1, v2 Point) float64 {
	return v1.X*v2.Y - v1.Y*v2.X
}

// LineParams returns the coefficients (a, b, c) of the line ax + by = c
// passing through p1 and p2.
func LineParams(p1, p2 Point) (a, b, c float64) {
	a = p2.Y - p1.Y
	b = p1.X - p2.X
	c = a*p1.X + b*p1.Y
	return a, b, c
}

// Rotate rotates p about center by angle degrees, counter-clockwise.
func Rotate(p, center Point, angle float64) Point {
	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// DirectionAngle returns the direction of the vector from p1 to p2 in
// radians, in the range (-π, π]. Coincident points yield 0.
func DirectionAngle(p1, p2 Point) float64 {
	return math.Atan2(p2.Y-p1.Y, p2.X-p1.X)
}

// Rightmost returns the point with the largest X. The first one wins on ties.
// It returns false for an empty slice.
func Rightmost(pts []Point) (Point, bool) {
	return extreme(pts, func(a, b Point) bool { return a.X > b.X })
}

// Leftmost returns the point with the smallest X.
func Leftmost(pts []Point) (Point, bool) {
	return extreme(pts, func(a, b Point) bool { return a.X < b.X })
}

// Topmost returns the point with the largest Y.
func Topmost(pts []Point) (Point, bool) {
	return extreme(pts, func(a, b Point) bool { return a.Y > b.Y })
}

// Bottommost returns the point with the smallest Y.
func Bottommost(pts []Point) (Point, bool) {
	return extreme(pts, func(a, b Point) bool { return a.Y < b.Y })
}

func extreme(pts []Point, better func(a, b Point) bool) (Point, bool) {
	if len(pts) == 0 {
		return Point{}, false
	}
	best := pts[0]
	for _, p := range pts[1:] {
		if better(p, best) {
			best = p
		}
	}
	return best, true
}

// NearlyEqual reports whether p and q agree within tol on both axes.
func NearlyEqual(p, q Point, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol
}
