package geom

import (
	"math"
	"testing"
)

const tol = 1e-9

func TestCrossAndSubtract(t *testing.T) {
	if got := Cross(Pt(1, 0), Pt(0, 1)); got != 1 {
		t.Errorf("Cross(x, y) = %v, want 1", got)
	}
	if got := Cross(Pt(0, 1), Pt(1, 0)); got != -1 {
		t.Errorf("Cross(y, x) = %v, want -1", got)
	}
	if got := Subtract(Pt(5, 7), Pt(2, 3)); got != Pt(3, 4) {
		t.Errorf("Subtract = %v, want (3, 4)", got)
	}
}

func TestLineParams(t *testing.T) {
	p1, p2 := Pt(1, 2), Pt(4, 6)
	a, b, c := LineParams(p1, p2)
	for _, p := range []Point{p1, p2, Pt(2.5, 4)} {
		if got := a*p.X + b*p.Y; math.Abs(got-c) > tol {
			t.Errorf("point %v not on line: %v != %v", p, got, c)
		}
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name   string
		p      Point
		center Point
		angle  float64
		want   Point
	}{
		{"quarter turn about origin", Pt(1, 0), Pt(0, 0), 90, Pt(0, 1)},
		{"half turn about origin", Pt(1, 0), Pt(0, 0), 180, Pt(-1, 0)},
		{"quarter turn about center", Pt(2, 1), Pt(1, 1), 90, Pt(1, 2)},
		{"negative angle", Pt(0, 1), Pt(0, 0), -90, Pt(1, 0)},
		{"zero angle", Pt(3, 4), Pt(10, 10), 0, Pt(3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate(tt.p, tt.center, tt.angle)
			if !NearlyEqual(got, tt.want, tol) {
				t.Errorf("Rotate(%v, %v, %v) = %v, want %v", tt.p, tt.center, tt.angle, got, tt.want)
			}
		})
	}
}

func TestDirectionAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"east", Pt(0, 0), Pt(1, 0), 0},
		{"north", Pt(0, 0), Pt(0, 5), math.Pi / 2},
		{"west", Pt(0, 0), Pt(-1, 0), math.Pi},
		{"south", Pt(0, 0), Pt(0, -1), -math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DirectionAngle(tt.a, tt.b)
			if math.Abs(got-tt.want) > tol {
				t.Errorf("DirectionAngle = %v, want %v", got, tt.want)
			}
			if got <= -math.Pi || got > math.Pi {
				t.Errorf("DirectionAngle = %v outside (-π, π]", got)
			}
		})
	}
}

func TestBoxOf(t *testing.T) {
	if _, ok := BoxOf(nil); ok {
		t.Error("BoxOf(nil) should report no box")
	}

	b, ok := BoxOf([]Point{Pt(3, 3)})
	if !ok {
		t.Fatal("BoxOf(single) should report a box")
	}
	if b.Min != b.Max || !b.Degenerate() {
		t.Errorf("single point box = %+v, want degenerate", b)
	}

	b, _ = BoxOf([]Point{Pt(1, 5), Pt(-2, 3), Pt(4, -1)})
	want := Box{Min: Pt(-2, -1), Max: Pt(4, 5)}
	if b != want {
		t.Errorf("BoxOf = %+v, want %+v", b, want)
	}
	if b.Width() != 6 || b.Height() != 6 {
		t.Errorf("size = %vx%v, want 6x6", b.Width(), b.Height())
	}
	if b.Center() != Pt(1, 2) {
		t.Errorf("Center = %v, want (1, 2)", b.Center())
	}
}

func TestUnionAll(t *testing.T) {
	if _, ok := UnionAll(nil); ok {
		t.Error("UnionAll(nil) should report no box")
	}
	got, ok := UnionAll([]Box{
		{Min: Pt(0, 0), Max: Pt(1, 1)},
		{Min: Pt(5, -2), Max: Pt(6, 0)},
	})
	want := Box{Min: Pt(0, -2), Max: Pt(6, 1)}
	if !ok || got != want {
		t.Errorf("UnionAll = %+v, want %+v", got, want)
	}
}

func TestExtremes(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(5, 1), Pt(-3, 2), Pt(1, -4)}

	if p, _ := Rightmost(pts); p != Pt(5, 1) {
		t.Errorf("Rightmost = %v", p)
	}
	if p, _ := Leftmost(pts); p != Pt(-3, 2) {
		t.Errorf("Leftmost = %v", p)
	}
	if p, _ := Topmost(pts); p != Pt(-3, 2) {
		t.Errorf("Topmost = %v", p)
	}
	if p, _ := Bottommost(pts); p != Pt(1, -4) {
		t.Errorf("Bottommost = %v", p)
	}
	if _, ok := Rightmost(nil); ok {
		t.Error("Rightmost(nil) should report false")
	}
}

func TestPathPointAt(t *testing.T) {
	p := Path{Pt(0, 0), Pt(100, 0), Pt(100, 50)}

	if l := p.Length(); l != 150 {
		t.Fatalf("Length = %v, want 150", l)
	}

	tests := []struct {
		s       float64
		want    Point
		segment int
	}{
		{-10, Pt(0, 0), 0},
		{0, Pt(0, 0), 0},
		{40, Pt(40, 0), 0},
		{100, Pt(100, 0), 1},
		{125, Pt(100, 25), 1},
		{150, Pt(100, 50), 1},
		{500, Pt(100, 50), 1},
	}
	for _, tt := range tests {
		st, ok := p.PointAt(tt.s)
		if !ok {
			t.Fatalf("PointAt(%v) not ok", tt.s)
		}
		if !NearlyEqual(st.Point, tt.want, tol) || st.Segment != tt.segment {
			t.Errorf("PointAt(%v) = %v seg %d, want %v seg %d", tt.s, st.Point, st.Segment, tt.want, tt.segment)
		}
	}

	if got := p.VertexStations(); len(got) != 1 || got[0] != 100 {
		t.Errorf("VertexStations = %v, want [100]", got)
	}
	if _, ok := (Path{Pt(0, 0)}).PointAt(0); ok {
		t.Error("PointAt on single-point path should fail")
	}
}

func TestDistance(t *testing.T) {
	seg := Segment{A: Pt(0, 0), B: Pt(10, 0)}
	tests := []struct {
		p    Point
		want float64
	}{
		{Pt(5, 3), 3},
		{Pt(-4, 3), 5},
		{Pt(13, -4), 5},
		{Pt(7, 0), 0},
	}
	for _, tt := range tests {
		if got := seg.Distance(tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Distance(%v) = %g, want %g", tt.p, got, tt.want)
		}
	}
	if d := (Segment{A: Pt(1, 1), B: Pt(1, 1)}).Distance(Pt(4, 5)); d != 5 {
		t.Errorf("degenerate segment distance = %g, want 5", d)
	}
	path := Path{Pt(0, 0), Pt(10, 0), Pt(10, 10)}
	if d := path.Distance(Pt(12, 5)); math.Abs(d-2) > 1e-12 {
		t.Errorf("path distance = %g, want 2", d)
	}
	if d := (Path{Pt(0, 0)}).Distance(Pt(1, 1)); !math.IsInf(d, 1) {
		t.Errorf("single-point path distance = %g, want +Inf", d)
	}
}
