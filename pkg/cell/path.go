package cell

import (
	"math"
	"slices"

	"github.com/matzehuels/qlayout/pkg/geom"
)

// maxMiter caps the join extension at this multiple of the half width so a
// hairpin turn does not produce a spike.
const maxMiter = 4.0

// Path is a polyline with a width, drawn with flush ends and mitred joins.
type Path struct {
	Points   geom.Path
	Width    float64
	Layer    int
	Datatype int
}

// Clone returns a deep copy.
func (p Path) Clone() Path {
	p.Points = slices.Clone(p.Points)
	return p
}

// Outline returns the boundary polygon of the stroked path. A zero width
// path collapses to its centre line. Consecutive duplicate points are
// ignored. It returns nil when fewer than two distinct points remain.
func (p Path) Outline() []geom.Point {
	pts := dedupe(p.Points)
	if len(pts) < 2 {
		return nil
	}
	hw := p.Width / 2
	if hw == 0 {
		return slices.Clone(pts)
	}

	left := make([]geom.Point, len(pts))
	right := make([]geom.Point, len(pts))
	for i := range pts {
		var n geom.Point
		scale := 1.0
		switch {
		case i == 0:
			n = normal(pts[0], pts[1])
		case i == len(pts)-1:
			n = normal(pts[i-1], pts[i])
		default:
			n1 := normal(pts[i-1], pts[i])
			n2 := normal(pts[i], pts[i+1])
			sum := n1.Add(n2)
			l := math.Hypot(sum.X, sum.Y)
			if l < 1e-12 {
				n = n1
				break
			}
			n = sum.Scale(1 / l)
			cos := n.X*n1.X + n.Y*n1.Y
			scale = math.Min(1/cos, maxMiter)
		}
		off := n.Scale(hw * scale)
		left[i] = pts[i].Add(off)
		right[i] = pts[i].Sub(off)
	}

	out := make([]geom.Point, 0, 2*len(pts))
	out = append(out, left...)
	for i := len(right) - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	return out
}

// BoundingBox returns the box of the stroked outline.
func (p Path) BoundingBox() (geom.Box, bool) {
	return geom.BoxOf(p.Outline())
}

// normal returns the unit left normal of the direction a→b.
func normal(a, b geom.Point) geom.Point {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	return geom.Point{X: -d.Y / l, Y: d.X / l}
}

func dedupe(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}
