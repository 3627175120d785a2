package cell

import "github.com/matzehuels/qlayout/pkg/geom"

// Placement is a rigid transform: translate by (DX, DY), then rotate by
// Angle degrees about Center.
type Placement struct {
	DX, DY float64
	Angle  float64
	Center geom.Point
}

// Apply maps one point through the placement in a single step.
func (t Placement) Apply(p geom.Point) geom.Point {
	p = geom.Point{X: p.X + t.DX, Y: p.Y + t.DY}
	if t.Angle == 0 {
		return p
	}
	return geom.Rotate(p, t.Center, t.Angle)
}

// Transform applies the same translation and rotation to every polygon in
// polys, in place. Each vertex is translated then rotated in one pass, so no
// intermediate re-centring error accumulates and all polygons keep their
// relative arrangement.
func Transform(polys []Polygon, dx, dy, angle float64, center geom.Point) {
	t := Placement{DX: dx, DY: dy, Angle: angle, Center: center}
	for i := range polys {
		pts := polys[i].Points
		for j := range pts {
			pts[j] = t.Apply(pts[j])
		}
	}
}

// Transform applies the placement to the cell's own polygons, paths and
// labels. References keep pointing at their cells; their origins move and
// their rotation accumulates.
func (c *Cell) Transform(dx, dy, angle float64, center geom.Point) {
	t := Placement{DX: dx, DY: dy, Angle: angle, Center: center}
	Transform(c.Polygons, dx, dy, angle, center)
	for i := range c.Paths {
		pts := c.Paths[i].Points
		for j := range pts {
			pts[j] = t.Apply(pts[j])
		}
	}
	for i := range c.Labels {
		c.Labels[i].Pos = t.Apply(c.Labels[i].Pos)
	}
	for i := range c.References {
		r := &c.References[i]
		r.Origin = t.Apply(r.Origin)
		r.Rotation += angle
		if angle != 0 {
			r.ColSpacing = geom.Rotate(r.ColSpacing, geom.Point{}, angle)
			r.RowSpacing = geom.Rotate(r.RowSpacing, geom.Point{}, angle)
		}
	}
}

// SetLayer moves every polygon, path and label of c and of all cells it
// depends on to layer. When datatype is non-nil, polygon and path datatypes
// are replaced as well.
func SetLayer(c *Cell, layer int, datatype *int) {
	all := append([]*Cell{c}, c.Dependencies()...)
	for _, cur := range all {
		for i := range cur.Polygons {
			cur.Polygons[i].Layer = layer
			if datatype != nil {
				cur.Polygons[i].Datatype = *datatype
			}
		}
		for i := range cur.Paths {
			cur.Paths[i].Layer = layer
			if datatype != nil {
				cur.Paths[i].Datatype = *datatype
			}
		}
		for i := range cur.Labels {
			cur.Labels[i].Layer = layer
		}
	}
}
