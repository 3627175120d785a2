package cell

import (
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// BoundingBox returns the union of the boxes of every polygon, stroked path
// and reference in c. Referenced cells are resolved recursively and each of
// their vertices is mapped through the reference placement, so rotated and
// mirrored instances are bounded exactly. Arrays are bounded by their corner
// instances, so a large array costs no more than four placements.
//
// An empty cell, or a cell whose references only lead to empty cells,
// reports false. A reference back into a cell that is already being
// resolved contributes nothing.
func BoundingBox(c *Cell) (geom.Box, bool) {
	if c == nil {
		return geom.Box{}, false
	}
	var acc boxAcc
	walkPoints(c, identity, map[*Cell]bool{}, acc.add)
	return acc.box, acc.ok
}

// PolygonsBoundingBox returns the union of the boxes of polys, or false
// when none of them has a point.
func PolygonsBoundingBox(polys []Polygon) (geom.Box, bool) {
	var acc boxAcc
	for _, p := range polys {
		for _, pt := range p.Points {
			acc.add(pt)
		}
	}
	return acc.box, acc.ok
}

// Width returns the X extent of the cell, or 0 when it has no bounding box.
func Width(c *Cell) float64 {
	b, ok := BoundingBox(c)
	if !ok {
		return 0
	}
	return b.Width()
}

type boxAcc struct {
	box geom.Box
	ok  bool
}

func (a *boxAcc) add(p geom.Point) {
	if !a.ok {
		a.box = geom.Box{Min: p, Max: p}
		a.ok = true
		return
	}
	a.box = a.box.Extend(p)
}

func identity(p geom.Point) geom.Point { return p }

// walkPoints visits the boundary vertices of c in the coordinates produced
// by xf, taking only the corner instances of arrays. active holds the cells
// on the current reference chain.
func walkPoints(c *Cell, xf func(geom.Point) geom.Point, active map[*Cell]bool, visit func(geom.Point)) {
	if active[c] {
		return
	}
	active[c] = true
	defer delete(active, c)

	for _, p := range c.Polygons {
		for _, pt := range p.Points {
			visit(xf(pt))
		}
	}
	for _, p := range c.Paths {
		for _, pt := range p.Outline() {
			visit(xf(pt))
		}
	}
	for _, r := range c.References {
		if r.Cell == nil {
			continue
		}
		for _, inst := range r.corners() {
			ref, col, row := r, inst[0], inst[1]
			inner := func(p geom.Point) geom.Point { return xf(ref.Apply(p, col, row)) }
			walkPoints(r.Cell, inner, active, visit)
		}
	}
}

// Flatten returns the polygons of c and of every referenced cell mapped into
// c's coordinates. Path outlines are converted to polygons on the path's
// layer. Labels are dropped. Expanding more than [MaxInstances] array
// instances fails with INVALID_INPUT.
func Flatten(c *Cell) ([]Polygon, error) {
	f := flattener{active: map[*Cell]bool{}}
	if err := f.walk(c, identity); err != nil {
		return nil, err
	}
	return f.out, nil
}

type flattener struct {
	active    map[*Cell]bool
	out       []Polygon
	instances int
}

func (f *flattener) walk(c *Cell, xf func(geom.Point) geom.Point) error {
	if f.active[c] {
		return nil
	}
	f.active[c] = true
	defer delete(f.active, c)

	mapPts := func(pts []geom.Point) []geom.Point {
		res := make([]geom.Point, len(pts))
		for i, p := range pts {
			res[i] = xf(p)
		}
		return res
	}
	for _, p := range c.Polygons {
		f.out = append(f.out, Polygon{Points: mapPts(p.Points), Layer: p.Layer, Datatype: p.Datatype})
	}
	for _, p := range c.Paths {
		if outline := p.Outline(); len(outline) > 0 {
			f.out = append(f.out, Polygon{Points: mapPts(outline), Layer: p.Layer, Datatype: p.Datatype})
		}
	}
	for _, r := range c.References {
		if r.Cell == nil {
			continue
		}
		cols, rows := r.size()
		if n := cols * rows; n > MaxInstances-f.instances {
			return errors.New(errors.ErrCodeInvalidInput,
				"flattening %s needs more than %d instances (array of %s is %d by %d)", c.Name, MaxInstances, r.Cell.Name, cols, rows)
		}
		f.instances += cols * rows
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				ref, col, row := r, col, row
				if err := f.walk(r.Cell, func(p geom.Point) geom.Point { return xf(ref.Apply(p, col, row)) }); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
