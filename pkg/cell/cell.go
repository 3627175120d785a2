// Package cell models layout cells: named containers of polygons, paths,
// labels and references to other cells.
//
// A [Library] owns a set of cells, mirroring a GDSII library. The bounding
// box resolver ([BoundingBox]) and the transform engine ([Transform],
// [Cell.Transform]) operate on these types; [WriteSVG] renders a cell for
// previews.
//
// Layer and datatype belong to a whole polygon or path, never to a single
// vertex.
package cell

import (
	"slices"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// Polygon is a closed boundary on one layer.
type Polygon struct {
	Points   []geom.Point
	Layer    int
	Datatype int
}

// NewPolygon copies pts into a polygon on layer/datatype.
func NewPolygon(pts []geom.Point, layer, datatype int) Polygon {
	return Polygon{Points: slices.Clone(pts), Layer: layer, Datatype: datatype}
}

// Rect returns an axis-aligned rectangle polygon spanning two corners.
func Rect(p1, p2 geom.Point, layer int) Polygon {
	b, _ := geom.BoxOf([]geom.Point{p1, p2})
	return Polygon{Points: b.Corners(), Layer: layer}
}

// BoundingBox returns the polygon's box; false for a polygon without points.
func (p Polygon) BoundingBox() (geom.Box, bool) {
	return geom.BoxOf(p.Points)
}

// Clone returns a deep copy.
func (p Polygon) Clone() Polygon {
	p.Points = slices.Clone(p.Points)
	return p
}

// Label is a text annotation anchored at a point.
type Label struct {
	Text     string
	Pos      geom.Point
	Layer    int
	Texttype int
}

// Reference places another cell inside this one. Columns and Rows greater
// than one describe an array placement (GDSII AREF) stepped by ColSpacing
// and RowSpacing in the parent's coordinates.
type Reference struct {
	Cell          *Cell
	Origin        geom.Point
	Rotation      float64 // degrees, counter-clockwise
	Magnification float64 // zero means 1
	XReflection   bool    // mirror across the x axis before rotating
	Columns       int
	Rows          int
	ColSpacing    geom.Point
	RowSpacing    geom.Point
}

// Apply maps a point from the referenced cell into the parent cell for the
// array instance (col, row).
func (r Reference) Apply(p geom.Point, col, row int) geom.Point {
	if r.XReflection {
		p.Y = -p.Y
	}
	if r.Magnification != 0 && r.Magnification != 1 {
		p = p.Scale(r.Magnification)
	}
	if r.Rotation != 0 {
		p = geom.Rotate(p, geom.Point{}, r.Rotation)
	}
	off := r.Origin.Add(r.ColSpacing.Scale(float64(col))).Add(r.RowSpacing.Scale(float64(row)))
	return p.Add(off)
}

// MaxInstances bounds the number of array instances [Flatten] expands for
// one cell. GDSII arrays reach 32767 by 32767.
const MaxInstances = 1 << 20

// size returns the array dimensions; a plain reference is 1 by 1.
func (r Reference) size() (cols, rows int) {
	return max(r.Columns, 1), max(r.Rows, 1)
}

// corners returns the distinct (col, row) pairs at the corners of the array.
// Instances are placed by an affine offset, so these bound the whole array.
func (r Reference) corners() [][2]int {
	cols, rows := r.size()
	out := [][2]int{{0, 0}}
	if cols > 1 {
		out = append(out, [2]int{cols - 1, 0})
	}
	if rows > 1 {
		out = append(out, [2]int{0, rows - 1})
	}
	if cols > 1 && rows > 1 {
		out = append(out, [2]int{cols - 1, rows - 1})
	}
	return out
}

// Cell is a named container of layout geometry.
type Cell struct {
	Name       string
	Polygons   []Polygon
	Paths      []Path
	Labels     []Label
	References []Reference
}

// New creates an empty cell.
func New(name string) *Cell {
	return &Cell{Name: name}
}

// AddPolygon appends polygons and returns the cell for chaining.
func (c *Cell) AddPolygon(polys ...Polygon) *Cell {
	c.Polygons = append(c.Polygons, polys...)
	return c
}

// AddPath appends paths and returns the cell for chaining.
func (c *Cell) AddPath(paths ...Path) *Cell {
	c.Paths = append(c.Paths, paths...)
	return c
}

// AddLabel appends labels and returns the cell for chaining.
func (c *Cell) AddLabel(labels ...Label) *Cell {
	c.Labels = append(c.Labels, labels...)
	return c
}

// AddReference appends references and returns the cell for chaining.
func (c *Cell) AddReference(refs ...Reference) *Cell {
	c.References = append(c.References, refs...)
	return c
}

// Empty reports whether the cell holds no geometry of its own and no
// references. Labels do not count as geometry.
func (c *Cell) Empty() bool {
	return len(c.Polygons) == 0 && len(c.Paths) == 0 && len(c.References) == 0
}

// Dependencies returns every cell reachable through references, depth
// first, each once. The cell itself is not included.
func (c *Cell) Dependencies() []*Cell {
	seen := map[*Cell]bool{c: true}
	var out []*Cell
	var walk func(*Cell)
	walk = func(cur *Cell) {
		for _, r := range cur.References {
			if r.Cell == nil || seen[r.Cell] {
				continue
			}
			seen[r.Cell] = true
			out = append(out, r.Cell)
			walk(r.Cell)
		}
	}
	walk(c)
	return out
}

// Library is a collection of uniquely named cells.
type Library struct {
	Name      string
	Unit      float64 // user unit in metres
	Precision float64 // database unit in metres
	cells     []*Cell
}

// Default units: micrometre user unit, nanometre database unit.
const (
	DefaultUnit      = 1e-6
	DefaultPrecision = 1e-9
)

// NewLibrary creates an empty library with default units.
func NewLibrary(name string) *Library {
	return &Library{Name: name, Unit: DefaultUnit, Precision: DefaultPrecision}
}

// NewCell creates and registers a cell. It fails if the name is taken.
func (l *Library) NewCell(name string) (*Cell, error) {
	c := New(name)
	if err := l.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Add registers an existing cell. It fails if the name is taken.
func (l *Library) Add(c *Cell) error {
	if l.Cell(c.Name) != nil {
		return errors.New(errors.ErrCodeInvalidInput, "cell %q already exists in library %q", c.Name, l.Name)
	}
	l.cells = append(l.cells, c)
	return nil
}

// Cell returns the cell with the given name, or nil.
func (l *Library) Cell(name string) *Cell {
	for _, c := range l.cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Cells returns the cells in insertion order.
func (l *Library) Cells() []*Cell {
	return slices.Clone(l.cells)
}

// TopCells returns cells not referenced by any other cell in the library.
func (l *Library) TopCells() []*Cell {
	referenced := make(map[*Cell]bool)
	for _, c := range l.cells {
		for _, r := range c.References {
			referenced[r.Cell] = true
		}
	}
	var out []*Cell
	for _, c := range l.cells {
		if !referenced[c] {
			out = append(out, c)
		}
	}
	return out
}
