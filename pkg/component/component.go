// Package component turns option records into placed layout geometry.
//
// A component is described entirely by its option record: a map holding at
// least a name and a type, usually a chip, a physical position (gds_pos), a
// lattice position (topo_pos) and a rotation. A [Builder] registered in a
// [Catalog] under the record's type knows the defaults for that type and how
// to draw it into a [cell.Cell]. Records that embed their own polygons
// (library parts) share one builder, so no per-part code is ever generated.
//
//	cat := component.DefaultCatalog()
//	c, err := cat.Build(record)   // geometry computed, outline derived
//	err = cat.Draw(lib, record)   // same, and the cell is added to lib
package component

import (
	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
	"github.com/matzehuels/qlayout/pkg/topo"
)

// Standard option keys shared by every component type.
const (
	KeyName     = "name"
	KeyType     = "type"
	KeyChip     = "chip"
	KeyGDSPos   = "gds_pos"
	KeyTopoPos  = "topo_pos"
	KeyRotation = "rotation"
	KeyOutline  = "outline"
)

// Component is a typed layout entity decoded from its option record.
type Component struct {
	Name     string
	Type     string
	Chip     string
	GDSPos   geom.Point
	TopoPos  topo.Pos
	Rotation float64 // degrees
	Outline  []geom.Point

	// Record is the merged option record. Builders read type-specific
	// options from it and Build writes gds_pos and outline back.
	Record *options.Map

	// Cell holds the geometry after Build; nil before.
	Cell *cell.Cell
}

// New merges overrides onto a copy of template and decodes the standard
// fields. Nested maps are merged key by key; every other value in
// overrides replaces the template's. Neither input is modified.
func New(template, overrides *options.Map) (*Component, error) {
	rec := template.Clone()
	merge(rec, overrides)

	c := &Component{Record: rec}
	c.Name = rec.Str(KeyName)
	if err := errors.ValidateComponentName(c.Name); err != nil {
		return nil, err
	}
	c.Type = rec.Str(KeyType)
	if c.Type == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "component %s has no type", c.Name)
	}
	c.Chip = rec.Str(KeyChip)

	if rec.Has(KeyGDSPos) {
		p, ok := rec.Point(KeyGDSPos)
		if !ok {
			return nil, invalidOption(c.Name, KeyGDSPos, rec)
		}
		c.GDSPos = p
	}
	if v, ok := rec.Get(KeyTopoPos); ok {
		items := v.Items()
		if len(items) != 2 {
			return nil, invalidOption(c.Name, KeyTopoPos, rec)
		}
		x, okx := items[0].Number()
		y, oky := items[1].Number()
		if !okx || !oky {
			return nil, invalidOption(c.Name, KeyTopoPos, rec)
		}
		c.TopoPos = topo.Pos{X: int(x), Y: int(y)}
	}
	if rec.Has(KeyRotation) {
		r, ok := rec.Number(KeyRotation)
		if !ok {
			return nil, invalidOption(c.Name, KeyRotation, rec)
		}
		c.Rotation = r
	}
	if v, ok := rec.Get(KeyOutline); ok && len(v.Items()) > 0 {
		pts, ok := v.Points()
		if !ok {
			return nil, invalidOption(c.Name, KeyOutline, rec)
		}
		c.Outline = pts
	}
	return c, nil
}

func invalidOption(name, key string, rec *options.Map) error {
	v, _ := rec.Get(key)
	return errors.New(errors.ErrCodeInvalidInput, "component %s: invalid %s %s", name, key, v)
}

func merge(dst, src *options.Map) {
	for k, v := range src.All() {
		if sv, ok := v.Map(); ok {
			if dv, ok := dst.Sub(k); ok {
				merge(dv, sv)
				continue
			}
		}
		dst.Set(k, v.Clone())
	}
}

// CellName is the name of the cell a component draws into.
func (c *Component) CellName() string { return c.Name + "_cell" }

// Build runs b to create the component's geometry, then records the
// outline and the final gds_pos in both the struct and its option record.
func (c *Component) Build(b Builder) error {
	cl, err := b.Build(c)
	if err != nil {
		return err
	}
	c.Cell = cl
	c.Record.Set(KeyGDSPos, options.PointValue(c.GDSPos))
	c.Record.Set(KeyOutline, options.PointsValue(c.Outline))
	return nil
}

// Draw builds the component and adds its cell to lib.
func (c *Component) Draw(lib *cell.Library, b Builder) error {
	if err := c.Build(b); err != nil {
		return err
	}
	if err := lib.Add(c.Cell); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "draw %s", c.Name)
	}
	return nil
}

// Box returns the bounding box of the built geometry.
func (c *Component) Box() (geom.Box, bool) {
	return cell.BoundingBox(c.Cell)
}
