package component

import (
	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

// KeyPolygons holds the embedded geometry of a library part.
const KeyPolygons = "polygons"

// LibraryPart builds components whose geometry is embedded in the record
// under "polygons". The polygons are centred on gds_pos and rotated about
// it; the outline lists the min and max corner of every polygon's box.
type LibraryPart struct{}

// Template implements [Builder].
func (LibraryPart) Template() *options.Map {
	return options.NewMap().
		Set(KeyName, options.String("LibraryPart0")).
		Set(KeyType, options.String(LibraryPartType)).
		Set(KeyChip, options.String("chip0")).
		Set(KeyGDSPos, options.Tuple(options.Int(0), options.Int(0))).
		Set(KeyTopoPos, options.Tuple(options.Int(0), options.Int(0))).
		Set(KeyOutline, options.List()).
		Set(KeyRotation, options.Int(0)).
		Set(KeyPolygons, options.List())
}

// Build implements [Builder].
func (LibraryPart) Build(c *Component) (*cell.Cell, error) {
	v, _ := c.Record.Get(KeyPolygons)
	polys, err := DecodePolygons(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "component %s", c.Name)
	}
	out := cell.New(c.CellName()).AddPolygon(polys...)

	box, ok := cell.PolygonsBoundingBox(out.Polygons)
	if !ok {
		return nil, errors.New(errors.ErrCodeDegenerateGeometry, "no valid polygons found in %s", c.Name)
	}
	target := c.GDSPos
	center := box.Center()
	cell.Transform(out.Polygons, target.X-center.X, target.Y-center.Y, c.Rotation, target)

	c.Outline = PolygonCorners(out.Polygons)
	return out, nil
}

// PolygonCorners returns the min and max corner of each polygon's box,
// the outline format of library parts.
func PolygonCorners(polys []cell.Polygon) []geom.Point {
	out := make([]geom.Point, 0, 2*len(polys))
	for _, p := range polys {
		if b, ok := p.BoundingBox(); ok {
			out = append(out, b.Min, b.Max)
		}
	}
	return out
}

// EncodePolygons renders polygons as the list stored under "polygons":
// one {"points": [...], "layer": n, "datatype": n} map per polygon.
func EncodePolygons(polys []cell.Polygon) options.Value {
	items := make([]options.Value, len(polys))
	for i, p := range polys {
		items[i] = options.MapOf(options.NewMap().
			Set("points", options.PointsValue(p.Points)).
			Set("layer", options.Int(int64(p.Layer))).
			Set("datatype", options.Int(int64(p.Datatype))))
	}
	return options.List(items...)
}

// DecodePolygons parses a polygon list written by [EncodePolygons]. The
// older (points, layer) pair form is accepted too.
func DecodePolygons(v options.Value) ([]cell.Polygon, error) {
	if !v.IsSequence() {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "polygons must be a list, got %s", v.Kind())
	}
	out := make([]cell.Polygon, 0, len(v.Items()))
	for i, item := range v.Items() {
		var (
			pts             []geom.Point
			layer, datatype int64
			ok              bool
		)
		if m, isMap := item.Map(); isMap {
			pts, ok = m.Points("points")
			if lv, has := m.Get("layer"); has {
				layer, _ = lv.Int()
			}
			if dv, has := m.Get("datatype"); has {
				datatype, _ = dv.Int()
			}
		} else if pair := item.Items(); len(pair) == 2 {
			pts, ok = pair[0].Points()
			layer, _ = pair[1].Int()
		}
		if !ok || len(pts) < 3 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "polygon %d needs at least three points", i)
		}
		out = append(out, cell.NewPolygon(pts, int(layer), int(datatype)))
	}
	return out, nil
}
