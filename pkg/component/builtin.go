package component

import (
	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Pin marks a connection point. It has a position but no geometry.
type Pin struct{}

// Template implements [Builder].
func (Pin) Template() *options.Map {
	return options.NewMap().
		Set(KeyName, options.String("pin0")).
		Set(KeyType, options.String("Pin")).
		Set(KeyChip, options.String("chip0")).
		Set(KeyGDSPos, options.Tuple(options.Int(0), options.Int(0))).
		Set(KeyOutline, options.List())
}

// Build implements [Builder].
func (Pin) Build(c *Component) (*cell.Cell, error) {
	c.Outline = nil
	return cell.New(c.CellName()), nil
}

// AirBridge is a metal span with a landing pad at each end. With rotation 0
// it crosses a line running along the x axis, so the rotation of a bridge
// equals the direction of the line it sits on.
type AirBridge struct{}

// Template implements [Builder].
func (AirBridge) Template() *options.Map {
	return options.NewMap().
		Set(KeyName, options.String("AirBridge0")).
		Set(KeyType, options.String("AirBridge")).
		Set(KeyChip, options.String("chip3")).
		Set(KeyGDSPos, options.Tuple(options.Int(0), options.Int(0))).
		Set(KeyRotation, options.Int(0)).
		Set(KeyOutline, options.List()).
		Set("width", options.Int(10)).
		Set("length", options.Int(40)).
		Set("pad_width", options.Int(16)).
		Set("pad_length", options.Int(12)).
		Set("bridge_layer", options.Int(5)).
		Set("pad_layer", options.Int(6))
}

// Build implements [Builder].
func (AirBridge) Build(c *Component) (*cell.Cell, error) {
	num := func(key string) (float64, error) {
		v, ok := c.Record.Number(key)
		if !ok || v <= 0 {
			return 0, errors.New(errors.ErrCodeInvalidInput, "air bridge %s: %s must be a positive number", c.Name, key)
		}
		return v, nil
	}
	var dims [4]float64
	for i, key := range []string{"width", "length", "pad_width", "pad_length"} {
		v, err := num(key)
		if err != nil {
			return nil, err
		}
		dims[i] = v
	}
	width, length, padW, padL := dims[0], dims[1], dims[2], dims[3]
	bridgeLayer, _ := c.Record.Number("bridge_layer")
	padLayer, _ := c.Record.Number("pad_layer")

	half := length / 2
	out := cell.New(c.CellName()).AddPolygon(
		cell.Rect(geom.Pt(-width/2, -half), geom.Pt(width/2, half), int(bridgeLayer)),
		cell.Rect(geom.Pt(-padW/2, half-padL), geom.Pt(padW/2, half), int(padLayer)),
		cell.Rect(geom.Pt(-padW/2, -half), geom.Pt(padW/2, -half+padL), int(padLayer)),
	)
	cell.Transform(out.Polygons, c.GDSPos.X, c.GDSPos.Y, c.Rotation, c.GDSPos)

	box, _ := cell.PolygonsBoundingBox(out.Polygons)
	c.Outline = box.Corners()
	return out, nil
}

// TransmissionLine draws the polyline under "pos" with the given width. A
// positive gap adds the etched clearance as a wider path on gap_layer.
type TransmissionLine struct{}

// Template implements [Builder].
func (TransmissionLine) Template() *options.Map {
	return options.NewMap().
		Set(KeyName, options.String("line0")).
		Set(KeyType, options.String("TransmissionLine")).
		Set(KeyChip, options.String("chip0")).
		Set(KeyOutline, options.List()).
		Set("pos", options.List()).
		Set("width", options.Int(10)).
		Set("gap", options.Int(0)).
		Set("layer", options.Int(1)).
		Set("gap_layer", options.Int(2))
}

// Build implements [Builder].
func (TransmissionLine) Build(c *Component) (*cell.Cell, error) {
	pts, ok := c.Record.Points("pos")
	if !ok || len(pts) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %s: pos must hold at least two points", c.Name)
	}
	width, ok := c.Record.Number("width")
	if !ok || width < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %s: width must be a non-negative number", c.Name)
	}
	gap, _ := c.Record.Number("gap")
	layer, _ := c.Record.Number("layer")
	gapLayer, _ := c.Record.Number("gap_layer")

	out := cell.New(c.CellName()).AddPath(cell.Path{Points: pts, Width: width, Layer: int(layer)})
	if gap > 0 {
		out.AddPath(cell.Path{Points: pts, Width: width + 2*gap, Layer: int(gapLayer)})
	}
	box, ok := cell.BoundingBox(out)
	if !ok {
		return nil, errors.New(errors.ErrCodeDegenerateGeometry, "line %s has no extent", c.Name)
	}
	c.GDSPos = box.Center()
	c.Outline = box.Corners()
	return out, nil
}
