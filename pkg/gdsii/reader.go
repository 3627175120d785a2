package gdsii

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// ReadFile parses the GDSII file at path. A missing file yields
// FILE_NOT_FOUND; a malformed stream yields PARSE_ERROR.
func ReadFile(path string) (*cell.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "gds file %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	lib, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse %s", path)
	}
	return lib, nil
}

// Read parses a GDSII stream. Errors carry the PARSE_ERROR code.
func Read(r io.Reader) (*cell.Library, error) {
	p := &parser{
		rr:   &recordReader{r: bufio.NewReader(r)},
		lib:  cell.NewLibrary(""),
		refs: map[*cell.Cell][]pendingRef{},
	}
	if err := p.run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid gds stream")
	}
	return p.lib, nil
}

// pendingRef is a reference whose target is looked up by name once the
// whole library has been read, since GDSII allows forward references.
type pendingRef struct {
	index int
	name  string
}

type parser struct {
	rr    *recordReader
	lib   *cell.Library
	scale float64 // user units per database unit
	refs  map[*cell.Cell][]pendingRef
	order []*cell.Cell
}

// element accumulates the records of one BOUNDARY/PATH/SREF/AREF/TEXT.
type element struct {
	kind     byte
	layer    int
	datatype int
	width    float64
	sname    string
	text     string
	xy       []geom.Point
	cols     int
	rows     int
	reflect  bool
	mag      float64
	angle    float64
}

func (p *parser) run() error {
	rec, err := p.rr.next()
	if err != nil {
		return eofAsUnexpected(err)
	}
	if rec.typ != recHeader {
		return fmt.Errorf("stream does not start with a HEADER record (got 0x%02x)", rec.typ)
	}
	p.scale = 1e-3

	var cur *cell.Cell
	var el *element
	for {
		rec, err := p.rr.next()
		if err != nil {
			return eofAsUnexpected(err)
		}
		switch rec.typ {
		case recBgnLib:
		case recLibName:
			p.lib.Name = rec.str()
		case recUnits:
			u := rec.real8s()
			if len(u) != 2 || u[0] <= 0 || u[1] <= 0 {
				return fmt.Errorf("record at offset %d: invalid UNITS", rec.offset)
			}
			p.scale = u[0]
			p.lib.Precision = u[1]
			p.lib.Unit = u[1] / u[0]
		case recBgnStr:
			if cur != nil {
				return fmt.Errorf("record at offset %d: BGNSTR inside structure %q", rec.offset, cur.Name)
			}
			cur = cell.New("")
		case recStrName:
			if cur == nil {
				return fmt.Errorf("record at offset %d: STRNAME outside structure", rec.offset)
			}
			cur.Name = rec.str()
		case recEndStr:
			if cur == nil {
				return fmt.Errorf("record at offset %d: ENDSTR outside structure", rec.offset)
			}
			if err := p.lib.Add(cur); err != nil {
				return err
			}
			p.order = append(p.order, cur)
			cur = nil
		case recBoundary, recPath, recSRef, recARef, recText, recNode, recBox:
			if cur == nil {
				return fmt.Errorf("record at offset %d: element outside structure", rec.offset)
			}
			el = &element{kind: rec.typ}
		case recEndEl:
			if el == nil {
				return fmt.Errorf("record at offset %d: ENDEL without element", rec.offset)
			}
			if err := p.commit(cur, el); err != nil {
				return fmt.Errorf("element ending at offset %d: %w", rec.offset, err)
			}
			el = nil
		case recEndLib:
			if cur != nil {
				return fmt.Errorf("ENDLIB inside structure %q", cur.Name)
			}
			return p.resolve()
		default:
			if el != nil {
				if err := p.property(el, rec); err != nil {
					return err
				}
			}
		}
	}
}

func (p *parser) property(el *element, rec record) error {
	switch rec.typ {
	case recLayer:
		v := rec.int16s()
		if len(v) == 0 {
			return fmt.Errorf("record at offset %d: empty LAYER", rec.offset)
		}
		el.layer = int(v[0])
	case recDatatype, recTexttype:
		v := rec.int16s()
		if len(v) > 0 {
			el.datatype = int(v[0])
		}
	case recWidth:
		v := rec.int32s()
		if len(v) > 0 {
			w := float64(v[0])
			if w < 0 {
				w = -w
			}
			el.width = w * p.scale
		}
	case recXY:
		v := rec.int32s()
		if len(v)%2 != 0 {
			return fmt.Errorf("record at offset %d: odd XY coordinate count", rec.offset)
		}
		el.xy = make([]geom.Point, len(v)/2)
		for i := range el.xy {
			el.xy[i] = geom.Point{X: float64(v[2*i]) * p.scale, Y: float64(v[2*i+1]) * p.scale}
		}
	case recSName:
		el.sname = rec.str()
	case recString:
		el.text = rec.str()
	case recColRow:
		v := rec.int16s()
		if len(v) != 2 {
			return fmt.Errorf("record at offset %d: COLROW needs two values", rec.offset)
		}
		el.cols, el.rows = int(v[0]), int(v[1])
	case recSTrans:
		if len(rec.data) >= 2 {
			flags := uint16(rec.data[0])<<8 | uint16(rec.data[1])
			el.reflect = flags&stransReflect != 0
		}
	case recMag:
		if v := rec.real8s(); len(v) > 0 {
			el.mag = v[0]
		}
	case recAngle:
		if v := rec.real8s(); len(v) > 0 {
			el.angle = v[0]
		}
	}
	return nil
}

func (p *parser) commit(c *cell.Cell, el *element) error {
	switch el.kind {
	case recBoundary:
		pts := el.xy
		if n := len(pts); n > 1 && pts[0] == pts[n-1] {
			pts = pts[:n-1]
		}
		if len(pts) < 3 {
			return fmt.Errorf("boundary with %d points", len(pts))
		}
		c.AddPolygon(cell.Polygon{Points: pts, Layer: el.layer, Datatype: el.datatype})
	case recPath:
		if len(el.xy) < 2 {
			return fmt.Errorf("path with %d points", len(el.xy))
		}
		c.AddPath(cell.Path{Points: el.xy, Width: el.width, Layer: el.layer, Datatype: el.datatype})
	case recText:
		if len(el.xy) < 1 {
			return fmt.Errorf("text without position")
		}
		c.AddLabel(cell.Label{Text: el.text, Pos: el.xy[0], Layer: el.layer, Texttype: el.datatype})
	case recSRef:
		if el.sname == "" || len(el.xy) < 1 {
			return fmt.Errorf("SREF needs SNAME and XY")
		}
		ref := el.reference()
		ref.Origin = el.xy[0]
		p.addRef(c, ref, el.sname)
	case recARef:
		if el.sname == "" || len(el.xy) != 3 || el.cols < 1 || el.rows < 1 {
			return fmt.Errorf("AREF needs SNAME, COLROW and three XY points")
		}
		ref := el.reference()
		ref.Origin = el.xy[0]
		ref.Columns, ref.Rows = el.cols, el.rows
		ref.ColSpacing = el.xy[1].Sub(el.xy[0]).Scale(1 / float64(el.cols))
		ref.RowSpacing = el.xy[2].Sub(el.xy[0]).Scale(1 / float64(el.rows))
		p.addRef(c, ref, el.sname)
	}
	// NODE and BOX elements carry no layout geometry.
	return nil
}

func (el *element) reference() cell.Reference {
	return cell.Reference{
		Rotation:      el.angle,
		Magnification: el.mag,
		XReflection:   el.reflect,
	}
}

func (p *parser) addRef(c *cell.Cell, ref cell.Reference, name string) {
	c.AddReference(ref)
	p.refs[c] = append(p.refs[c], pendingRef{index: len(c.References) - 1, name: name})
}

func (p *parser) resolve() error {
	for _, c := range p.order {
		for _, pr := range p.refs[c] {
			target := p.lib.Cell(pr.name)
			if target == nil {
				return fmt.Errorf("structure %q references undefined structure %q", c.Name, pr.name)
			}
			c.References[pr.index].Cell = target
		}
	}
	return nil
}

func eofAsUnexpected(err error) error {
	if err == io.EOF {
		return fmt.Errorf("stream ended before ENDLIB: %w", io.ErrUnexpectedEOF)
	}
	return err
}
