package gdsii

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// streamVersion is the GDSII release number written to HEADER.
const streamVersion = 600

// now stamps BGNLIB and BGNSTR records.
var now = time.Now

// WriteFile writes lib to path. The file is written to a temporary sibling
// and renamed into place, so a failed write leaves no partial file.
func WriteFile(path string, lib *cell.Library) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".gds-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if err := Write(tmp, lib); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "rename to %s", path)
	}
	return nil
}

// Write encodes lib as a GDSII stream. Cells referenced by library cells but
// not registered in the library are written too, after the registered ones.
func Write(w io.Writer, lib *cell.Library) error {
	if lib.Unit <= 0 || lib.Precision <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "library units must be positive")
	}
	bw := bufio.NewWriter(w)
	enc := &encoder{w: bw, dbPerUser: lib.Unit / lib.Precision}

	cells := lib.Cells()
	seen := make(map[*cell.Cell]bool, len(cells))
	names := make(map[string]*cell.Cell, len(cells))
	for _, c := range cells {
		seen[c] = true
	}
	for _, c := range lib.Cells() {
		for _, d := range c.Dependencies() {
			if !seen[d] {
				seen[d] = true
				cells = append(cells, d)
			}
		}
	}
	for _, c := range cells {
		if other, dup := names[c.Name]; dup && other != c {
			return errors.New(errors.ErrCodeInvalidInput, "two different cells share the name %q", c.Name)
		}
		names[c.Name] = c
	}

	stamp := timestamp(now())
	enc.int16s(recHeader, streamVersion)
	enc.int16s(recBgnLib, append(stamp, stamp...)...)
	enc.str(recLibName, lib.Name)
	enc.real8s(recUnits, lib.Precision/lib.Unit, lib.Precision)
	for _, c := range cells {
		enc.int16s(recBgnStr, append(stamp, stamp...)...)
		enc.str(recStrName, c.Name)
		if err := enc.cell(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode cell %s", c.Name)
		}
		enc.empty(recEndStr)
	}
	enc.empty(recEndLib)
	if enc.err != nil {
		return errors.Wrap(errors.ErrCodeInternal, enc.err, "write gds stream")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write gds stream")
	}
	return nil
}

func timestamp(t time.Time) []int16 {
	return []int16{
		int16(t.Year()), int16(t.Month()), int16(t.Day()),
		int16(t.Hour()), int16(t.Minute()), int16(t.Second()),
	}
}

// encoder writes records and remembers the first I/O error.
type encoder struct {
	w         io.Writer
	dbPerUser float64
	err       error
	buf       []byte
}

func (e *encoder) header(typ, dt byte, n int) {
	e.buf = e.buf[:0]
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(n+4))
	e.buf = append(e.buf, typ, dt)
}

func (e *encoder) flush() {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(e.buf)
}

func (e *encoder) empty(typ byte) {
	e.header(typ, dtNone, 0)
	e.flush()
}

func (e *encoder) int16s(typ byte, v ...int16) {
	e.header(typ, dtInt16, 2*len(v))
	for _, x := range v {
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(x))
	}
	e.flush()
}

func (e *encoder) bits(typ byte, v uint16) {
	e.header(typ, dtBits, 2)
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
	e.flush()
}

func (e *encoder) int32s(typ byte, v ...int32) {
	e.header(typ, dtInt32, 4*len(v))
	for _, x := range v {
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(x))
	}
	e.flush()
}

func (e *encoder) real8s(typ byte, v ...float64) {
	e.header(typ, dtReal8, 8*len(v))
	for _, x := range v {
		b := encodeReal8(x)
		e.buf = append(e.buf, b[:]...)
	}
	e.flush()
}

func (e *encoder) str(typ byte, s string) {
	n := len(s)
	if n%2 != 0 {
		n++
	}
	e.header(typ, dtString, n)
	e.buf = append(e.buf, s...)
	if n != len(s) {
		e.buf = append(e.buf, 0)
	}
	e.flush()
}

func (e *encoder) db(v float64) (int32, error) {
	d := math.Round(v * e.dbPerUser)
	if d > math.MaxInt32 || d < math.MinInt32 {
		return 0, fmt.Errorf("coordinate %g out of range for the database unit", v)
	}
	return int32(d), nil
}

func (e *encoder) xy(pts []geom.Point) error {
	if len(pts) > maxXYPoints {
		return fmt.Errorf("%d points exceed the %d allowed in one element", len(pts), maxXYPoints)
	}
	v := make([]int32, 0, 2*len(pts))
	for _, p := range pts {
		x, err := e.db(p.X)
		if err != nil {
			return err
		}
		y, err := e.db(p.Y)
		if err != nil {
			return err
		}
		v = append(v, x, y)
	}
	e.int32s(recXY, v...)
	return nil
}

func (e *encoder) cell(c *cell.Cell) error {
	for _, p := range c.Polygons {
		if len(p.Points) < 3 {
			return fmt.Errorf("polygon with %d points", len(p.Points))
		}
		e.empty(recBoundary)
		e.int16s(recLayer, int16(p.Layer))
		e.int16s(recDatatype, int16(p.Datatype))
		closed := append(append([]geom.Point(nil), p.Points...), p.Points[0])
		if err := e.xy(closed); err != nil {
			return err
		}
		e.empty(recEndEl)
	}
	for _, p := range c.Paths {
		if len(p.Points) < 2 {
			return fmt.Errorf("path with %d points", len(p.Points))
		}
		w, err := e.db(p.Width)
		if err != nil {
			return err
		}
		e.empty(recPath)
		e.int16s(recLayer, int16(p.Layer))
		e.int16s(recDatatype, int16(p.Datatype))
		e.int16s(recPathtype, 0)
		e.int32s(recWidth, w)
		if err := e.xy(p.Points); err != nil {
			return err
		}
		e.empty(recEndEl)
	}
	for _, l := range c.Labels {
		e.empty(recText)
		e.int16s(recLayer, int16(l.Layer))
		e.int16s(recTexttype, int16(l.Texttype))
		if err := e.xy([]geom.Point{l.Pos}); err != nil {
			return err
		}
		e.str(recString, l.Text)
		e.empty(recEndEl)
	}
	for _, r := range c.References {
		if r.Cell == nil {
			continue
		}
		if err := e.reference(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) reference(r cell.Reference) error {
	array := r.Columns > 1 || r.Rows > 1
	if array {
		e.empty(recARef)
	} else {
		e.empty(recSRef)
	}
	e.str(recSName, r.Cell.Name)
	mag := r.Magnification != 0 && r.Magnification != 1
	if r.XReflection || mag || r.Rotation != 0 {
		var flags uint16
		if r.XReflection {
			flags |= stransReflect
		}
		e.bits(recSTrans, flags)
		if mag {
			e.real8s(recMag, r.Magnification)
		}
		if r.Rotation != 0 {
			e.real8s(recAngle, r.Rotation)
		}
	}
	if array {
		cols, rows := max(r.Columns, 1), max(r.Rows, 1)
		e.int16s(recColRow, int16(cols), int16(rows))
		pts := []geom.Point{
			r.Origin,
			r.Origin.Add(r.ColSpacing.Scale(float64(cols))),
			r.Origin.Add(r.RowSpacing.Scale(float64(rows))),
		}
		if err := e.xy(pts); err != nil {
			return err
		}
	} else if err := e.xy([]geom.Point{r.Origin}); err != nil {
		return err
	}
	e.empty(recEndEl)
	return nil
}
