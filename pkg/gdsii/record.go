// Package gdsii reads and writes GDSII stream files.
//
// The stream is a sequence of records, each a 4-byte header (big-endian
// total length, record type, data type) followed by its payload. [Read]
// turns a stream into a [cell.Library]; [Write] does the reverse. Only the
// records needed for layout geometry are interpreted (boundaries, paths,
// text, structure and array references); everything else is skipped.
//
// Coordinates are stored as 32-bit integers in database units and scaled by
// the library's UNITS record on the way in and out.
package gdsii

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Record types used by this package.
const (
	recHeader   = 0x00
	recBgnLib   = 0x01
	recLibName  = 0x02
	recUnits    = 0x03
	recEndLib   = 0x04
	recBgnStr   = 0x05
	recStrName  = 0x06
	recEndStr   = 0x07
	recBoundary = 0x08
	recPath     = 0x09
	recSRef     = 0x0A
	recARef     = 0x0B
	recText     = 0x0C
	recLayer    = 0x0D
	recDatatype = 0x0E
	recWidth    = 0x0F
	recXY       = 0x10
	recEndEl    = 0x11
	recSName    = 0x12
	recColRow   = 0x13
	recNode     = 0x15
	recTexttype = 0x16
	recString   = 0x19
	recSTrans   = 0x1A
	recMag      = 0x1B
	recAngle    = 0x1C
	recPathtype = 0x21
	recBox      = 0x2D
)

// Data types.
const (
	dtNone   = 0x00
	dtBits   = 0x01
	dtInt16  = 0x02
	dtInt32  = 0x03
	dtReal8  = 0x05
	dtString = 0x06
)

// STRANS flags.
const (
	stransReflect = 0x8000
	stransAbsMag  = 0x0004
	stransAbsAng  = 0x0002
)

// maxRecordLen is the largest record the 16-bit length field can describe.
const maxRecordLen = 0xFFFF

// maxXYPoints is the number of coordinate pairs that fit in one XY record.
const maxXYPoints = (maxRecordLen - 4) / 8

// record is one decoded stream record.
type record struct {
	typ    byte
	dt     byte
	data   []byte
	offset int64
}

func (r record) int16s() []int16 {
	out := make([]int16, len(r.data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(r.data[2*i:]))
	}
	return out
}

func (r record) int32s() []int32 {
	out := make([]int32, len(r.data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(r.data[4*i:]))
	}
	return out
}

func (r record) real8s() []float64 {
	out := make([]float64, len(r.data)/8)
	for i := range out {
		out[i] = decodeReal8(r.data[8*i : 8*i+8])
	}
	return out
}

func (r record) str() string {
	b := r.data
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// recordReader pulls records from a stream, tracking the byte offset for
// error messages.
type recordReader struct {
	r      io.Reader
	offset int64
	hdr    [4]byte
}

// next returns the next record, io.EOF at a clean end of stream, or
// io.ErrUnexpectedEOF for a truncated record.
func (rr *recordReader) next() (record, error) {
	start := rr.offset
	if _, err := io.ReadFull(rr.r, rr.hdr[:]); err != nil {
		return record{}, err
	}
	rr.offset += 4
	n := int(binary.BigEndian.Uint16(rr.hdr[:2]))
	if n < 4 {
		return record{}, fmt.Errorf("record at offset %d: invalid length %d", start, n)
	}
	rec := record{typ: rr.hdr[2], dt: rr.hdr[3], offset: start}
	if n > 4 {
		rec.data = make([]byte, n-4)
		if _, err := io.ReadFull(rr.r, rec.data); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return record{}, err
		}
		rr.offset += int64(n - 4)
	}
	if err := checkPayload(rec); err != nil {
		return record{}, err
	}
	return rec, nil
}

func checkPayload(rec record) error {
	var unit int
	switch rec.dt {
	case dtBits, dtInt16:
		unit = 2
	case dtInt32:
		unit = 4
	case dtReal8:
		unit = 8
	default:
		return nil
	}
	if len(rec.data)%unit != 0 {
		return fmt.Errorf("record 0x%02x at offset %d: payload of %d bytes is not a multiple of %d",
			rec.typ, rec.offset, len(rec.data), unit)
	}
	return nil
}

// decodeReal8 converts an excess-64 base-16 GDSII real to float64.
func decodeReal8(b []byte) float64 {
	neg := b[0]&0x80 != 0
	exp := int(b[0]&0x7F) - 64
	var mant uint64
	for _, x := range b[1:8] {
		mant = mant<<8 | uint64(x)
	}
	v := float64(mant) / (1 << 56) * math.Pow(16, float64(exp))
	if neg {
		v = -v
	}
	return v
}

// encodeReal8 converts v to the excess-64 base-16 GDSII representation.
func encodeReal8(v float64) [8]byte {
	var out [8]byte
	if v == 0 || math.IsNaN(v) {
		return out
	}
	var sign byte
	if v < 0 {
		sign = 0x80
		v = -v
	}
	exp := 0
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}
	mant := uint64(math.Round(v * (1 << 56)))
	if mant >= 1<<56 {
		mant >>= 4
		exp++
	}
	out[0] = sign | byte(exp+64)&0x7F
	for i := 7; i >= 1; i-- {
		out[i] = byte(mant)
		mant >>= 8
	}
	return out
}
