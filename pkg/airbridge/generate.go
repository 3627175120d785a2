// Package airbridge places air bridges along transmission lines.
//
// [Generate] walks a line by arc length and returns evenly spaced bridge
// placements. [GenerateOps] does the same for a line stored in a design's
// option record and returns a new record with the bridges added under the
// "air_bridges" section. [Optimize] post-processes such a record and drops
// bridges that violate spacing or collide with other lines.
//
// None of the functions modify their inputs.
package airbridge

import (
	"fmt"
	"math"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Section is the option section that holds generated bridges.
const Section = "air_bridges"

// Config controls bridge placement.
type Config struct {
	// Spacing is the centre-to-centre distance between neighbouring
	// bridges on one line.
	Spacing float64
	// Clearance is the minimum distance between a bridge and a bend of its
	// own line or a crossing with another line. Zero disables both checks.
	Clearance float64
	// Span is the length of a bridge across its line, used when a bridge
	// record carries no "length".
	Span float64
	// Type, Chip and Width are copied into generated records.
	Type  string
	Chip  string
	Width float64
}

// DefaultConfig returns the stock settings: 120 spacing, 20 clearance,
// 40 span, type AirBridge on chip3 with width 10.
func DefaultConfig() Config {
	return Config{
		Spacing:   120,
		Clearance: 20,
		Span:      40,
		Type:      "AirBridge",
		Chip:      "chip3",
		Width:     10,
	}
}

func (c Config) validate() error {
	if !(c.Spacing > 0) || math.IsInf(c.Spacing, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "bridge spacing must be positive, got %g", c.Spacing)
	}
	if c.Clearance < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bridge clearance must not be negative, got %g", c.Clearance)
	}
	return nil
}

// Bridge is one placement on a line.
type Bridge struct {
	Pos      geom.Point `json:"pos"`
	S        float64    `json:"s"`        // arc length from the start of the line
	Rotation float64    `json:"rotation"` // degrees, direction of the line at Pos
}

// Generate places bridges along line. The line length L holds
// n = max(1, floor(L/Spacing)) slots; the run of n bridges, Spacing apart,
// is centred on the line so the margins at both ends are equal. Bridges
// closer than Clearance (by arc length) to an interior vertex are dropped,
// as are bridges closer than Spacing in the plane to an earlier bridge,
// which happens across bends and hairpins. The result is ordered by
// increasing arc length and lies within [0, L].
func Generate(line geom.Path, cfg Config) ([]Bridge, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !line.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line needs at least two points, got %d", len(line))
	}
	length := line.Length()
	if length == 0 {
		return nil, nil
	}

	n := max(1, int(math.Floor(length/cfg.Spacing)))
	margin := (length - float64(n-1)*cfg.Spacing) / 2
	bends := line.VertexStations()

	out := make([]Bridge, 0, n)
	placed := make([]geom.Point, 0, n)
	for i := 0; i < n; i++ {
		s := margin + float64(i)*cfg.Spacing
		if nearAny(s, bends, cfg.Clearance) {
			continue
		}
		st, ok := line.PointAt(s)
		if !ok || tooClose(st.Point, placed, cfg.Spacing) {
			continue
		}
		placed = append(placed, st.Point)
		out = append(out, Bridge{
			Pos:      st.Point,
			S:        st.S,
			Rotation: st.Angle * 180 / math.Pi,
		})
	}
	return out, nil
}

func nearAny(s float64, stations []float64, clearance float64) bool {
	if clearance <= 0 {
		return false
	}
	for _, v := range stations {
		if math.Abs(s-v) < clearance {
			return true
		}
	}
	return false
}

// GenerateOps places bridges along ops[lineType][lineName].pos and returns a
// copy of ops with one record per bridge added to the air_bridges section,
// together with the new record names. Names follow <type>_<line>_<i> and
// are bumped until they are unique across all sections.
func GenerateOps(ops *options.Map, lineType, lineName string, cfg Config) (*options.Map, []string, error) {
	line, err := linePath(ops, lineType, lineName)
	if err != nil {
		return nil, nil, err
	}
	bridges, err := Generate(line, cfg)
	if err != nil {
		return nil, nil, err
	}

	out := ops.Clone()
	section := out.Ensure(Section)
	taken := existingNames(out)
	names := make([]string, 0, len(bridges))
	next := 0
	for _, b := range bridges {
		var name string
		for {
			name = fmt.Sprintf("%s_%s_%d", cfg.Type, lineName, next)
			next++
			if !taken[name] {
				break
			}
		}
		taken[name] = true
		section.Set(name, options.MapOf(bridgeRecord(name, lineType, lineName, b, cfg)))
		names = append(names, name)
	}
	return out, names, nil
}

func bridgeRecord(name, lineType, lineName string, b Bridge, cfg Config) *options.Map {
	return options.NewMap().
		Set("name", options.String(name)).
		Set("type", options.String(cfg.Type)).
		Set("chip", options.String(cfg.Chip)).
		Set("gds_pos", options.PointValue(b.Pos)).
		Set("rotation", options.Float(b.Rotation)).
		Set("width", options.Float(cfg.Width)).
		Set("length", options.Float(cfg.Span)).
		Set("line_type", options.String(lineType)).
		Set("line", options.String(lineName))
}

// linePath reads the "pos" polyline of a line record.
func linePath(ops *options.Map, lineType, lineName string) (geom.Path, error) {
	section, ok := ops.Sub(lineType)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no %s section in the design", lineType)
	}
	rec, ok := section.Sub(lineName)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown line %s in %s", lineName, lineType)
	}
	pts, ok := rec.Points("pos")
	if !ok || len(pts) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line %s has no valid pos", lineName)
	}
	return geom.Path(pts), nil
}

func existingNames(ops *options.Map) map[string]bool {
	taken := make(map[string]bool)
	for _, v := range ops.All() {
		if sec, ok := v.Map(); ok {
			for _, name := range sec.Keys() {
				taken[name] = true
			}
		}
	}
	return taken
}
