package airbridge

import (
	"math"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Reasons a bridge is removed by [Optimize].
const (
	ReasonSpacing  = "spacing"
	ReasonCrossing = "near crossing"
	ReasonSpan     = "span crosses line"
)

// Removal records one bridge dropped by [Optimize].
type Removal struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarises an [Optimize] run.
type Report struct {
	Kept    []string  `json:"kept"`
	Removed []Removal `json:"removed"`
}

// line is a polyline found in the design, keyed by section and name.
type line struct {
	section, name string
	path          geom.Path
}

// Optimize checks every record in the air_bridges section against the lines
// of the design and returns a copy of ops without the bridges that
//
//   - lie within Clearance of a point where two different lines cross,
//   - have a span (Span long, perpendicular to the bridge rotation) that
//     crosses a line other than the one the bridge sits on,
//   - sit closer than Spacing to an earlier kept bridge on the same line.
//
// A line is any record outside air_bridges with at least two points under
// "pos". Bridges are visited in record order. A bridge without a "line"
// field is assigned to the nearest line.
func Optimize(ops *options.Map, cfg Config) (*options.Map, Report, error) {
	var report Report
	if err := cfg.validate(); err != nil {
		return nil, report, err
	}
	out := ops.Clone()
	section, ok := out.Sub(Section)
	if !ok || section.Len() == 0 {
		return out, report, nil
	}

	lines := collectLines(out)
	crossings := lineCrossings(lines)

	kept := make(map[int][]geom.Point) // line index -> kept bridge positions
	var drop []string
	for name, v := range section.All() {
		rec, ok := v.Map()
		if !ok {
			return nil, Report{}, errors.New(errors.ErrCodeInvalidFormat, "air bridge %s is not a record", name)
		}
		pos, ok := rec.Point("gds_pos")
		if !ok {
			return nil, Report{}, errors.New(errors.ErrCodeInvalidInput, "air bridge %s has no valid gds_pos", name)
		}
		own := ownLine(rec, pos, lines)

		reason := ""
		switch {
		case nearCrossing(pos, crossings, cfg.Clearance):
			reason = ReasonCrossing
		case spanCrosses(rec, pos, cfg, own, lines):
			reason = ReasonSpan
		case own >= 0 && tooClose(pos, kept[own], cfg.Spacing):
			reason = ReasonSpacing
		}
		if reason != "" {
			drop = append(drop, name)
			report.Removed = append(report.Removed, Removal{Name: name, Reason: reason})
			continue
		}
		if own >= 0 {
			kept[own] = append(kept[own], pos)
		}
		report.Kept = append(report.Kept, name)
	}
	for _, name := range drop {
		section.Delete(name)
	}
	return out, report, nil
}

func collectLines(ops *options.Map) []line {
	var out []line
	for secName, sv := range ops.All() {
		if secName == Section {
			continue
		}
		sec, ok := sv.Map()
		if !ok {
			continue
		}
		for name, rv := range sec.All() {
			rec, ok := rv.Map()
			if !ok {
				continue
			}
			if pts, ok := rec.Points("pos"); ok && len(pts) >= 2 {
				out = append(out, line{section: secName, name: name, path: geom.Path(pts)})
			}
		}
	}
	return out
}

func lineCrossings(lines []line) []geom.Point {
	var out []geom.Point
	for i := range lines {
		for j := i + 1; j < len(lines); j++ {
			out = append(out, geom.PathIntersections(lines[i].path, lines[j].path)...)
		}
	}
	return out
}

// ownLine returns the index of the line a bridge belongs to, or -1.
func ownLine(rec *options.Map, pos geom.Point, lines []line) int {
	if name := rec.Str("line"); name != "" {
		sec := rec.Str("line_type")
		for i, l := range lines {
			if l.name == name && (sec == "" || l.section == sec) {
				return i
			}
		}
	}
	best, bestDist := -1, math.Inf(1)
	for i, l := range lines {
		if d := l.path.Distance(pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func nearCrossing(p geom.Point, crossings []geom.Point, clearance float64) bool {
	if clearance <= 0 {
		return false
	}
	for _, c := range crossings {
		if p.Dist(c) < clearance {
			return true
		}
	}
	return false
}

// span returns the segment a bridge covers: length long, centred on pos and
// perpendicular to the bridge rotation.
func span(pos geom.Point, rotation, length float64) geom.Segment {
	a := (rotation + 90) * math.Pi / 180
	d := geom.Pt(snap(math.Cos(a)), snap(math.Sin(a))).Scale(length / 2)
	return geom.Segment{A: pos.Sub(d), B: pos.Add(d)}
}

// snap rounds the residue of cos and sin at quarter turns to zero so that
// axis-aligned spans stay exactly axis-aligned.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}

func spanCrosses(rec *options.Map, pos geom.Point, cfg Config, own int, lines []line) bool {
	length, ok := rec.Number("length")
	if !ok || length <= 0 {
		length = cfg.Span
	}
	if length <= 0 {
		return false
	}
	rotation, _ := rec.Number("rotation")
	s := span(pos, rotation, length)
	for i, l := range lines {
		if i == own {
			continue
		}
		for _, seg := range l.path.Segments() {
			if _, hit := geom.Intersect(s, seg); hit {
				return true
			}
		}
	}
	return false
}

func tooClose(p geom.Point, kept []geom.Point, spacing float64) bool {
	for _, k := range kept {
		if p.Dist(k) < spacing-1e-9 {
			return true
		}
	}
	return false
}
