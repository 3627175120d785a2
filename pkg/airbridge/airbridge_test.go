package airbridge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func parseOps(t *testing.T, src string) *options.Map {
	t.Helper()
	v, err := options.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, ok := v.Map()
	if !ok {
		t.Fatalf("%s is not a map", src)
	}
	return m
}

func positions(bs []Bridge) []geom.Point {
	out := make([]geom.Point, len(bs))
	for i, b := range bs {
		out[i] = b.Pos
	}
	return out
}

func TestGenerateStraight(t *testing.T) {
	line := geom.Path{{X: 0, Y: 0}, {X: 1000, Y: 0}}
	bs, err := Generate(line, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	var want []geom.Point
	for x := 80.0; x <= 920; x += 120 {
		want = append(want, geom.Pt(x, 0))
	}
	if diff := cmp.Diff(want, positions(bs), approx); diff != "" {
		t.Errorf("positions (-want +got):\n%s", diff)
	}
	for i, b := range bs {
		if b.S < 0 || b.S > 1000 {
			t.Errorf("bridge %d at s=%g outside the line", i, b.S)
		}
		if i > 0 && b.S <= bs[i-1].S {
			t.Errorf("bridge %d not after bridge %d", i, i-1)
		}
		if b.Rotation != 0 {
			t.Errorf("bridge %d rotation = %g", i, b.Rotation)
		}
	}
}

func TestGenerateShortLine(t *testing.T) {
	bs, err := Generate(geom.Path{{X: 0, Y: 0}, {X: 50, Y: 0}}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 || bs[0].Pos != geom.Pt(25, 0) {
		t.Errorf("bridges = %+v, want one at the middle", bs)
	}
}

func TestGenerateSkipsBends(t *testing.T) {
	line := geom.Path{{X: 0, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 300}}
	bs, err := Generate(line, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []geom.Point{{X: 60, Y: 0}, {X: 180, Y: 0}, {X: 300, Y: 120}, {X: 300, Y: 240}}
	if diff := cmp.Diff(want, positions(bs), approx); diff != "" {
		t.Errorf("positions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(90.0, bs[2].Rotation, approx); diff != "" {
		t.Errorf("rotation on vertical leg (-want +got):\n%s", diff)
	}
}

func TestGeneratePlanarSpacing(t *testing.T) {
	tests := []struct {
		name string
		line geom.Path
		want int
	}{
		{"l-bend", geom.Path{{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 500, Y: 500}}, 7},
		{"hairpin", geom.Path{{X: 0, Y: 0}, {X: 600, Y: 0}, {X: 600, Y: 30}, {X: 0, Y: 30}}, 5},
	}
	cfg := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := Generate(tt.line, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if len(bs) != tt.want {
				t.Errorf("got %d bridges, want %d: %v", len(bs), tt.want, positions(bs))
			}
			for i := range bs {
				for j := i + 1; j < len(bs); j++ {
					if d := bs[i].Pos.Dist(bs[j].Pos); d < cfg.Spacing-1e-9 {
						t.Errorf("bridges %d and %d are %.2f apart, want >= %g", i, j, d, cfg.Spacing)
					}
				}
			}
		})
	}
}

func TestGenerateAcrossBend(t *testing.T) {
	line := geom.Path{{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 500, Y: 500}}
	bs, err := Generate(line, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []geom.Point{
		{X: 80, Y: 0}, {X: 200, Y: 0}, {X: 320, Y: 0}, {X: 440, Y: 0},
		{X: 500, Y: 180}, {X: 500, Y: 300}, {X: 500, Y: 420},
	}
	if diff := cmp.Diff(want, positions(bs), approx); diff != "" {
		t.Errorf("positions (-want +got):\n%s", diff)
	}
}

func TestOptimizeKeepsGenerated(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"straight", `{"transmission_lines": {"tl0": {"pos": [(0, 0), (1000, 0)]}}}`},
		{"l-bend", `{"transmission_lines": {"tl0": {"pos": [(0, 0), (500, 0), (500, 500)]}}}`},
		{"hairpin", `{"transmission_lines": {"tl0": {"pos": [(0, 0), (600, 0), (600, 30), (0, 30)]}}}`},
	}
	cfg := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, names, err := GenerateOps(parseOps(t, tt.src), "transmission_lines", "tl0", cfg)
			if err != nil {
				t.Fatal(err)
			}
			_, report, err := Optimize(ops, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if len(report.Removed) != 0 {
				t.Errorf("removed %v", report.Removed)
			}
			if diff := cmp.Diff(names, report.Kept); diff != "" {
				t.Errorf("kept (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	line := geom.Path{{X: 0, Y: 0}, {X: 100, Y: 0}}
	cfg := DefaultConfig()
	cfg.Spacing = 0
	if _, err := Generate(line, cfg); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("zero spacing err = %v", err)
	}
	if _, err := Generate(geom.Path{{X: 1, Y: 1}}, DefaultConfig()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("single point err = %v", err)
	}
	bs, err := Generate(geom.Path{{X: 1, Y: 1}, {X: 1, Y: 1}}, DefaultConfig())
	if err != nil || len(bs) != 0 {
		t.Errorf("zero length = %v, %v", bs, err)
	}
}

const straightDesign = `{"lines": {"tl0": {"type": "TransmissionLine", "pos": [(0, 0), (1000, 0)]}}}`

func TestGenerateOps(t *testing.T) {
	ops := parseOps(t, straightDesign)
	out, names, err := GenerateOps(ops, "lines", "tl0", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 8 || names[0] != "AirBridge_tl0_0" || names[7] != "AirBridge_tl0_7" {
		t.Errorf("names = %v", names)
	}
	if ops.Has(Section) {
		t.Error("input modified")
	}
	sec, ok := out.Sub(Section)
	if !ok || sec.Len() != 8 {
		t.Fatalf("air_bridges = %v", sec)
	}
	rec, _ := sec.Sub("AirBridge_tl0_1")
	if p, _ := rec.Point("gds_pos"); p != geom.Pt(200, 0) {
		t.Errorf("gds_pos = %v", p)
	}
	if rec.Str("chip") != "chip3" || rec.Str("type") != "AirBridge" || rec.Str("line") != "tl0" {
		t.Errorf("record = %v", rec)
	}
	if w, _ := rec.Number("width"); w != 10 {
		t.Errorf("width = %v", w)
	}
}

func TestGenerateOpsUniqueNames(t *testing.T) {
	ops := parseOps(t, `{
		"lines": {"tl0": {"pos": [(0, 0), (300, 0)]}},
		"misc": {"AirBridge_tl0_0": {"type": "Pin"}},
	}`)
	_, names, err := GenerateOps(ops, "lines", "tl0", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"AirBridge_tl0_1", "AirBridge_tl0_2"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestGenerateOpsErrors(t *testing.T) {
	ops := parseOps(t, `{"lines": {"bad": {"pos": [(0, 0)]}, "tl0": {"pos": [(0, 0), (10, 0)]}}}`)
	tests := []struct {
		name, section, line string
	}{
		{"missing section", "wires", "tl0"},
		{"missing line", "lines", "tl9"},
		{"short pos", "lines", "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := GenerateOps(ops, tt.section, tt.line, DefaultConfig())
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestOptimizeNearCrossing(t *testing.T) {
	ops := parseOps(t, `{"lines": {
		"tl0": {"pos": [(0, 0), (1000, 0)]},
		"tl1": {"pos": [(200, -500), (200, 500)]},
	}}`)
	withBridges, _, err := GenerateOps(ops, "lines", "tl0", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	out, report, err := Optimize(withBridges, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []Removal{{Name: "AirBridge_tl0_1", Reason: ReasonCrossing}}
	if diff := cmp.Diff(want, report.Removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}
	if len(report.Kept) != 7 {
		t.Errorf("kept = %v", report.Kept)
	}
	sec, _ := out.Sub(Section)
	if sec.Has("AirBridge_tl0_1") || sec.Len() != 7 {
		t.Errorf("air_bridges = %v", sec.Keys())
	}
	orig, _ := withBridges.Sub(Section)
	if orig.Len() != 8 {
		t.Error("input modified")
	}
}

func TestOptimizeSpanCrossesLine(t *testing.T) {
	ops := parseOps(t, `{"lines": {
		"tl0": {"pos": [(0, 0), (1000, 0)]},
		"stub": {"pos": [(150, 10), (250, 10)]},
	}}`)
	withBridges, _, err := GenerateOps(ops, "lines", "tl0", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, report, err := Optimize(withBridges, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []Removal{{Name: "AirBridge_tl0_1", Reason: ReasonSpan}}
	if diff := cmp.Diff(want, report.Removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}
}

func TestOptimizeSpacing(t *testing.T) {
	ops := parseOps(t, `{
		"lines": {"tl0": {"pos": [(0, 0), (1000, 0)]}},
		"air_bridges": {
			"ab0": {"gds_pos": (100, 0), "rotation": 0},
			"ab1": {"gds_pos": (150, 0), "rotation": 0},
			"ab2": {"gds_pos": (250, 0), "rotation": 0},
		},
	}`)
	_, report, err := Optimize(ops, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := Report{
		Kept:    []string{"ab0", "ab2"},
		Removed: []Removal{{Name: "ab1", Reason: ReasonSpacing}},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestOptimizeErrors(t *testing.T) {
	ops := parseOps(t, `{"air_bridges": {"ab0": {"rotation": 0}}}`)
	if _, _, err := Optimize(ops, DefaultConfig()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing gds_pos err = %v", err)
	}
	cfg := DefaultConfig()
	cfg.Spacing = -1
	if _, _, err := Optimize(parseOps(t, straightDesign), cfg); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative spacing err = %v", err)
	}
	out, report, err := Optimize(parseOps(t, straightDesign), DefaultConfig())
	if err != nil || out == nil || len(report.Kept)+len(report.Removed) != 0 {
		t.Errorf("no bridges = %v, %+v, %v", out, report, err)
	}
}
