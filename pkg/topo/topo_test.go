package topo

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

func TestToPhysical(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]Pos
		spacing float64
		want    map[string]geom.Point
	}{
		{
			name:    "two qubits",
			in:      map[string]Pos{"q0": {0, 0}, "q1": {1, 0}},
			spacing: 200,
			want:    map[string]geom.Point{"q0": {X: 0, Y: 0}, "q1": {X: 200, Y: 0}},
		},
		{
			name:    "negative and vertical",
			in:      map[string]Pos{"a": {-1, 2}, "b": {0, -3}},
			spacing: 150.5,
			want:    map[string]geom.Point{"a": {X: -150.5, Y: 301}, "b": {X: 0, Y: -451.5}},
		},
		{
			name:    "empty",
			in:      map[string]Pos{},
			spacing: 10,
			want:    map[string]geom.Point{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPhysical(tt.in, tt.spacing)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToPhysical mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		a, b Pos
		want Side
	}{
		{Pos{0, 0}, Pos{1, 0}, Left},
		{Pos{2, 0}, Pos{1, 0}, Right},
		{Pos{1, 1}, Pos{1, 0}, Top},
		{Pos{1, -1}, Pos{1, 0}, Bottom},
	}
	for _, tt := range tests {
		got, err := Direction(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Direction(%v, %v): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Direction(%v, %v) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
		back, _ := Direction(tt.b, tt.a)
		if back != got.Opposite() {
			t.Errorf("Direction(%v, %v) = %s, want %s", tt.b, tt.a, back, got.Opposite())
		}
	}

	for _, bad := range [][2]Pos{{{0, 0}, {0, 0}}, {{0, 0}, {1, 1}}, {{0, 0}, {2, 0}}} {
		if _, err := Direction(bad[0], bad[1]); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Direction(%v, %v) err = %v, want INVALID_INPUT", bad[0], bad[1], err)
		}
	}
}

func TestGrid(t *testing.T) {
	g := Grid(3, 2)
	if diff := cmp.Diff([]string{"q0", "q1", "q2", "q3", "q4", "q5"}, g.Nodes()); diff != "" {
		t.Errorf("nodes (-want +got):\n%s", diff)
	}
	if p, _ := g.Position("q4"); p != (Pos{1, 1}) {
		t.Errorf("q4 at %v, want (1, 1)", p)
	}
	// 2 rows of 2 horizontal edges plus 3 vertical edges.
	if n := len(g.Edges()); n != 7 {
		t.Errorf("got %d edges, want 7", n)
	}
	couplings, err := g.Couplings()
	if err != nil {
		t.Fatal(err)
	}
	if couplings[0].Side != Left {
		t.Errorf("q0-q1 side = %s, want left", couplings[0].Side)
	}
}

func TestCouplingsRejectDistantNodes(t *testing.T) {
	g := NewGraph()
	g.SetNode("a", Pos{0, 0})
	g.SetNode("b", Pos{3, 0})
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("a", "zz"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("AddEdge unknown node err = %v, want NOT_FOUND", err)
	}
	if _, err := g.Couplings(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Couplings err = %v, want INVALID_INPUT", err)
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	src := `{"positions": {"q0": (0, 0), "q1": (1, 0), "q2": (1, 1)}, "edges": [("q0", "q1"), ["q1", "q2"]]}`
	v, err := options.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := v.Map()
	g, err := FromOptions(m)
	if err != nil {
		t.Fatalf("FromOptions: %v", err)
	}
	if diff := cmp.Diff([]Edge{{"q0", "q1"}, {"q1", "q2"}}, g.Edges()); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}

	again, err := FromOptions(g.Options())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(g.Positions(), again.Positions()); diff != "" {
		t.Errorf("positions after round trip (-want +got):\n%s", diff)
	}

	phys := g.PhysicalOptions(200)
	if p, _ := phys.Point("q2"); p != geom.Pt(200, 200) {
		t.Errorf("q2 physical = %v", p)
	}
}

func TestFromOptionsErrors(t *testing.T) {
	tests := []string{
		`{}`,
		`{"positions": {"q0": (0.5, 0)}}`,
		`{"positions": {"q0": (0, 0, 0)}}`,
		`{"positions": {"q0": (0, 0)}, "edges": [("q0",)]}`,
	}
	for _, src := range tests {
		v, err := options.Parse(src)
		if err != nil {
			t.Fatal(err)
		}
		m, _ := v.Map()
		if _, err := FromOptions(m); !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("FromOptions(%s) err = %v, want INVALID_FORMAT", src, err)
		}
	}
}

func TestToDOT(t *testing.T) {
	g := Grid(2, 1)
	g.SetNode("far", Pos{5, 5})
	g.AddEdge("q0", "far")

	dot := ToDOT(g, DOTOptions{Spacing: 200})
	for _, want := range []string{
		`layout=neato`,
		`"q1" [label="q1\n200, 0", pos="1.5,0!"]`,
		`"q0" -- "q1";`,
		`"q0" -- "far" [style=dashed, color=red];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s:\n%s", want, dot)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(Grid(2, 2), DOTOptions{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, "<svg") || !strings.Contains(s, "q3") {
		t.Errorf("unexpected SVG output: %.200s", s)
	}
}
