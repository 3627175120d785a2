package topo

import (
	"fmt"
	"slices"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Edge couples two named lattice nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Coupling is an edge together with the side of To on which From lies.
type Coupling struct {
	Edge
	Side Side `json:"side"`
}

// Graph is a set of named lattice nodes and the edges between them. Node
// order is insertion order.
type Graph struct {
	names     []string
	positions map[string]Pos
	edges     []Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{positions: make(map[string]Pos)}
}

// Grid returns a cols×rows lattice with nodes q0, q1, … numbered row by row
// from the origin and nearest-neighbour edges.
func Grid(cols, rows int) *Graph {
	g := NewGraph()
	name := func(x, y int) string { return fmt.Sprintf("q%d", y*cols+x) }
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			g.SetNode(name(x, y), Pos{X: x, Y: y})
		}
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if x+1 < cols {
				g.edges = append(g.edges, Edge{From: name(x, y), To: name(x+1, y)})
			}
			if y+1 < rows {
				g.edges = append(g.edges, Edge{From: name(x, y), To: name(x, y+1)})
			}
		}
	}
	return g
}

// SetNode adds a node or moves an existing one.
func (g *Graph) SetNode(name string, p Pos) {
	if _, ok := g.positions[name]; !ok {
		g.names = append(g.names, name)
	}
	g.positions[name] = p
}

// AddEdge couples two existing nodes.
func (g *Graph) AddEdge(from, to string) error {
	for _, n := range []string{from, to} {
		if _, ok := g.positions[n]; !ok {
			return errors.New(errors.ErrCodeNotFound, "edge %s-%s: unknown node %q", from, to, n)
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	return nil
}

// Nodes returns the node names in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.names) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Position returns the lattice position of a node.
func (g *Graph) Position(name string) (Pos, bool) {
	p, ok := g.positions[name]
	return p, ok
}

// Positions returns a copy of the name → position map.
func (g *Graph) Positions() map[string]Pos {
	out := make(map[string]Pos, len(g.positions))
	for k, v := range g.positions {
		out[k] = v
	}
	return out
}

// Couplings resolves the side of every edge. It fails on the first edge
// whose nodes are not lattice neighbours.
func (g *Graph) Couplings() ([]Coupling, error) {
	out := make([]Coupling, 0, len(g.edges))
	for _, e := range g.edges {
		side, err := Direction(g.positions[e.From], g.positions[e.To])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s-%s", e.From, e.To)
		}
		out = append(out, Coupling{Edge: e, Side: side})
	}
	return out, nil
}

// FromOptions reads a topology record of the form
//
//	{"positions": {"q0": (0, 0), "q1": (1, 0)}, "edges": [("q0", "q1")]}
//
// Positions must be integer pairs. The edges entry is optional.
func FromOptions(m *options.Map) (*Graph, error) {
	pos, ok := m.Sub("positions")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "topology has no positions map")
	}
	g := NewGraph()
	for name, v := range pos.All() {
		items := v.Items()
		if len(items) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "position of %s must be a pair, got %s", name, v)
		}
		x, okx := items[0].Int()
		y, oky := items[1].Int()
		if !okx || !oky {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "position of %s must be integers, got %s", name, v)
		}
		g.SetNode(name, Pos{X: int(x), Y: int(y)})
	}
	edges, ok := m.Get("edges")
	if !ok {
		return g, nil
	}
	for i, e := range edges.Items() {
		ends := e.Items()
		if len(ends) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "edge %d must name two nodes, got %s", i, e)
		}
		from, ok1 := ends[0].Str()
		to, ok2 := ends[1].Str()
		if !ok1 || !ok2 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "edge %d must name two nodes, got %s", i, e)
		}
		if err := g.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Options returns the graph as a topology record, the inverse of
// [FromOptions].
func (g *Graph) Options() *options.Map {
	pos := options.NewMap()
	for _, n := range g.names {
		p := g.positions[n]
		pos.Set(n, options.Tuple(options.Int(int64(p.X)), options.Int(int64(p.Y))))
	}
	edges := make([]options.Value, len(g.edges))
	for i, e := range g.edges {
		edges[i] = options.Tuple(options.String(e.From), options.String(e.To))
	}
	return options.NewMap().
		Set("positions", options.MapOf(pos)).
		Set("edges", options.List(edges...))
}

// PhysicalOptions returns the name → (x, y) record produced by projecting
// every node with spacing, in node order.
func (g *Graph) PhysicalOptions(spacing float64) *options.Map {
	out := options.NewMap()
	for _, n := range g.names {
		out.Set(n, options.PointValue(g.positions[n].Physical(spacing)))
	}
	return out
}
