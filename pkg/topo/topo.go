// Package topo maps topological lattice positions to physical coordinates.
//
// Components are first arranged on an integer lattice ([Pos]); the
// physical layout then follows from a fixed spacing ([ToPhysical]). A
// [Graph] adds the couplings between lattice nodes and can be rendered as a
// pinned Graphviz diagram for review.
package topo

import (
	"fmt"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/geom"
)

// Pos is a lattice coordinate. X grows to the right and Y upwards, matching
// the physical axes after [ToPhysical].
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Physical returns the physical position of p for the given spacing.
func (p Pos) Physical(spacing float64) geom.Point {
	return geom.Point{X: float64(p.X) * spacing, Y: float64(p.Y) * spacing}
}

// ToPhysical projects every lattice position to (X*spacing, Y*spacing). The
// result has exactly the keys of positions; the input is not modified.
func ToPhysical(positions map[string]Pos, spacing float64) map[string]geom.Point {
	out := make(map[string]geom.Point, len(positions))
	for name, p := range positions {
		out[name] = p.Physical(spacing)
	}
	return out
}

// Side says where one lattice node sits relative to an adjacent one.
type Side string

const (
	Left   Side = "left"
	Right  Side = "right"
	Top    Side = "top"
	Bottom Side = "bot"
)

// Opposite returns the side seen from the other node.
func (s Side) Opposite() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	case Top:
		return Bottom
	case Bottom:
		return Top
	}
	return s
}

// Direction reports on which side of b the node a lies. The two positions
// must be lattice neighbours; otherwise it fails with INVALID_INPUT.
func Direction(a, b Pos) (Side, error) {
	switch d := (Pos{X: a.X - b.X, Y: a.Y - b.Y}); d {
	case Pos{X: -1}:
		return Left, nil
	case Pos{X: 1}:
		return Right, nil
	case Pos{Y: 1}:
		return Top, nil
	case Pos{Y: -1}:
		return Bottom, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "positions %s and %s are not adjacent", a, b)
}
