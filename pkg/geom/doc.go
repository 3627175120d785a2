// Package geom provides the planar geometry primitives used across qlayout.
//
// # Overview
//
// Everything here is a pure function over value types: [Point], [Segment],
// [Path] and [Box]. There is no shared state and no error return; callers
// that divide by a determinant receive an explicit "no unique solution"
// result instead of a panic or an error.
//
// # Coordinates
//
// Coordinates are physical layout units (micrometres in GDS terms). Angles
// passed to [Rotate] are in degrees, counter-clockwise; [DirectionAngle]
// returns radians in (-π, π].
//
// # Bounding boxes
//
// [BoxOf] distinguishes "no geometry" from a degenerate zero-area box: an
// empty point set yields ok == false, a single point yields a valid box with
// Min == Max.
//
// # Intersections
//
// [Intersect] tests a pair of segments; [PathIntersections] runs the
// exhaustive pairwise test over two polylines:
//
//	pts := geom.PathIntersections(
//	    geom.Path{{0, 0}, {10, 10}},
//	    geom.Path{{0, 10}, {10, 0}},
//	)
//	// pts == []geom.Point{{5, 5}}
//
// Parallel and collinear segment pairs report no intersection, even when
// they overlap. This is a known limitation kept for compatibility with
// existing layouts rather than a defect.
package geom
