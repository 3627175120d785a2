// Package pkg provides the core libraries for qlayout, a geometry engine for
// planar superconducting qubit chip layouts.
//
// # Overview
//
// A design is a set of option records grouped by section. Each record names a
// component type and its parameters; the component catalog turns records into
// layout cells, and cells are written to GDSII or previewed as SVG. The pkg
// directory is organized into three areas:
//
//  1. Geometry - [geom], [cell], [topo], [airbridge]
//  2. Designs and files - [options], [component], [design], [gdsii], [gdsbridge]
//  3. Infrastructure - [pipeline], [cache], [config], [errors], [observability]
//
// # Architecture
//
// The typical data flow:
//
//	option file (.txt)          GDS file (.gds)
//	       ↓                          ↓
//	  [options] parse           [gdsii] read
//	       ↓                          ↓
//	  [design] registry  ←──  [gdsbridge] import
//	       ↓
//	  [component] build
//	       ↓
//	  [cell] library  →  [gdsii] write / SVG preview
//
// # Quick Start
//
// Open a design, build it and write the GDS stream:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/qlayout/pkg/component"
//	    "github.com/matzehuels/qlayout/pkg/design"
//	)
//
//	reg := design.NewRegistry()
//	d, _ := reg.Open("chip.txt")
//	_ = d.SaveGDS(context.Background(), "chip.gds", component.DefaultCatalog())
//
// # Main Packages
//
// ## Geometry
//
// [geom] - Points, boxes, polylines, affine transforms and segment
// intersection.
//
// [cell] - Layout cells with polygons, paths and references; bounding boxes,
// flattening and SVG preview.
//
// [topo] - Maps topological lattice positions to physical coordinates and
// renders coupling graphs with Graphviz.
//
// [airbridge] - Places air bridges along transmission lines and removes the
// ones that sit on crossings or crowd their neighbours.
//
// ## Designs and Files
//
// [options] - The option record model and its Python-style literal codec.
//
// [component] - Component types and the catalog that builds them.
//
// [design] - Designs, the copy-on-write registry of open designs and the
// file, Redis and MongoDB stores.
//
// [gdsii] - GDSII stream reader and writer.
//
// [gdsbridge] - Imports GDS cells as component records and synthesizes
// library part templates.
//
// ## Infrastructure
//
// [pipeline] - The cached import, synth and render stages shared by the CLI
// and the HTTP server.
//
// [cache] - File, Redis and null byte caches with content-hash keys.
//
// [config] - TOML configuration with XDG defaults.
//
// [errors] - Error codes shared by every package.
//
// [observability] - Hooks for metrics and tracing around pipeline stages.
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/geom
// [cell]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/cell
// [topo]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/topo
// [airbridge]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/airbridge
// [options]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/options
// [component]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/component
// [design]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/design
// [gdsii]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/gdsii
// [gdsbridge]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/gdsbridge
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/qlayout/pkg/observability
package pkg
