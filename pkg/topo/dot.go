package topo

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures lattice diagrams.
type DOTOptions struct {
	// Spacing is the physical lattice spacing shown in node labels. Zero
	// hides physical coordinates.
	Spacing float64
	// Scale is the distance between neighbouring nodes in the drawing, in
	// inches. Zero means 1.5.
	Scale float64
}

// ToDOT converts a lattice graph to Graphviz DOT with every node pinned at
// its lattice position. Render it with a layout engine that honours pinned
// positions, as [RenderSVG] does.
func ToDOT(g *Graph, opts DOTOptions) string {
	scale := opts.Scale
	if scale == 0 {
		scale = 1.5
	}
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=14, fixedsize=true, width=0.9];\n")
	buf.WriteString("  edge [penwidth=2];\n")
	buf.WriteString("\n")

	for _, n := range g.names {
		p := g.positions[n]
		label := n
		if opts.Spacing != 0 {
			phys := p.Physical(opts.Spacing)
			label = fmt.Sprintf("%s\n%g, %g", n, phys.X, phys.Y)
		}
		fmt.Fprintf(&buf, "  %q [label=%q, pos=\"%g,%g!\"];\n",
			n, label, float64(p.X)*scale, float64(p.Y)*scale)
	}

	buf.WriteString("\n")
	for _, e := range g.edges {
		style := ""
		if _, err := Direction(g.positions[e.From], g.positions[e.To]); err != nil {
			style = " [style=dashed, color=red]"
		}
		fmt.Fprintf(&buf, "  %q -- %q%s;\n", e.From, e.To, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders DOT source produced by [ToDOT] to SVG with the neato
// engine so pinned positions are kept.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg header with one whose
// width and height match the view box.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
