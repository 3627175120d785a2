package cell

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// layerColors cycles per layer number.
var layerColors = []string{
	"#3b6fb6", "#d9822b", "#5a9e4b", "#c23b3b", "#8a5fb3",
	"#2f9c9c", "#b8a22f", "#7b7b7b",
}

// LayerColor returns the fill colour used for a layer.
func LayerColor(layer int) string {
	if layer < 0 {
		layer = -layer
	}
	return layerColors[layer%len(layerColors)]
}

// WriteSVG renders c, references flattened, as an SVG document whose pixel
// width is width. Layout Y grows upwards, so the image is mirrored
// vertically. A cell without a bounding box or with zero width cannot be
// scaled and yields a DEGENERATE_GEOMETRY error.
func WriteSVG(w io.Writer, c *Cell, width float64) error {
	if width <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "svg width must be positive, got %g", width)
	}
	box, ok := BoundingBox(c)
	if !ok || box.Width() == 0 {
		return errors.New(errors.ErrCodeDegenerateGeometry, "the width of %s is 0, cannot generate svg", c.Name)
	}
	polys, err := Flatten(c)
	if err != nil {
		return err
	}
	scale := width / box.Width()
	height := box.Height() * scale

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.3f %.3f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, "  <title>%s</title>\n", html.EscapeString(c.Name))

	for _, p := range polys {
		var sb strings.Builder
		for i, pt := range p.Points {
			if i > 0 {
				sb.WriteByte(' ')
			}
			x := (pt.X - box.Min.X) * scale
			y := (box.Max.Y - pt.Y) * scale
			fmt.Fprintf(&sb, "%.3f,%.3f", x, y)
		}
		fmt.Fprintf(bw, `  <polygon class="l%dd%d" points="%s" fill="%s" fill-opacity="0.6" stroke="%s" stroke-width="0.5"/>`+"\n",
			p.Layer, p.Datatype, sb.String(), LayerColor(p.Layer), LayerColor(p.Layer))
	}
	for _, l := range c.Labels {
		x := (l.Pos.X - box.Min.X) * scale
		y := (box.Max.Y - l.Pos.Y) * scale
		fmt.Fprintf(bw, `  <text x="%.3f" y="%.3f" font-size="10" font-family="monospace">%s</text>`+"\n",
			x, y, html.EscapeString(l.Text))
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}
