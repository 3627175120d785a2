package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

// bboxCommand creates the bbox command.
func (c *CLI) bboxCommand() *cobra.Command {
	var cellName string

	cmd := &cobra.Command{
		Use:   "bbox [file]",
		Short: "Print the bounding box of a cell",
		Long: `Print the bounding box of a cell in a GDS file or a design option file.

For a GDS file the default cell is the first top cell. A design is built
first; its default cell is TOP and each component has a cell named
<component>_cell.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := c.loadLibrary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			target, err := pickCell(lib, cellName)
			if err != nil {
				return err
			}
			box, ok := cell.BoundingBox(target)
			if !ok {
				return errors.New(errors.ErrCodeDegenerateGeometry, "cell %s has no geometry", target.Name)
			}
			printBox(target.Name, box)
			return nil
		},
	}

	cmd.Flags().StringVar(&cellName, "cell", "", "cell to measure")
	return cmd
}

// loadLibrary reads a GDS file, or builds a design option file into a
// library.
func (c *CLI) loadLibrary(ctx context.Context, path string) (*cell.Library, error) {
	if strings.EqualFold(filepath.Ext(path), ".gds") {
		return gdsii.ReadFile(path)
	}
	d, err := design.NewRegistry().Open(path)
	if err != nil {
		return nil, err
	}
	return d.Build(ctx, c.catalog)
}

// pickCell returns the named cell, TOP when present, or the first top cell.
func pickCell(lib *cell.Library, name string) (*cell.Cell, error) {
	if name != "" {
		if c := lib.Cell(name); c != nil {
			return c, nil
		}
		return nil, errors.New(errors.ErrCodeNotFound, "cell %s not found in %s", name, lib.Name)
	}
	if c := lib.Cell(design.TopCellName); c != nil {
		return c, nil
	}
	tops := lib.TopCells()
	if len(tops) == 0 {
		return nil, errors.New(errors.ErrCodeDegenerateGeometry, "library %s has no cells", lib.Name)
	}
	return tops[0], nil
}

func printBox(name string, box geom.Box) {
	fmt.Fprintln(out, styleTitle.Render(name))
	printKeyValue("min", box.Min.String())
	printKeyValue("max", box.Max.String())
	printKeyValue("width", strconv.FormatFloat(box.Width(), 'g', -1, 64))
	printKeyValue("height", strconv.FormatFloat(box.Height(), 'g', -1, 64))
	printKeyValue("center", box.Center().String())
}

// namedPath is a polyline with a display name.
type namedPath struct {
	name string
	path geom.Path
}

// crossing is one point where two polylines meet.
type crossing struct {
	a, b string
	at   geom.Point
}

// intersectCommand creates the intersect command.
func (c *CLI) intersectCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "intersect [file]",
		Short: "Find crossings between polylines",
		Long: `Find every point where two polylines cross.

The file holds either a list of polylines,

  [[(0, 0), (10, 10)], [(0, 10), (10, 0)]]

or a design, in which case every record with at least two points under
"pos" is a polyline. Collinear overlaps are not reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := options.Import(args[0])
			if err != nil {
				return err
			}
			paths, err := polylines(v)
			if err != nil {
				return err
			}
			found := crossings(paths)
			if len(found) == 0 {
				printSuccess("No crossings between %d polylines", len(paths))
				return nil
			}
			for _, x := range found {
				printInfo("%s × %s at %s", x.a, x.b, x.at)
			}
			if check {
				return errors.New(errors.ErrCodeInvalidInput, "%d crossings found", len(found))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "exit with an error when any crossing is found")
	return cmd
}

// polylines extracts the polylines of a list literal or a design.
func polylines(v options.Value) ([]namedPath, error) {
	if m, ok := v.Map(); ok {
		var out []namedPath
		for _, sv := range m.All() {
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
					out = append(out, namedPath{name: name, path: geom.Path(pts)})
				}
			}
		}
		return out, nil
	}
	if !v.IsSequence() {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected a list of polylines or a design, got %s", v.Kind())
	}
	out := make([]namedPath, 0, len(v.Items()))
	for i, item := range v.Items() {
		pts, ok := item.Points()
		if !ok || len(pts) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "polyline %d needs at least two points", i)
		}
		out = append(out, namedPath{name: strconv.Itoa(i), path: geom.Path(pts)})
	}
	return out, nil
}

func crossings(paths []namedPath) []crossing {
	var out []crossing
	for i := range paths {
		for j := i + 1; j < len(paths); j++ {
			for _, p := range geom.PathIntersections(paths[i].path, paths[j].path) {
				out = append(out, crossing{a: paths[i].name, b: paths[j].name, at: p})
			}
		}
	}
	return out
}
