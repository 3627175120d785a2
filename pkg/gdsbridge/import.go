package gdsbridge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/options"
)

// ImportOptions tune [Import].
type ImportOptions struct {
	// Chip is written into every record. Empty means "chip0".
	Chip string
	// Merge folds all cells into one record named after the library.
	Merge bool
}

// Result holds the records produced by an import. Section is the design
// section the records belong in; it equals the requested component type.
type Result struct {
	Section  string         `json:"section"`
	Records  []*options.Map `json:"-"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Names returns the record names in order.
func (r *Result) Names() []string {
	out := make([]string, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Str(component.KeyName)
	}
	return out
}

// Import parses the GDS file at path and turns its cells into component
// records of type componentType. A missing file fails with FILE_NOT_FOUND
// and an unreadable one with IMPORT_ERROR wrapping PARSE_ERROR. A file that
// parses but holds no polygons is not an error: the result is empty and
// carries a warning.
func Import(ctx context.Context, path, componentType string, opts ImportOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.ValidateComponentName(componentType); err != nil {
		return nil, err
	}
	lib, err := gdsii.ReadFile(path)
	if err != nil {
		if errors.Is(err, errors.ErrCodeFileNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeImport, err, "import %s", path)
	}
	return fromParsed(lib, path, componentType, opts)
}

// ImportBytes is [Import] for GDS data already in memory. source names the
// data in errors and supplies the library name when the stream has none.
func ImportBytes(ctx context.Context, data []byte, source, componentType string, opts ImportOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.ValidateComponentName(componentType); err != nil {
		return nil, err
	}
	lib, err := gdsii.Read(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImport, err, "import %s", source)
	}
	return fromParsed(lib, source, componentType, opts)
}

func fromParsed(lib *cell.Library, source, componentType string, opts ImportOptions) (*Result, error) {
	if lib.Name == "" {
		lib.Name = TypeNameForFile(source)
	}
	return FromLibrary(lib, componentType, opts)
}

// FromLibrary turns the cells of an already parsed library into component
// records. Each record carries the polygons of its cell (paths converted to
// polygons, references not followed), gds_pos at the centre of the cell
// and, as its outline, the min and max corner of every polygon in the
// cell's own coordinates. Cells without polygons are skipped.
func FromLibrary(lib *cell.Library, componentType string, opts ImportOptions) (*Result, error) {
	if err := errors.ValidateComponentName(componentType); err != nil {
		return nil, err
	}
	res := &Result{Section: componentType}
	chip := opts.Chip
	if chip == "" {
		chip = "chip0"
	}

	type group struct {
		name  string
		polys []cell.Polygon
	}
	var groups []group
	for _, c := range lib.Cells() {
		polys := ownPolygons(c)
		if len(polys) == 0 {
			continue
		}
		groups = append(groups, group{name: c.Name, polys: polys})
	}
	if opts.Merge && len(groups) > 0 {
		merged := group{name: lib.Name}
		for _, g := range groups {
			merged.polys = append(merged.polys, g.polys...)
		}
		groups = []group{merged}
	}
	if len(groups) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("library %q holds no polygons; no components were created", lib.Name))
		return res, nil
	}

	taken := make(map[string]bool)
	for _, g := range groups {
		box, ok := cell.PolygonsBoundingBox(g.polys)
		if !ok {
			continue
		}
		name := uniqueName(recordName(g.name, componentType), taken)
		rec := options.NewMap().
			Set(component.KeyName, options.String(name)).
			Set(component.KeyType, options.String(componentType)).
			Set(component.KeyChip, options.String(chip)).
			Set(component.KeyGDSPos, options.PointValue(box.Center())).
			Set(component.KeyTopoPos, options.Tuple(options.Int(0), options.Int(0))).
			Set(component.KeyRotation, options.Int(0)).
			Set(component.KeyOutline, options.PointsValue(component.PolygonCorners(g.polys))).
			Set(component.KeyPolygons, component.EncodePolygons(g.polys))
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func ownPolygons(c *cell.Cell) []cell.Polygon {
	out := make([]cell.Polygon, 0, len(c.Polygons)+len(c.Paths))
	for _, p := range c.Polygons {
		if len(p.Points) >= 3 {
			out = append(out, p.Clone())
		}
	}
	for _, p := range c.Paths {
		if pts := p.Outline(); len(pts) >= 3 {
			out = append(out, cell.NewPolygon(pts, p.Layer, p.Datatype))
		}
	}
	return out
}

// recordName turns a cell name into a valid component name.
func recordName(cellName, fallback string) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-') {
			return r
		}
		return '_'
	}, cellName)
	if name == "" {
		name = fallback
	}
	if c := name[0]; !(c == '_' || unicode.IsLetter(rune(c))) {
		name = "_" + name
	}
	return name
}

func uniqueName(base string, taken map[string]bool) string {
	name := base
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	taken[name] = true
	return name
}

// Encode renders the result as an option literal, the form kept in caches.
func (r *Result) Encode() ([]byte, error) {
	recs := make([]options.Value, len(r.Records))
	for i, rec := range r.Records {
		recs[i] = options.MapOf(rec)
	}
	warns := make([]options.Value, len(r.Warnings))
	for i, w := range r.Warnings {
		warns[i] = options.String(w)
	}
	s, err := options.Format(options.MapOf(options.NewMap().
		Set("section", options.String(r.Section)).
		Set("records", options.List(recs...)).
		Set("warnings", options.List(warns...))))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// DecodeResult parses a literal written by [Result.Encode].
func DecodeResult(data []byte) (*Result, error) {
	v, err := options.Parse(string(data))
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "import result must be a mapping")
	}
	res := &Result{Section: m.Str("section")}
	recs, _ := m.Get("records")
	for _, item := range recs.Items() {
		rec, ok := item.Map()
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "import record must be a mapping")
		}
		res.Records = append(res.Records, rec)
	}
	warns, _ := m.Get("warnings")
	for _, item := range warns.Items() {
		if s, ok := item.Str(); ok {
			res.Warnings = append(res.Warnings, s)
		}
	}
	return res, nil
}
