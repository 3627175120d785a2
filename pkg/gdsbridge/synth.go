// Package gdsbridge connects GDS files to component records.
//
// Synthesis turns finished cell geometry into a library part template: a
// plain option record that embeds the polygons and rebuilds through the
// LibraryPart builder of [component.Catalog]. Import turns an arbitrary GDS
// file into component records ready to be added to a design.
package gdsbridge

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/options"
)

// TemplateExt is the extension of synthesised template files.
const TemplateExt = ".txt"

// Synthesize returns a library part template holding the flattened polygons
// of c. The template is typed typeName and named typeName+"0"; gds_pos,
// topo_pos and rotation start at zero. A cell without horizontal extent
// cannot be placed and fails with DEGENERATE_GEOMETRY.
func Synthesize(c *cell.Cell, typeName, chip string) (*options.Map, error) {
	if c == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no cell to synthesise")
	}
	polys, err := cell.Flatten(c)
	if err != nil {
		return nil, err
	}
	return synthesize(c.Name, polys, typeName, chip)
}

// SynthesizeLibrary merges the flattened top cells of lib into one template.
func SynthesizeLibrary(lib *cell.Library, typeName, chip string) (*options.Map, error) {
	var polys []cell.Polygon
	for _, top := range lib.TopCells() {
		flat, err := cell.Flatten(top)
		if err != nil {
			return nil, err
		}
		polys = append(polys, flat...)
	}
	return synthesize(lib.Name, polys, typeName, chip)
}

func synthesize(source string, polys []cell.Polygon, typeName, chip string) (*options.Map, error) {
	if err := errors.ValidateComponentName(typeName); err != nil {
		return nil, err
	}
	box, ok := cell.PolygonsBoundingBox(polys)
	if !ok || box.Width() == 0 {
		return nil, errors.New(errors.ErrCodeDegenerateGeometry, "cell %s has zero width", source)
	}
	if chip == "" {
		chip = "chip0"
	}
	origin := options.Tuple(options.Int(0), options.Int(0))
	return options.NewMap().
		Set(component.KeyName, options.String(typeName+"0")).
		Set(component.KeyType, options.String(typeName)).
		Set(component.KeyChip, options.String(chip)).
		Set(component.KeyGDSPos, origin).
		Set(component.KeyTopoPos, origin).
		Set(component.KeyOutline, options.List()).
		Set(component.KeyRotation, options.Int(0)).
		Set(component.KeyPolygons, component.EncodePolygons(polys)), nil
}

// TypeNameForFile derives a template type from a GDS file name:
// "xmon_round.gds" becomes "XmonRound".
func TypeNameForFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '.' {
			return '_'
		}
		return r
	}, base)
	return component.CamelCase(base)
}

// SynthesizeFile reads the GDS file at gdsPath, merges all of its cells into
// one template and exports it to outDir/<base>.txt. It returns the written
// path and the template.
func SynthesizeFile(gdsPath, outDir string) (string, *options.Map, error) {
	lib, err := gdsii.ReadFile(gdsPath)
	if err != nil {
		return "", nil, err
	}
	tmpl, err := SynthesizeLibrary(lib, TypeNameForFile(gdsPath), "")
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", outDir)
	}
	base := strings.TrimSuffix(filepath.Base(gdsPath), filepath.Ext(gdsPath))
	out := filepath.Join(outDir, base+TemplateExt)
	if err := options.Export(out, options.MapOf(tmpl)); err != nil {
		return "", nil, err
	}
	return out, tmpl, nil
}
