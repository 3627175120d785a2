package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/cache"
	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
)

func writeGDS(t *testing.T, dir, name string) string {
	t.Helper()
	lib := cell.NewLibrary("LIB")
	_ = lib.Add(cell.New("xmon").AddPolygon(
		cell.Rect(geom.Pt(0, 0), geom.Pt(40, 20), 1),
		cell.Rect(geom.Pt(40, 0), geom.Pt(60, 10), 2),
	))
	path := filepath.Join(dir, name)
	if err := gdsii.WriteFile(path, lib); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Type != DefaultImportType || o.Chip != DefaultChip || o.Width != DefaultWidth {
		t.Errorf("defaults = %+v", o)
	}

	bad := Options{Width: -1}
	if err := bad.ValidateAndSetDefaults(); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("negative width error = %v", err)
	}
}

func TestValidateForImport(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"ok", Options{Path: "a.gds"}, ""},
		{"upper case extension", Options{Path: "a.GDS"}, ""},
		{"no path", Options{}, errors.ErrCodeInvalidPath},
		{"wrong extension", Options{Path: "a.txt"}, errors.ErrCodeInvalidPath},
		{"bad type", Options{Path: "a.gds", Type: "1x"}, errors.ErrCodeInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateForImport()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestValidateForSynthDerivesName(t *testing.T) {
	o := Options{Path: "/tmp/xmon-round.gds"}
	if err := o.ValidateForSynth(); err != nil {
		t.Fatal(err)
	}
	if o.Name != "XmonRound" {
		t.Errorf("Name = %q", o.Name)
	}
}

func TestImportCaches(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	opts := Options{Path: writeGDS(t, t.TempDir(), "xmon.gds")}

	first, hit, err := r.ImportWithCacheInfo(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first import hit the cache")
	}
	second, hit, err := r.ImportWithCacheInfo(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("second import missed the cache")
	}
	if diff := cmp.Diff(first.Names(), second.Names()); diff != "" {
		t.Errorf("names mismatch (-first +second):\n%s", diff)
	}
	if !first.Records[0].Equal(second.Records[0]) {
		t.Errorf("records differ:\n%v\n%v", first.Records[0], second.Records[0])
	}
	if second.Section != DefaultImportType {
		t.Errorf("section = %q", second.Section)
	}

	// A renamed copy of the same bytes hits; different options miss.
	data, _ := os.ReadFile(opts.Path)
	copyPath := filepath.Join(t.TempDir(), "copy.gds")
	if err := os.WriteFile(copyPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := r.ImportWithCacheInfo(ctx, Options{Path: copyPath}); !hit {
		t.Error("renamed copy missed the cache")
	}
	if _, hit, _ := r.ImportWithCacheInfo(ctx, Options{Path: opts.Path, Chip: "chip2"}); hit {
		t.Error("different chip hit the cache")
	}
	refresh := opts
	refresh.Refresh = true
	if _, hit, _ := r.ImportWithCacheInfo(ctx, refresh); hit {
		t.Error("refresh hit the cache")
	}
}

func TestImportErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := r.Import(ctx, Options{Path: filepath.Join(dir, "missing.gds")})
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("missing file error = %v", err)
	}

	junk := filepath.Join(dir, "junk.gds")
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = r.Import(ctx, Options{Path: junk})
	if !errors.Is(err, errors.ErrCodeImport) || !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("junk file error = %v", err)
	}
}

func TestSynthesizeCaches(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	opts := Options{Path: writeGDS(t, t.TempDir(), "xmon_round.gds")}

	tmpl, hit, err := r.SynthesizeWithCacheInfo(ctx, opts)
	if err != nil || hit {
		t.Fatalf("first synth hit=%v err=%v", hit, err)
	}
	if tmpl.Str(component.KeyType) != "XmonRound" {
		t.Errorf("type = %q", tmpl.Str(component.KeyType))
	}
	again, hit, err := r.SynthesizeWithCacheInfo(ctx, opts)
	if err != nil || !hit {
		t.Fatalf("second synth hit=%v err=%v", hit, err)
	}
	if !tmpl.Equal(again) {
		t.Errorf("cached template differs:\n%v\n%v", tmpl, again)
	}
}

func TestRenderDesign(t *testing.T) {
	d, err := design.New("chip")
	if err != nil {
		t.Fatal(err)
	}
	line := options.NewMap().
		Set("name", options.String("tl0")).
		Set("type", options.String("TransmissionLine")).
		Set("pos", options.PointsValue([]geom.Point{{X: 0, Y: 0}, {X: 400, Y: 0}}))
	if err := d.Add("transmission_lines", line); err != nil {
		t.Fatal(err)
	}
	before := d.Ops.Clone()

	r := newRunner(t)
	ctx := context.Background()
	svg, hit, err := r.RenderDesignWithCacheInfo(ctx, d, component.DefaultCatalog(), Options{Width: 200})
	if err != nil || hit {
		t.Fatalf("render hit=%v err=%v", hit, err)
	}
	if !bytes.HasPrefix(svg, []byte("<svg")) || !strings.Contains(string(svg), `width="200"`) {
		t.Errorf("svg = %.120s", svg)
	}
	if !d.Ops.Equal(before) {
		t.Error("render modified the design")
	}

	if _, hit, _ := r.RenderDesignWithCacheInfo(ctx, d, component.DefaultCatalog(), Options{Width: 200}); !hit {
		t.Error("second render missed the cache")
	}

	_, err = r.RenderDesign(ctx, d, component.DefaultCatalog(), Options{Cell: "nope"})
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("missing cell error = %v", err)
	}
}

func TestRenderFile(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	path := writeGDS(t, t.TempDir(), "xmon.gds")
	svg, err := r.RenderFile(context.Background(), Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<title>xmon</title>") {
		t.Errorf("svg = %.200s", svg)
	}
}
