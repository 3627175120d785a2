package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/qlayout/pkg/cache"
	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsbridge"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/observability"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Runner runs pipeline stages with caching.
// Both CLI and API use it so the caching logic lives in one place.
//
// The Runner keeps no results of its own, only the cache and logger.
// Multiple goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// ImportWithCacheInfo imports the GDS file at opts.Path with caching and
// reports whether the result came from the cache.
func (r *Runner) ImportWithCacheInfo(ctx context.Context, opts Options) (res *gdsbridge.Result, hit bool, err error) {
	if err := opts.ValidateForImport(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	start := time.Now()
	observability.Pipeline().OnImportStart(ctx, opts.Path)
	defer func() {
		n := 0
		if res != nil {
			n = len(res.Records)
		}
		observability.Pipeline().OnImportComplete(ctx, opts.Path, n, time.Since(start), err)
	}()

	data, err := readGDS(opts.Path)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.ImportKey(cache.Hash(data), opts.ImportKeyOpts())

	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, "import", key); ok {
			if res, err := gdsbridge.DecodeResult(cached); err == nil {
				opts.Logger.Debug("import cache hit", "path", opts.Path, "components", len(res.Records))
				return res, true, nil
			}
			// An unreadable entry falls through to a fresh import.
		}
	}

	res, err = gdsbridge.ImportBytes(ctx, data, opts.source(), opts.Type, gdsbridge.ImportOptions{
		Chip:  opts.Chip,
		Merge: opts.Merge,
	})
	if err != nil {
		return nil, false, err
	}
	if enc, err := res.Encode(); err == nil {
		r.store(ctx, "import", key, enc, cache.TTLImport)
	}

	opts.Logger.Info("imported gds",
		"path", opts.Path,
		"components", len(res.Records),
		"duration", time.Since(start))
	for _, w := range res.Warnings {
		opts.Logger.Warn(w)
	}
	return res, false, nil
}

// Import is a convenience wrapper that calls ImportWithCacheInfo and discards the cache hit info.
func (r *Runner) Import(ctx context.Context, opts Options) (*gdsbridge.Result, error) {
	res, _, err := r.ImportWithCacheInfo(ctx, opts)
	return res, err
}

// SynthesizeWithCacheInfo turns the GDS file at opts.Path into a library
// part template, merging all of its top cells.
func (r *Runner) SynthesizeWithCacheInfo(ctx context.Context, opts Options) (*options.Map, bool, error) {
	if err := opts.ValidateForSynth(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := readGDS(opts.Path)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.SynthKey(cache.Hash(data), opts.SynthKeyOpts())

	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, "synth", key); ok {
			if v, err := options.Parse(string(cached)); err == nil {
				if tmpl, ok := v.Map(); ok {
					return tmpl, true, nil
				}
			}
		}
	}

	lib, err := gdsii.Read(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("synthesize %s: %w", opts.Path, err)
	}
	tmpl, err := gdsbridge.SynthesizeLibrary(lib, opts.Name, opts.Chip)
	if err != nil {
		return nil, false, err
	}
	if s, err := options.Format(options.MapOf(tmpl)); err == nil {
		r.store(ctx, "synth", key, []byte(s), cache.TTLSynth)
	}

	opts.Logger.Info("synthesized template", "path", opts.Path, "type", opts.Name)
	return tmpl, false, nil
}

// Synthesize is a convenience wrapper that calls SynthesizeWithCacheInfo and discards the cache hit info.
func (r *Runner) Synthesize(ctx context.Context, opts Options) (*options.Map, error) {
	tmpl, _, err := r.SynthesizeWithCacheInfo(ctx, opts)
	return tmpl, err
}

// RenderDesignWithCacheInfo builds d and renders one of its cells as SVG.
// opts.Cell selects the cell; empty means the top cell. The design itself
// is not modified.
func (r *Runner) RenderDesignWithCacheInfo(ctx context.Context, d *design.Design, cat *component.Catalog, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	if opts.Cell == "" {
		opts.Cell = design.TopCellName
	}

	lit, err := options.Format(options.MapOf(d.Ops))
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.RenderKey(cache.Hash([]byte(d.Name+"\n"+lit)), opts.RenderKeyOpts())
	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, "render", key); ok {
			return cached, true, nil
		}
	}

	lib, err := d.Clone().Build(ctx, cat)
	if err != nil {
		return nil, false, err
	}
	svg, err := r.renderCell(ctx, lib, opts)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, "render", key, svg, cache.TTLRender)
	return svg, false, nil
}

// RenderDesign is a convenience wrapper that calls RenderDesignWithCacheInfo and discards the cache hit info.
func (r *Runner) RenderDesign(ctx context.Context, d *design.Design, cat *component.Catalog, opts Options) ([]byte, error) {
	svg, _, err := r.RenderDesignWithCacheInfo(ctx, d, cat, opts)
	return svg, err
}

// RenderFileWithCacheInfo renders a cell of the GDS file at opts.Path as
// SVG. opts.Cell selects the cell; empty means the first top cell.
func (r *Runner) RenderFileWithCacheInfo(ctx context.Context, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if err := errors.ValidateFilePath(opts.Path, ".gds"); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	data, err := readGDS(opts.Path)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.RenderKey(cache.Hash(data), opts.RenderKeyOpts())
	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, "render", key); ok {
			return cached, true, nil
		}
	}

	lib, err := gdsii.Read(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("render %s: %w", opts.Path, err)
	}
	svg, err := r.renderCell(ctx, lib, opts)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, "render", key, svg, cache.TTLRender)
	return svg, false, nil
}

// RenderFile is a convenience wrapper that calls RenderFileWithCacheInfo and discards the cache hit info.
func (r *Runner) RenderFile(ctx context.Context, opts Options) ([]byte, error) {
	svg, _, err := r.RenderFileWithCacheInfo(ctx, opts)
	return svg, err
}

func (r *Runner) renderCell(ctx context.Context, lib *cell.Library, opts Options) ([]byte, error) {
	var c *cell.Cell
	if opts.Cell != "" {
		c = lib.Cell(opts.Cell)
		if c == nil {
			return nil, errors.New(errors.ErrCodeNotFound, "cell %s not found in %s", opts.Cell, lib.Name)
		}
	} else {
		tops := lib.TopCells()
		if len(tops) == 0 {
			return nil, errors.New(errors.ErrCodeDegenerateGeometry, "library %s has no cells", lib.Name)
		}
		c = tops[0]
	}

	start := time.Now()
	observability.Pipeline().OnExportStart(ctx, "svg")
	var buf bytes.Buffer
	err := cell.WriteSVG(&buf, c, opts.Width)
	observability.Pipeline().OnExportComplete(ctx, "svg", buf.Len(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("rendered svg", "cell", c.Name, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// lookup reads key from the cache. Backend errors count as misses.
func (r *Runner) lookup(ctx context.Context, kind, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		if err != nil {
			r.Logger.Debug("cache read failed", "kind", kind, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, kind)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return data, true
}

// store writes to the cache. Failures are logged, never returned.
func (r *Runner) store(ctx context.Context, kind, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "kind", kind, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func readGDS(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "gds file %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return data, nil
}
