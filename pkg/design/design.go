// Package design holds layout designs and the registry of open designs.
//
// A [Design] owns an option record organised as section -> name -> record,
// where every record describes one component. Building a design resolves
// each record through a [component.Catalog], draws one cell per component
// and a top cell that places them all.
//
// The [Registry] keeps the open designs by name and tracks the current one.
// Snapshots move designs through a [Store] (files, Redis or MongoDB).
package design

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/observability"
	"github.com/matzehuels/qlayout/pkg/options"
)

// OptionsExt is the extension of design option files.
const OptionsExt = ".txt"

// TopCellName names the cell that places every component.
const TopCellName = "TOP"

// Design is a named layout: its component records and the file it was
// loaded from or saved to.
type Design struct {
	ID   uuid.UUID
	Name string
	Path string
	Ops  *options.Map
}

// New creates an empty design with a fresh ID.
func New(name string) (*Design, error) {
	if err := errors.ValidateDesignName(name); err != nil {
		return nil, err
	}
	return &Design{ID: uuid.New(), Name: name, Ops: options.NewMap()}, nil
}

// Entry is one component record of a design.
type Entry struct {
	Section string
	Name    string
	Record  *options.Map
}

// Add stores rec under section, keyed by the record's name. Component names
// are unique across all sections.
func (d *Design) Add(section string, rec *options.Map) error {
	if err := errors.ValidateComponentName(section); err != nil {
		return err
	}
	name := rec.Str(component.KeyName)
	if err := errors.ValidateComponentName(name); err != nil {
		return err
	}
	if _, ok := d.Component(name); ok {
		return errors.New(errors.ErrCodeInvalidInput, "component %s already exists in design %s", name, d.Name)
	}
	d.Ops.Ensure(section).Set(name, options.MapOf(rec.Clone()))
	return nil
}

// Remove deletes the named component. Sections left empty are dropped.
func (d *Design) Remove(name string) error {
	e, ok := d.Component(name)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "component %s not found in design %s", name, d.Name)
	}
	sec, _ := d.Ops.Sub(e.Section)
	sec.Delete(name)
	if sec.Len() == 0 {
		d.Ops.Delete(e.Section)
	}
	return nil
}

// Component returns the named component.
func (d *Design) Component(name string) (Entry, bool) {
	for _, e := range d.Components() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Components returns every component in section order, then record order.
// Records are shared with the design, not copied.
func (d *Design) Components() []Entry {
	var out []Entry
	for section, sv := range d.Ops.All() {
		sec, ok := sv.Map()
		if !ok {
			continue
		}
		for name, rv := range sec.All() {
			if rec, ok := rv.Map(); ok {
				out = append(out, Entry{Section: section, Name: name, Record: rec})
			}
		}
	}
	return out
}

// Sections returns the section names.
func (d *Design) Sections() []string {
	return d.Ops.Keys()
}

// InjectOptions replaces the design's records with a copy of ops. Every
// top-level value must be a section mapping of records; otherwise the
// design is left unchanged.
func (d *Design) InjectOptions(ops *options.Map) error {
	if err := checkOps(ops); err != nil {
		return err
	}
	d.Ops = ops.Clone()
	return nil
}

func checkOps(ops *options.Map) error {
	if ops == nil {
		return errors.New(errors.ErrCodeInvalidFormat, "design options are empty")
	}
	seen := make(map[string]string)
	for section, sv := range ops.All() {
		sec, ok := sv.Map()
		if !ok {
			return errors.New(errors.ErrCodeInvalidFormat, "section %s must be a mapping, got %s", section, sv.Kind())
		}
		for name, rv := range sec.All() {
			if _, ok := rv.Map(); !ok {
				return errors.New(errors.ErrCodeInvalidFormat, "component %s.%s must be a mapping, got %s", section, name, rv.Kind())
			}
			if other, dup := seen[name]; dup {
				return errors.New(errors.ErrCodeInvalidFormat, "component %s appears in sections %s and %s", name, other, section)
			}
			seen[name] = section
		}
	}
	return nil
}

// ExportOptions writes the records to path. The write is atomic: on
// failure an existing file is left untouched.
func (d *Design) ExportOptions(path string) error {
	if err := errors.ValidateFilePath(path, ""); err != nil {
		return err
	}
	return options.Export(path, options.MapOf(d.Ops))
}

// ImportOptions loads records from path and injects them.
func (d *Design) ImportOptions(path string) error {
	ops, err := options.ImportMap(path)
	if err != nil {
		return err
	}
	return d.InjectOptions(ops)
}

// Build draws every component into a new library named after the design.
// Each component gets its own cell; the top cell references them all at the
// origin since component geometry is already placed. The derived gds_pos
// and outline of each component are written back into its record.
func (d *Design) Build(ctx context.Context, cat *component.Catalog) (*cell.Library, error) {
	entries := d.Components()
	start := time.Now()
	observability.Pipeline().OnBuildStart(ctx, d.Name, len(entries))

	lib, err := d.build(ctx, cat, entries)
	observability.Pipeline().OnBuildComplete(ctx, d.Name, time.Since(start), err)
	return lib, err
}

func (d *Design) build(ctx context.Context, cat *component.Catalog, entries []Entry) (*cell.Library, error) {
	lib := cell.NewLibrary(d.Name)
	top := cell.New(TopCellName)
	built := make([]*component.Component, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := cat.Draw(lib, e.Record)
		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return nil, errors.Wrap(code, err, "build %s.%s", e.Section, e.Name)
		}
		built[i] = c
		top.AddReference(cell.Reference{Cell: c.Cell})
	}
	if lib.Cell(TopCellName) != nil {
		return nil, errors.New(errors.ErrCodeInvalidName, "a component cell is named %s", TopCellName)
	}
	if err := lib.Add(top); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "add top cell")
	}
	for i, e := range entries {
		e.Record.Set(component.KeyGDSPos, options.PointValue(built[i].GDSPos))
		e.Record.Set(component.KeyOutline, options.PointsValue(built[i].Outline))
	}
	return lib, nil
}

// SaveGDS builds the design and writes it to path as GDSII.
func (d *Design) SaveGDS(ctx context.Context, path string, cat *component.Catalog) error {
	if err := errors.ValidateFilePath(path, ".gds"); err != nil {
		return err
	}
	lib, err := d.Build(ctx, cat)
	if err != nil {
		return err
	}
	start := time.Now()
	observability.Pipeline().OnExportStart(ctx, "gds")
	err = gdsii.WriteFile(path, lib)
	size := 0
	if fi, serr := os.Stat(path); err == nil && serr == nil {
		size = int(fi.Size())
	}
	observability.Pipeline().OnExportComplete(ctx, "gds", size, time.Since(start), err)
	return err
}

// Clone returns a deep copy with the same ID.
func (d *Design) Clone() *Design {
	c := *d
	c.Ops = d.Ops.Clone()
	return &c
}

// String returns "name (n components)".
func (d *Design) String() string {
	return fmt.Sprintf("%s (%d components)", d.Name, len(d.Components()))
}

// ComponentNames returns the component names in order.
func (d *Design) ComponentNames() []string {
	entries := d.Components()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
