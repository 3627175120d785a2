// Package pipeline runs the GDS stages shared by the CLI and the HTTP server.
//
// The stages are:
//
//  1. Import: parse a GDS file into component records
//  2. Synthesize: turn a GDS file into a library part template
//  3. Render: draw a design or cell as an SVG preview
//
// Each stage consults a [cache.Cache] before doing the work, keyed by the
// content hash of its input, so an unchanged file is parsed once.
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Import(ctx, pipeline.Options{
//	    Path: "xmon.gds",
//	    Type: "library_parts",
//	})
package pipeline

import (
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/qlayout/pkg/cache"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsbridge"
)

const (
	// DefaultImportType is the component type, and so the design section,
	// of imported records.
	DefaultImportType = "library_parts"

	// DefaultChip is the chip written into imported records.
	DefaultChip = "chip0"

	// DefaultWidth is the pixel width of SVG previews.
	DefaultWidth = 800.0
)

// Options configures the pipeline stages. Each stage reads the fields it
// needs and ignores the rest.
type Options struct {
	// Path is the GDS file read by Import and Synthesize.
	Path string `json:"path,omitempty"`

	// Import options
	Type  string `json:"type,omitempty"`
	Chip  string `json:"chip,omitempty"`
	Merge bool   `json:"merge,omitempty"`

	// Name is the synthesised template type. Empty derives it from Path.
	Name string `json:"name,omitempty"`

	// Render options
	Cell  string  `json:"cell,omitempty"`
	Width float64 `json:"width,omitempty"`

	// Refresh skips cache reads; results are still written back.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults fills empty fields with defaults and checks the
// values that every stage shares.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Type == "" {
		o.Type = DefaultImportType
	}
	if o.Chip == "" {
		o.Chip = DefaultChip
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Width < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width must be positive, got %g", o.Width)
	}
	return nil
}

// ValidateForImport checks the options used by Import.
func (o *Options) ValidateForImport() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if err := errors.ValidateFilePath(o.Path, ".gds"); err != nil {
		return err
	}
	return errors.ValidateComponentName(o.Type)
}

// ValidateForSynth checks the options used by Synthesize and fills Name.
func (o *Options) ValidateForSynth() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if err := errors.ValidateFilePath(o.Path, ".gds"); err != nil {
		return err
	}
	if o.Name == "" {
		o.Name = gdsbridge.TypeNameForFile(o.Path)
	}
	return errors.ValidateComponentName(o.Name)
}

// ValidateForRender checks the options used by Render.
func (o *Options) ValidateForRender() error {
	return o.ValidateAndSetDefaults()
}

// ImportKeyOpts returns the import options that select a cache entry.
func (o *Options) ImportKeyOpts() cache.ImportKeyOpts {
	return cache.ImportKeyOpts{Type: o.Type, Chip: o.Chip, Merge: o.Merge}
}

// SynthKeyOpts returns the synthesis options that select a cache entry.
func (o *Options) SynthKeyOpts() cache.SynthKeyOpts {
	return cache.SynthKeyOpts{Name: o.Name, Chip: o.Chip}
}

// RenderKeyOpts returns the render options that select a cache entry.
func (o *Options) RenderKeyOpts() cache.RenderKeyOpts {
	return cache.RenderKeyOpts{Cell: o.Cell, Width: o.Width}
}

// source names the input file for logs and default library names.
func (o *Options) source() string {
	return filepath.Base(o.Path)
}
