package component

import (
	"slices"
	"sync"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Builder creates the geometry for one component type.
type Builder interface {
	// Template returns a fresh copy of the default option record.
	Template() *options.Map
	// Build draws the component into a new cell. It may update the
	// component's GDSPos and must set its Outline.
	Build(c *Component) (*cell.Cell, error)
}

// LibraryPartType is the catalog key of the shared library-part builder.
const LibraryPartType = "LibraryPart"

// Catalog maps component types to builders. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{builders: make(map[string]Builder)}
}

// DefaultCatalog returns a catalog holding the built-in types: Pin,
// AirBridge, TransmissionLine and LibraryPart.
func DefaultCatalog() *Catalog {
	cat := NewCatalog()
	for typ, b := range map[string]Builder{
		"Pin":              Pin{},
		"AirBridge":        AirBridge{},
		"TransmissionLine": TransmissionLine{},
		LibraryPartType:    LibraryPart{},
	} {
		cat.MustRegister(typ, b)
	}
	return cat
}

// Register adds a builder. A type can only be registered once.
func (cat *Catalog) Register(typ string, b Builder) error {
	if typ == "" || b == nil {
		return errors.New(errors.ErrCodeInvalidInput, "register needs a type and a builder")
	}
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if _, ok := cat.builders[typ]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "component type %s already registered", typ)
	}
	cat.builders[typ] = b
	return nil
}

// MustRegister is like [Catalog.Register] but panics on error.
func (cat *Catalog) MustRegister(typ string, b Builder) {
	if err := cat.Register(typ, b); err != nil {
		panic(err)
	}
}

// Types returns the registered type names, sorted.
func (cat *Catalog) Types() []string {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]string, 0, len(cat.builders))
	for t := range cat.builders {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Builder returns the builder for a type.
func (cat *Catalog) Builder(typ string) (Builder, bool) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	b, ok := cat.builders[typ]
	return b, ok
}

// Resolve picks the builder for a record: its registered type first, then
// the library-part builder when the record embeds polygons.
func (cat *Catalog) Resolve(rec *options.Map) (Builder, error) {
	typ := rec.Str(KeyType)
	if b, ok := cat.Builder(typ); ok {
		return b, nil
	}
	if rec.Has(KeyPolygons) {
		if b, ok := cat.Builder(LibraryPartType); ok {
			return b, nil
		}
	}
	if typ == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "record %q has no type", rec.Str(KeyName))
	}
	return nil, errors.New(errors.ErrCodeUnsupportedType, "unknown component type %s", typ)
}

// New decodes rec against its type's template without building geometry.
func (cat *Catalog) New(rec *options.Map) (*Component, Builder, error) {
	b, err := cat.Resolve(rec)
	if err != nil {
		return nil, nil, err
	}
	c, err := New(b.Template(), rec)
	if err != nil {
		return nil, nil, err
	}
	return c, b, nil
}

// Build decodes rec and computes its geometry.
func (cat *Catalog) Build(rec *options.Map) (*Component, error) {
	c, b, err := cat.New(rec)
	if err != nil {
		return nil, err
	}
	if err := c.Build(b); err != nil {
		return nil, err
	}
	return c, nil
}

// Draw builds rec and adds the resulting cell to lib.
func (cat *Catalog) Draw(lib *cell.Library, rec *options.Map) (*Component, error) {
	c, b, err := cat.New(rec)
	if err != nil {
		return nil, err
	}
	if err := c.Draw(lib, b); err != nil {
		return nil, err
	}
	return c, nil
}
