package design

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// Registry holds the open designs by name and remembers the current one.
// All methods are safe for concurrent use. A failed call leaves the
// registry as it was.
//
// Designs returned by [Registry.Get] are snapshots. Every change replaces
// the registered design with an updated copy, so a snapshot can be read
// without holding any lock.
type Registry struct {
	mu      sync.Mutex
	designs map[string]*Design
	current string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{designs: make(map[string]*Design)}
}

// Exists reports whether a design with that name is open.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.designs[name]
	return ok
}

// Create opens a new empty design.
func (r *Registry) Create(name string) (*Design, error) {
	d, err := New(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.designs[name]; ok {
		return nil, errors.New(errors.ErrCodeDesignExists, "design %s already exists", name)
	}
	r.designs[name] = d
	return d, nil
}

// Get returns the named design.
func (r *Registry) Get(name string) (*Design, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name)
}

func (r *Registry) get(name string) (*Design, error) {
	d, ok := r.designs[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeDesignNotFound, "design %s not found", name)
	}
	return d, nil
}

// Update runs fn on a copy of the named design while holding the registry
// lock. The copy replaces the design only when fn succeeds.
func (r *Registry) Update(name string, fn func(*Design) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work, err := r.apply(name, fn)
	if err != nil {
		return err
	}
	r.designs[name] = work
	return nil
}

// apply runs fn on a copy of the named design. The caller holds r.mu.
func (r *Registry) apply(name string, fn func(*Design) error) (*Design, error) {
	d, err := r.get(name)
	if err != nil {
		return nil, err
	}
	work := d.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	if work.Name != name {
		return nil, errors.New(errors.ErrCodeInvalidInput, "design %s cannot be renamed during an update", name)
	}
	return work, nil
}

// UpdatePath sets the file a design is saved to.
func (r *Registry) UpdatePath(name, path string) error {
	if err := errors.ValidateFilePath(path, ""); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(name)
	if err != nil {
		return err
	}
	r.designs[name] = d.withPath(path)
	return nil
}

// SetCurrent marks the named design as current.
func (r *Registry) SetCurrent(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(name); err != nil {
		return err
	}
	r.current = name
	return nil
}

// Current returns the name of the current design, or "" when none is.
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Delete closes the named design. Deleting the current design clears it.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(name); err != nil {
		return err
	}
	delete(r.designs, name)
	if r.current == name {
		r.current = ""
	}
	return nil
}

// Metadata returns the design and its file path.
func (r *Registry) Metadata(name string) (*Design, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.designs[name]
	if !ok {
		return nil, "", false
	}
	return d, d.Path, true
}

// Names returns the open design names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.designs))
	for name := range r.designs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// UniqueName returns base when it is free, else the first free base_1,
// base_2 and so on.
func (r *Registry) UniqueName(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uniqueName(base)
}

func (r *Registry) uniqueName(base string) string {
	if _, ok := r.designs[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if _, ok := r.designs[name]; !ok {
			return name
		}
	}
}

// Open loads the option file at path into a new design named after the
// file (made unique), records the path and makes it current.
func (r *Registry) Open(path string) (*Design, error) {
	if err := errors.ValidateFilePath(path, ""); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := errors.ValidateDesignName(base); err != nil {
		return nil, err
	}
	d, err := New(base)
	if err != nil {
		return nil, err
	}
	if err := d.ImportOptions(path); err != nil {
		return nil, err
	}
	d.Path = path

	r.mu.Lock()
	defer r.mu.Unlock()
	d.Name = r.uniqueName(base)
	r.designs[d.Name] = d
	r.current = d.Name
	return d, nil
}

// Save writes the named design to its recorded path.
func (r *Registry) Save(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(name)
	if err != nil {
		return err
	}
	if d.Path == "" {
		return errors.New(errors.ErrCodeNoPath, "design %s has no file; use save as", name)
	}
	return d.ExportOptions(d.Path)
}

// SaveAs writes the named design to path, adding the option file extension
// when path has none, and records the new path on success.
func (r *Registry) SaveAs(name, path string) (string, error) {
	if err := errors.ValidateFilePath(path, ""); err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += OptionsExt
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.get(name)
	if err != nil {
		return "", err
	}
	if err := d.ExportOptions(path); err != nil {
		return "", err
	}
	r.designs[name] = d.withPath(path)
	return path, nil
}

// withPath returns a shallow copy of d saved at path. Ops is shared, which
// is safe because registered designs are never edited in place.
func (d *Design) withPath(path string) *Design {
	c := *d
	c.Path = path
	return &c
}

// add registers an existing design under its name.
func (r *Registry) add(d *Design) error {
	if _, ok := r.designs[d.Name]; ok {
		return errors.New(errors.ErrCodeDesignExists, "design %s already exists", d.Name)
	}
	r.designs[d.Name] = d
	return nil
}
