package design

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/observability"
	"github.com/matzehuels/qlayout/pkg/options"
)

// Store keeps design snapshots by name. A snapshot is the option literal
// produced by [Encode].
type Store interface {
	// Load returns the snapshot of the named design, or DESIGN_NOT_FOUND.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save stores a snapshot, replacing any previous one.
	Save(ctx context.Context, name string, data []byte) error

	// Delete removes a snapshot. Deleting a missing one is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored design names, sorted.
	List(ctx context.Context) ([]string, error)

	// Backend names the storage kind ("file", "redis", "mongo").
	Backend() string

	// Close releases backend resources.
	Close() error
}

// Encode renders a design snapshot: its ID, name, path and records.
func Encode(d *Design) ([]byte, error) {
	s, err := options.Format(options.MapOf(options.NewMap().
		Set("id", options.String(d.ID.String())).
		Set("name", options.String(d.Name)).
		Set("path", options.String(d.Path)).
		Set("ops", options.MapOf(d.Ops))))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Decode parses a snapshot written by [Encode].
func Decode(data []byte) (*Design, error) {
	v, err := options.Parse(string(data))
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "design snapshot must be a mapping")
	}
	id, err := uuid.Parse(m.Str("id"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "design snapshot id")
	}
	d, err := New(m.Str("name"))
	if err != nil {
		return nil, err
	}
	d.ID = id
	d.Path = m.Str("path")
	ops, ok := m.Sub("ops")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "design snapshot has no ops")
	}
	if err := d.InjectOptions(ops); err != nil {
		return nil, err
	}
	return d, nil
}

// Persist writes a snapshot of the named design to store.
func (r *Registry) Persist(ctx context.Context, store Store, name string) error {
	r.mu.Lock()
	d, err := r.get(name)
	var data []byte
	if err == nil {
		data, err = Encode(d)
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return save(ctx, store, name, data)
}

// UpdateAndPersist runs fn on a copy of the named design and writes the copy
// to store. The copy replaces the open design only after the store accepted
// it, so a failed save leaves the registry unchanged. The registry lock is
// held for the whole call.
func (r *Registry) UpdateAndPersist(ctx context.Context, store Store, name string, fn func(*Design) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work, err := r.apply(name, fn)
	if err != nil {
		return err
	}
	data, err := Encode(work)
	if err != nil {
		return err
	}
	if err := save(ctx, store, name, data); err != nil {
		return err
	}
	r.designs[name] = work
	return nil
}

func save(ctx context.Context, store Store, name string, data []byte) error {
	start := time.Now()
	err := store.Save(ctx, name, data)
	observability.Store().OnSave(ctx, store.Backend(), name, len(data), time.Since(start), err)
	return err
}

// Restore loads the named snapshot from store and opens it. An open design
// with the same name is an error.
func (r *Registry) Restore(ctx context.Context, store Store, name string) (*Design, error) {
	start := time.Now()
	data, err := store.Load(ctx, name)
	observability.Store().OnLoad(ctx, store.Backend(), name, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.add(d); err != nil {
		return nil, err
	}
	return d, nil
}
