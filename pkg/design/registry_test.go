package design

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/observability"
	"github.com/matzehuels/qlayout/pkg/options"
)

func TestRegistryCreateGetDelete(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create("a"); errors.GetCode(err) != errors.ErrCodeDesignExists {
		t.Errorf("second Create error = %v", err)
	}
	if _, err := r.Get("b"); errors.GetCode(err) != errors.ErrCodeDesignNotFound {
		t.Errorf("Get(missing) error = %v", err)
	}
	if err := r.SetCurrent("a"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCurrent("b"); err == nil || r.Current() != "a" {
		t.Errorf("SetCurrent(missing) changed current to %q", r.Current())
	}
	if err := r.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if r.Current() != "" || r.Exists("a") {
		t.Error("Delete left the design current or registered")
	}
	if err := r.Delete("a"); errors.GetCode(err) != errors.ErrCodeDesignNotFound {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestRegistryUniqueName(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"chip", "chip_1"} {
		if _, err := r.Create(name); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		base string
		want string
	}{
		{"other", "other"},
		{"chip", "chip_2"},
		{"chip_1", "chip_1_1"},
	}
	for _, tt := range tests {
		if got := r.UniqueName(tt.base); got != tt.want {
			t.Errorf("UniqueName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestRegistryUpdate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("a"); err != nil {
		t.Fatal(err)
	}
	add := func(d *Design) error {
		return d.Add("pins", options.NewMap().
			Set("name", options.String("p0")).
			Set("type", options.String("Pin")))
	}
	if err := r.Update("a", add); err != nil {
		t.Fatal(err)
	}
	err := r.Update("a", func(d *Design) error {
		_ = d.Remove("p0")
		return add(d)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Update("a", add); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("duplicate add error = %v", err)
	}
	d, _ := r.Get("a")
	if diff := cmp.Diff([]string{"p0"}, d.ComponentNames()); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}

	err = r.Update("a", func(d *Design) error {
		d.Name = "b"
		return nil
	})
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("rename error = %v", err)
	}
	if _, err := r.Get("a"); err != nil {
		t.Error("rename attempt lost the design")
	}
}

// flakyStore is a FileStore whose saves fail while down is set.
type flakyStore struct {
	*FileStore
	down atomic.Bool
}

func (s *flakyStore) Save(ctx context.Context, name string, data []byte) error {
	if s.down.Load() {
		return errors.New(errors.ErrCodeInternal, "store down")
	}
	return s.FileStore.Save(ctx, name, data)
}

func TestRegistryUpdateAndPersist(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := &flakyStore{FileStore: fs}
	ctx := context.Background()

	r := NewRegistry()
	if _, err := r.Create("a"); err != nil {
		t.Fatal(err)
	}
	pin := func(name string) func(*Design) error {
		return func(d *Design) error {
			return d.Add("pins", options.NewMap().
				Set("name", options.String(name)).
				Set("type", options.String("Pin")))
		}
	}
	if err := r.UpdateAndPersist(ctx, store, "a", pin("p0")); err != nil {
		t.Fatal(err)
	}

	store.down.Store(true)
	if err := r.UpdateAndPersist(ctx, store, "a", pin("p1")); err == nil {
		t.Fatal("failed save was not reported")
	}
	d, _ := r.Get("a")
	if diff := cmp.Diff([]string{"p0"}, d.ComponentNames()); diff != "" {
		t.Errorf("open design changed after a failed save (-want +got):\n%s", diff)
	}
	store.down.Store(false)

	data, err := store.Load(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	saved, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p0"}, saved.ComponentNames()); diff != "" {
		t.Errorf("stored snapshot (-want +got):\n%s", diff)
	}

	if err := r.UpdateAndPersist(ctx, store, "a", pin("p0")); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("failing update error = %v", err)
	}
	if err := r.UpdateAndPersist(ctx, store, "nope", pin("p2")); errors.GetCode(err) != errors.ErrCodeDesignNotFound {
		t.Errorf("missing design error = %v", err)
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("a"); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "p" + string(rune('a'+i))
			_ = r.Update("a", func(d *Design) error {
				return d.Add("pins", options.NewMap().
					Set("name", options.String(name)).
					Set("type", options.String("Pin")))
			})
		}()
	}
	wg.Wait()
	d, _ := r.Get("a")
	if n := len(d.Components()); n != 20 {
		t.Errorf("got %d components, want 20", n)
	}
}

func TestRegistryOpenSave(t *testing.T) {
	dir := t.TempDir()
	src := sampleDesign(t)
	path := filepath.Join(dir, "chip_a.txt")
	if err := src.ExportOptions(path); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	d1, err := r.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := r.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if d1.Name != "chip_a" || d2.Name != "chip_a_1" {
		t.Errorf("names = %q, %q", d1.Name, d2.Name)
	}
	if r.Current() != "chip_a_1" {
		t.Errorf("Current() = %q", r.Current())
	}
	if _, p, ok := r.Metadata("chip_a"); !ok || p != path {
		t.Errorf("Metadata path = %q, %v", p, ok)
	}

	if _, err := r.Open(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Open(missing) succeeded")
	}
	if diff := cmp.Diff([]string{"chip_a", "chip_a_1"}, r.Names()); diff != "" {
		t.Errorf("failed Open registered a design (-want +got):\n%s", diff)
	}

	if _, err := r.Create("fresh"); err != nil {
		t.Fatal(err)
	}
	if err := r.Save("fresh"); errors.GetCode(err) != errors.ErrCodeNoPath {
		t.Errorf("Save without path error = %v", err)
	}
	got, err := r.SaveAs("fresh", filepath.Join(dir, "fresh"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "fresh.txt"); got != want {
		t.Errorf("SaveAs path = %q, want %q", got, want)
	}
	if err := r.Save("fresh"); err != nil {
		t.Errorf("Save after SaveAs: %v", err)
	}
	if _, err := os.Stat(got); err != nil {
		t.Error(err)
	}
}

func TestPersistRestore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := &recordingStoreHooks{}
	observability.SetStoreHooks(rec)
	defer observability.Reset()

	ctx := context.Background()
	r := NewRegistry()
	d, err := r.Open(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Persist(ctx, store, d.Name); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Restore(ctx, store, d.Name); errors.GetCode(err) != errors.ErrCodeDesignExists {
		t.Errorf("Restore over an open design error = %v", err)
	}

	other := NewRegistry()
	got, err := other.Restore(ctx, store, d.Name)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != d.ID || got.Path != d.Path || !got.Ops.Equal(d.Ops) {
		t.Errorf("restored %+v, want %+v", got, d)
	}
	if _, err := other.Restore(ctx, store, "nope"); errors.GetCode(err) != errors.ErrCodeDesignNotFound {
		t.Errorf("Restore(missing) error = %v", err)
	}
	if rec.saves != 1 || rec.loads != 3 {
		t.Errorf("hooks saw %d saves and %d loads", rec.saves, rec.loads)
	}
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chip_a.txt")
	if err := sampleDesign(t).ExportOptions(path); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingStoreHooks struct {
	observability.NoopStoreHooks
	mu           sync.Mutex
	loads, saves int
}

func (h *recordingStoreHooks) OnLoad(context.Context, string, string, time.Duration, error) {
	h.mu.Lock()
	h.loads++
	h.mu.Unlock()
}

func (h *recordingStoreHooks) OnSave(context.Context, string, string, int, time.Duration, error) {
	h.mu.Lock()
	h.saves++
	h.mu.Unlock()
}
