package design

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/errors"
)

func TestEncodeDecode(t *testing.T) {
	d := sampleDesign(t)
	d.Path = "/tmp/chip_a.txt"
	data, err := Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != d.ID || got.Name != d.Name || got.Path != d.Path {
		t.Errorf("Decode() = %+v", got)
	}
	if !got.Ops.Equal(d.Ops) {
		t.Errorf("ops mismatch:\n%v\n%v", got.Ops, d.Ops)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not a map", `[1, 2]`},
		{"bad id", `{"id": "xyz", "name": "a", "path": "", "ops": {}}`},
		{"no ops", `{"id": "0b5c9d7e-3f0a-4b8e-9a55-6b0f3c2a1d44", "name": "a", "path": ""}`},
		{"bad name", `{"id": "0b5c9d7e-3f0a-4b8e-9a55-6b0f3c2a1d44", "name": "", "path": "", "ops": {}}`},
		{"syntax", `{"id": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Error("Decode() succeeded")
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "designs")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Path() != dir || s.Backend() != "file" {
		t.Errorf("store = %s/%s", s.Path(), s.Backend())
	}
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		if err := s.Save(ctx, name, []byte(`{"x": 1}`)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	data, err := s.Load(ctx, "a")
	if err != nil || string(data) != `{"x": 1}` {
		t.Errorf("Load(a) = %q, %v", data, err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Errorf("second Delete error = %v", err)
	}
	if _, err := s.Load(ctx, "a"); errors.GetCode(err) != errors.ErrCodeDesignNotFound {
		t.Errorf("Load(deleted) error = %v", err)
	}
	if err := s.Save(ctx, "../escape", nil); errors.GetCode(err) != errors.ErrCodeInvalidName {
		t.Errorf("Save(../escape) error = %v", err)
	}
}

func TestNewFileStoreEmptyDir(t *testing.T) {
	if _, err := NewFileStore(""); errors.GetCode(err) != errors.ErrCodeInvalidPath {
		t.Errorf("NewFileStore(\"\") error = %v", err)
	}
}
