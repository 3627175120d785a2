package design

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// FileStore keeps snapshots as option files in a directory, one file per
// design. It backs the CLI.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file store in baseDir, creating the directory if
// needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "store directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create design store: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) designPath(name string) (string, error) {
	if err := errors.ValidateDesignName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, name+OptionsExt), nil
}

// Load implements [Store].
func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	path, err := s.designPath(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeDesignNotFound, "design %s not found in %s", name, s.baseDir)
	}
	if err != nil {
		return nil, fmt.Errorf("read design file: %w", err)
	}
	return data, nil
}

// Save implements [Store]. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, name string, data []byte) error {
	path, err := s.designPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write design file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write design file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write design file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write design file: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (s *FileStore) Delete(_ context.Context, name string) error {
	path, err := s.designPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove design file: %w", err)
	}
	return nil
}

// List implements [Store].
func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read design store: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != OptionsExt {
			continue
		}
		out = append(out, strings.TrimSuffix(name, OptionsExt))
	}
	slices.Sort(out)
	return out, nil
}

// Backend implements [Store].
func (s *FileStore) Backend() string { return "file" }

// Close implements [Store].
func (s *FileStore) Close() error { return nil }

// Path returns the store directory.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)
