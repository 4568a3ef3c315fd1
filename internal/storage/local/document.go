// Package local keeps small JSON documents on disk.
package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName rejects names that would escape the directory.
	ErrInvalidName = errors.New("invalid document name")
)

// Document is one JSON file holding a value of type T.
type Document[T any] struct {
	mu   sync.RWMutex
	path string
}

// Open prepares dir/name.json. The file itself is created on first Write.
func Open[T any](dir, name string) (*Document[T], error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &Document[T]{path: filepath.Join(dir, name+".json")}, nil
}

// Read decodes the document. A missing file returns ErrNotFound.
func (d *Document[T]) Read() (T, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var v T
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("read %s: %w", filepath.Base(d.path), err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", filepath.Base(d.path), err)
	}
	return v, nil
}

// Write replaces the document atomically; a crash mid-write leaves the
// previous version in place.
func (d *Document[T]) Write(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(d.path), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".doc-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(d.path), err)
	}
	return nil
}
