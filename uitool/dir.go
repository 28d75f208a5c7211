package uitool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dir is a Registry persisting generated component source files under a
// directory, one pair of files per tool id: <id>.json holds the metadata,
// <id>.tsx holds the opaque component source. Writes are atomic per file
// (write temp, rename).
type Dir struct {
	mu   sync.Mutex
	root string
}

// NewDir opens (creating if needed) a directory-backed registry.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Put stores a tool's metadata and component source.
func (d *Dir) Put(t Tool, source []byte) error {
	if t.ID == "" || strings.ContainsAny(t.ID, `/\`) {
		return fmt.Errorf("invalid tool id %q", t.ID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	meta, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tool metadata: %w", err)
	}
	if err := writeAtomic(d.metaPath(t.ID), meta); err != nil {
		return err
	}
	return writeAtomic(d.sourcePath(t.ID), source)
}

// Resolve returns the tool with the given id.
func (d *Dir) Resolve(id string) (Tool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := os.ReadFile(d.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Tool{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Tool{}, fmt.Errorf("read tool metadata: %w", err)
	}
	var t Tool
	if err := json.Unmarshal(data, &t); err != nil {
		return Tool{}, fmt.Errorf("decode tool metadata %s: %w", id, err)
	}
	return t, nil
}

// Source returns the stored component source for a tool id.
func (d *Dir) Source(id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := os.ReadFile(d.sourcePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read tool source: %w", err)
	}
	return data, nil
}

// List returns every tool with readable metadata, ordered by filename.
func (d *Dir) List() ([]Tool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := filepath.Glob(filepath.Join(d.root, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list registry dir: %w", err)
	}
	out := make([]Tool, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var t Tool
		if err := json.Unmarshal(data, &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Delete removes a tool's metadata and source; unknown ids are not an error.
func (d *Dir) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, path := range []string{d.metaPath(id), d.sourcePath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete tool %s: %w", id, err)
		}
	}
	return nil
}

func (d *Dir) metaPath(id string) string   { return filepath.Join(d.root, id+".json") }
func (d *Dir) sourcePath(id string) string { return filepath.Join(d.root, id+".tsx") }

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
