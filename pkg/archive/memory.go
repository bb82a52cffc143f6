package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Memory is an archive held in memory, keyed by slash-separated path.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memFile
	match Matcher
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMemory creates an empty in-memory archive.
func NewMemory(opts ...Option) (*Memory, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Memory{
		files: make(map[string]memFile),
		match: Matcher{pattern: o.pattern},
	}, nil
}

// Put stores data at p, replacing any previous content.
func (m *Memory) Put(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[strings.TrimPrefix(p, "/")] = memFile{data: append([]byte(nil), data...), modTime: time.Now()}
}

// Delete removes p.
func (m *Memory) Delete(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, strings.TrimPrefix(p, "/"))
}

// Type implements Archive.
func (m *Memory) Type() string { return "memory" }

// List implements Archive. An empty locator or "." lists from the root.
func (m *Memory) List(ctx context.Context, locator string, recursive bool) ([]Resource, error) {
	prefix := strings.Trim(locator, "/")
	if prefix == "." {
		prefix = ""
	}
	if prefix != "" {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var resources []Resource
	for p, f := range m.files {
		rel, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		if !recursive && !isDirectChild(rel) {
			continue
		}
		if !m.match.Match(rel) {
			continue
		}
		resources = append(resources, Resource{
			Name:     rel,
			Location: p,
			Size:     int64(len(f.data)),
			ModTime:  f.modTime,
		})
	}

	sortResources(resources)
	return resources, nil
}

// Open implements Archive.
func (m *Memory) Open(ctx context.Context, res Resource) (io.ReadCloser, error) {
	m.mu.RLock()
	f, ok := m.files[res.Location]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resource %s not found", res.Location)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
