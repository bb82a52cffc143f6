package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystem reads scripts from local directories.
type FileSystem struct {
	match Matcher
}

// NewFileSystem creates a local directory archive.
func NewFileSystem(opts ...Option) (*FileSystem, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &FileSystem{match: Matcher{pattern: o.pattern}}, nil
}

// Type implements Archive.
func (f *FileSystem) Type() string { return "file" }

// List walks locator, a directory or a single file.
func (f *FileSystem) List(ctx context.Context, locator string, recursive bool) ([]Resource, error) {
	info, err := os.Stat(locator)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if !info.IsDir() {
		return []Resource{{
			Name:     filepath.Base(locator),
			Location: locator,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}}, nil
	}

	var resources []Resource
	err = filepath.WalkDir(locator, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if p != locator && !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(locator, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !f.match.Match(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		resources = append(resources, Resource{
			Name:     rel,
			Location: p,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sortResources(resources)
	return resources, nil
}

// Open implements Archive.
func (f *FileSystem) Open(ctx context.Context, res Resource) (io.ReadCloser, error) {
	file, err := os.Open(res.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", res.Location, err)
	}
	return file, nil
}
