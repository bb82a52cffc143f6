// Package archive enumerates and opens capability scripts wherever they are
// stored. The registry depends only on the Archive interface; this package
// provides local directory, in-memory, SFTP and S3 implementations.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern selects capability scripts by file name.
const DefaultPattern = "*.rendercaps"

// Resource is one script-bearing entry of an archive.
type Resource struct {
	// Name is the path of the resource relative to the listed locator,
	// using forward slashes.
	Name string `json:"name"`

	// Location is what Open needs to read the resource: a file path, an
	// object key or a store id.
	Location string `json:"location"`

	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Archive lists script resources under a locator and opens them.
type Archive interface {
	// Type names the storage medium, e.g. "file" or "s3".
	Type() string

	// List returns the matching resources under locator, sorted by Location.
	// When recursive is false only direct children are considered.
	List(ctx context.Context, locator string, recursive bool) ([]Resource, error)

	// Open returns a reader for a resource returned by List.
	Open(ctx context.Context, res Resource) (io.ReadCloser, error)
}

// Option configures an archive.
type Option func(*options)

type options struct {
	pattern string
}

// WithPattern sets the doublestar pattern resources must match. A pattern
// without a slash is matched against the base name, otherwise against the
// path relative to the locator.
func WithPattern(pattern string) Option {
	return func(o *options) { o.pattern = pattern }
}

func buildOptions(opts []Option) (options, error) {
	o := options{pattern: DefaultPattern}
	for _, opt := range opts {
		opt(&o)
	}
	if !doublestar.ValidatePattern(o.pattern) {
		return o, fmt.Errorf("invalid pattern %q", o.pattern)
	}
	return o, nil
}

// Matcher reports whether a relative resource path is a script.
type Matcher struct {
	pattern string
}

// NewMatcher validates pattern and returns a Matcher for it.
func NewMatcher(pattern string) (Matcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return Matcher{}, fmt.Errorf("invalid pattern %q", pattern)
	}
	return Matcher{pattern: pattern}, nil
}

// Match reports whether rel, a slash-separated path, matches.
func (m Matcher) Match(rel string) bool {
	name := rel
	if !strings.Contains(m.pattern, "/") {
		name = path.Base(rel)
	}
	ok, err := doublestar.Match(m.pattern, name)
	return err == nil && ok
}

// Pattern returns the pattern the matcher was built from.
func (m Matcher) Pattern() string {
	return m.pattern
}

func sortResources(rs []Resource) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Location < rs[j].Location })
}

// isDirectChild reports whether rel has no directory component.
func isDirectChild(rel string) bool {
	return !strings.Contains(rel, "/")
}
