package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/sftp"
)

// SFTP reads scripts from a remote host over an established SFTP session.
// The session is owned by the caller.
type SFTP struct {
	client *sftp.Client
	match  Matcher
}

// NewSFTP creates an archive over client.
func NewSFTP(client *sftp.Client, opts ...Option) (*SFTP, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &SFTP{client: client, match: Matcher{pattern: o.pattern}}, nil
}

// Type implements Archive.
func (s *SFTP) Type() string { return "sftp" }

// List walks the remote directory locator.
func (s *SFTP) List(ctx context.Context, locator string, recursive bool) ([]Resource, error) {
	root := path.Clean(locator)

	info, err := s.client.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []Resource{{
			Name:     path.Base(root),
			Location: root,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}}, nil
	}

	var resources []Resource
	walker := s.client.Walk(root)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}

		p := walker.Path()
		stat := walker.Stat()
		if stat.IsDir() {
			if p != root && !recursive {
				walker.SkipDir()
			}
			continue
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if !s.match.Match(rel) {
			continue
		}
		resources = append(resources, Resource{
			Name:     rel,
			Location: p,
			Size:     stat.Size(),
			ModTime:  stat.ModTime(),
		})
	}

	sortResources(resources)
	return resources, nil
}

// Open implements Archive.
func (s *SFTP) Open(ctx context.Context, res Resource) (io.ReadCloser, error) {
	f, err := s.client.Open(res.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", res.Location, err)
	}
	return f, nil
}
