package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader reads policies from disk. A .rego file is one policy named after
// the file; .json, .yaml and .yml files hold a Policy definition with the
// Rego source inline.
type Loader struct {
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedPolicy
}

// cachedPolicy is reused while the file's modification time is unchanged.
type cachedPolicy struct {
	modTime time.Time
	policy  *Policy
}

type parseFunc func(path string, data []byte) (*Policy, error)

var parsers = map[string]parseFunc{
	".rego": parseRego,
	".json": func(path string, data []byte) (*Policy, error) {
		return parseDefinition(path, data, json.Unmarshal)
	},
	".yaml": func(path string, data []byte) (*Policy, error) {
		return parseDefinition(path, data, yaml.Unmarshal)
	},
	".yml": func(path string, data []byte) (*Policy, error) {
		return parseDefinition(path, data, yaml.Unmarshal)
	},
}

// NewLoader creates a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string]cachedPolicy),
	}
}

// LoadFromPaths loads every policy named by paths. A file path must hold a
// valid policy; inside directories unparseable files are logged and
// skipped.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var policies []Policy
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies from %s: %w", path, err)
		}

		if !info.IsDir() {
			p, err := l.loadFile(path, info.ModTime())
			if err != nil {
				return nil, err
			}
			policies = append(policies, *p)
			continue
		}

		found, err := l.walk(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies from %s: %w", path, err)
		}
		policies = append(policies, found...)
	}

	l.logger.Debug().Int("policies", len(policies)).Strs("paths", paths).Msg("Policies loaded")
	return policies, nil
}

func (l *Loader) walk(ctx context.Context, root string) ([]Policy, error) {
	var policies []Policy
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || parsers[filepath.Ext(path)] == nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		p, err := l.loadFile(path, info.ModTime())
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Skipping policy file")
			return nil
		}
		policies = append(policies, *p)
		return nil
	})
	return policies, err
}

func (l *Loader) loadFile(path string, modTime time.Time) (*Policy, error) {
	l.mu.Lock()
	cached, ok := l.cache[path]
	l.mu.Unlock()
	if ok && cached.modTime.Equal(modTime) {
		return cached.policy, nil
	}

	parse := parsers[filepath.Ext(path)]
	if parse == nil {
		return nil, fmt.Errorf("%s: unsupported policy file type", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path

	l.mu.Lock()
	l.cache[path] = cachedPolicy{modTime: modTime, policy: p}
	l.mu.Unlock()

	l.logger.Debug().Str("path", path).Str("policy", p.Name).Str("severity", string(p.Severity)).Msg("Policy parsed")
	return p, nil
}

// ClearCache forgets every parsed file.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// parseRego reads metadata from the comment block before the package
// clause. Plain comment lines form the description; "severity: <level>"
// and "tags: a, b" lines set those fields.
func parseRego(path string, data []byte) (*Policy, error) {
	p := &Policy{
		Name:     baseName(path),
		Rego:     string(data),
		Severity: SeverityWarning,
		Enabled:  true,
	}

	var desc []string
	for _, line := range strings.Split(p.Rego, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		comment, ok := strings.CutPrefix(line, "#")
		if !ok {
			break
		}
		comment = strings.TrimSpace(comment)

		key, value, _ := strings.Cut(comment, ":")
		switch strings.TrimSpace(key) {
		case "severity":
			s := Severity(strings.TrimSpace(value))
			if !s.valid() {
				return nil, fmt.Errorf("unknown severity %q", s)
			}
			p.Severity = s
		case "tags":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					p.Tags = append(p.Tags, tag)
				}
			}
		default:
			if comment != "" {
				desc = append(desc, comment)
			}
		}
	}
	p.Description = strings.Join(desc, " ")
	return p, nil
}

// parseDefinition decodes a Policy with unmarshal. The name defaults to the
// file name and the severity to warning.
func parseDefinition(path string, data []byte, unmarshal func([]byte, any) error) (*Policy, error) {
	p := &Policy{Enabled: true}
	if err := unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("invalid policy definition: %w", err)
	}

	if p.Name == "" {
		p.Name = baseName(path)
	}
	if strings.TrimSpace(p.Rego) == "" {
		return nil, fmt.Errorf("policy %s has no rego", p.Name)
	}
	if p.Severity == "" {
		p.Severity = SeverityWarning
	}
	if !p.Severity.valid() {
		return nil, fmt.Errorf("policy %s: unknown severity %q", p.Name, p.Severity)
	}
	return p, nil
}
