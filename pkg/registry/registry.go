// Package registry keeps named capability profiles loaded from capability
// scripts and answers lookups by name.
//
// A Registry is an ordinary value: construct one with New and hand it to
// whatever needs lookups. Loads and lookups may run concurrently; lookups
// share the registered sets, which must be treated as read-only.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/script"
	"github.com/openfroyo/rendercaps/pkg/telemetry"
)

// Registry maps profile names to capability sets.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*caps.Set

	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	events   *telemetry.EventBus
	policy   script.UnknownKeyPolicy
	pattern  string
	debounce time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics records parse, lookup and load metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithTracer wraps every bulk load in a span.
func WithTracer(t *telemetry.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithEvents publishes registry changes and script failures.
func WithEvents(b *telemetry.EventBus) Option {
	return func(r *Registry) { r.events = b }
}

// WithUnknownKeyPolicy sets how scripts with unknown keys are decoded.
func WithUnknownKeyPolicy(p script.UnknownKeyPolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithPattern sets the file pattern Watch reacts to.
func WithPattern(pattern string) Option {
	return func(r *Registry) { r.pattern = pattern }
}

// WithDebounce sets how long Watch waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) { r.debounce = d }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		profiles: make(map[string]*caps.Set),
		logger:   zerolog.Nop(),
		pattern:  archive.DefaultPattern,
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "registry").Logger()
	return r
}

// Register inserts set under name, replacing any existing entry. The
// registry takes ownership of set.
func (r *Registry) Register(name string, set *caps.Set) error {
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("invalid profile name %q", name)
	}
	if set == nil {
		return fmt.Errorf("profile %s: nil capability set", name)
	}

	r.mu.Lock()
	r.profiles[name] = set
	n := len(r.profiles)
	r.mu.Unlock()

	r.metrics.SetProfilesRegistered(n)
	r.events.PublishProfileRegistered("", name, "")
	return nil
}

// insert adds every block of one document under a single lock so a
// document is visible all at once or not at all.
func (r *Registry) insert(blocks []script.Block) int {
	r.mu.Lock()
	for _, b := range blocks {
		r.profiles[b.Name] = b.Set
	}
	n := len(r.profiles)
	r.mu.Unlock()

	r.metrics.SetProfilesRegistered(n)
	return n
}

// Lookup returns the set registered under name. A miss is reported with
// ok == false and is not an error.
func (r *Registry) Lookup(name string) (set *caps.Set, ok bool) {
	r.mu.RLock()
	set, ok = r.profiles[name]
	r.mu.RUnlock()

	r.metrics.RecordLookup(ok)
	return set, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Remove drops name and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	_, ok := r.profiles[name]
	delete(r.profiles, name)
	n := len(r.profiles)
	r.mu.Unlock()

	if ok {
		r.metrics.SetProfilesRegistered(n)
		r.events.PublishProfileRemoved(name)
	}
	return ok
}

// Clear drops every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.profiles = make(map[string]*caps.Set)
	r.mu.Unlock()

	r.metrics.SetProfilesRegistered(0)
	r.logger.Debug().Msg("Registry cleared")
}

// Snapshot returns a copy of the name to set mapping. The sets themselves
// are shared.
func (r *Registry) Snapshot() map[string]*caps.Set {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*caps.Set, len(r.profiles))
	for name, set := range r.profiles {
		out[name] = set
	}
	return out
}
