package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/rendercaps/pkg/archive"
)

// Watch reloads dir whenever a matching script in it is written or
// created. Bursts of changes are coalesced into one reload. Watching stops
// when ctx is done; the returned function waits for that to finish,
// including a reload that was already running.
func (r *Registry) Watch(ctx context.Context, dir string, recursive bool) (wait func(), err error) {
	match, err := archive.NewMatcher(r.pattern)
	if err != nil {
		return nil, err
	}
	fsys, err := archive.NewFileSystem(archive.WithPattern(r.pattern))
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := addWatches(watcher, dir, recursive); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &dirWatch{
		reg:       r,
		wg:        &sync.WaitGroup{},
		watcher:   watcher,
		fsys:      fsys,
		match:     match,
		dir:       dir,
		recursive: recursive,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	r.logger.Info().
		Str("dir", dir).
		Bool("recursive", recursive).
		Str("pattern", r.pattern).
		Msg("Started watching capability scripts")

	return w.wg.Wait, nil
}

func addWatches(watcher *fsnotify.Watcher, dir string, recursive bool) error {
	if !recursive {
		return watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

type dirWatch struct {
	reg       *Registry
	watcher   *fsnotify.Watcher
	fsys      *archive.FileSystem
	match     archive.Matcher
	dir       string
	recursive bool

	// wg counts the run loop plus any scheduled or running reload.
	wg *sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (w *dirWatch) run(ctx context.Context) {
	logger := w.reg.logger
	defer func() {
		w.mu.Lock()
		w.stopped = true
		w.cancelPending()
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 && w.recursive {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatches(w.watcher, event.Name, true); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rel, err := filepath.Rel(w.dir, event.Name)
			if err != nil || !w.match.Match(filepath.ToSlash(rel)) {
				continue
			}

			logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Capability script changed")
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *dirWatch) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.cancelPending()

	w.wg.Add(1)
	w.timer = time.AfterFunc(w.reg.debounce, func() {
		defer w.wg.Done()
		if ctx.Err() != nil {
			return
		}
		w.reload(ctx)
	})
}

// cancelPending stops a reload that has not started yet. A reload that
// already fired releases its own wait group slot. Callers hold mu.
func (w *dirWatch) cancelPending() {
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
}

func (w *dirWatch) reload(ctx context.Context) {
	r := w.reg
	report, err := r.BulkLoad(ctx, w.fsys, w.dir, w.recursive)
	r.metrics.RecordReload(err == nil)
	if err != nil {
		r.logger.Error().Err(err).Str("dir", w.dir).Msg("Failed to reload capability scripts")
		return
	}
	r.events.PublishRegistryReloaded(report.LoadID, len(report.Loaded), len(report.Failures))
}
