// ABOUTME: Screen layout overrides loaded from JSON files in a directory.
// ABOUTME: Watches the directory with fsnotify and reloads changed files after a debounce.

package layoutfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/2389/basiclist/internal/layout"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Option configures a Dir.
type Option func(*Dir)

// WithDebounce sets how long the watcher waits after the last event.
func WithDebounce(d time.Duration) Option {
	return func(dir *Dir) { dir.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(dir *Dir) {
		if l != nil {
			dir.log = l.Named("layoutfs")
		}
	}
}

// Dir holds the layouts found in a directory, keyed by file name without the
// .json extension, for example "admins.list". A nil or pathless Dir has no
// overrides.
type Dir struct {
	path     string
	debounce time.Duration
	log      *zap.Logger

	mu      sync.RWMutex
	layouts map[string]layout.PageLayout
	raw     map[string][]byte
}

// Open loads every *.json file in path. An empty path yields an empty Dir.
func Open(path string, opts ...Option) (*Dir, error) {
	d := &Dir{
		path:     path,
		debounce: 250 * time.Millisecond,
		log:      zap.NewNop(),
		layouts:  map[string]layout.PageLayout{},
		raw:      map[string][]byte{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if path == "" {
		return d, nil
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve returns the override called name, or def when there is none.
func (d *Dir) Resolve(name string, def layout.PageLayout) layout.PageLayout {
	if l, ok := d.Lookup(name); ok {
		return l
	}
	return def
}

// Lookup returns the override called name.
func (d *Dir) Lookup(name string) (layout.PageLayout, bool) {
	if d == nil {
		return layout.PageLayout{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.layouts[name]
	return l, ok
}

// Names lists the loaded overrides.
func (d *Dir) Names() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.layouts))
	for name := range d.layouts {
		names = append(names, name)
	}
	return names
}

// Reload rereads the directory. A file that fails to parse keeps its previous
// layout and is reported in the returned error; the other files still load.
func (d *Dir) Reload() error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return fmt.Errorf("read layouts dir %s: %w", d.path, err)
	}

	d.mu.RLock()
	prevLayouts, prevRaw := d.layouts, d.raw
	d.mu.RUnlock()

	layouts := map[string]layout.PageLayout{}
	raw := map[string][]byte{}
	var failed []string
	for _, e := range entries {
		if e.IsDir() || !isJSONFile(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		data, err := os.ReadFile(filepath.Join(d.path, e.Name()))
		if err != nil {
			failed = append(failed, e.Name())
			continue
		}
		if bytes.Equal(data, prevRaw[name]) {
			layouts[name], raw[name] = prevLayouts[name], data
			continue
		}
		var l layout.PageLayout
		if err := json.Unmarshal(data, &l); err != nil {
			d.log.Warn("invalid layout file", zap.String("file", e.Name()), zap.Error(err))
			failed = append(failed, e.Name())
			if old, ok := prevLayouts[name]; ok {
				layouts[name], raw[name] = old, prevRaw[name]
			}
			continue
		}
		d.log.Info("layout loaded", zap.String("name", name))
		layouts[name], raw[name] = l, data
	}

	d.mu.Lock()
	d.layouts, d.raw = layouts, raw
	d.mu.Unlock()

	if len(failed) > 0 {
		return fmt.Errorf("invalid layout files: %s", strings.Join(failed, ", "))
	}
	return nil
}

// Watch reloads the directory whenever its JSON files change, until ctx is
// done. It returns once the watcher is running.
func (d *Dir) Watch(ctx context.Context) error {
	if d == nil || d.path == "" {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("layout watcher: create fsnotify: %w", err)
	}
	if err := fsw.Add(d.path); err != nil {
		fsw.Close()
		return fmt.Errorf("layout watcher: watch %s: %w", d.path, err)
	}
	go d.loop(ctx, fsw)
	return nil
}

func (d *Dir) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	timer := time.NewTimer(d.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !isJSONFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				timer.Reset(d.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			d.log.Error("layout watcher error", zap.Error(err))

		case <-timer.C:
			if err := d.Reload(); err != nil {
				d.log.Warn("layout reload incomplete", zap.Error(err))
			}
		}
	}
}

func isJSONFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
