package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/gitaguide/pkg/utils"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher observes verse source files and directories and fires a single
// reload callback once a burst of changes has settled. A reload always covers
// the whole corpus, so events are coalesced rather than dispatched per file.
type Watcher struct {
	sources    []string
	extensions []string
	onChange   func(paths []string)
	debounce   time.Duration
	logger     *zap.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]bool // sources given as individual files
	roots   []string        // sources given as directories
	pending map[string]bool
	timer   *time.Timer
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watcher events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for the given source paths. Directories are
// watched recursively and only files with one of extensions are considered.
func NewWatcher(sources, extensions []string, onChange func(paths []string), opts ...Option) *Watcher {
	w := &Watcher{
		sources:    sources,
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		files:      make(map[string]bool),
		pending:    make(map[string]bool),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Start begins watching. It returns after the initial watches are in place;
// events are processed in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w.mu.Lock()
	w.watcher = fw
	for _, src := range w.sources {
		if err := w.addSourceLocked(src); err != nil {
			w.mu.Unlock()
			fw.Close()
			return err
		}
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

func (w *Watcher) addSourceLocked(src string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolve source %s: %w", src, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}
	if !info.IsDir() {
		// Editors often replace files by rename, which drops a direct watch,
		// so the parent directory is watched instead.
		w.files[abs] = true
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}
		return nil
	}
	w.roots = append(w.roots, abs)
	return w.addTreeLocked(abs)
}

func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case <-w.done:
			w.cancelPending()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
	}
	if !w.relevant(path) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.logger.Debug("source changed", zap.String("path", path), zap.String("op", event.Op.String()))
		w.schedule(path)
	}
}

// handleNewDirectory starts watching a directory created under a root and
// schedules a reload when it already holds source files.
func (w *Watcher) handleNewDirectory(path string) {
	w.mu.Lock()
	if !w.underRootLocked(path) {
		w.mu.Unlock()
		return
	}
	if err := w.addTreeLocked(path); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
	}
	w.mu.Unlock()

	found := false
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && matchExtension(p, w.extensions) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if found {
		w.schedule(path)
	}
}

func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] {
		return true
	}
	return w.underRootLocked(path) && matchExtension(path, w.extensions)
}

func (w *Watcher) underRootLocked(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.timer = nil
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	if len(paths) == 0 || w.onChange == nil {
		return
	}
	sort.Strings(paths)
	w.logger.Info("verse sources changed", zap.Int("paths", len(paths)))
	w.onChange(paths)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]bool)
}

// Sources returns the absolute paths being watched, directories and files
// together, in sorted order.
func (w *Watcher) Sources() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.roots)+len(w.files))
	out = append(out, w.roots...)
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Stop ends watching and drops any pending reload.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	w.cancelPending()
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
