// Package watch rebuilds a site when files below the posts directory change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Options configures Run.
type Options struct {
	// Dir is watched recursively.
	Dir string

	// Ignore lists directories whose events never cause a rebuild, such as an
	// output directory inside Dir.
	Ignore []string

	Debounce time.Duration
	Logger   *slog.Logger
}

// Run watches opts.Dir and calls rebuild after each burst of changes until ctx
// is done. Rebuilds never overlap; changes during a rebuild cause exactly one
// more.
func Run(ctx context.Context, opts Options, rebuild func(context.Context)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}
	w := &watcher{opts: opts, ignore: ignore}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.InternalError("create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fw.Close() }()
	if err := w.addDirsRecursive(fw, opts.Dir); err != nil {
		return err
	}

	rebuildReq, trigger, stop := debouncer(opts.Debounce)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				opts.Logger.Info("Change detected; rebuilding site")
				rebuild(ctx)
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev, trigger)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

type watcher struct {
	opts   Options
	ignore []string
}

// debouncer returns a channel that receives one value per quiet period after
// trigger calls. Pending requests coalesce.
func debouncer(quiet time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return req, trigger, stop
}

func (w *watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if w.ignored(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fw, ev.Name)
		}
	}
	w.opts.Logger.Debug("File change detected", logfields.Document(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (w *watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.FileSystemError("watch posts directory").WithCause(err).
					WithContext("dir", root).Fatal().Build()
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (w.ignored(path) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.opts.Logger.Warn("Watch add failed", slog.String("dir", path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports editor and OS artefacts that must not trigger a rebuild.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
