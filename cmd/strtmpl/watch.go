package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher re-renders when a watched file, or anything below a watched
// directory, is written.
type watcher struct {
	fsw    *fsnotify.Watcher
	files  map[string]bool
	dirs   []string
	delay  time.Duration
	logger *slog.Logger
}

// newWatcher watches the parent directory of each file so editors that
// replace files on save are still seen.
func newWatcher(files, dirs []string, logger *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fsw:    fsw,
		files:  map[string]bool{},
		delay:  100 * time.Millisecond,
		logger: logger,
	}
	added := map[string]bool{}
	add := func(dir string) error {
		if added[dir] {
			return nil
		}
		added[dir] = true
		return fsw.Add(dir)
	}

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		if err := add(filepath.Dir(abs)); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.dirs = append(w.dirs, abs)
		err = filepath.WalkDir(abs, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() {
				return nil
			}
			if path != abs && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return add(path)
		})
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	for _, d := range w.dirs {
		if strings.HasPrefix(abs, d+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Run renders once, then again after every burst of changes, until ctx is
// done. Render failures are logged and watching goes on.
func (w *watcher) Run(ctx context.Context, render func() error) error {
	defer func() { _ = w.fsw.Close() }()

	w.render(render)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !w.relevant(event.Name) {
				continue
			}
			w.logger.Debug("change detected", "file", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.render(render)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *watcher) render(render func() error) {
	if err := render(); err != nil {
		w.logger.Error("render failed", "error", err)
		return
	}
	w.logger.Debug("rendered")
}
