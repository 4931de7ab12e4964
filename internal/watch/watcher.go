// Package watch discovers encrypted inputs as they appear in directories.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/simonhull/audiounlock"
)

// Config controls a watcher.
type Config struct {
	Logger *slog.Logger
	// Allow reports whether a path should be emitted. The default accepts
	// every extension audiounlock can classify.
	Allow func(path string) bool
	// Roots are the directories to watch.
	Roots []string
	// Debounce coalesces bursts of create/write events for one path.
	Debounce    time.Duration
	Recursive   bool
	InitialScan bool
}

// Supported reports whether path has an extension audiounlock can decode.
func Supported(path string) bool {
	_, err := audiounlock.Classify(path)
	return err == nil
}

// Start watches cfg.Roots and emits paths of matching files. Both channels
// are closed once ctx is done.
func Start(ctx context.Context, cfg Config) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.Allow == nil {
		cfg.Allow = Supported
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	var existing []string
	for _, root := range cfg.Roots {
		found, err := addTree(w, root, cfg)
		if err != nil {
			cfg.Logger.Error("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			existing = append(existing, found...)
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	go run(ctx, w, cfg, existing, evCh, errCh)
	return evCh, errCh, nil
}

// addTree watches root (and, when recursive, its subdirectories) and
// returns the matching files already present.
func addTree(w *fsnotify.Watcher, root string, cfg Config) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && !cfg.Recursive {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		if cfg.Allow(path) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func run(ctx context.Context, w *fsnotify.Watcher, cfg Config, existing []string, evCh chan<- string, errCh chan<- error) {
	defer close(evCh)
	defer close(errCh)
	defer func() {
		if err := w.Close(); err != nil {
			cfg.Logger.Warn("failed to close watcher", "error", err)
		}
	}()

	emit := func(path string) bool {
		select {
		case evCh <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, path := range existing {
		if !emit(path) {
			return
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	flush := func() bool {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		slices.Sort(paths)
		for _, p := range paths {
			if !emit(p) {
				return false
			}
		}
		return true
	}

	queue := func(path string) bool {
		pending[path] = struct{}{}
		if cfg.Debounce <= 0 {
			return flush()
		}
		timer.Reset(cfg.Debounce)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !flush() {
				return
			}
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 && cfg.Recursive && isDir(e.Name) {
				found, err := addTree(w, e.Name, cfg)
				if err != nil {
					cfg.Logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
				}
				for _, p := range found {
					if !queue(p) {
						return
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && cfg.Allow(e.Name) {
				if !queue(e.Name) {
					return
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cfg.Logger.Error("watcher error", "error", err)
			select {
			case errCh <- err:
			default:
			}
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Extensions returns the lowercase extensions Supported accepts, with
// leading dots, for display.
func Extensions() []string {
	exts := audiounlock.SupportedExtensions()
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = "." + strings.ToLower(e)
	}
	return out
}
