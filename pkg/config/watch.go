package config

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
)

// WatchDebounce coalesces a burst of file events into a single reload.
const WatchDebounce = 100 * time.Millisecond

// WatchSeed monitors the directories holding the seed files and calls onChange
// with the reloaded seed whenever a matching file is written, created, removed
// or renamed. It runs until ctx is cancelled.
//
// A failed reload is logged and onChange is not called; the previous seed
// stays active.
func WatchSeed(ctx context.Context, cfg *Config, log *slog.Logger, onChange func([]entity.Entity)) error {
	if log == nil {
		log = logging.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	patterns := cfg.SeedPatterns()
	for _, dir := range watchDirs(patterns) {
		if err := watcher.Add(dir); err != nil {
			return err
		}
		log.Debug("seed: watching directory", "path", dir)
	}
	log.Info("seed: watching for changes", "patterns", patterns)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && recursive(patterns) {
					_ = watcher.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) || !matchesAny(patterns, event.Name) {
				continue
			}
			reload = time.After(WatchDebounce)

		case <-reload:
			reload = nil
			seed, err := cfg.LoadSeed()
			if err != nil {
				log.Error("seed: reload failed, keeping previous seed", "error", err)
				continue
			}
			log.Info("seed: reloaded", "entities", len(seed))
			onChange(seed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("seed: watcher error", "error", err)
		}
	}
}

// watchDirs returns the existing directories to watch for the patterns: the
// static prefix of each pattern and, for ** patterns, every directory below it.
func watchDirs(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		base = filepath.FromSlash(base)
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		if !strings.Contains(pattern, "**") {
			add(base)
			continue
		}
		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				add(path)
			}
			return nil
		})
	}
	return dirs
}

func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
	}
	return false
}

func recursive(patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(p, "**") {
			return true
		}
	}
	return false
}
