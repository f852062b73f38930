package ingestion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/skn123/robin-sub001/internal/config"
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/logger"
)

// DefaultDebounce is the quiet period that closes a batch of changes.
const DefaultDebounce = 500 * time.Millisecond

// RunHandler receives the outcome of every pipeline run of a watch, along
// with the changed paths that triggered it (none for the initial run).
type RunHandler func(run *Run, result *PipelineResult, changed []string, err error)

// Watch runs the pipeline once, then again after every batch of changes
// to the sources below the configured roots. Each run starts from an empty
// database. Blocks until the context is cancelled.
func Watch(ctx context.Context, base string, cfg *config.Config, debounce time.Duration, handle RunHandler) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := logger.Named("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	var roots []watchRoot
	for _, r := range cfg.Input.Roots {
		root := watchRoot{path: resolve(base, r)}
		root.matcher, err = ignoreMatcher(root.path, cfg.Input.Exclude)
		if err != nil {
			return err
		}
		if err := root.addDirs(watcher, root.path); err != nil {
			return err
		}
		roots = append(roots, root)
	}
	documents := make(map[string]bool)
	for _, d := range cfg.Input.Documents {
		path := resolve(base, d)
		documents[path] = true
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
	}

	rerun := func(changed []string) {
		run, result, err := RunPipeline(ctx, base, cfg, nil)
		if ctx.Err() != nil {
			return
		}
		handle(run, result, changed, err)
	}
	rerun(nil)

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	log.Infow("watching for changes", "roots", len(roots), "documents", len(documents))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					for _, root := range roots {
						if within(root.path, event.Name) {
							if err := root.addDirs(watcher, event.Name); err != nil {
								log.Warnw("watching new directory", "path", event.Name, "error", err)
							}
						}
					}
					continue
				}
			}
			if !documents[event.Name] && !watched(roots, event.Name, cfg.Input.Extensions) {
				continue
			}
			changed[event.Name] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watch error", "error", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			changed = make(map[string]bool)
			log.Debugw("rerunning pipeline", "changed", len(paths))
			rerun(paths)
		}
	}
}

// watchRoot is one source root and its ignore rules.
type watchRoot struct {
	path    string
	matcher gitignore.Matcher
}

// addDirs watches dir and every directory below it that is not ignored.
func (r watchRoot) addDirs(w *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.path && shouldSkipDir(d.Name(), path, r.path, r.matcher) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if err != nil {
		return errors.Wrapf(err, "setting up watcher for %s", dir)
	}
	return nil
}

// watched reports whether a changed path is a source of one of the roots.
func watched(roots []watchRoot, path string, extensions []string) bool {
	if languageOf(filepath.Base(path), extensions) == "" {
		return false
	}
	for _, root := range roots {
		if !within(root.path, path) {
			continue
		}
		rel, err := filepath.Rel(root.path, path)
		if err != nil {
			continue
		}
		if !root.matcher.Match(splitPath(rel), false) {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignoreMatcher combines the default patterns, the root's .gitignore and
// the configured exclusions.
func ignoreMatcher(root string, exclude []string) (gitignore.Matcher, error) {
	patterns, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns)+len(exclude))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	for _, p := range exclude {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(all), nil
}
