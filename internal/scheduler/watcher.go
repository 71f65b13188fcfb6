package scheduler

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

// Watch starts an fsnotify watcher on vaultRoot and requests a run on the
// Scheduler whenever a Markdown file is created, written, removed, or
// renamed, debounced by debounce so a burst of edits (e.g. a find-and-
// replace across many notes) triggers one run, not one per file. It blocks
// until ctx is cancelled.
func Watch(ctx context.Context, vaultRoot string, debounce time.Duration, sched *Scheduler, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	logger.Info("scheduler: watcher started", slog.String("root", vaultRoot))

	var timer *time.Timer
	var timerCh <-chan time.Time
	debounced := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("scheduler: watcher stopped")
			return nil

		case <-timerCh:
			logger.Debug("scheduler: debounced vault change, requesting run")
			sched.TryTrigger(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() && ev.Op&fsnotify.Create != 0 {
				if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
					logger.Warn("scheduler: watch new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
				}
				continue
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			debounced()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("scheduler: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
