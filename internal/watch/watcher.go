// Package watch keeps a vault continuously processed by reacting to
// filesystem events.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/vault"
)

// EventCallback is called after a watcher-driven change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// reconcileDelay debounces the vault pass that follows rename events.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. Notes and media files are run
// through the pipeline as they appear or change; removals drop catalog
// entries and auto-generated reference notes. It calls cb (if non-nil)
// after each successful mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a debounced vault pass that reprocesses
// moved files and sweeps stale entries.
func Watch(ctx context.Context, svc *pipeline.Service, store vault.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, recErr := svc.ProcessVault(ctx, ""); recErr != nil && ctx.Err() == nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", recErr.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Process any managed files already in the new directory.
					processNewDir(ctx, svc, store, vaultRoot, absPath, logger, cb)
					continue
				}
			}

			relOS, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel := filepath.ToSlash(relOS)

			// Only notes and media are managed from here on.
			if store.Kind(rel) == vault.KindOther {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				res, procErr := svc.ProcessNote(ctx, rel)
				if procErr != nil {
					if ctx.Err() != nil {
						continue
					}
					logger.Warn("watcher: process failed", slog.String("path", rel), slog.String("error", procErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: processed",
					slog.String("path", res.Path), slog.String("op", kind))
				if cb != nil {
					cb(kind, res.Path)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := svc.HandleRemoval(ctx, rel); delErr != nil {
					logger.Warn("watcher: removal failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We drop the old entry
				// immediately and schedule a short vault pass to catch
				// any stragglers.
				if delErr := svc.HandleRemoval(ctx, rel); delErr != nil {
					logger.Warn("watcher: rename removal failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old removed", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// processNewDir runs the pipeline over any managed files found in a newly
// created directory, since their create events may have fired before the
// directory was watched.
func processNewDir(ctx context.Context, svc *pipeline.Service, store vault.Provider, vaultRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		relOS, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		rel := filepath.ToSlash(relOS)
		if store.Kind(rel) == vault.KindOther {
			return nil
		}
		res, procErr := svc.ProcessNote(ctx, rel)
		if procErr != nil {
			if ctx.Err() == nil {
				logger.Warn("watcher: process from new dir failed",
					slog.String("path", rel), slog.String("error", procErr.Error()))
			}
			return nil
		}
		logger.Debug("watcher: processed from new dir", slog.String("path", res.Path))
		if cb != nil {
			cb("created", res.Path)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
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
