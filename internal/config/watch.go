package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"kolamart/pos/internal/logger"
)

// Watch re-resolves the config whenever the file at path is written or
// replaced and hands the result to apply. Parse errors are logged and the
// previous config stays in effect. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, log *logger.Logger, apply func(*Config)) error {
	if log == nil {
		log = logger.Nop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	// Editors save by renaming over the file, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Resolve(abs, os.LookupEnv)
			if err != nil {
				log.Warn("config_reload_failed", map[string]any{"path": abs, "reason": err.Error()})
				continue
			}
			log.Info("config_reloaded", map[string]any{"path": abs})
			apply(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("config_watch_error", err, nil)
		}
	}
}
