package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads path whenever it is written or replaced and passes the new
// configuration to onChange. A file that fails to load is logged and
// skipped. Watch returns once the watcher is set up; it stops with ctx.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Editors often save by renaming over the file, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				cfg, err := Load(abs)
				if err != nil {
					logger.Warn("config reload failed", zap.String("path", abs), zap.Error(err))
					continue
				}
				logger.Info("config reloaded", zap.String("path", abs))
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
