package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it changes and delivers the parsed
// PassConfig on the returned channel. A pass in progress keeps running with
// the config it started with; the new value is picked up by the next pass
// invocation. Mirrors the teacher's use of fsnotify for policy-file reload.
func Watch(ctx context.Context, path string, logger *slog.Logger) (<-chan PassConfig, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan PassConfig, 1)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					if logger != nil {
						logger.Warn("config_reload_failed", "path", path, "error", err)
					}
					continue
				}
				select {
				case out <- cfg:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("config_watch_error", "error", err)
				}
			}
		}
	}()
	return out, nil
}
