package target

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchPayload reloads payload whenever path is written, created or
// renamed into place. It watches the parent directory so editors that
// replace the file atomically are handled. It blocks until ctx is done.
func WatchPayload(ctx context.Context, path string, payload *Payload, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := payload.Load(abs); err != nil {
				log.Warn("payload reload failed, keeping previous body", "path", abs, "error", err)
				continue
			}
			log.Info("payload reloaded", "path", abs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("payload watcher error", "error", err)
		}
	}
}
