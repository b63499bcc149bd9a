package ruleset

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch monitors the rules file and registers newly added rules each time it
// is written. The registry is append-only, so rules removed from the file
// stay registered until restart. Watch blocks until ctx is cancelled.
//
// If a reload fails (e.g. invalid YAML), the error is logged and the current
// registry is left untouched.
func Watch(ctx context.Context, path string, reg Registry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("watching rules file for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so catch Create as well.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			added, err := Bootstrap(path, reg)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("rules reload failed, keeping current registry")
				continue
			}
			if added > 0 {
				log.Info().Int("added", added).Str("path", path).Msg("rules file reloaded")
			}

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("rules watcher error")
		}
	}
}
