package config

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// RestartRequired lists the sections of next that differ from running but
// cannot be applied to a live process. Only logging.level is hot-reloadable.
func RestartRequired(running, next *Config) []string {
	var out []string
	if !reflect.DeepEqual(running.Server, next.Server) {
		out = append(out, "server")
	}
	if !reflect.DeepEqual(running.Dataset, next.Dataset) {
		out = append(out, "dataset")
	}
	staticLogging := func(l LoggingConfig) LoggingConfig {
		l.Level = ""
		return l
	}
	if staticLogging(running.Logging) != staticLogging(next.Logging) {
		out = append(out, "logging")
	}
	return out
}

// Watch monitors path and re-reads it on every write. running is the config
// the process started with.
//
// onLevel is called with the new config only when logging.level differs
// from the level currently applied. Changes to any other section are logged
// as needing a restart and otherwise ignored. A file that fails to load or
// validate is logged and the applied config is kept. Watch runs until ctx is
// cancelled.
func Watch(ctx context.Context, logger *slog.Logger, path string, running *Config, onLevel func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("path", path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	level := running.Logging.Level
	logger.Info("config: watching for log level changes", "level", level)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// An atomic save replaces the inode; re-adding is a no-op otherwise.
			_ = watcher.Add(path)

			next, err := Load(path)
			if err != nil {
				logger.Error("config: reload failed, keeping applied config", "err", err)
				continue
			}

			if sections := RestartRequired(running, next); len(sections) > 0 {
				logger.Warn("config: changes need a restart to take effect", "sections", sections)
			}

			if next.Logging.Level == level {
				logger.Debug("config: log level unchanged", "level", level)
				continue
			}
			logger.Info("config: log level changed", "from", level, "to", next.Logging.Level)
			level = next.Logging.Level
			onLevel(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config: watcher error", "err", err)
		}
	}
}
