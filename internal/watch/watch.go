// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package watch reruns a batch whenever the roster file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events a spreadsheet save produces.
const DefaultDebounce = 2 * time.Second

// Watcher triggers a callback after the watched file settles.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger
}

func New(path string, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Run calls fn once immediately and again after every settled change to the file,
// until ctx is done. Runs never overlap; changes during a run schedule one more run.
// Errors from fn are logged, not returned.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors and spreadsheet tools replace the file via rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info().
		Str("event", "watch.started").
		Str("path", w.path).
		Dur("debounce", w.debounce).
		Msg("watching roster for changes")

	w.invoke(ctx, fn)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "watch.stopped").Msg("roster watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str("event", "watch.file_changed").
				Str("op", event.Op.String()).
				Msg("roster changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			w.invoke(ctx, fn)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("roster watcher error")
		}
	}
}

func (w *Watcher) invoke(ctx context.Context, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		w.logger.Error().
			Err(err).
			Str("event", "watch.run_failed").
			Msg("batch run after roster change failed")
	}
}
