// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch.go reloads the TOML configuration when the file changes on disk.
package server

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// reloadDebounce coalesces the several events editors emit per save.
	reloadDebounce = 500 * time.Millisecond

	// watchTick is how often pending events are checked against the debounce.
	watchTick = 100 * time.Millisecond
)

// settingsWatcher watches one configuration file and invokes reload
// after writes settle.
type settingsWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	reload   func()
}

// newSettingsWatcher watches the parent directory of path so that
// write-temp-rename saves are still seen.
func newSettingsWatcher(path string, reload func()) (*settingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &settingsWatcher{
		path:     filepath.Clean(path),
		debounce: reloadDebounce,
		watcher:  watcher,
		reload:   reload,
	}, nil
}

// run processes events until ctx is canceled or the watcher closes.
func (w *settingsWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()

	// pending is touched only by this goroutine
	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(ev) {
				continue
			}
			pending = time.Now()

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= w.debounce {
				pending = time.Time{}
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG_WATCH_ERROR | error=%v", err)
		}
	}
}

// matches reports whether the event is a content change of the watched file.
func (w *settingsWatcher) matches(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Close stops the underlying watcher.
func (w *settingsWatcher) Close() error {
	return w.watcher.Close()
}
