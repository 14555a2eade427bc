// SPDX-License-Identifier: MIT
package config

import (
	"context"
	"fmt"
	"path/filepath"

	applog "vibe/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file at path whenever it is written or recreated and passes
// the new configuration to onChange. The parent directory is watched rather than
// the file itself so editors that save via rename are still picked up. Reload
// failures are logged and the previous configuration stays in effect. Watch
// returns once the watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
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
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfig(abs)
				if err != nil {
					applog.Warnf("Config: Reload of %s failed: %v", abs, err)
					continue
				}
				applog.Infof("Config: Reloaded %s", abs)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				applog.Errorf("Config: Watcher error: %v", err)
			}
		}
	}()

	return nil
}
