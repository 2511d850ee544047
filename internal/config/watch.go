// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIVE RELOAD
// =============================================================================

// watchDebounce coalesces editor write bursts into a single reload.
const watchDebounce = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and
// delivers each successfully parsed result on Updates.
type Watcher struct {
	path    string
	fw      *fsnotify.Watcher
	updates chan *Config

	cancel context.CancelFunc
	once   sync.Once
}

// Watch starts watching path for changes. The caller receives new configs
// on Updates; parse or validation failures keep the previous config and
// are silently skipped (the file is often mid-save).
func Watch(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files via rename, which drops
	// a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    path,
		fw:      fw,
		updates: make(chan *Config, 1),
		cancel:  cancel,
	}
	go w.loop(ctx)
	return w, nil
}

// Updates delivers reloaded configurations.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.once.Do(w.cancel)
	return w.fw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				continue
			}
			select {
			case w.updates <- cfg:
			default:
				// Drop the stale pending config in favor of this one.
				select {
				case <-w.updates:
				default:
				}
				w.updates <- cfg
			}

		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}
