// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pattern

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const reloadDebounce = 100 * time.Millisecond

// LoadCatalog replaces the active catalog with the contents of path.
func (c *Classifier) LoadCatalog(path string) error {
	entries, err := LoadCatalogFile(path)
	if err != nil {
		return err
	}
	if err := c.SetCatalog(entries); err != nil {
		return err
	}
	log.WithField("path", path).Infof("Loaded pattern catalog with %d intents", len(entries))
	return nil
}

// StartWatcher watches the directory of path and reloads the catalog whenever
// the file changes. A reload that fails keeps the previous catalog.
func (c *Classifier) StartWatcher(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files atomically, so watch the directory, not the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	c.mu.Lock()
	c.watcher = watcher
	c.stopWatcher = make(chan struct{})
	stop := c.stopWatcher
	c.mu.Unlock()

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					time.Sleep(reloadDebounce)
					if err := c.LoadCatalog(path); err != nil {
						log.Errorf("Failed to reload pattern catalog: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("Pattern catalog watcher error: %v", err)
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// StopWatcher stops the catalog watcher, if running.
func (c *Classifier) StopWatcher() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return
	}
	close(c.stopWatcher)
	c.watcher.Close()
	c.watcher = nil
}
