// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Janitor periodically prunes entries older than a retention window.
type Janitor struct {
	store     *Store
	retention time.Duration
	interval  time.Duration

	// Channels for managing the background routine
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewJanitor creates a janitor for store. A zero retention disables pruning.
func NewJanitor(store *Store, retention, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start starts the background pruning routine.
func (j *Janitor) Start() {
	if j.retention <= 0 {
		return
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.stopChan:
				return
			case <-ticker.C:
				j.RunOnce(time.Now())
			}
		}
	}()

	log.Info("Learning janitor started")
}

// RunOnce prunes entries older than now minus the retention window.
func (j *Janitor) RunOnce(now time.Time) int {
	if j.retention <= 0 {
		return 0
	}
	removed := j.store.PruneOlderThan(now.Add(-j.retention))
	if removed > 0 {
		log.Debugf("Learning janitor pruned %d entries", removed)
	}
	return removed
}

// Stop stops the background routine and waits for it to exit.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
	})
	j.wg.Wait()
}
