// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package learning keeps the bounded, in-memory history of classified messages
// that the statistical classifier learns from.
package learning

import (
	"container/list"
	"sync"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

const (
	// DefaultEntriesPerMessage caps the entries kept for one message.
	DefaultEntriesPerMessage = 10
	// DefaultMaxMessages caps the number of distinct messages.
	DefaultMaxMessages = 1000
)

type record struct {
	message string
	entries []Entry
}

// Store is a bounded map from normalized message to its most recent entries.
// Distinct messages are evicted least recently appended first.
type Store struct {
	mu                sync.RWMutex
	entriesPerMessage int
	maxMessages       int

	lru   *list.List
	items map[string]*list.Element

	evictions    int64
	lastAppended time.Time
}

// NewStore creates a store. Non-positive limits fall back to the defaults.
func NewStore(entriesPerMessage, maxMessages int) *Store {
	if entriesPerMessage <= 0 {
		entriesPerMessage = DefaultEntriesPerMessage
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Store{
		entriesPerMessage: entriesPerMessage,
		maxMessages:       maxMessages,
		lru:               list.New(),
		items:             make(map[string]*list.Element),
	}
}

// Append records an entry for message. The oldest entry of the message is
// dropped once the per-message cap is reached.
func (s *Store) Append(message string, entry Entry) {
	if message == "" {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAppended = entry.Timestamp
	if elem, ok := s.items[message]; ok {
		rec := elem.Value.(*record)
		rec.entries = append(rec.entries, entry)
		if over := len(rec.entries) - s.entriesPerMessage; over > 0 {
			rec.entries = append([]Entry(nil), rec.entries[over:]...)
		}
		s.lru.MoveToFront(elem)
		return
	}

	s.items[message] = s.lru.PushFront(&record{message: message, entries: []Entry{entry}})
	for s.lru.Len() > s.maxMessages {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.items, oldest.Value.(*record).message)
		s.evictions++
	}
}

// Get returns a copy of the entries stored for message.
func (s *Store) Get(message string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elem, ok := s.items[message]
	if !ok {
		return nil
	}
	return append([]Entry(nil), elem.Value.(*record).entries...)
}

// Snapshot returns a copy of every stored sample, most recent first.
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sample, 0, s.lru.Len())
	for e := s.lru.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*record)
		out = append(out, Sample{Message: rec.message, Entries: append([]Entry(nil), rec.entries...)})
	}
	return out
}

// Len returns the number of distinct messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Len()
}

// PruneOlderThan drops entries recorded before cutoff and forgets messages
// left without entries. It returns the number of entries removed.
func (s *Store) PruneOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for e := s.lru.Front(); e != nil; {
		next := e.Next()
		rec := e.Value.(*record)
		kept := rec.entries[:0]
		for _, entry := range rec.entries {
			if entry.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, entry)
		}
		rec.entries = kept
		if len(kept) == 0 {
			s.lru.Remove(e)
			delete(s.items, rec.message)
		}
		e = next
	}
	return removed
}

// Reset removes everything.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Init()
	s.items = make(map[string]*list.Element)
	s.evictions = 0
	s.lastAppended = time.Time{}
}

// Stats returns a summary of the store contents.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Messages:     s.lru.Len(),
		ByIntent:     make(map[types.IntentType]int),
		Evictions:    s.evictions,
		LastAppended: s.lastAppended,
	}
	for e := s.lru.Front(); e != nil; e = e.Next() {
		for _, entry := range e.Value.(*record).entries {
			st.Entries++
			st.ByIntent[entry.IntentType]++
		}
	}
	return st
}
