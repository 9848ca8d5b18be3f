// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func entry(t types.IntentType, conf float64) Entry {
	return Entry{IntentType: t, Confidence: conf, Domain: types.DomainBeauty}
}

func TestStore_PerMessageCapDropsOldest(t *testing.T) {
	s := NewStore(3, 10)
	for i := 0; i < 5; i++ {
		s.Append("quero agendar", entry(types.IntentBookingRequest, float64(i)/10))
	}

	got := s.Get("quero agendar")
	require.Len(t, got, 3)
	assert.Equal(t, 0.2, got[0].Confidence)
	assert.Equal(t, 0.4, got[2].Confidence)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestStore_EvictsLeastRecentlyAppendedMessage(t *testing.T) {
	s := NewStore(0, 2)
	s.Append("a", entry(types.IntentOther, 0.1))
	s.Append("b", entry(types.IntentOther, 0.1))
	s.Append("a", entry(types.IntentOther, 0.2))
	s.Append("c", entry(types.IntentOther, 0.1))

	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Get("b"))
	assert.Len(t, s.Get("a"), 2)
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestStore_IgnoresEmptyMessage(t *testing.T) {
	s := NewStore(0, 0)
	s.Append("", entry(types.IntentOther, 1))
	assert.Equal(t, 0, s.Len())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(0, 0)
	s.Append("oi", entry(types.IntentGeneralGreeting, 0.6))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Entries[0].Confidence = 0
	assert.Equal(t, 0.6, s.Get("oi")[0].Confidence)
}

func TestStore_StatsAndReset(t *testing.T) {
	s := NewStore(0, 0)
	s.Append("oi", entry(types.IntentGeneralGreeting, 0.6))
	s.Append("ola", entry(types.IntentGeneralGreeting, 0.6))
	s.Append("quanto custa", entry(types.IntentPriceInquiry, 0.8))

	st := s.Stats()
	assert.Equal(t, 3, st.Messages)
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, 2, st.ByIntent[types.IntentGeneralGreeting])
	assert.False(t, st.LastAppended.IsZero())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Stats().ByIntent)
}

func TestStore_PruneOlderThan(t *testing.T) {
	s := NewStore(0, 0)
	now := time.Now()
	s.Append("old", Entry{IntentType: types.IntentOther, Timestamp: now.Add(-2 * time.Hour)})
	s.Append("mixed", Entry{IntentType: types.IntentOther, Timestamp: now.Add(-2 * time.Hour)})
	s.Append("mixed", Entry{IntentType: types.IntentOther, Timestamp: now})

	removed := s.PruneOlderThan(now.Add(-time.Hour))
	assert.Equal(t, 2, removed)
	assert.Nil(t, s.Get("old"))
	assert.Len(t, s.Get("mixed"), 1)
}

func TestJanitor_RunOnce(t *testing.T) {
	s := NewStore(0, 0)
	now := time.Now()
	s.Append("old", Entry{IntentType: types.IntentOther, Timestamp: now.Add(-48 * time.Hour)})

	j := NewJanitor(s, 24*time.Hour, time.Minute)
	assert.Equal(t, 1, j.RunOnce(now))

	disabled := NewJanitor(s, 0, 0)
	disabled.Start()
	disabled.Stop()
	assert.Equal(t, 0, disabled.RunOnce(now))
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(NewStore(0, 0), time.Hour, 10*time.Millisecond)
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop()
	j.Stop()
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore(5, 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append(fmt.Sprintf("m%d", j%60), entry(types.IntentOther, 0.1))
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 50)
	for _, sample := range s.Snapshot() {
		assert.LessOrEqual(t, len(sample.Entries), 5)
	}
}
