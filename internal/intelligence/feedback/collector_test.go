// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package feedback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	collector, err := NewCollector(filepath.Join(t.TempDir(), "audit", "decisions.db"), 30)
	require.NoError(t, err)
	require.NoError(t, collector.Initialize(context.Background()))
	t.Cleanup(func() { _ = collector.Shutdown(context.Background()) })
	return collector
}

func decision(domain string, escalation types.EscalationType) *types.RoutingDecision {
	return &types.RoutingDecision{
		PrimaryDomain:      domain,
		AlternativeDomains: []string{},
		EscalationRequired: escalation != types.EscalationNone,
		EscalationType:     escalation,
		Priority:           types.PriorityMedium,
		SuggestedActions:   []types.SuggestedAction{{Action: "send_greeting", Priority: types.PriorityLow}},
		Metadata: types.DecisionMetadata{
			DecisionID:       "dec-" + domain + "-" + string(escalation),
			RulesApplied:     []string{"emergency_priority"},
			ProcessingTimeMs: 4,
		},
	}
}

// TestNewCollector tests collector creation.
func TestNewCollector(t *testing.T) {
	tests := []struct {
		name          string
		dbPath        string
		retentionDays int
		wantErr       bool
		wantRetention int
	}{
		{"valid parameters", "/tmp/audit.db", 90, false, 90},
		{"empty db path", "", 90, true, 0},
		{"zero retention uses default", "/tmp/audit.db", 0, false, DefaultRetentionDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector, err := NewCollector(tt.dbPath, tt.retentionDays)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRetention, collector.retentionDays)
			assert.False(t, collector.IsEnabled())
		})
	}
}

func TestCollectorInitialize_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")
	collector, err := NewCollector(dbPath, 30)
	require.NoError(t, err)
	require.NoError(t, collector.Initialize(context.Background()))
	defer collector.Shutdown(context.Background())

	assert.True(t, collector.IsEnabled())
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestCollectorRecordAndGetRecent(t *testing.T) {
	collector := newTestCollector(t)
	ctx := context.Background()

	intent := types.NewIntent(types.IntentEmergency, 0.9)
	intent.Metadata.RequestID = "req-1"
	intent.Context.EngineConsensus = 2
	convCtx := &types.ConversationContext{TenantID: "clinic-1", SessionID: "s-1"}

	rec := NewRecord(intent, decision(types.DomainHealthcare, types.EscalationImmediate), convCtx)
	require.NoError(t, collector.Record(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	other := NewRecord(types.NewIntent(types.IntentPriceInquiry, 0.7), decision(types.DomainBeauty, types.EscalationNone),
		&types.ConversationContext{TenantID: "salon-2"})
	other.Timestamp = rec.Timestamp.Add(time.Second)
	require.NoError(t, collector.Record(ctx, other))

	records, err := collector.GetRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "salon-2", records[0].TenantID, "newest first")

	records, err = collector.GetRecent(ctx, "clinic-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "emergency", got.Intent)
	assert.Equal(t, 2, got.EngineConsensus)
	assert.True(t, got.EscalationRequired)
	assert.Equal(t, "immediate", got.EscalationType)
	assert.Equal(t, []any{"emergency_priority"}, got.Metadata["rules_applied"])
}

func TestCollectorGetStats(t *testing.T) {
	collector := newTestCollector(t)
	ctx := context.Background()

	for _, d := range []*types.RoutingDecision{
		decision(types.DomainHealthcare, types.EscalationImmediate),
		decision(types.DomainHealthcare, types.EscalationMedicalReview),
		decision(types.DomainBeauty, types.EscalationNone),
		decision(types.DomainBeauty, types.EscalationNone),
	} {
		intentType := types.IntentBookingRequest
		if d.EscalationType == types.EscalationImmediate {
			intentType = types.IntentEmergency
		}
		require.NoError(t, collector.Record(ctx, NewRecord(types.NewIntent(intentType, 0.8), d, nil)))
	}

	stats, err := collector.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalDecisions)
	assert.InDelta(t, 0.5, stats.EscalationRate, 1e-9)
	assert.InDelta(t, 4.0, stats.AvgProcessingMs, 1e-9)
	assert.Equal(t, map[string]int64{"emergency": 1, "booking_request": 3}, stats.IntentDistribution)
	assert.Equal(t, map[string]int64{"healthcare": 2, "beauty": 2}, stats.DomainDistribution)
	assert.Equal(t, map[string]int64{"immediate": 1, "medical_review": 1}, stats.EscalationTypes)
}

func TestCollectorGetStats_Empty(t *testing.T) {
	stats, err := newTestCollector(t).GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDecisions)
	assert.Zero(t, stats.EscalationRate)
	assert.Empty(t, stats.IntentDistribution)
}

func TestCollectorRetention(t *testing.T) {
	collector := newTestCollector(t)
	ctx := context.Background()

	old := NewRecord(nil, decision(types.DomainOther, types.EscalationNone), nil)
	old.Timestamp = time.Now().AddDate(0, 0, -45)
	require.NoError(t, collector.Record(ctx, old))
	require.NoError(t, collector.Record(ctx, NewRecord(nil, decision(types.DomainBeauty, types.EscalationNone), nil)))

	removed, err := collector.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	records, err := collector.GetRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "beauty", records[0].PrimaryDomain)
}

func TestCollectorNotEnabled(t *testing.T) {
	collector, err := NewCollector("/tmp/never-opened.db", 30)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, collector.Record(ctx, &DecisionRecord{}), ErrNotEnabled)
	_, err = collector.GetRecent(ctx, "", 10)
	assert.ErrorIs(t, err, ErrNotEnabled)
	_, err = collector.GetStats(ctx)
	assert.ErrorIs(t, err, ErrNotEnabled)
	assert.NoError(t, collector.Shutdown(ctx))
}

func TestCollectorShutdown(t *testing.T) {
	collector, err := NewCollector(filepath.Join(t.TempDir(), "audit.db"), 30)
	require.NoError(t, err)
	require.NoError(t, collector.Initialize(context.Background()))

	require.NoError(t, collector.Shutdown(context.Background()))
	assert.False(t, collector.IsEnabled())
	assert.NoError(t, collector.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestCollectorSubscribe(t *testing.T) {
	collector := newTestCollector(t)
	bus := hooks.NewEventBus()
	defer bus.Shutdown()
	collector.Subscribe(bus)

	intent := types.NewIntent(types.IntentComplaint, 0.7)
	bus.Publish(&hooks.EventContext{
		Event:     hooks.EventRoutingDecision,
		RequestID: "req-9",
		TenantID:  "salon-1",
		SessionID: "s-9",
		Data: map[string]any{
			"decision": decision(types.DomainBeauty, types.EscalationSupervisor),
			"intent":   intent,
		},
	})
	bus.Publish(&hooks.EventContext{Event: hooks.EventRoutingDecision, Data: map[string]any{"decision": "garbage"}})

	records, err := collector.GetRecent(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "req-9", records[0].RequestID)
	assert.Equal(t, "salon-1", records[0].TenantID)
	assert.Equal(t, "complaint", records[0].Intent)
	assert.Equal(t, "supervisor", records[0].EscalationType)
}

func TestCollector_SQLErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	collector, err := NewCollector("unused.db", 30)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS decisions").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, collector.InitializeWithDB(context.Background(), db))

	mock.ExpectExec("INSERT INTO decisions").WillReturnError(errors.New("disk I/O error"))
	err = collector.Record(context.Background(), NewRecord(nil, decision(types.DomainOther, types.EscalationNone), nil))
	assert.ErrorContains(t, err, "failed to insert decision")

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(errors.New("database is locked"))
	_, err = collector.GetStats(context.Background())
	assert.ErrorContains(t, err, "failed to get totals")

	mock.ExpectQuery("SELECT id, timestamp").WillReturnError(errors.New("no such table"))
	_, err = collector.GetRecent(context.Background(), "", 5)
	assert.ErrorContains(t, err, "failed to query decisions")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollector_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	collector, err := NewCollector("unused.db", 30)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))
	err = collector.InitializeWithDB(context.Background(), db)
	assert.ErrorContains(t, err, "failed to create schema")
	assert.False(t, collector.IsEnabled())
}
