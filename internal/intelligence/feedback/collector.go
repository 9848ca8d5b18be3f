// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package feedback provides the audit trail of routing decisions.
// It records every decision, together with a summary of the intent it was
// derived from, into SQLite so escalation behaviour can be reviewed later.
package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// DefaultRetentionDays is used when no retention is configured.
const DefaultRetentionDays = 30

// ErrNotEnabled is returned when the collector has not been initialized or
// was shut down.
var ErrNotEnabled = errors.New("audit collector not enabled")

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	decision_id TEXT NOT NULL,
	request_id TEXT,
	tenant_id TEXT,
	session_id TEXT,
	intent TEXT NOT NULL,
	intent_confidence REAL,
	engine_consensus INTEGER NOT NULL DEFAULT 0,
	primary_domain TEXT NOT NULL,
	escalation_required INTEGER NOT NULL DEFAULT 0,
	escalation_type TEXT NOT NULL,
	priority TEXT NOT NULL,
	fallback INTEGER NOT NULL DEFAULT 0,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_tenant ON decisions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_decisions_intent ON decisions(intent);
`

// DecisionRecord is one audited routing decision.
type DecisionRecord struct {
	ID                 int64          `json:"id"`
	Timestamp          time.Time      `json:"timestamp"`
	DecisionID         string         `json:"decision_id"`
	RequestID          string         `json:"request_id,omitempty"`
	TenantID           string         `json:"tenant_id,omitempty"`
	SessionID          string         `json:"session_id,omitempty"`
	Intent             string         `json:"intent"`
	IntentConfidence   float64        `json:"intent_confidence"`
	EngineConsensus    int            `json:"engine_consensus"`
	PrimaryDomain      string         `json:"primary_domain"`
	EscalationRequired bool           `json:"escalation_required"`
	EscalationType     string         `json:"escalation_type"`
	Priority           string         `json:"priority"`
	Fallback           bool           `json:"fallback"`
	ProcessingTimeMs   int64          `json:"processing_time_ms"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Stats aggregates the audit trail.
type Stats struct {
	TotalDecisions     int64            `json:"total_decisions"`
	EscalationRate     float64          `json:"escalation_rate"`
	FallbackRate       float64          `json:"fallback_rate"`
	AvgProcessingMs    float64          `json:"avg_processing_ms"`
	IntentDistribution map[string]int64 `json:"intent_distribution"`
	DomainDistribution map[string]int64 `json:"domain_distribution"`
	EscalationTypes    map[string]int64 `json:"escalation_types"`
}

// Collector manages audit collection and storage.
type Collector struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	enabled       bool
	mu            sync.RWMutex
	now           func() time.Time
}

// NewCollector creates a new audit collector instance.
//
// Parameters:
//   - dbPath: Path to the SQLite database file (can be relative or absolute)
//   - retentionDays: Number of days to retain decision records
//
// Returns:
//   - *Collector: A new collector instance
//   - error: Any error encountered during creation
func NewCollector(dbPath string, retentionDays int) (*Collector, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Collector{
		dbPath:        dbPath,
		retentionDays: retentionDays,
		now:           time.Now,
	}, nil
}

// Initialize opens the database and creates the schema.
func (c *Collector) Initialize(ctx context.Context) error {
	if c.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.dbPath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", c.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := c.InitializeWithDB(ctx, db); err != nil {
		db.Close()
		return err
	}
	log.Infof("Audit collector initialized (db: %s, retention: %d days)", c.dbPath, c.retentionDays)

	if _, err := c.Cleanup(ctx); err != nil {
		log.Warnf("Initial audit cleanup failed: %v", err)
	}
	return nil
}

// InitializeWithDB creates the schema on an already opened database.
func (c *Collector) InitializeWithDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	c.mu.Lock()
	c.db = db
	c.enabled = true
	c.mu.Unlock()
	return nil
}

// IsEnabled returns whether the collector is active.
func (c *Collector) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// NewRecord builds the audit record of decision. intent and convCtx may be nil.
func NewRecord(intent *types.Intent, decision *types.RoutingDecision, convCtx *types.ConversationContext) *DecisionRecord {
	rec := &DecisionRecord{
		DecisionID:         decision.Metadata.DecisionID,
		Intent:             string(types.IntentOther),
		PrimaryDomain:      decision.PrimaryDomain,
		EscalationRequired: decision.EscalationRequired,
		EscalationType:     string(decision.EscalationType),
		Priority:           string(decision.Priority),
		Fallback:           decision.Metadata.Fallback,
		ProcessingTimeMs:   decision.Metadata.ProcessingTimeMs,
		Metadata: map[string]any{
			"alternative_domains": decision.AlternativeDomains,
			"rules_applied":       decision.Metadata.RulesApplied,
			"suggested_actions":   decision.SuggestedActions,
		},
	}
	if intent != nil {
		rec.RequestID = intent.Metadata.RequestID
		rec.Intent = string(intent.Type)
		rec.IntentConfidence = intent.Confidence
		rec.EngineConsensus = intent.Context.EngineConsensus
		rec.Metadata["entity_count"] = len(intent.Entities)
		rec.Metadata["from_cache"] = intent.Metadata.FromCache
	}
	if convCtx != nil {
		rec.TenantID = convCtx.TenantID
		rec.SessionID = convCtx.SessionID
	}
	return rec
}

// Record stores a decision record in the database.
//
// Parameters:
//   - ctx: Context for the operation
//   - record: The decision record to store
//
// Returns:
//   - error: Any error encountered during storage
func (c *Collector) Record(ctx context.Context, record *DecisionRecord) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return ErrNotEnabled
	}
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = c.now()
	}

	var metadataJSON []byte
	if record.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(record.Metadata)
		if err != nil {
			log.Warnf("Failed to marshal audit metadata: %v", err)
			metadataJSON = []byte("{}")
		}
	}

	query := `
	INSERT INTO decisions (
		timestamp, decision_id, request_id, tenant_id, session_id,
		intent, intent_confidence, engine_consensus, primary_domain,
		escalation_required, escalation_type, priority, fallback,
		processing_time_ms, metadata
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query,
		record.Timestamp.UTC(),
		record.DecisionID,
		record.RequestID,
		record.TenantID,
		record.SessionID,
		record.Intent,
		record.IntentConfidence,
		record.EngineConsensus,
		record.PrimaryDomain,
		boolToInt(record.EscalationRequired),
		record.EscalationType,
		record.Priority,
		boolToInt(record.Fallback),
		record.ProcessingTimeMs,
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// GetRecent retrieves the most recent decision records, newest first. An
// empty tenantID returns records of every tenant.
func (c *Collector) GetRecent(ctx context.Context, tenantID string, limit int) ([]*DecisionRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, ErrNotEnabled
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT id, timestamp, decision_id, request_id, tenant_id, session_id,
	       intent, intent_confidence, engine_consensus, primary_domain,
	       escalation_required, escalation_type, priority, fallback,
	       processing_time_ms, metadata
	FROM decisions
	WHERE (? = '' OR tenant_id = ?)
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	rows, err := c.db.QueryContext(ctx, query, tenantID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	records := make([]*DecisionRecord, 0)
	for rows.Next() {
		record, err := scanDecisionRecord(rows)
		if err != nil {
			log.Warnf("Failed to scan decision record: %v", err)
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision records: %w", err)
	}
	return records, nil
}

// GetStats returns aggregated statistics about the audit trail.
func (c *Collector) GetStats(ctx context.Context) (*Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, ErrNotEnabled
	}

	stats := &Stats{}
	var escalations, fallbacks int64
	err := c.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COALESCE(SUM(escalation_required), 0),
	       COALESCE(SUM(fallback), 0),
	       COALESCE(AVG(processing_time_ms), 0)
	FROM decisions`).Scan(&stats.TotalDecisions, &escalations, &fallbacks, &stats.AvgProcessingMs)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}
	if stats.TotalDecisions > 0 {
		stats.EscalationRate = float64(escalations) / float64(stats.TotalDecisions)
		stats.FallbackRate = float64(fallbacks) / float64(stats.TotalDecisions)
	}

	if stats.IntentDistribution, err = c.distribution(ctx, "SELECT intent, COUNT(*) FROM decisions GROUP BY intent"); err != nil {
		return nil, fmt.Errorf("failed to get intent distribution: %w", err)
	}
	if stats.DomainDistribution, err = c.distribution(ctx, "SELECT primary_domain, COUNT(*) FROM decisions GROUP BY primary_domain"); err != nil {
		return nil, fmt.Errorf("failed to get domain distribution: %w", err)
	}
	if stats.EscalationTypes, err = c.distribution(ctx, "SELECT escalation_type, COUNT(*) FROM decisions WHERE escalation_required = 1 GROUP BY escalation_type"); err != nil {
		return nil, fmt.Errorf("failed to get escalation types: %w", err)
	}
	return stats, nil
}

func (c *Collector) distribution(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			continue
		}
		dist[key] = count
	}
	return dist, rows.Err()
}

// Cleanup removes records older than the retention period and reports how
// many were deleted.
func (c *Collector) Cleanup(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return 0, ErrNotEnabled
	}

	cutoff := c.now().AddDate(0, 0, -c.retentionDays).UTC()
	result, err := c.db.ExecContext(ctx, "DELETE FROM decisions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old decisions: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if removed > 0 {
		log.Infof("Cleaned up %d old audit records (older than %d days)", removed, c.retentionDays)
	}
	return removed, nil
}

// Subscribe records every routing_decision event published on bus.
func (c *Collector) Subscribe(bus *hooks.EventBus) *hooks.Subscription {
	return bus.Subscribe(hooks.EventRoutingDecision, func(evt *hooks.EventContext) {
		decision, ok := evt.Data["decision"].(*types.RoutingDecision)
		if !ok || decision == nil {
			return
		}
		intent, _ := evt.Data["intent"].(*types.Intent)

		rec := NewRecord(intent, decision, nil)
		rec.TenantID = evt.TenantID
		rec.SessionID = evt.SessionID
		if rec.RequestID == "" {
			rec.RequestID = evt.RequestID
		}
		if !evt.Timestamp.IsZero() {
			rec.Timestamp = evt.Timestamp
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Record(ctx, rec); err != nil && !errors.Is(err, ErrNotEnabled) {
			log.WithField("decision_id", rec.DecisionID).Warnf("Failed to audit routing decision: %v", err)
		}
	})
}

// Shutdown runs a final cleanup and closes the database connection.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c.IsEnabled() {
		if _, err := c.Cleanup(ctx); err != nil {
			log.Warnf("Final audit cleanup failed: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	c.enabled = false
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	log.Info("Audit collector shut down")
	return nil
}

func scanDecisionRecord(rows *sql.Rows) (*DecisionRecord, error) {
	var record DecisionRecord
	var escalationInt, fallbackInt int
	var requestID, tenantID, sessionID, metadataJSON sql.NullString

	err := rows.Scan(
		&record.ID,
		&record.Timestamp,
		&record.DecisionID,
		&requestID,
		&tenantID,
		&sessionID,
		&record.Intent,
		&record.IntentConfidence,
		&record.EngineConsensus,
		&record.PrimaryDomain,
		&escalationInt,
		&record.EscalationType,
		&record.Priority,
		&fallbackInt,
		&record.ProcessingTimeMs,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	record.RequestID = requestID.String
	record.TenantID = tenantID.String
	record.SessionID = sessionID.String
	record.EscalationRequired = escalationInt == 1
	record.Fallback = fallbackInt == 1

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &record.Metadata); err != nil {
			log.Warnf("Failed to unmarshal audit metadata: %v", err)
		}
	}
	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
