// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tenantguard/internal/logging"
)

// DuckDBStore implements Store using DuckDB for persistent storage.
type DuckDBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDuckDBStore creates a new DuckDB-backed audit store.
// Call CreateTable before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const schema = `
	CREATE TABLE IF NOT EXISTS authz_audit_events (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_action TEXT NOT NULL,

		-- Authorization decision
		resource TEXT,
		action TEXT,
		decision TEXT,
		policy_version BIGINT,

		-- Mutation target and state
		target_entity_type TEXT,
		target_entity_id TEXT,
		old_value JSON,
		new_value JSON,

		-- Request context
		ip_address TEXT,
		user_agent TEXT,
		request_id TEXT,

		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_authz_audit_tenant_created ON authz_audit_events(tenant_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_authz_audit_user ON authz_audit_events(user_id);
	CREATE INDEX IF NOT EXISTS idx_authz_audit_type ON authz_audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_authz_audit_decision ON authz_audit_events(decision);
`

// CreateTable creates the authz_audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("Audit events table created/verified")
	return nil
}

const insertQuery = `
	INSERT INTO authz_audit_events (
		id, tenant_id, user_id, event_type, event_action,
		resource, action, decision, policy_version,
		target_entity_type, target_entity_id, old_value, new_value,
		ip_address, user_agent, request_id, created_at
	) VALUES (
		?, ?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?, ?
	)
`

// SaveBatch persists events in a single transaction.
func (s *DuckDBStore) SaveBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrWriteFailed, err)
	}
	defer stmt.Close()

	for i := range events {
		if _, err := stmt.ExecContext(ctx, eventParams(&events[i])...); err != nil {
			return fmt.Errorf("%w: insert %s: %w", ErrWriteFailed, events[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrWriteFailed, err)
	}
	return nil
}

// eventParams prepares all parameters for event insertion.
func eventParams(e *Event) []interface{} {
	return []interface{}{
		e.ID,
		e.TenantID,
		e.UserID,
		string(e.EventType),
		e.EventAction,
		nullString(e.Resource),
		nullString(e.Action),
		nullString(string(e.Decision)),
		nullInt(e.PolicyVersion),
		nullString(e.TargetEntityType),
		nullString(e.TargetEntityID),
		rawJSON(e.OldValue),
		rawJSON(e.NewValue),
		nullString(e.IPAddress),
		nullString(e.UserAgent),
		nullString(e.RequestID),
		e.CreatedAt.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// rawJSON converts a raw value for the JSON column.
func rawJSON(v json.RawMessage) sql.NullString {
	if len(v) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(v), Valid: true}
}

// selectColumns casts JSON columns to VARCHAR for scanning.
const selectColumns = `
	SELECT
		id, tenant_id, user_id, event_type, event_action,
		resource, action, decision, policy_version,
		target_entity_type, target_entity_id,
		CAST(old_value AS VARCHAR) AS old_value,
		CAST(new_value AS VARCHAR) AS new_value,
		ip_address, user_agent, request_id, created_at
	FROM authz_audit_events
`

// Get retrieves one event of tenant by ID.
func (s *DuckDBStore) Get(ctx context.Context, tenantID, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE tenant_id = ? AND id = ?", tenantID, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

// Query retrieves one page of matching events, newest first, and the total count.
func (s *DuckDBStore) Query(ctx context.Context, filter Filter) ([]Event, int64, error) {
	if filter.TenantID == "" {
		return nil, 0, ErrTenantRequired
	}
	filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := buildFilterConditions(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM authz_audit_events WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	query := selectColumns + " WHERE " + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	pageArgs := append(append([]interface{}{}, args...), filter.PageSize, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, filter.PageSize)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to scan audit event row")
			continue
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, total, nil
}

// DeleteBefore removes events created before t.
func (s *DuckDBStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM authz_audit_events WHERE created_at < ?", t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}

// buildFilterConditions builds the WHERE clause from a Filter. The tenant
// condition is always first.
func buildFilterConditions(filter Filter) (string, []interface{}) {
	conditions := []string{"tenant_id = ?"}
	args := []interface{}{filter.TenantID}

	conditions, args = appendStringCondition(conditions, args, "user_id", filter.UserID)
	conditions, args = appendStringCondition(conditions, args, "event_type", string(filter.EventType))
	conditions, args = appendStringCondition(conditions, args, "decision", string(filter.Decision))

	if filter.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.To.UTC())
	}

	return strings.Join(conditions, " AND "), args
}

// appendStringCondition adds a string equality condition if value is non-empty.
func appendStringCondition(conditions []string, args []interface{}, column, value string) ([]string, []interface{}) {
	if value != "" {
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}
	return conditions, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent scans one row into an Event.
func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                               Event
		eventType                       string
		resource, action, decision      sql.NullString
		policyVersion                   sql.NullInt64
		targetType, targetID            sql.NullString
		oldValue, newValue              sql.NullString
		ipAddress, userAgent, requestID sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.TenantID, &e.UserID, &eventType, &e.EventAction,
		&resource, &action, &decision, &policyVersion,
		&targetType, &targetID, &oldValue, &newValue,
		&ipAddress, &userAgent, &requestID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EventType = EventType(eventType)
	e.Resource = resource.String
	e.Action = action.String
	e.Decision = Decision(decision.String)
	e.PolicyVersion = policyVersion.Int64
	e.TargetEntityType = targetType.String
	e.TargetEntityID = targetID.String
	if oldValue.Valid && oldValue.String != "" {
		e.OldValue = json.RawMessage(oldValue.String)
	}
	if newValue.Valid && newValue.String != "" {
		e.NewValue = json.RawMessage(newValue.String)
	}
	e.IPAddress = ipAddress.String
	e.UserAgent = userAgent.String
	e.RequestID = requestID.String
	return &e, nil
}
