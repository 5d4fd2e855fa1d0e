// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*DuckDBStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDuckDBStore(db), mock
}

var eventColumns = []string{
	"id", "tenant_id", "user_id", "event_type", "event_action",
	"resource", "action", "decision", "policy_version",
	"target_entity_type", "target_entity_id", "old_value", "new_value",
	"ip_address", "user_agent", "request_id", "created_at",
}

func TestDuckDBStore_CreateTable(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS authz_audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < 4; i++ {
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_authz_audit_").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.CreateTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_CreateTableError(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS authz_audit_events").WillReturnError(errors.New("read-only database"))

	err := store.CreateTable(context.Background())
	assert.ErrorContains(t, err, "failed to execute schema statement")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_SaveBatch(t *testing.T) {
	store, mock := setupMockDB(t)

	deny := testEvent("e1", "acme", "alice", DecisionDeny, 0)
	deny.IPAddress = "10.0.0.1"
	change := Event{
		ID:               "e2",
		TenantID:         "acme",
		UserID:           "root",
		EventType:        EventTypePolicyChange,
		EventAction:      ActionAddPermission,
		TargetEntityType: "permission",
		TargetEntityID:   "admin",
		NewValue:         MarshalValue(map[string]string{"resource": "/users"}),
		CreatedAt:        baseTime,
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO authz_audit_events"))
	prep.ExpectExec().
		WithArgs("e1", "acme", "alice", "authorization", "check",
			"/orders", "read", "deny", int64(1),
			nil, nil, nil, nil,
			"10.0.0.1", nil, nil, baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("e2", "acme", "root", "policy_change", "add_permission",
			nil, nil, nil, nil,
			"permission", "admin", nil, `{"resource":"/users"}`,
			nil, nil, nil, baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveBatch(context.Background(), []Event{deny, change}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_SaveBatchEmpty(t *testing.T) {
	store, mock := setupMockDB(t)
	require.NoError(t, store.SaveBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_SaveBatchRollsBack(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO authz_audit_events"))
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := store.SaveBatch(context.Background(), []Event{testEvent("e1", "acme", "alice", DecisionDeny, 0)})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_Query(t *testing.T) {
	store, mock := setupMockDB(t)
	from := baseTime.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM authz_audit_events WHERE tenant_id = ? AND decision = ? AND created_at >= ?")).
		WithArgs("acme", "deny", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	rows := sqlmock.NewRows(eventColumns).
		AddRow("e2", "acme", "bob", "authorization", "check", "/orders", "read", "deny", int64(4),
			nil, nil, nil, nil, "10.0.0.2", "curl/8", "req-2", baseTime.Add(time.Minute)).
		AddRow("e1", "acme", "alice", "authorization", "check", "/orders", "read", "deny", int64(3),
			nil, nil, nil, nil, nil, nil, nil, baseTime)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs("acme", "deny", from, 5, 5).
		WillReturnRows(rows)

	events, total, err := store.Query(context.Background(), Filter{
		TenantID: "acme",
		Decision: DecisionDeny,
		From:     &from,
		Page:     2,
		PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, DecisionDeny, events[0].Decision)
	assert.Equal(t, int64(4), events[0].PolicyVersion)
	assert.Equal(t, "curl/8", events[0].UserAgent)
	assert.Empty(t, events[1].IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_QueryRequiresTenant(t *testing.T) {
	store, mock := setupMockDB(t)
	_, _, err := store.Query(context.Background(), Filter{UserID: "alice"})
	assert.ErrorIs(t, err, ErrTenantRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_Get(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = ? AND id = ?")).
		WithArgs("acme", "e9").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e9", "acme", "root", "role_assignment", "assign_role", nil, nil, nil, nil,
				"grouping", "bob", `[]`, `["admin"]`, nil, nil, nil, baseTime))

	event, err := store.Get(context.Background(), "acme", "e9")
	require.NoError(t, err)
	assert.Equal(t, EventTypeRoleAssignment, event.EventType)
	assert.JSONEq(t, `["admin"]`, string(event.NewValue))
	assert.JSONEq(t, `[]`, string(event.OldValue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_GetNotFound(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = ? AND id = ?")).
		WithArgs("beta", "e9").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "beta", "e9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_DeleteBefore(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authz_audit_events WHERE created_at < ?")).
		WithArgs(baseTime).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := store.DeleteBefore(context.Background(), baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
