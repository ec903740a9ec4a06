package infrastructure

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/shared/saga"
)

var auditColumns = []string{"id", "correlation_id", "step_name", "kind", "outcome", "attempt", "service", "level", "message", "created_at"}

func TestPostgresAuditLog_Append(t *testing.T) {
	db, mock := newMockDB(t)
	log := NewPostgresAuditLog(db)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO saga_audit_log").
		WithArgs("entry-1", "corr-1", "ReserveSeat", "FORWARD", "SUCCESS", 1, "saga-orchestrator", "INFO", "ReserveSeat SUCCESS", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := log.Append(context.Background(), saga.AuditEntry{
		ID:            "entry-1",
		CorrelationID: "corr-1",
		StepName:      "ReserveSeat",
		Kind:          saga.AuditForward,
		Outcome:       saga.OutcomeSuccess,
		Attempt:       1,
		Service:       "saga-orchestrator",
		Level:         saga.LevelInfo,
		Message:       "ReserveSeat SUCCESS",
		CreatedAt:     at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditLog_Query(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter saga.AuditFilter
		query  string
		args   []driver.Value
	}{
		{
			name:   "without compensation",
			filter: saga.AuditFilter{},
			query:  `WHERE correlation_id = \$1 AND kind <> \$2 ORDER BY seq ASC`,
			args:   []driver.Value{"corr-1", "COMPENSATION"},
		},
		{
			name:   "everything",
			filter: saga.AllEntries(),
			query:  `WHERE correlation_id = \$1 ORDER BY seq ASC`,
			args:   []driver.Value{"corr-1"},
		},
		{
			name:   "selected kinds",
			filter: saga.AuditFilter{IncludeCompensation: true, Kinds: []saga.AuditKind{saga.AuditForward, saga.AuditCompensation}},
			query:  `WHERE correlation_id = \$1 AND kind IN \(\$2, \$3\) ORDER BY seq ASC`,
			args:   []driver.Value{"corr-1", "FORWARD", "COMPENSATION"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			log := NewPostgresAuditLog(db)

			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(auditColumns).
					AddRow("e1", "corr-1", "", "LIFECYCLE", "", 0, "saga-orchestrator", "INFO", "saga created", at).
					AddRow("e2", "corr-1", "ReserveSeat", "FORWARD", "SUCCESS", 1, "saga-orchestrator", "INFO", "ReserveSeat SUCCESS", at))

			entries, err := log.Query(context.Background(), "corr-1", tt.filter)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, saga.AuditLifecycle, entries[0].Kind)
			assert.Equal(t, saga.OutcomeSuccess, entries[1].Outcome)
			assert.Equal(t, 1, entries[1].Attempt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
