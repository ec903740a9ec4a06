package infrastructure

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

var _ saga.AuditLog = (*PostgresAuditLog)(nil)

// PostgresAuditLog implements saga.AuditLog on the append-only saga_audit_log table
type PostgresAuditLog struct {
	db *sqlx.DB
}

func NewPostgresAuditLog(db *sqlx.DB) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

// Append inserts one entry
func (l *PostgresAuditLog) Append(ctx context.Context, entry saga.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = models.GenerateUUID().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO saga_audit_log (
			id, correlation_id, step_name, kind, outcome, attempt, service, level, message, created_at
		) VALUES (
			:id, :correlation_id, :step_name, :kind, :outcome, :attempt, :service, :level, :message, :created_at
		)`

	if _, err := l.db.NamedExecContext(ctx, query, entry); err != nil {
		return errors.Wrap(err, "failed to insert audit entry")
	}
	return nil
}

// Query returns the entries of a saga in append order
func (l *PostgresAuditLog) Query(ctx context.Context, correlationID string, filter saga.AuditFilter) ([]saga.AuditEntry, error) {
	query := `
		SELECT id, correlation_id, step_name, kind, outcome, attempt, service, level, message, created_at
		FROM saga_audit_log
		WHERE correlation_id = ?`
	args := []interface{}{correlationID}

	if !filter.IncludeCompensation {
		query += ` AND kind <> ?`
		args = append(args, string(saga.AuditCompensation))
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		in, inArgs, err := sqlx.In(` AND kind IN (?)`, kinds)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build kind filter")
		}
		query += in
		args = append(args, inArgs...)
	}
	query += ` ORDER BY seq ASC`

	entries := []saga.AuditEntry{}
	if err := l.db.SelectContext(ctx, &entries, l.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to query audit log")
	}
	return entries, nil
}
