package infrastructure

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/saga"
)

var (
	_ saga.StateStore = (*PostgresSagaStore)(nil)
	_ saga.Leaser     = (*PostgresSagaStore)(nil)
)

// PostgresSagaStore implements saga.StateStore using PostgreSQL. Every mutation locks the
// transaction row, so sagas never contend with each other.
type PostgresSagaStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresSagaStore creates a new PostgresSagaStore
func NewPostgresSagaStore(db *sqlx.DB) *PostgresSagaStore {
	return &PostgresSagaStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// transactionRow represents a saga transaction in database
type transactionRow struct {
	CorrelationID  string         `db:"correlation_id"`
	Definition     string         `db:"definition"`
	Status         string         `db:"status"`
	BookingPayload []byte         `db:"booking_payload"`
	StepsCompleted pq.StringArray `db:"steps_completed"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type stepResultRow struct {
	CorrelationID   string    `db:"correlation_id"`
	StepName        string    `db:"step_name"`
	Attempt         int       `db:"attempt"`
	Outcome         string    `db:"outcome"`
	Detail          string    `db:"detail"`
	ResponsePayload []byte    `db:"response_payload"`
	ExecutedAt      time.Time `db:"executed_at"`
}

type compensationRow struct {
	CorrelationID string    `db:"correlation_id"`
	StepName      string    `db:"step_name"`
	Outcome       string    `db:"outcome"`
	Attempts      int       `db:"attempts"`
	Detail        string    `db:"detail"`
	ExecutedAt    time.Time `db:"executed_at"`
}

// Create inserts a new transaction in STARTED
func (s *PostgresSagaStore) Create(ctx context.Context, correlationID, definition string, payload saga.BookingPayload) (*saga.Transaction, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal booking payload")
	}

	now := s.now()
	row := transactionRow{
		CorrelationID:  correlationID,
		Definition:     definition,
		Status:         string(saga.StatusStarted),
		BookingPayload: data,
		StepsCompleted: pq.StringArray{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO saga_transactions (
			correlation_id, definition, status, booking_payload, steps_completed, created_at, updated_at
		) VALUES (
			:correlation_id, :definition, :status, :booking_payload, :steps_completed, :created_at, :updated_at
		)
		ON CONFLICT (correlation_id) DO NOTHING`

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert saga transaction")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return nil, saga.ErrAlreadyExists
	}

	return &saga.Transaction{
		CorrelationID:  correlationID,
		Definition:     definition,
		Status:         saga.StatusStarted,
		Payload:        payload,
		StepsCompleted: []string{},
		StepResults:    []saga.StepResult{},
		Compensations:  []saga.CompensationRecord{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Get loads a transaction with its step results and compensations
func (s *PostgresSagaStore) Get(ctx context.Context, correlationID string) (*saga.Transaction, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT correlation_id, definition, status, booking_payload, steps_completed, created_at, updated_at
		FROM saga_transactions
		WHERE correlation_id = $1`, correlationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saga transaction")
	}

	var results []stepResultRow
	err = s.db.SelectContext(ctx, &results, `
		SELECT correlation_id, step_name, attempt, outcome, detail, response_payload, executed_at
		FROM saga_step_results
		WHERE correlation_id = $1
		ORDER BY id ASC`, correlationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saga step results")
	}

	var compensations []compensationRow
	err = s.db.SelectContext(ctx, &compensations, `
		SELECT correlation_id, step_name, outcome, attempts, detail, executed_at
		FROM saga_compensations
		WHERE correlation_id = $1
		ORDER BY seq ASC`, correlationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saga compensations")
	}

	return toTransaction(&row, results, compensations)
}

// RecordStepResult appends a forward attempt
func (s *PostgresSagaStore) RecordStepResult(ctx context.Context, correlationID string, result saga.StepResult) error {
	return s.withLockedRow(ctx, correlationID, func(tx *sqlx.Tx, row *transactionRow) error {
		insert := `
			INSERT INTO saga_step_results (
				correlation_id, step_name, attempt, outcome, detail, response_payload, executed_at
			) VALUES (
				:correlation_id, :step_name, :attempt, :outcome, :detail, :response_payload, :executed_at
			)`
		if _, err := tx.NamedExecContext(ctx, insert, stepResultRow{
			CorrelationID:   correlationID,
			StepName:        result.StepName,
			Attempt:         result.Attempt,
			Outcome:         string(result.Outcome),
			Detail:          result.Detail,
			ResponsePayload: nullableJSON(result.ResponsePayload),
			ExecutedAt:      result.ExecutedAt,
		}); err != nil {
			return errors.Wrap(err, "failed to insert step result")
		}

		steps := row.StepsCompleted
		if result.Outcome == saga.OutcomeSuccess && !contains(steps, result.StepName) {
			steps = append(steps, result.StepName)
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE saga_transactions SET steps_completed = $2, updated_at = $3 WHERE correlation_id = $1`,
			correlationID, steps, s.now())
		return errors.Wrap(err, "failed to update completed steps")
	})
}

// RecordCompensation upserts the compensation outcome of a completed step
func (s *PostgresSagaStore) RecordCompensation(ctx context.Context, correlationID string, record saga.CompensationRecord) error {
	return s.withLockedRow(ctx, correlationID, func(tx *sqlx.Tx, row *transactionRow) error {
		if !contains(row.StepsCompleted, record.StepName) {
			return saga.ErrStepNotCompleted
		}

		upsert := `
			INSERT INTO saga_compensations (
				correlation_id, step_name, outcome, attempts, detail, executed_at
			) VALUES (
				:correlation_id, :step_name, :outcome, :attempts, :detail, :executed_at
			)
			ON CONFLICT (correlation_id, step_name) DO UPDATE SET
				outcome = EXCLUDED.outcome,
				attempts = EXCLUDED.attempts,
				detail = EXCLUDED.detail,
				executed_at = EXCLUDED.executed_at`
		if _, err := tx.NamedExecContext(ctx, upsert, compensationRow{
			CorrelationID: correlationID,
			StepName:      record.StepName,
			Outcome:       string(record.Outcome),
			Attempts:      record.Attempts,
			Detail:        record.Detail,
			ExecutedAt:    record.ExecutedAt,
		}); err != nil {
			return errors.Wrap(err, "failed to upsert compensation")
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE saga_transactions SET updated_at = $2 WHERE correlation_id = $1`,
			correlationID, s.now())
		return errors.Wrap(err, "failed to touch saga transaction")
	})
}

// SetStatus applies a legal status transition
func (s *PostgresSagaStore) SetStatus(ctx context.Context, correlationID string, status saga.Status) error {
	return s.withLockedRow(ctx, correlationID, func(tx *sqlx.Tx, row *transactionRow) error {
		if !saga.CanTransition(saga.Status(row.Status), status) {
			return saga.ErrInvalidTransition
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE saga_transactions SET status = $2, updated_at = $3 WHERE correlation_id = $1`,
			correlationID, string(status), s.now())
		return errors.Wrap(err, "failed to update saga status")
	})
}

// ListInFlight returns unfinished sagas idle since before olderThan, oldest first
func (s *PostgresSagaStore) ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	inFlight := []string{
		string(saga.StatusStarted),
		string(saga.StatusInProgress),
		string(saga.StatusCompensating),
	}

	query := `
		SELECT correlation_id
		FROM saga_transactions
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC`
	args := []interface{}{pq.Array(inFlight), olderThan}
	if limit > 0 {
		query += `
		LIMIT $3`
		args = append(args, limit)
	}

	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list in-flight sagas")
	}
	return ids, nil
}

// AcquireLease takes a session advisory lock keyed by the correlation id. The lock lives on a
// dedicated connection, so it disappears with the connection if this process dies.
func (s *PostgresSagaStore) AcquireLease(ctx context.Context, correlationID string) (func(), error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get connection for saga lease")
	}

	var locked bool
	if err := conn.QueryRowxContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, correlationID).Scan(&locked); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to take saga lease")
	}
	if !locked {
		conn.Close()
		return nil, saga.ErrLeaseHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_, err := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtext($1))`, correlationID)
			if err != nil {
				// never hand a connection that may still hold the lock back to the pool
				_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			}
			conn.Close()
		})
	}, nil
}

// withLockedRow runs fn in a database transaction holding the saga row lock
func (s *PostgresSagaStore) withLockedRow(ctx context.Context, correlationID string, fn func(tx *sqlx.Tx, row *transactionRow) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var row transactionRow
	err = tx.GetContext(ctx, &row, `
		SELECT correlation_id, definition, status, booking_payload, steps_completed, created_at, updated_at
		FROM saga_transactions
		WHERE correlation_id = $1
		FOR UPDATE`, correlationID)
	if errors.Is(err, sql.ErrNoRows) {
		return saga.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to lock saga transaction")
	}

	if err := fn(tx, &row); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func toTransaction(row *transactionRow, results []stepResultRow, compensations []compensationRow) (*saga.Transaction, error) {
	var payload saga.BookingPayload
	if err := json.Unmarshal(row.BookingPayload, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal booking payload")
	}

	tx := &saga.Transaction{
		CorrelationID:  row.CorrelationID,
		Definition:     row.Definition,
		Status:         saga.Status(row.Status),
		Payload:        payload,
		StepsCompleted: append([]string{}, row.StepsCompleted...),
		StepResults:    make([]saga.StepResult, 0, len(results)),
		Compensations:  make([]saga.CompensationRecord, 0, len(compensations)),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}

	for _, r := range results {
		tx.StepResults = append(tx.StepResults, saga.StepResult{
			StepName:        r.StepName,
			Attempt:         r.Attempt,
			Outcome:         saga.StepOutcome(r.Outcome),
			Detail:          r.Detail,
			ResponsePayload: json.RawMessage(r.ResponsePayload),
			ExecutedAt:      r.ExecutedAt,
		})
	}
	for _, c := range compensations {
		tx.Compensations = append(tx.Compensations, saga.CompensationRecord{
			StepName:   c.StepName,
			Outcome:    saga.StepOutcome(c.Outcome),
			Attempts:   c.Attempts,
			Detail:     c.Detail,
			ExecutedAt: c.ExecutedAt,
		})
	}
	return tx, nil
}

// nullableJSON keeps empty or invalid payloads out of the JSONB column
func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
