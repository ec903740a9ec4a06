package saga

import (
	"context"
	"time"
)

// StateStore is the single source of truth for saga progress. Implementations must isolate
// correlation ids from each other without a store-wide lock.
type StateStore interface {
	// Create fails with ErrAlreadyExists when the correlation id is taken
	Create(ctx context.Context, correlationID, definition string, payload BookingPayload) (*Transaction, error)
	// Get fails with ErrNotFound
	Get(ctx context.Context, correlationID string) (*Transaction, error)
	// RecordStepResult appends the attempt; StepsCompleted grows only on SUCCESS
	RecordStepResult(ctx context.Context, correlationID string, result StepResult) error
	RecordCompensation(ctx context.Context, correlationID string, record CompensationRecord) error
	// SetStatus fails with ErrInvalidTransition on anything but a legal transition
	SetStatus(ctx context.Context, correlationID string, status Status) error
	// ListInFlight returns non-terminal correlation ids last updated before olderThan
	ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// ApplyStepResult mutates tx the way every store must when persisting a forward attempt
func ApplyStepResult(tx *Transaction, result StepResult, now time.Time) {
	tx.StepResults = append(tx.StepResults, result)
	if result.Outcome == OutcomeSuccess && !tx.HasCompleted(result.StepName) {
		tx.StepsCompleted = append(tx.StepsCompleted, result.StepName)
	}
	tx.UpdatedAt = now
}

// ApplyCompensation replaces or appends the compensation record of a completed step
func ApplyCompensation(tx *Transaction, record CompensationRecord, now time.Time) error {
	if !tx.HasCompleted(record.StepName) {
		return ErrStepNotCompleted
	}
	for i, c := range tx.Compensations {
		if c.StepName == record.StepName {
			tx.Compensations[i] = record
			tx.UpdatedAt = now
			return nil
		}
	}
	tx.Compensations = append(tx.Compensations, record)
	tx.UpdatedAt = now
	return nil
}

// ApplyStatus validates and applies a transition
func ApplyStatus(tx *Transaction, status Status, now time.Time) error {
	if !CanTransition(tx.Status, status) {
		return ErrInvalidTransition
	}
	tx.Status = status
	tx.UpdatedAt = now
	return nil
}
