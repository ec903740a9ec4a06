// Package saga coordinates a booking across independently owned services.
//
// A saga is an ordered list of steps, each pairing a forward action with a compensating
// action. The Orchestrator runs the steps strictly in order against a StateStore and, when
// a step fails, compensates every completed step in reverse completion order.
package saga

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a saga transaction
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
	StatusRolledBack   Status = "ROLLED_BACK"
)

var transitions = map[Status][]Status{
	StatusStarted:      {StatusInProgress},
	StatusInProgress:   {StatusCompleted, StatusCompensating},
	StatusCompensating: {StatusRolledBack, StatusFailed},
}

// CanTransition reports whether a saga may move from one status to another
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRolledBack || s == StatusFailed
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusStarted, StatusInProgress, StatusCompleted, StatusCompensating, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

// StepOutcome is the normalized outcome of a single forward or compensating attempt
type StepOutcome string

const (
	OutcomeSuccess StepOutcome = "SUCCESS"
	OutcomeFailure StepOutcome = "FAILURE"
	OutcomeTimeout StepOutcome = "TIMEOUT"
	OutcomeError   StepOutcome = "ERROR"
)

// Transaction is the persisted record of one booking attempt
type Transaction struct {
	CorrelationID  string               `json:"correlation_id"`
	Definition     string               `json:"definition"`
	Status         Status               `json:"status"`
	Payload        BookingPayload       `json:"booking_payload"`
	StepsCompleted []string             `json:"steps_completed"`
	StepResults    []StepResult         `json:"step_results"`
	Compensations  []CompensationRecord `json:"compensations"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// StepResult records one forward attempt of a step
type StepResult struct {
	StepName        string          `json:"step_name"`
	Attempt         int             `json:"attempt"`
	Outcome         StepOutcome     `json:"attempt_outcome"`
	Detail          string          `json:"detail,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// CompensationRecord records the final outcome of compensating one completed step
type CompensationRecord struct {
	StepName   string      `json:"step_name"`
	Outcome    StepOutcome `json:"compensation_outcome"`
	Attempts   int         `json:"attempts"`
	Detail     string      `json:"detail,omitempty"`
	ExecutedAt time.Time   `json:"executed_at"`
}

// HasCompleted reports whether the forward action of step returned SUCCESS
func (t *Transaction) HasCompleted(step string) bool {
	for _, name := range t.StepsCompleted {
		if name == step {
			return true
		}
	}
	return false
}

// CompensationFor returns the compensation record of step, if any
func (t *Transaction) CompensationFor(step string) (CompensationRecord, bool) {
	for _, c := range t.Compensations {
		if c.StepName == step {
			return c, true
		}
	}
	return CompensationRecord{}, false
}

// LastStepResult returns the most recent forward attempt
func (t *Transaction) LastStepResult() (StepResult, bool) {
	if len(t.StepResults) == 0 {
		return StepResult{}, false
	}
	return t.StepResults[len(t.StepResults)-1], true
}

// Clone returns a deep copy so callers never share slices with a store
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.Payload = t.Payload.clone()
	c.StepsCompleted = append([]string{}, t.StepsCompleted...)
	c.StepResults = make([]StepResult, len(t.StepResults))
	for i, r := range t.StepResults {
		r.ResponsePayload = append(json.RawMessage(nil), r.ResponsePayload...)
		c.StepResults[i] = r
	}
	c.Compensations = append([]CompensationRecord{}, t.Compensations...)
	return &c
}
