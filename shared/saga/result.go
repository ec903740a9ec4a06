package saga

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result messages shown to the caller
const (
	MessageConfirmed  = "booking confirmed"
	MessageRolledBack = "booking failed and fully rolled back"
	MessageIncomplete = "booking failed, rollback incomplete, contact support"
	MessageInProgress = "booking in progress"
)

// Result is the structured outcome of a booking saga
type Result struct {
	Success             bool                 `json:"success"`
	Status              Status               `json:"status"`
	CorrelationID       string               `json:"correlation_id"`
	BookingReference    string               `json:"booking_reference,omitempty"`
	StepsCompleted      []string             `json:"steps_completed,omitempty"`
	FailedStep          string               `json:"failed_step,omitempty"`
	Error               string               `json:"error,omitempty"`
	ErrorCode           Code                 `json:"error_code,omitempty"`
	CompensationSummary *CompensationSummary `json:"compensation_summary,omitempty"`
	Message             string               `json:"message"`
}

// CompensationSummary aggregates the compensation sweep of a failed saga
type CompensationSummary struct {
	Total      int                  `json:"total"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Results    []CompensationRecord `json:"results"`
}

type bookingReferenceReply struct {
	BookingReference string `json:"booking_reference"`
}

// ResultFrom derives the caller facing result from a stored transaction. It reads nothing
// else, so replaying a terminal saga always yields the same result.
func ResultFrom(tx *Transaction) *Result {
	res := &Result{
		Status:        tx.Status,
		CorrelationID: tx.CorrelationID,
	}

	switch tx.Status {
	case StatusCompleted:
		res.Success = true
		res.StepsCompleted = append([]string(nil), tx.StepsCompleted...)
		res.BookingReference = bookingReference(tx)
		res.Message = MessageConfirmed
		return res
	case StatusRolledBack, StatusFailed, StatusCompensating:
		res.CompensationSummary = summarize(tx.Compensations)
		if failed, ok := failedAttempt(tx); ok {
			res.FailedStep = failed.StepName
			res.Error = failed.Detail
			res.ErrorCode = codeForOutcome(failed.Outcome)
		}
	}

	switch tx.Status {
	case StatusRolledBack:
		res.Message = MessageRolledBack
	case StatusFailed:
		res.ErrorCode = CodeCompensationFailure
		res.Error = compensationError(res.Error, tx.Compensations)
		res.Message = MessageIncomplete
	default:
		res.StepsCompleted = append([]string(nil), tx.StepsCompleted...)
		res.Message = MessageInProgress
	}
	return res
}

func bookingReference(tx *Transaction) string {
	ref := ""
	for _, r := range tx.StepResults {
		if r.Outcome != OutcomeSuccess || len(r.ResponsePayload) == 0 {
			continue
		}
		var reply bookingReferenceReply
		if err := json.Unmarshal(r.ResponsePayload, &reply); err == nil && reply.BookingReference != "" {
			ref = reply.BookingReference
		}
	}
	return ref
}

// failedAttempt is the attempt that stopped forward progress
func failedAttempt(tx *Transaction) (StepResult, bool) {
	last, ok := tx.LastStepResult()
	if !ok || last.Outcome == OutcomeSuccess {
		return StepResult{}, false
	}
	return last, true
}

func summarize(records []CompensationRecord) *CompensationSummary {
	summary := &CompensationSummary{
		Total:   len(records),
		Results: append([]CompensationRecord{}, records...),
	}
	for _, r := range records {
		if r.Outcome == OutcomeSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func compensationError(forward string, records []CompensationRecord) string {
	var failures []string
	for _, r := range records {
		if r.Outcome != OutcomeSuccess {
			failures = append(failures, fmt.Sprintf("compensation of %s failed after %d attempts: %s", r.StepName, r.Attempts, r.Detail))
		}
	}
	if forward == "" {
		return strings.Join(failures, "; ")
	}
	return forward + "; " + strings.Join(failures, "; ")
}
