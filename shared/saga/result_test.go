package saga

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultFrom(t *testing.T) {
	tests := []struct {
		name     string
		tx       *Transaction
		expected *Result
	}{
		{
			name: "completed",
			tx: &Transaction{
				CorrelationID:  "c1",
				Status:         StatusCompleted,
				StepsCompleted: []string{StepReserveSeat, StepConfirmBooking},
				StepResults: []StepResult{
					{StepName: StepReserveSeat, Outcome: OutcomeSuccess, ResponsePayload: json.RawMessage(`{"success":true,"seat_numbers":["1A"]}`)},
					{StepName: StepConfirmBooking, Outcome: OutcomeSuccess, ResponsePayload: json.RawMessage(`{"success":true,"booking_reference":"ABC123"}`)},
				},
			},
			expected: &Result{
				Success:          true,
				Status:           StatusCompleted,
				CorrelationID:    "c1",
				BookingReference: "ABC123",
				StepsCompleted:   []string{StepReserveSeat, StepConfirmBooking},
				Message:          MessageConfirmed,
			},
		},
		{
			name: "rolled back after timeout",
			tx: &Transaction{
				CorrelationID:  "c2",
				Status:         StatusRolledBack,
				StepsCompleted: []string{StepReserveSeat},
				StepResults: []StepResult{
					{StepName: StepReserveSeat, Outcome: OutcomeSuccess},
					{StepName: StepAuthorizePayment, Outcome: OutcomeTimeout, Detail: "deadline exceeded"},
				},
				Compensations: []CompensationRecord{{StepName: StepReserveSeat, Outcome: OutcomeSuccess, Attempts: 1}},
			},
			expected: &Result{
				Status:        StatusRolledBack,
				CorrelationID: "c2",
				FailedStep:    StepAuthorizePayment,
				Error:         "deadline exceeded",
				ErrorCode:     CodeStepTimeout,
				CompensationSummary: &CompensationSummary{
					Total:      1,
					Successful: 1,
					Results:    []CompensationRecord{{StepName: StepReserveSeat, Outcome: OutcomeSuccess, Attempts: 1}},
				},
				Message: MessageRolledBack,
			},
		},
		{
			name: "rollback incomplete",
			tx: &Transaction{
				CorrelationID:  "c3",
				Status:         StatusFailed,
				StepsCompleted: []string{StepReserveSeat},
				StepResults: []StepResult{
					{StepName: StepReserveSeat, Outcome: OutcomeSuccess},
					{StepName: StepAuthorizePayment, Outcome: OutcomeFailure, Detail: "card declined"},
				},
				Compensations: []CompensationRecord{{StepName: StepReserveSeat, Outcome: OutcomeError, Attempts: 3, Detail: "inventory down"}},
			},
			expected: &Result{
				Status:        StatusFailed,
				CorrelationID: "c3",
				FailedStep:    StepAuthorizePayment,
				Error:         "card declined; compensation of ReserveSeat failed after 3 attempts: inventory down",
				ErrorCode:     CodeCompensationFailure,
				CompensationSummary: &CompensationSummary{
					Total:   1,
					Failed:  1,
					Results: []CompensationRecord{{StepName: StepReserveSeat, Outcome: OutcomeError, Attempts: 3, Detail: "inventory down"}},
				},
				Message: MessageIncomplete,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResultFrom(tt.tx))
		})
	}
}
