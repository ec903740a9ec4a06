package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/saga"
)

// GetSagaStatusQuery represents the query to get a saga
type GetSagaStatusQuery struct {
	CorrelationID string `json:"correlation_id"`
}

// GetSagaStatusResponse is the stored transaction plus the result derived from it
type GetSagaStatusResponse struct {
	CorrelationID  string                    `json:"correlation_id"`
	Definition     string                    `json:"definition"`
	Status         saga.Status               `json:"status"`
	StepsCompleted []string                  `json:"steps_completed"`
	StepResults    []saga.StepResult         `json:"step_results"`
	Compensations  []saga.CompensationRecord `json:"compensations"`
	BookingData    saga.BookingPayload       `json:"booking_data"`
	Result         *saga.Result              `json:"result"`
	CreatedAt      string                    `json:"created_at"`
	UpdatedAt      string                    `json:"updated_at"`
}

// GetSagaStatus use case
type GetSagaStatus struct {
	runner SagaRunner
}

func NewGetSagaStatus(runner SagaRunner) *GetSagaStatus {
	return &GetSagaStatus{runner: runner}
}

// Execute returns saga.ErrNotFound for unknown correlation ids
func (uc *GetSagaStatus) Execute(ctx context.Context, query *GetSagaStatusQuery) (*GetSagaStatusResponse, error) {
	if query.CorrelationID == "" {
		return nil, saga.NewError(saga.CodeValidation, "", errors.New("correlation id is required"))
	}

	tx, err := uc.runner.Status(ctx, query.CorrelationID)
	if err != nil {
		return nil, err
	}

	return &GetSagaStatusResponse{
		CorrelationID:  tx.CorrelationID,
		Definition:     tx.Definition,
		Status:         tx.Status,
		StepsCompleted: tx.StepsCompleted,
		StepResults:    tx.StepResults,
		Compensations:  tx.Compensations,
		BookingData:    tx.Payload,
		Result:         saga.ResultFrom(tx),
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      tx.UpdatedAt.Format(time.RFC3339),
	}, nil
}
