package application

import (
	"context"

	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/saga"
)

type GetSagaLogsQuery struct {
	CorrelationID       string `json:"correlation_id"`
	IncludeCompensation bool   `json:"include_compensation"`
}

type GetSagaLogsResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Status        saga.Status       `json:"status"`
	Count         int               `json:"count"`
	Entries       []saga.AuditEntry `json:"entries"`
}

// GetSagaLogs returns the audit trail of one saga
type GetSagaLogs struct {
	runner SagaRunner
	audit  saga.AuditLog
}

func NewGetSagaLogs(runner SagaRunner, audit saga.AuditLog) *GetSagaLogs {
	return &GetSagaLogs{runner: runner, audit: audit}
}

func (uc *GetSagaLogs) Execute(ctx context.Context, query *GetSagaLogsQuery) (*GetSagaLogsResponse, error) {
	if query.CorrelationID == "" {
		return nil, saga.NewError(saga.CodeValidation, "", errors.New("correlation id is required"))
	}

	tx, err := uc.runner.Status(ctx, query.CorrelationID)
	if err != nil {
		return nil, err
	}

	entries, err := uc.audit.Query(ctx, query.CorrelationID, saga.AuditFilter{IncludeCompensation: query.IncludeCompensation})
	if err != nil {
		return nil, saga.NewError(saga.CodeStateStore, "", errors.Wrap(err, "failed to query audit log"))
	}

	return &GetSagaLogsResponse{
		CorrelationID: tx.CorrelationID,
		Status:        tx.Status,
		Count:         len(entries),
		Entries:       entries,
	}, nil
}
