package application

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/saga"
	"github.com/draftea/flight-booking/shared/telemetry"
)

// InFlightLister finds sagas that stopped before reaching a terminal status
type InFlightLister interface {
	ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

type RecoveryOptions struct {
	// StaleAfter is how long a saga must sit untouched before it is resumed
	StaleAfter  time.Duration
	BatchSize   int
	Parallelism int
}

func DefaultRecoveryOptions() RecoveryOptions {
	return RecoveryOptions{
		StaleAfter:  5 * time.Minute,
		BatchSize:   100,
		Parallelism: 4,
	}
}

type RecoveryReport struct {
	Found     int `json:"found"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// Skipped sagas were being driven by another orchestrator
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// RecoverSagas resumes abandoned sagas, e.g. after a crash mid-compensation
type RecoverSagas struct {
	runner  SagaRunner
	store   InFlightLister
	options RecoveryOptions
	logger  zerolog.Logger
	now     func() time.Time
}

func NewRecoverSagas(runner SagaRunner, store InFlightLister, options RecoveryOptions, log zerolog.Logger) *RecoverSagas {
	if options.Parallelism <= 0 {
		options.Parallelism = 1
	}
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultRecoveryOptions().BatchSize
	}
	return &RecoverSagas{
		runner:  runner,
		store:   store,
		options: options,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Execute resumes one batch. A saga that fails to resume is logged and left for the next run.
func (uc *RecoverSagas) Execute(ctx context.Context) (*RecoveryReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.recover")
	defer span.End()

	ids, err := uc.store.ListInFlight(ctx, uc.now().Add(-uc.options.StaleAfter), uc.options.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list in-flight sagas")
	}
	telemetry.RecordGauge(ctx, "saga_stale_inflight", "Stale unfinished sagas found by the last recovery run", float64(len(ids)))
	span.SetAttributes(attribute.Int("saga.recover.found", len(ids)))

	report := &RecoveryReport{Found: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	var completed, failed, skipped, errs atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.options.Parallelism)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			log := logger.WithCorrelationID(uc.logger, id)
			res, err := uc.runner.Resume(gctx, id)
			if errors.Is(err, saga.ErrLeaseHeld) {
				skipped.Add(1)
				log.Debug().Msg("saga is driven elsewhere, skipping")
				return nil
			}
			if err != nil {
				errs.Add(1)
				log.Error().Err(err).Msg("failed to resume saga")
				return nil
			}
			if res.Success {
				completed.Add(1)
			} else {
				failed.Add(1)
			}
			log.Info().Str("status", string(res.Status)).Msg("saga recovered")
			return nil
		})
	}
	_ = g.Wait()

	report.Completed = int(completed.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())
	report.Errors = int(errs.Load())

	telemetry.RecordCounter(ctx, "saga_recoveries_total", "Sagas resumed by the recovery job", int64(report.Completed+report.Failed),
		attribute.String("result", "resumed"))
	if report.Skipped > 0 {
		telemetry.RecordCounter(ctx, "saga_recoveries_total", "Sagas resumed by the recovery job", int64(report.Skipped),
			attribute.String("result", "skipped"))
	}
	if report.Errors > 0 {
		telemetry.RecordCounter(ctx, "saga_recoveries_total", "Sagas resumed by the recovery job", int64(report.Errors),
			attribute.String("result", "error"))
	}

	uc.logger.Info().
		Int("found", report.Found).
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("errors", report.Errors).
		Msg("recovery run finished")
	return report, nil
}
