package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/draftea/flight-booking/shared/events"
	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/telemetry"
)

const orchestratorService = "saga-orchestrator"

// Orchestrator drives one Definition against a StateStore. It is the only writer of
// transaction status.
type Orchestrator struct {
	def       Definition
	store     StateStore
	client    StepClient
	audit     AuditLog
	publisher events.Publisher
	logger    zerolog.Logger
	retry     CompensationRetry
	now       func() time.Time
	newID     func() string
	locks     *keyedLocker
	leaser    Leaser
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithAuditLog(audit AuditLog) Option {
	return func(o *Orchestrator) {
		if audit != nil {
			o.audit = audit
		}
	}
}

// WithPublisher publishes lifecycle events after each status change
func WithPublisher(publisher events.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

func WithCompensationRetry(retry CompensationRetry) Option {
	return func(o *Orchestrator) {
		o.retry = retry
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how correlation ids are minted when the caller supplies none
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// NewOrchestrator creates an orchestrator for def
func NewOrchestrator(def Definition, store StateStore, client StepClient, opts ...Option) (*Orchestrator, error) {
	if err := def.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid saga definition")
	}
	if store == nil {
		return nil, errors.New("saga state store is required")
	}
	if client == nil {
		return nil, errors.New("saga step client is required")
	}

	o := &Orchestrator{
		def:    def,
		store:  store,
		client: client,
		audit:  nopAuditLog{},
		logger: zerolog.Nop(),
		retry:  DefaultCompensationRetry(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return models.GenerateUUID().String() },
		locks:  newKeyedLocker(),
		leaser: leaserFor(store),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Definition returns the pipeline this orchestrator runs
func (o *Orchestrator) Definition() Definition {
	return o.def
}

// Start runs a booking saga. An empty correlationID gets a fresh one. Re-submitting a
// correlation id returns the stored result of a finished saga and resumes an unfinished one.
// Only VALIDATION_ERROR and STATE_STORE_ERROR are returned as errors; step failures end up
// in the Result.
func (o *Orchestrator) Start(ctx context.Context, payload BookingPayload, correlationID string) (*Result, error) {
	payload.Normalize()
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if correlationID == "" {
		correlationID = o.newID()
	}

	unlock := o.locks.Lock(correlationID)
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartSpan(ctx, "saga.start")
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.correlation_id", correlationID),
		attribute.String("saga.definition", o.def.Name),
	)

	log := logger.WithCorrelationID(o.logger, correlationID)

	tx, err := o.store.Create(ctx, correlationID, o.def.Name, payload)
	if errors.Is(err, ErrAlreadyExists) {
		existing, getErr := o.store.Get(ctx, correlationID)
		if getErr != nil {
			return nil, o.abort(span, log, storeError(getErr))
		}
		if existing.Status.IsTerminal() {
			log.Info().Str("status", string(existing.Status)).Msg("replaying finished saga")
			o.appendAudit(ctx, log, AuditEntry{
				CorrelationID: correlationID,
				Kind:          AuditReplay,
				Level:         LevelInfo,
				Message:       fmt.Sprintf("saga already %s, returning stored result", existing.Status),
			})
			return ResultFrom(existing), nil
		}
		log.Info().Str("status", string(existing.Status)).Msg("resuming unfinished saga")
		res, err := o.driveLeased(ctx, span, log, correlationID)
		if errors.Is(err, ErrLeaseHeld) {
			log.Info().Msg("saga is driven elsewhere, returning its progress")
			return ResultFrom(existing), nil
		}
		return res, err
	}
	if err != nil {
		return nil, o.abort(span, log, storeError(err))
	}

	log.Info().Int64("flight_id", payload.FlightID).Msg("saga created")
	o.appendAudit(ctx, log, AuditEntry{
		CorrelationID: correlationID,
		Kind:          AuditLifecycle,
		Level:         LevelInfo,
		Message:       fmt.Sprintf("saga %s created", o.def.Name),
	})
	o.publish(ctx, log, tx, events.SagaStartedEvent)

	res, err := o.driveLeased(ctx, span, log, correlationID)
	if errors.Is(err, ErrLeaseHeld) {
		log.Info().Msg("saga is driven elsewhere, returning its progress")
		return ResultFrom(tx), nil
	}
	return res, err
}

// Resume continues an unfinished saga from its persisted state. It fails with ErrLeaseHeld,
// without touching the saga, while another orchestrator is driving it.
func (o *Orchestrator) Resume(ctx context.Context, correlationID string) (*Result, error) {
	unlock := o.locks.Lock(correlationID)
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartSpan(ctx, "saga.resume")
	defer span.End()
	span.SetAttributes(attribute.String("saga.correlation_id", correlationID))

	log := logger.WithCorrelationID(o.logger, correlationID)

	res, err := o.driveLeased(ctx, span, log, correlationID)
	if errors.Is(err, ErrLeaseHeld) {
		log.Info().Msg("saga is driven elsewhere, skipping")
		span.SetAttributes(attribute.Bool("saga.skipped", true))
	}
	return res, err
}

// driveLeased takes the saga lease, reloads the transaction and drives it. The reload sees
// whatever the previous lease holder persisted.
func (o *Orchestrator) driveLeased(ctx context.Context, span spanRecorder, log zerolog.Logger, correlationID string) (*Result, error) {
	release, err := o.leaser.AcquireLease(ctx, correlationID)
	if errors.Is(err, ErrLeaseHeld) {
		return nil, err
	}
	if err != nil {
		return nil, o.abort(span, log, storeError(err))
	}
	defer release()

	tx, err := o.store.Get(ctx, correlationID)
	if err != nil {
		return nil, o.abort(span, log, storeError(err))
	}
	if tx.Status.IsTerminal() {
		return ResultFrom(tx), nil
	}

	log.Info().Str("status", string(tx.Status)).Msg("driving saga")
	return o.drive(ctx, span, log, tx)
}

// Status returns the stored transaction
func (o *Orchestrator) Status(ctx context.Context, correlationID string) (*Transaction, error) {
	tx, err := o.store.Get(ctx, correlationID)
	if err != nil {
		return nil, storeError(err)
	}
	return tx, nil
}

// drive moves tx from its current status to a terminal one
func (o *Orchestrator) drive(ctx context.Context, span spanRecorder, log zerolog.Logger, tx *Transaction) (*Result, error) {
	switch tx.Status {
	case StatusStarted:
		if err := o.transition(ctx, log, tx, StatusInProgress); err != nil {
			return nil, o.abort(span, log, err)
		}
		fallthrough
	case StatusInProgress:
		failed, err := o.runForward(ctx, log, tx)
		if err != nil {
			return nil, o.abort(span, log, err)
		}
		if !failed {
			if err := o.transition(ctx, log, tx, StatusCompleted); err != nil {
				return nil, o.abort(span, log, err)
			}
			return o.finish(ctx, span, log, tx, events.SagaCompletedEvent)
		}
		if err := o.transition(ctx, log, tx, StatusCompensating); err != nil {
			return nil, o.abort(span, log, err)
		}
		fallthrough
	case StatusCompensating:
		anyFailed, err := o.runCompensation(ctx, log, tx)
		if err != nil {
			return nil, o.abort(span, log, err)
		}
		if anyFailed {
			if err := o.transition(ctx, log, tx, StatusFailed); err != nil {
				return nil, o.abort(span, log, err)
			}
			return o.finish(ctx, span, log, tx, events.SagaFailedEvent)
		}
		if err := o.transition(ctx, log, tx, StatusRolledBack); err != nil {
			return nil, o.abort(span, log, err)
		}
		return o.finish(ctx, span, log, tx, events.SagaCompensatedEvent)
	}
	return ResultFrom(tx), nil
}

func (o *Orchestrator) finish(ctx context.Context, span spanRecorder, log zerolog.Logger, tx *Transaction, topic events.Topic) (*Result, error) {
	stored, err := o.store.Get(ctx, tx.CorrelationID)
	if err != nil {
		return nil, o.abort(span, log, storeError(err))
	}

	telemetry.RecordCounter(ctx, "saga_outcomes_total", "Finished sagas by final status", 1,
		attribute.String("definition", o.def.Name),
		attribute.String("status", string(stored.Status)),
	)
	span.SetAttributes(attribute.String("saga.status", string(stored.Status)))
	if stored.Status != StatusCompleted {
		span.SetStatus(codes.Error, string(stored.Status))
	}

	o.publish(ctx, log, stored, topic)
	return ResultFrom(stored), nil
}

func (o *Orchestrator) abort(span spanRecorder, log zerolog.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error().Err(err).Msg("saga aborted")
	return err
}

func (o *Orchestrator) transition(ctx context.Context, log zerolog.Logger, tx *Transaction, status Status) error {
	if err := o.store.SetStatus(ctx, tx.CorrelationID, status); err != nil {
		return storeError(err)
	}
	from := tx.Status
	tx.Status = status
	tx.UpdatedAt = o.now()

	level := LevelInfo
	if status == StatusFailed {
		level = LevelError
	} else if status == StatusCompensating {
		level = LevelWarn
	}
	log.Info().Str("from", string(from)).Str("to", string(status)).Msg("saga status changed")
	o.appendAudit(ctx, log, AuditEntry{
		CorrelationID: tx.CorrelationID,
		Kind:          AuditLifecycle,
		Level:         level,
		Message:       fmt.Sprintf("status %s -> %s", from, status),
	})
	return nil
}

// runForward executes the steps that have not completed yet, in definition order. It reports
// whether a step failed for good.
func (o *Orchestrator) runForward(ctx context.Context, log zerolog.Logger, tx *Transaction) (bool, error) {
	if last, ok := tx.LastStepResult(); ok && last.Outcome != OutcomeSuccess && o.isFinalAttempt(last) {
		log.Warn().Str("step", last.StepName).Msg("last recorded attempt already failed, compensating")
		return true, nil
	}

	for i, step := range o.def.Steps {
		if tx.HasCompleted(step.Name) {
			continue
		}

		for attempt := o.nextAttempt(tx, step.Name); ; attempt++ {
			call := StepCall{
				StepName:        step.Name,
				StepNumber:      i + 1,
				Endpoint:        step.Forward,
				CorrelationID:   tx.CorrelationID,
				Payload:         tx.Payload,
				SimulateFailure: tx.Payload.ShouldFail(step.Name),
			}

			started := time.Now()
			stepCtx, span := telemetry.StartSpan(ctx, "saga.step."+step.Name)
			resp := invoke(stepCtx, step.Forward.Timeout, call, o.client.Forward)
			outcome := outcomeOf(resp)
			span.SetAttributes(attribute.String("saga.step.outcome", string(outcome)), attribute.Int("saga.step.attempt", attempt))
			if outcome != OutcomeSuccess {
				span.SetStatus(codes.Error, resp.Detail)
			}
			span.End()

			telemetry.RecordCounter(ctx, "saga_steps_total", "Forward step attempts", 1,
				attribute.String("step", step.Name),
				attribute.String("outcome", string(outcome)),
			)
			telemetry.RecordHistogram(ctx, "saga_step_duration_seconds", "Forward step duration", time.Since(started).Seconds(),
				attribute.String("step", step.Name),
			)

			result := StepResult{
				StepName:        step.Name,
				Attempt:         attempt,
				Outcome:         outcome,
				Detail:          resp.Detail,
				ResponsePayload: resp.Raw,
				ExecutedAt:      o.now(),
			}
			if err := o.store.RecordStepResult(ctx, tx.CorrelationID, result); err != nil {
				return false, storeError(err)
			}
			ApplyStepResult(tx, result, result.ExecutedAt)

			entry := AuditEntry{
				CorrelationID: tx.CorrelationID,
				StepName:      step.Name,
				Kind:          AuditForward,
				Outcome:       outcome,
				Attempt:       attempt,
				Level:         LevelInfo,
				Message:       fmt.Sprintf("%s %s", step.Name, outcome),
			}
			if resp.Detail != "" {
				entry.Message += ": " + resp.Detail
			}

			if outcome == OutcomeSuccess {
				log.Info().Str("step", step.Name).Int("attempt", attempt).Msg("step succeeded")
				o.appendAudit(ctx, log, entry)
				break
			}

			entry.Level = LevelError
			o.appendAudit(ctx, log, entry)
			log.Warn().
				Str("step", step.Name).
				Int("attempt", attempt).
				Str("outcome", string(outcome)).
				Str("detail", resp.Detail).
				Msg("step failed")

			if !retryable(outcome) || attempt >= step.attempts() {
				return true, nil
			}
		}
	}
	return false, nil
}

// runCompensation reverses every completed step, last completed first. A failed compensation
// never stops the sweep. It reports whether any compensation failed for good.
func (o *Orchestrator) runCompensation(ctx context.Context, log zerolog.Logger, tx *Transaction) (bool, error) {
	anyFailed := false
	completed := append([]string(nil), tx.StepsCompleted...)

	for i := len(completed) - 1; i >= 0; i-- {
		name := completed[i]
		if rec, done := tx.CompensationFor(name); done {
			if rec.Outcome != OutcomeSuccess {
				anyFailed = true
			}
			continue
		}

		step, ok := o.def.Step(name)
		if !ok || !step.Compensatable {
			log.Warn().Str("step", name).Msg("completed step has no compensation, skipping")
			continue
		}

		call := StepCall{
			StepName:      step.Name,
			StepNumber:    o.stepNumber(step.Name),
			Endpoint:      step.Compensate,
			CorrelationID: tx.CorrelationID,
			Payload:       tx.Payload,
		}

		stepCtx, span := telemetry.StartSpan(ctx, "saga.compensate."+step.Name)
		resp, tries := o.retry.run(stepCtx, func(ctx context.Context, attempt int) StepResponse {
			r := invoke(ctx, step.Compensate.Timeout, call, o.client.Compensate)
			outcome := outcomeOf(r)
			entry := AuditEntry{
				CorrelationID: tx.CorrelationID,
				StepName:      step.Name,
				Kind:          AuditCompensation,
				Outcome:       outcome,
				Attempt:       attempt,
				Level:         LevelInfo,
				Message:       fmt.Sprintf("compensate %s %s", step.Name, outcome),
			}
			if r.Detail != "" {
				entry.Message += ": " + r.Detail
			}
			if outcome != OutcomeSuccess {
				entry.Level = LevelWarn
			}
			o.appendAudit(ctx, log, entry)
			return r
		})
		outcome := outcomeOf(resp)
		span.SetAttributes(attribute.String("saga.compensation.outcome", string(outcome)), attribute.Int("saga.compensation.attempts", tries))
		if outcome != OutcomeSuccess {
			span.SetStatus(codes.Error, resp.Detail)
		}
		span.End()

		telemetry.RecordCounter(ctx, "saga_compensations_total", "Compensations by final outcome", 1,
			attribute.String("step", step.Name),
			attribute.String("outcome", string(outcome)),
		)

		record := CompensationRecord{
			StepName:   step.Name,
			Outcome:    outcome,
			Attempts:   tries,
			Detail:     resp.Detail,
			ExecutedAt: o.now(),
		}
		if err := o.store.RecordCompensation(ctx, tx.CorrelationID, record); err != nil {
			return anyFailed, storeError(err)
		}
		if err := ApplyCompensation(tx, record, record.ExecutedAt); err != nil {
			return anyFailed, err
		}

		if outcome != OutcomeSuccess {
			anyFailed = true
			log.Error().
				Str("step", step.Name).
				Int("attempts", tries).
				Str("detail", resp.Detail).
				Msg("compensation failed")
			continue
		}
		log.Info().Str("step", step.Name).Int("attempts", tries).Msg("step compensated")
	}
	return anyFailed, nil
}

func (o *Orchestrator) nextAttempt(tx *Transaction, step string) int {
	n := 0
	for _, r := range tx.StepResults {
		if r.StepName == step && r.Attempt > n {
			n = r.Attempt
		}
	}
	return n + 1
}

func (o *Orchestrator) isFinalAttempt(r StepResult) bool {
	step, ok := o.def.Step(r.StepName)
	if !ok {
		return true
	}
	return !retryable(r.Outcome) || r.Attempt >= step.attempts()
}

func (o *Orchestrator) stepNumber(name string) int {
	for i, s := range o.def.Steps {
		if s.Name == name {
			return i + 1
		}
	}
	return 0
}

func (o *Orchestrator) appendAudit(ctx context.Context, log zerolog.Logger, entry AuditEntry) {
	if entry.Service == "" {
		entry.Service = orchestratorService
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = o.now()
	}
	if err := o.audit.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("kind", string(entry.Kind)).Msg("failed to append audit entry")
	}
}

func (o *Orchestrator) publish(ctx context.Context, log zerolog.Logger, tx *Transaction, topic events.Topic) {
	if o.publisher == nil {
		return
	}
	evt := events.NewEvent(models.ID(tx.CorrelationID), topic, ResultFrom(tx)).
		WithMetadata("status", string(tx.Status)).
		WithMetadata("definition", tx.Definition)
	if err := o.publisher.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("topic", topic.String()).Msg("failed to publish saga event")
	}
}

type spanRecorder interface {
	RecordError(err error, options ...trace.EventOption)
	SetStatus(code codes.Code, description string)
	SetAttributes(kv ...attribute.KeyValue)
}

// invoke runs one client call under its own deadline. A client that ignores the deadline
// still yields TIMEOUT once it passes, and a panicking client yields ERROR.
func invoke(ctx context.Context, timeout time.Duration, call StepCall, fn func(context.Context, StepCall) StepResponse) StepResponse {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan StepResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- StepResponse{Detail: fmt.Sprintf("step client panic: %v", r)}
			}
		}()
		done <- fn(callCtx, call)
	}()

	select {
	case resp := <-done:
		if !resp.Success && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			resp.Failure = FailureTimeout
		}
		return resp
	case <-callCtx.Done():
		return Failed(FailureTimeout, fmt.Sprintf("%s timed out after %s", call.StepName, timeout), nil)
	}
}

func outcomeOf(resp StepResponse) StepOutcome {
	if resp.Success {
		return OutcomeSuccess
	}
	switch resp.Failure {
	case FailureRejected:
		return OutcomeFailure
	case FailureTimeout:
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

func retryable(outcome StepOutcome) bool {
	return outcome == OutcomeTimeout || outcome == OutcomeError
}
