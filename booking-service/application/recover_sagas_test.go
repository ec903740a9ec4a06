package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/booking-service/mocks"
	"github.com/draftea/flight-booking/shared/saga"
	sagamocks "github.com/draftea/flight-booking/shared/saga/mocks"
)

type staticLister struct {
	ids       []string
	err       error
	olderThan time.Time
	limit     int
}

func (l *staticLister) ListInFlight(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	l.olderThan = olderThan
	l.limit = limit
	return l.ids, l.err
}

func TestRecoverSagas_Execute(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lister := &staticLister{ids: []string{"corr-1", "corr-2", "corr-3", "corr-4"}}
	runner := mocks.NewMockSagaRunner(t)

	var running, peak atomic.Int32
	track := func(ctx context.Context, id string) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
	}

	runner.EXPECT().Resume(mock.Anything, "corr-1").Run(track).
		Return(&saga.Result{Success: true, Status: saga.StatusCompleted}, nil).Once()
	runner.EXPECT().Resume(mock.Anything, "corr-2").Run(track).
		Return(&saga.Result{Status: saga.StatusRolledBack}, nil).Once()
	runner.EXPECT().Resume(mock.Anything, "corr-3").Run(track).
		Return(nil, saga.NewError(saga.CodeStateStore, "", assert.AnError)).Once()
	runner.EXPECT().Resume(mock.Anything, "corr-4").Run(track).
		Return(nil, saga.ErrLeaseHeld).Once()

	uc := NewRecoverSagas(runner, lister, RecoveryOptions{StaleAfter: time.Minute, BatchSize: 10, Parallelism: 2}, zerolog.Nop())
	uc.now = func() time.Time { return now }

	report, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &RecoveryReport{Found: 4, Completed: 1, Failed: 1, Skipped: 1, Errors: 1}, report)
	assert.Equal(t, now.Add(-time.Minute), lister.olderThan)
	assert.Equal(t, 10, lister.limit)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRecoverSagas_Empty(t *testing.T) {
	runner := mocks.NewMockSagaRunner(t)

	report, err := NewRecoverSagas(runner, &staticLister{}, DefaultRecoveryOptions(), zerolog.Nop()).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &RecoveryReport{}, report)
}

func TestRecoverSagas_ListError(t *testing.T) {
	runner := mocks.NewMockSagaRunner(t)

	_, err := NewRecoverSagas(runner, &staticLister{err: assert.AnError}, DefaultRecoveryOptions(), zerolog.Nop()).Execute(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
}

func TestRecoverSagas_ResumesWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := saga.NewMemoryStateStore()
	_, err := store.Create(ctx, "corr-1", saga.BookingDefinitionName, bookingPayload())
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "corr-1", saga.StatusInProgress))

	runner := mocks.NewMockSagaRunner(t)
	runner.EXPECT().Resume(mock.Anything, "corr-1").
		Return(&saga.Result{Success: true, Status: saga.StatusCompleted}, nil).Once()

	uc := NewRecoverSagas(runner, store, RecoveryOptions{StaleAfter: time.Minute}, zerolog.Nop())
	uc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	report, err := uc.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
}

func TestRecoverSagas_SkipsSagaDrivenElsewhere(t *testing.T) {
	ctx := context.Background()
	store := saga.NewMemoryStateStore()
	_, err := store.Create(ctx, "corr-busy", saga.BookingDefinitionName, bookingPayload())
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, "corr-busy", saga.StatusInProgress))

	release, err := store.AcquireLease(ctx, "corr-busy")
	require.NoError(t, err)
	defer release()

	// no participant may be called for a saga another replica holds
	client := sagamocks.NewMockStepClient(t)
	orch, err := saga.NewOrchestrator(
		saga.BookingDefinition(saga.BookingEndpointsFromBase("http://inventory", "http://payment", "http://loyalty")),
		store, client)
	require.NoError(t, err)

	uc := NewRecoverSagas(orch, store, RecoveryOptions{StaleAfter: time.Minute}, zerolog.Nop())
	uc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	report, err := uc.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RecoveryReport{Found: 1, Skipped: 1}, report)

	tx, err := store.Get(ctx, "corr-busy")
	require.NoError(t, err)
	assert.Equal(t, saga.StatusInProgress, tx.Status)
	assert.Empty(t, tx.StepResults)
}
