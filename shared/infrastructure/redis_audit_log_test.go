package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/shared/saga"
)

func newRedisAuditLog(t *testing.T) (*RedisAuditLog, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAuditLog(client), mr
}

func TestRedisAuditLog_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	audit, mr := newRedisAuditLog(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []saga.AuditEntry{
		{CorrelationID: "corr-1", Kind: saga.AuditLifecycle, Level: saga.LevelInfo, Message: "saga created", CreatedAt: at},
		{CorrelationID: "corr-1", StepName: saga.StepReserveSeat, Kind: saga.AuditForward, Outcome: saga.OutcomeSuccess, Attempt: 1, Level: saga.LevelInfo, Message: "ReserveSeat SUCCESS"},
		{CorrelationID: "corr-1", StepName: saga.StepAuthorizePayment, Kind: saga.AuditForward, Outcome: saga.OutcomeFailure, Attempt: 1, Level: saga.LevelError, Message: "AuthorizePayment FAILURE"},
		{CorrelationID: "corr-1", StepName: saga.StepReserveSeat, Kind: saga.AuditCompensation, Outcome: saga.OutcomeSuccess, Attempt: 1, Level: saga.LevelInfo, Message: "compensate ReserveSeat SUCCESS"},
		{CorrelationID: "corr-2", Kind: saga.AuditReplay, Level: saga.LevelInfo, Message: "saga already COMPLETED"},
	}
	for _, e := range entries {
		require.NoError(t, audit.Append(ctx, e))
	}

	items, err := mr.List(RedisAuditKey("corr-1"))
	require.NoError(t, err)
	assert.Len(t, items, 4)

	tests := []struct {
		name     string
		id       string
		filter   saga.AuditFilter
		expected []string
	}{
		{
			name:     "compensations hidden by default",
			id:       "corr-1",
			filter:   saga.AuditFilter{},
			expected: []string{"saga created", "ReserveSeat SUCCESS", "AuthorizePayment FAILURE"},
		},
		{
			name:     "everything in append order",
			id:       "corr-1",
			filter:   saga.AllEntries(),
			expected: []string{"saga created", "ReserveSeat SUCCESS", "AuthorizePayment FAILURE", "compensate ReserveSeat SUCCESS"},
		},
		{
			name:     "by kind",
			id:       "corr-1",
			filter:   saga.AuditFilter{IncludeCompensation: true, Kinds: []saga.AuditKind{saga.AuditCompensation}},
			expected: []string{"compensate ReserveSeat SUCCESS"},
		},
		{
			name:     "replay markers",
			id:       "corr-2",
			filter:   saga.AllEntries(),
			expected: []string{"saga already COMPLETED"},
		},
		{
			name:     "unknown saga",
			id:       "missing",
			filter:   saga.AllEntries(),
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := audit.Query(ctx, tt.id, tt.filter)
			require.NoError(t, err)

			messages := []string{}
			for _, e := range got {
				messages = append(messages, e.Message)
				assert.NotEmpty(t, e.ID)
				assert.False(t, e.CreatedAt.IsZero())
			}
			assert.Equal(t, tt.expected, messages)
		})
	}

	got, err := audit.Query(ctx, "corr-1", saga.AllEntries())
	require.NoError(t, err)
	assert.True(t, at.Equal(got[0].CreatedAt))
	assert.Equal(t, saga.OutcomeFailure, got[2].Outcome)
	assert.Equal(t, saga.StepAuthorizePayment, got[2].StepName)
}

func TestRedisAuditLog_SurvivesNewClient(t *testing.T) {
	ctx := context.Background()
	audit, mr := newRedisAuditLog(t)
	require.NoError(t, audit.Append(ctx, saga.AuditEntry{CorrelationID: "corr-1", Kind: saga.AuditLifecycle, Message: "saga created"}))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	got, err := NewRedisAuditLog(client).Query(ctx, "corr-1", saga.AllEntries())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "saga created", got[0].Message)
}

func TestRedisAuditLog_CorruptEntry(t *testing.T) {
	audit, mr := newRedisAuditLog(t)
	_, err := mr.Push(RedisAuditKey("corr-1"), "not json")
	require.NoError(t, err)

	_, err = audit.Query(context.Background(), "corr-1", saga.AllEntries())
	assert.Error(t, err)
}
