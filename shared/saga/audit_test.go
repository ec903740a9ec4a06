package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAuditLog_Query(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryAuditLog()

	entries := []AuditEntry{
		{CorrelationID: "c1", Kind: AuditLifecycle, Message: "created"},
		{CorrelationID: "c1", Kind: AuditForward, StepName: StepReserveSeat, Outcome: OutcomeSuccess},
		{CorrelationID: "c2", Kind: AuditForward, StepName: StepReserveSeat, Outcome: OutcomeSuccess},
		{CorrelationID: "c1", Kind: AuditCompensation, StepName: StepReserveSeat, Outcome: OutcomeSuccess},
	}
	for _, e := range entries {
		require.NoError(t, log.Append(ctx, e))
	}

	tests := []struct {
		name     string
		filter   AuditFilter
		expected []AuditKind
	}{
		{name: "default hides compensations", filter: AuditFilter{}, expected: []AuditKind{AuditLifecycle, AuditForward}},
		{name: "everything", filter: AllEntries(), expected: []AuditKind{AuditLifecycle, AuditForward, AuditCompensation}},
		{name: "by kind", filter: AuditFilter{IncludeCompensation: true, Kinds: []AuditKind{AuditCompensation}}, expected: []AuditKind{AuditCompensation}},
		{name: "kind excluded by compensation flag", filter: AuditFilter{Kinds: []AuditKind{AuditCompensation}}, expected: []AuditKind{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Query(ctx, "c1", tt.filter)
			require.NoError(t, err)

			kinds := []AuditKind{}
			for _, e := range got {
				kinds = append(kinds, e.Kind)
				assert.NotEmpty(t, e.ID)
				assert.False(t, e.CreatedAt.IsZero())
			}
			assert.Equal(t, tt.expected, kinds)
		})
	}

	empty, err := log.Query(ctx, "unknown", AllEntries())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
