package saga

import (
	"context"
	"sync"
	"time"

	"github.com/draftea/flight-booking/shared/models"
)

// AuditKind separates forward attempts from compensations and lifecycle changes
type AuditKind string

const (
	AuditForward      AuditKind = "FORWARD"
	AuditCompensation AuditKind = "COMPENSATION"
	AuditLifecycle    AuditKind = "LIFECYCLE"
	AuditReplay       AuditKind = "REPLAY"
)

// Audit levels
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARNING"
	LevelError = "ERROR"
)

// AuditEntry is one line of the append-only saga log
type AuditEntry struct {
	ID            string      `json:"id" db:"id"`
	CorrelationID string      `json:"correlation_id" db:"correlation_id"`
	StepName      string      `json:"step_name,omitempty" db:"step_name"`
	Kind          AuditKind   `json:"kind" db:"kind"`
	Outcome       StepOutcome `json:"outcome,omitempty" db:"outcome"`
	Attempt       int         `json:"attempt,omitempty" db:"attempt"`
	Service       string      `json:"service" db:"service"`
	Level         string      `json:"level" db:"level"`
	Message       string      `json:"message" db:"message"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// IsCompensation reports whether the entry belongs to the compensation sweep
func (e AuditEntry) IsCompensation() bool {
	return e.Kind == AuditCompensation
}

// AuditFilter narrows a query. The zero value returns everything except compensations.
type AuditFilter struct {
	IncludeCompensation bool
	Kinds               []AuditKind
}

// AllEntries returns a filter that matches every entry
func AllEntries() AuditFilter {
	return AuditFilter{IncludeCompensation: true}
}

// Matches reports whether e passes the filter
func (f AuditFilter) Matches(e AuditEntry) bool {
	if e.IsCompensation() && !f.IncludeCompensation {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == e.Kind {
			return true
		}
	}
	return false
}

// AuditLog records step attempts, compensations and lifecycle changes per correlation id
//
//go:generate mockery --name=AuditLog --output=mocks --outpkg=mocks --with-expecter
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	// Query returns matching entries in append order
	Query(ctx context.Context, correlationID string, filter AuditFilter) ([]AuditEntry, error)
}

// MemoryAuditLog is an in-process AuditLog
type MemoryAuditLog struct {
	mu      sync.RWMutex
	entries map[string][]AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{entries: make(map[string][]AuditEntry)}
}

func (l *MemoryAuditLog) Append(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = models.GenerateUUID().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.CorrelationID] = append(l.entries[entry.CorrelationID], entry)
	return nil
}

func (l *MemoryAuditLog) Query(ctx context.Context, correlationID string, filter AuditFilter) ([]AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []AuditEntry{}
	for _, e := range l.entries[correlationID] {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

type nopAuditLog struct{}

func (nopAuditLog) Append(context.Context, AuditEntry) error { return nil }

func (nopAuditLog) Query(context.Context, string, AuditFilter) ([]AuditEntry, error) {
	return []AuditEntry{}, nil
}
