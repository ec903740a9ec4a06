package saga

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	mu sync.Mutex
	tx *Transaction
}

// MemoryStateStore keeps transactions in process memory. The index lock only guards lookups;
// each transaction is mutated under its own lock.
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time

	leaseMu sync.Mutex
	leases  map[string]struct{}
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]*memoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
		leases:  make(map[string]struct{}),
	}
}

// AcquireLease makes every orchestrator sharing this store drive a saga one at a time
func (s *MemoryStateStore) AcquireLease(ctx context.Context, correlationID string) (func(), error) {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()
	if _, held := s.leases[correlationID]; held {
		return nil, ErrLeaseHeld
	}
	s.leases[correlationID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.leaseMu.Lock()
			delete(s.leases, correlationID)
			s.leaseMu.Unlock()
		})
	}, nil
}

func (s *MemoryStateStore) Create(ctx context.Context, correlationID, definition string, payload BookingPayload) (*Transaction, error) {
	now := s.now()
	tx := &Transaction{
		CorrelationID:  correlationID,
		Definition:     definition,
		Status:         StatusStarted,
		Payload:        payload.clone(),
		StepsCompleted: []string{},
		StepResults:    []StepResult{},
		Compensations:  []CompensationRecord{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[correlationID]; exists {
		return nil, ErrAlreadyExists
	}
	s.entries[correlationID] = &memoryEntry{tx: tx}
	return tx.Clone(), nil
}

func (s *MemoryStateStore) entry(correlationID string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[correlationID]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStateStore) Get(ctx context.Context, correlationID string) (*Transaction, error) {
	e, err := s.entry(correlationID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx.Clone(), nil
}

func (s *MemoryStateStore) update(correlationID string, fn func(tx *Transaction) error) error {
	e, err := s.entry(correlationID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.tx.Clone()
	if err := fn(working); err != nil {
		return err
	}
	e.tx = working
	return nil
}

func (s *MemoryStateStore) RecordStepResult(ctx context.Context, correlationID string, result StepResult) error {
	return s.update(correlationID, func(tx *Transaction) error {
		ApplyStepResult(tx, result, s.now())
		return nil
	})
}

func (s *MemoryStateStore) RecordCompensation(ctx context.Context, correlationID string, record CompensationRecord) error {
	return s.update(correlationID, func(tx *Transaction) error {
		return ApplyCompensation(tx, record, s.now())
	})
}

func (s *MemoryStateStore) SetStatus(ctx context.Context, correlationID string, status Status) error {
	return s.update(correlationID, func(tx *Transaction) error {
		return ApplyStatus(tx, status, s.now())
	})
}

func (s *MemoryStateStore) ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	var found []candidate
	for _, e := range entries {
		e.mu.Lock()
		if !e.tx.Status.IsTerminal() && e.tx.UpdatedAt.Before(olderThan) {
			found = append(found, candidate{id: e.tx.CorrelationID, updatedAt: e.tx.UpdatedAt})
		}
		e.mu.Unlock()
	}

	sort.Slice(found, func(i, j int) bool { return found[i].updatedAt.Before(found[j].updatedAt) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	ids := make([]string, len(found))
	for i, c := range found {
		ids[i] = c.id
	}
	return ids, nil
}
