package saga

import "context"

// Leaser grants the right to drive a saga to one orchestrator at a time, across processes.
// The orchestrator uses the store as its Leaser when the store implements it.
type Leaser interface {
	// AcquireLease fails with ErrLeaseHeld while another owner holds the saga. The returned
	// func gives the lease back and is safe to call more than once.
	AcquireLease(ctx context.Context, correlationID string) (release func(), err error)
}

// WithLeaser overrides the lease taken before driving a saga
func WithLeaser(leaser Leaser) Option {
	return func(o *Orchestrator) {
		if leaser != nil {
			o.leaser = leaser
		}
	}
}

// processLeaser is used for stores without leases. The keyed locker already serializes the
// process, so there is nothing left to hold.
type processLeaser struct{}

func (processLeaser) AcquireLease(context.Context, string) (func(), error) {
	return func() {}, nil
}

func leaserFor(store StateStore) Leaser {
	if l, ok := store.(Leaser); ok {
		return l
	}
	return processLeaser{}
}
