package saga

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
)

// CompensationRetry is the retry policy applied to each compensating call
type CompensationRetry struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultCompensationRetry tries each compensation three times with exponential backoff
func DefaultCompensationRetry() CompensationRetry {
	return CompensationRetry{
		MaxTries:        3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (r CompensationRetry) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	return b
}

func (r CompensationRetry) tries() uint {
	if r.MaxTries == 0 {
		return 1
	}
	return r.MaxTries
}

// compensationAttempt is called once per try with the 1-based attempt number
type compensationAttempt func(ctx context.Context, attempt int) StepResponse

// run retries attempt until it succeeds or the policy is exhausted. It returns the
// last response and the number of tries made.
func (r CompensationRetry) run(ctx context.Context, attempt compensationAttempt) (StepResponse, int) {
	tries := 0
	var last StepResponse

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		last = attempt(ctx, tries)
		if last.Success {
			return struct{}{}, nil
		}
		return struct{}{}, errors.Errorf("compensation attempt %d failed: %s", tries, last.Detail)
	},
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(r.tries()),
	)
	if err != nil && tries == 0 {
		last = Failed(FailureTransport, err.Error(), nil)
	}
	return last, tries
}
