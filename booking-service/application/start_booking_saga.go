package application

import (
	"context"

	"github.com/draftea/flight-booking/shared/saga"
)

// SagaRunner is the orchestrator as seen by the use cases
//
//go:generate mockery --name=SagaRunner --output=../mocks --outpkg=mocks --with-expecter
type SagaRunner interface {
	Start(ctx context.Context, payload saga.BookingPayload, correlationID string) (*saga.Result, error)
	Resume(ctx context.Context, correlationID string) (*saga.Result, error)
	Status(ctx context.Context, correlationID string) (*saga.Transaction, error)
}

// StartBookingCommand is the start-booking request. The booking fields sit at the top level
// next to an optional correlation id. The per-step simulate_*_fail flags are still accepted
// and folded into simulate_failure.
type StartBookingCommand struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	saga.BookingPayload

	SimulateReserveSeatFail      bool `json:"simulate_reserveseat_fail,omitempty"`
	SimulateAuthorizePaymentFail bool `json:"simulate_authorizepayment_fail,omitempty"`
	SimulateAwardMilesFail       bool `json:"simulate_awardmiles_fail,omitempty"`
	SimulateConfirmBookingFail   bool `json:"simulate_confirmbooking_fail,omitempty"`
}

// Payload returns the booking payload with every failure flag merged in
func (c *StartBookingCommand) Payload() saga.BookingPayload {
	payload := c.BookingPayload
	payload.SimulateFailure = append([]string(nil), c.SimulateFailure...)

	flags := []struct {
		set  bool
		step string
	}{
		{c.SimulateReserveSeatFail, saga.StepReserveSeat},
		{c.SimulateAuthorizePaymentFail, saga.StepAuthorizePayment},
		{c.SimulateAwardMilesFail, saga.StepAwardMiles},
		{c.SimulateConfirmBookingFail, saga.StepConfirmBooking},
	}
	for _, f := range flags {
		if f.set && !payload.ShouldFail(f.step) {
			payload.SimulateFailure = append(payload.SimulateFailure, f.step)
		}
	}
	return payload
}

// StartBookingSaga use case
type StartBookingSaga struct {
	runner SagaRunner
}

func NewStartBookingSaga(runner SagaRunner) *StartBookingSaga {
	return &StartBookingSaga{runner: runner}
}

// Execute runs the saga to a terminal status. Step failures come back inside the result;
// the error is reserved for VALIDATION_ERROR and STATE_STORE_ERROR.
func (uc *StartBookingSaga) Execute(ctx context.Context, cmd *StartBookingCommand) (*saga.Result, error) {
	return uc.runner.Start(ctx, cmd.Payload(), cmd.CorrelationID)
}
