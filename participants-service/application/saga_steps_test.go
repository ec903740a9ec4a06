package application

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/participants-service/domain"
	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

func newSteps() (*SagaSteps, *domain.Inventory, *domain.Loyalty) {
	inv := domain.NewInventory()
	loy := domain.NewLoyalty()
	return NewSagaSteps(inv, domain.NewPayments(), loy, domain.NewTicketing(), zerolog.Nop()), inv, loy
}

func stepRequest(correlationID string) saga.StepRequest {
	return saga.StepRequest{
		CorrelationID: correlationID,
		BookingData: saga.BookingPayload{
			FlightID:   9,
			UserID:     "user-9",
			Passengers: []saga.Passenger{{FirstName: "Grace", LastName: "Hopper"}, {FirstName: "Alan", LastName: "Turing"}},
			SeatClass:  "Business ",
			Fare:       models.NewMoney(120000, ""),
		},
	}
}

func TestSagaSteps_ReserveSeatNormalizesBooking(t *testing.T) {
	steps, inv, _ := newSteps()

	reply, err := steps.ReserveSeat(context.Background(), stepRequest("corr-1"))
	require.NoError(t, err)

	assert.Equal(t, saga.SeatClassBusiness, reply.SeatClass)
	assert.Equal(t, []string{"B1", "B2"}, reply.SeatNumbers)
	assert.Equal(t, 28, inv.Available(9, saga.SeatClassBusiness))
}

func TestSagaSteps_AuthorizePaymentDefaultsCurrency(t *testing.T) {
	steps, _, _ := newSteps()

	reply, err := steps.AuthorizePayment(context.Background(), stepRequest("corr-1"))
	require.NoError(t, err)

	assert.Equal(t, models.NewMoney(125000, models.DefaultCurrency), *reply.Amount)
	assert.Equal(t, "AUTH-corr-1", reply.AuthorizationID)
}

func TestSagaSteps_FullRollback(t *testing.T) {
	steps, inv, loy := newSteps()
	ctx := context.Background()
	req := stepRequest("corr-1")

	_, err := steps.ReserveSeat(ctx, req)
	require.NoError(t, err)
	_, err = steps.AuthorizePayment(ctx, req)
	require.NoError(t, err)
	miles, err := steps.AwardMiles(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), miles.MilesAwarded)
	booked, err := steps.ConfirmBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, booked.SeatNumbers)

	cancelled, err := steps.CancelBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, booked.BookingReference, cancelled.BookingReference)

	reversed, err := steps.ReverseMiles(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reversed.NewBalance)
	assert.Equal(t, int64(0), loy.Balance("user-9"))

	voided, err := steps.CancelPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "payment voided", voided.Message)

	released, err := steps.CancelSeat(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "seats released", released.Message)
	assert.Equal(t, domain.SeatCapacity[saga.SeatClassBusiness], inv.Available(9, saga.SeatClassBusiness))
}

func TestSagaSteps_CompensationWithoutForward(t *testing.T) {
	steps, _, _ := newSteps()
	ctx := context.Background()
	req := stepRequest("corr-2")

	seat, err := steps.CancelSeat(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "nothing to release", seat.Message)

	payment, err := steps.CancelPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "nothing to void", payment.Message)

	miles, err := steps.ReverseMiles(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "nothing to reverse", miles.Message)

	booking, err := steps.CancelBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "nothing to cancel", booking.Message)
}

func TestSagaSteps_SimulatedFailure(t *testing.T) {
	steps, _, _ := newSteps()
	req := stepRequest("corr-3")
	req.BookingData.SimulateFailure = []string{"awardmiles"}

	_, err := steps.AwardMiles(context.Background(), req)
	assert.ErrorIs(t, err, ErrSimulatedFailure)

	_, err = steps.ReserveSeat(context.Background(), req)
	assert.NoError(t, err)
}
