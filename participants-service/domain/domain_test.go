package domain

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

func TestInventory_Reserve(t *testing.T) {
	tests := []struct {
		name          string
		passengers    int
		seatClass     string
		expectedSeats []string
		expectedErr   error
	}{
		{name: "economy", passengers: 2, seatClass: saga.SeatClassEconomy, expectedSeats: []string{"E1", "E2"}},
		{name: "business", passengers: 1, seatClass: saga.SeatClassBusiness, expectedSeats: []string{"B1"}},
		{name: "first is full at nine", passengers: 9, seatClass: saga.SeatClassFirst, expectedErr: ErrNoSeatsAvailable},
		{name: "unknown class", passengers: 1, seatClass: "premium", expectedErr: ErrUnknownSeatClass},
		{name: "no passengers", passengers: 0, seatClass: saga.SeatClassEconomy, expectedErr: ErrInvalidPassengers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInventory()
			hold, err := inv.Reserve("corr-1", 7, tt.passengers, tt.seatClass)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSeats, hold.SeatNumbers)
			assert.Equal(t, SeatHoldReserved, hold.Status)
		})
	}
}

func TestInventory_Lifecycle(t *testing.T) {
	inv := NewInventory()

	first, err := inv.Reserve("corr-1", 7, 2, saga.SeatClassFirst)
	require.NoError(t, err)
	again, err := inv.Reserve("corr-1", 7, 2, saga.SeatClassFirst)
	require.NoError(t, err)
	assert.Equal(t, first.SeatNumbers, again.SeatNumbers)
	assert.Equal(t, 6, inv.Available(7, saga.SeatClassFirst))

	second, err := inv.Reserve("corr-2", 7, 1, saga.SeatClassFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"F3"}, second.SeatNumbers)

	confirmed, err := inv.Confirm("corr-1")
	require.NoError(t, err)
	assert.Equal(t, SeatHoldConfirmed, confirmed.Status)

	released, ok := inv.Release("corr-1")
	require.True(t, ok)
	assert.Equal(t, SeatHoldReleased, released.Status)
	assert.Equal(t, 7, inv.Available(7, saga.SeatClassFirst))

	_, ok = inv.Release("corr-1")
	assert.True(t, ok)
	_, ok = inv.Release("never")
	assert.False(t, ok)

	_, err = inv.Reserve("corr-1", 7, 2, saga.SeatClassFirst)
	assert.ErrorIs(t, err, ErrSeatHoldReleased)
	_, err = inv.Confirm("corr-1")
	assert.ErrorIs(t, err, ErrSeatHoldReleased)
	_, err = inv.Confirm("never")
	assert.ErrorIs(t, err, ErrNoSeatHold)

	third, err := inv.Reserve("corr-3", 7, 1, saga.SeatClassFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, third.SeatNumbers)
}

func TestInventory_ConcurrentReservationsNeverOverbook(t *testing.T) {
	inv := NewInventory()

	var wg sync.WaitGroup
	var mux sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := inv.Reserve(models.GenerateUUID().String(), 1, 1, saga.SeatClassFirst); err == nil {
				mux.Lock()
				granted++
				mux.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, SeatCapacity[saga.SeatClassFirst], granted)
	assert.Equal(t, 0, inv.Available(1, saga.SeatClassFirst))
}

func TestPayments(t *testing.T) {
	p := NewPayments()

	auth, err := p.Authorize("0123456789abcdef", models.NewMoney(25000, "USD"))
	require.NoError(t, err)
	assert.Equal(t, "AUTH-01234567", auth.ID)
	assert.Equal(t, models.NewMoney(30000, "USD"), auth.Amount)

	again, err := p.Authorize("0123456789abcdef", models.NewMoney(99, "USD"))
	require.NoError(t, err)
	assert.Equal(t, auth.Amount, again.Amount)

	voided, ok := p.Cancel("0123456789abcdef")
	require.True(t, ok)
	assert.Equal(t, AuthorizationVoided, voided.Status)

	_, err = p.Authorize("0123456789abcdef", models.NewMoney(25000, "USD"))
	assert.ErrorIs(t, err, ErrPaymentVoided)

	_, ok = p.Cancel("unknown")
	assert.False(t, ok)

	_, err = p.Authorize("zero", models.NewMoney(0, "USD"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, "AUTH-short", AuthorizationID("short"))
}

func TestLoyalty(t *testing.T) {
	l := NewLoyalty()

	award, err := l.Award("corr-1", "user-1", models.NewMoney(25099, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(250), award.Miles)
	assert.Equal(t, int64(0), award.OriginalBalance)

	_, err = l.Award("corr-1", "user-1", models.NewMoney(25099, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(250), l.Balance("user-1"))

	_, err = l.Award("corr-2", "user-1", models.NewMoney(1000, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(260), l.Balance("user-1"))

	reversed, ok := l.Reverse("corr-1")
	require.True(t, ok)
	assert.Equal(t, MilesReversed, reversed.Status)
	assert.Equal(t, int64(10), l.Balance("user-1"))

	l.Reverse("corr-1")
	assert.Equal(t, int64(10), l.Balance("user-1"))

	_, err = l.Award("corr-1", "user-1", models.NewMoney(25099, "USD"))
	assert.ErrorIs(t, err, ErrMilesReversed)
}

func TestTicketing(t *testing.T) {
	tk := NewTicketing()

	ticket, err := tk.Issue("corr-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{6}$`), ticket.BookingReference)

	again, err := tk.Issue("corr-1")
	require.NoError(t, err)
	assert.Equal(t, ticket.BookingReference, again.BookingReference)

	cancelled, ok := tk.Cancel("corr-1")
	require.True(t, ok)
	assert.Equal(t, TicketCancelled, cancelled.Status)

	_, err = tk.Issue("corr-1")
	assert.ErrorIs(t, err, ErrTicketCancelled)
}

func TestTicketing_ReferencesAreUnique(t *testing.T) {
	refs := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	tk := NewTicketing()
	tk.newRef = func() string {
		ref := refs[0]
		refs = refs[1:]
		return ref
	}

	first, err := tk.Issue("corr-1")
	require.NoError(t, err)
	second, err := tk.Issue("corr-2")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.BookingReference)
	assert.Equal(t, "BBBBBB", second.BookingReference)
}
