package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/draftea/flight-booking/participants-service/domain"
	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
	"github.com/draftea/flight-booking/shared/telemetry"
)

// ErrSimulatedFailure is returned when the caller asked for the step to be rejected
var ErrSimulatedFailure = errors.New("simulated failure")

// ErrMissingCorrelationID rejects envelopes that cannot be made idempotent
var ErrMissingCorrelationID = errors.New("correlation_id is required")

type SeatReply struct {
	saga.StepReply
	CorrelationID string   `json:"correlation_id"`
	FlightID      int64    `json:"flight_id,omitempty"`
	SeatClass     string   `json:"seat_class,omitempty"`
	SeatNumbers   []string `json:"seat_numbers,omitempty"`
}

type PaymentReply struct {
	saga.StepReply
	CorrelationID   string        `json:"correlation_id"`
	AuthorizationID string        `json:"authorization_id,omitempty"`
	Amount          *models.Money `json:"amount,omitempty"`
}

type MilesReply struct {
	saga.StepReply
	CorrelationID string `json:"correlation_id"`
	UserID        string `json:"user_id,omitempty"`
	MilesAwarded  int64  `json:"miles_awarded,omitempty"`
	NewBalance    int64  `json:"new_balance"`
}

type BookingReply struct {
	saga.StepReply
	CorrelationID    string   `json:"correlation_id"`
	BookingReference string   `json:"booking_reference,omitempty"`
	SeatNumbers      []string `json:"seat_numbers,omitempty"`
}

// SagaSteps runs the participant side of every booking step. Forward actions and their
// compensations are idempotent per correlation id.
type SagaSteps struct {
	inventory *domain.Inventory
	payments  *domain.Payments
	loyalty   *domain.Loyalty
	ticketing *domain.Ticketing
	logger    zerolog.Logger
}

func NewSagaSteps(
	inventory *domain.Inventory,
	payments *domain.Payments,
	loyalty *domain.Loyalty,
	ticketing *domain.Ticketing,
	log zerolog.Logger,
) *SagaSteps {
	return &SagaSteps{
		inventory: inventory,
		payments:  payments,
		loyalty:   loyalty,
		ticketing: ticketing,
		logger:    log,
	}
}

func (s *SagaSteps) ReserveSeat(ctx context.Context, req saga.StepRequest) (*SeatReply, error) {
	log, err := s.begin(ctx, req, saga.StepReserveSeat, true)
	if err != nil {
		return nil, err
	}

	data := req.BookingData
	data.Normalize()
	hold, err := s.inventory.Reserve(req.CorrelationID, data.FlightID, data.PassengerCount(), data.SeatClass)
	if err != nil {
		log.Warn().Err(err).Int64("flight_id", data.FlightID).Msg("seat reservation rejected")
		return nil, err
	}

	log.Info().Strs("seat_numbers", hold.SeatNumbers).Msg("seats reserved")
	return &SeatReply{
		StepReply:     saga.StepReply{Success: true, Message: "seats reserved"},
		CorrelationID: req.CorrelationID,
		FlightID:      hold.FlightID,
		SeatClass:     hold.SeatClass,
		SeatNumbers:   hold.SeatNumbers,
	}, nil
}

func (s *SagaSteps) CancelSeat(ctx context.Context, req saga.StepRequest) (*SeatReply, error) {
	log, err := s.begin(ctx, req, saga.StepReserveSeat, false)
	if err != nil {
		return nil, err
	}

	hold, ok := s.inventory.Release(req.CorrelationID)
	if !ok {
		log.Info().Msg("no seat hold to release")
		return &SeatReply{
			StepReply:     saga.StepReply{Success: true, Message: "nothing to release"},
			CorrelationID: req.CorrelationID,
		}, nil
	}

	log.Info().Strs("seat_numbers", hold.SeatNumbers).Msg("seats released")
	return &SeatReply{
		StepReply:     saga.StepReply{Success: true, Message: "seats released"},
		CorrelationID: req.CorrelationID,
		FlightID:      hold.FlightID,
		SeatClass:     hold.SeatClass,
		SeatNumbers:   hold.SeatNumbers,
	}, nil
}

func (s *SagaSteps) AuthorizePayment(ctx context.Context, req saga.StepRequest) (*PaymentReply, error) {
	log, err := s.begin(ctx, req, saga.StepAuthorizePayment, true)
	if err != nil {
		return nil, err
	}

	data := req.BookingData
	data.Normalize()
	auth, err := s.payments.Authorize(req.CorrelationID, data.Fare)
	if err != nil {
		log.Warn().Err(err).Msg("payment authorization rejected")
		return nil, err
	}

	log.Info().Str("authorization_id", auth.ID).Str("amount", auth.Amount.String()).Msg("payment authorized")
	return &PaymentReply{
		StepReply:       saga.StepReply{Success: true, Message: "payment authorized"},
		CorrelationID:   req.CorrelationID,
		AuthorizationID: auth.ID,
		Amount:          &auth.Amount,
	}, nil
}

func (s *SagaSteps) CancelPayment(ctx context.Context, req saga.StepRequest) (*PaymentReply, error) {
	log, err := s.begin(ctx, req, saga.StepAuthorizePayment, false)
	if err != nil {
		return nil, err
	}

	auth, ok := s.payments.Cancel(req.CorrelationID)
	if !ok {
		log.Info().Msg("no authorization to void")
		return &PaymentReply{
			StepReply:     saga.StepReply{Success: true, Message: "nothing to void"},
			CorrelationID: req.CorrelationID,
		}, nil
	}

	log.Info().Str("authorization_id", auth.ID).Msg("payment voided")
	return &PaymentReply{
		StepReply:       saga.StepReply{Success: true, Message: "payment voided"},
		CorrelationID:   req.CorrelationID,
		AuthorizationID: auth.ID,
		Amount:          &auth.Amount,
	}, nil
}

func (s *SagaSteps) AwardMiles(ctx context.Context, req saga.StepRequest) (*MilesReply, error) {
	log, err := s.begin(ctx, req, saga.StepAwardMiles, true)
	if err != nil {
		return nil, err
	}

	award, err := s.loyalty.Award(req.CorrelationID, req.BookingData.UserID, req.BookingData.Fare)
	if err != nil {
		log.Warn().Err(err).Msg("miles award rejected")
		return nil, err
	}

	log.Info().Int64("miles", award.Miles).Str("user_id", award.UserID).Msg("miles awarded")
	return &MilesReply{
		StepReply:     saga.StepReply{Success: true, Message: "miles awarded"},
		CorrelationID: req.CorrelationID,
		UserID:        award.UserID,
		MilesAwarded:  award.Miles,
		NewBalance:    award.NewBalance,
	}, nil
}

func (s *SagaSteps) ReverseMiles(ctx context.Context, req saga.StepRequest) (*MilesReply, error) {
	log, err := s.begin(ctx, req, saga.StepAwardMiles, false)
	if err != nil {
		return nil, err
	}

	award, ok := s.loyalty.Reverse(req.CorrelationID)
	if !ok {
		log.Info().Msg("no miles to reverse")
		return &MilesReply{
			StepReply:     saga.StepReply{Success: true, Message: "nothing to reverse"},
			CorrelationID: req.CorrelationID,
		}, nil
	}

	log.Info().Int64("miles", award.Miles).Str("user_id", award.UserID).Msg("miles reversed")
	return &MilesReply{
		StepReply:     saga.StepReply{Success: true, Message: "miles reversed"},
		CorrelationID: req.CorrelationID,
		UserID:        award.UserID,
		MilesAwarded:  award.Miles,
		NewBalance:    s.loyalty.Balance(award.UserID),
	}, nil
}

// ConfirmBooking issues the ticket and sells the held seats
func (s *SagaSteps) ConfirmBooking(ctx context.Context, req saga.StepRequest) (*BookingReply, error) {
	log, err := s.begin(ctx, req, saga.StepConfirmBooking, true)
	if err != nil {
		return nil, err
	}

	hold, err := s.inventory.Confirm(req.CorrelationID)
	if err != nil {
		log.Warn().Err(err).Msg("booking confirmation rejected")
		return nil, err
	}

	ticket, err := s.ticketing.Issue(req.CorrelationID)
	if err != nil {
		s.inventory.Unconfirm(req.CorrelationID)
		log.Warn().Err(err).Msg("ticket issue rejected")
		return nil, err
	}

	log.Info().Str("booking_reference", ticket.BookingReference).Msg("booking confirmed")
	return &BookingReply{
		StepReply:        saga.StepReply{Success: true, Message: "booking confirmed"},
		CorrelationID:    req.CorrelationID,
		BookingReference: ticket.BookingReference,
		SeatNumbers:      hold.SeatNumbers,
	}, nil
}

func (s *SagaSteps) CancelBooking(ctx context.Context, req saga.StepRequest) (*BookingReply, error) {
	log, err := s.begin(ctx, req, saga.StepConfirmBooking, false)
	if err != nil {
		return nil, err
	}

	ticket, ok := s.ticketing.Cancel(req.CorrelationID)
	s.inventory.Unconfirm(req.CorrelationID)
	if !ok {
		log.Info().Msg("no ticket to cancel")
		return &BookingReply{
			StepReply:     saga.StepReply{Success: true, Message: "nothing to cancel"},
			CorrelationID: req.CorrelationID,
		}, nil
	}

	log.Info().Str("booking_reference", ticket.BookingReference).Msg("booking cancelled")
	return &BookingReply{
		StepReply:        saga.StepReply{Success: true, Message: "booking cancelled"},
		CorrelationID:    req.CorrelationID,
		BookingReference: ticket.BookingReference,
	}, nil
}

// begin validates the envelope and applies failure simulation, which only affects forward actions
func (s *SagaSteps) begin(ctx context.Context, req saga.StepRequest, step string, forward bool) (zerolog.Logger, error) {
	log := logger.WithCorrelationID(s.logger, req.CorrelationID).With().
		Str("step", step).
		Bool("forward", forward).
		Logger()

	action := "compensate"
	if forward {
		action = "forward"
	}
	telemetry.RecordCounter(ctx, "participant_requests_total", "Saga step requests handled by participants", 1,
		attribute.String("step", step), attribute.String("action", action))

	if req.CorrelationID == "" {
		return log, ErrMissingCorrelationID
	}
	if forward && (req.SimulateFailure || req.BookingData.ShouldFail(step)) {
		log.Warn().Msg("simulated step failure")
		return log, errors.Wrapf(ErrSimulatedFailure, "%s", step)
	}
	return log, nil
}
