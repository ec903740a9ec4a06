package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/draftea/flight-booking/booking-service/application"
	"github.com/draftea/flight-booking/shared/events"
	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/saga"
)

var _ events.EventHandler = (*BookingEventHandlers)(nil)

// BookingEventHandlers starts sagas from booking.requested events
type BookingEventHandlers struct {
	startBooking *application.StartBookingSaga
	logger       zerolog.Logger
}

func NewBookingEventHandlers(startBooking *application.StartBookingSaga, log zerolog.Logger) *BookingEventHandlers {
	return &BookingEventHandlers{
		startBooking: startBooking,
		logger:       log,
	}
}

// Handle returns an error only when the event should be redelivered. Requests that can
// never succeed, like an undecodable or invalid booking, are logged and acknowledged.
func (h *BookingEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	if event.Topic != events.BookingRequestedEvent {
		return nil
	}

	log := logger.WithCorrelationID(h.logger, event.CorrelationID.String())

	var cmd application.StartBookingCommand
	if err := event.UnmarshalPayload(&cmd); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("dropping undecodable booking request")
		return nil
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = event.CorrelationID.String()
	}

	result, err := h.startBooking.Execute(ctx, &cmd)
	if err != nil {
		if saga.CodeOf(err) == saga.CodeValidation {
			log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("dropping invalid booking request")
			return nil
		}
		return err
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Str("status", string(result.Status)).
		Bool("success", result.Success).
		Msg("booking request processed")
	return nil
}
