package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/participants-service/application"
	"github.com/draftea/flight-booking/shared/saga"
)

// StepHandlers exposes the participant side of the booking saga
type StepHandlers struct {
	steps *application.SagaSteps
}

func NewStepHandlers(steps *application.SagaSteps) *StepHandlers {
	return &StepHandlers{steps: steps}
}

// RegisterRoutes registers one POST route per forward and compensating action
func (h *StepHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/saga", func(r chi.Router) {
		r.Post("/reserve-seat", handle(h.steps.ReserveSeat))
		r.Post("/cancel-seat", handle(h.steps.CancelSeat))
		r.Post("/authorize-payment", handle(h.steps.AuthorizePayment))
		r.Post("/cancel-payment", handle(h.steps.CancelPayment))
		r.Post("/award-miles", handle(h.steps.AwardMiles))
		r.Post("/reverse-miles", handle(h.steps.ReverseMiles))
		r.Post("/confirm-booking", handle(h.steps.ConfirmBooking))
		r.Post("/cancel-booking", handle(h.steps.CancelBooking))
	})
}

// handle decodes the step envelope and answers {success, ...}. Rejections are a 200 with
// success=false; only an unreadable envelope is a 400.
func handle[T any](action func(context.Context, saga.StepRequest) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saga.StepRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, saga.StepReply{Error: "invalid request body"})
			return
		}

		reply, err := action(r.Context(), req)
		if err != nil {
			status := http.StatusOK
			if errors.Is(err, application.ErrMissingCorrelationID) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, saga.StepReply{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
