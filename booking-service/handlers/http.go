package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/draftea/flight-booking/booking-service/application"
	"github.com/draftea/flight-booking/shared/saga"
)

// ErrorResponse is the body of every non-200 answer
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode saga.Code `json:"error_code,omitempty"`
}

// BookingHandlers contains the saga HTTP handlers
type BookingHandlers struct {
	startBooking  *application.StartBookingSaga
	getSagaStatus *application.GetSagaStatus
	getSagaLogs   *application.GetSagaLogs
}

func NewBookingHandlers(
	startBooking *application.StartBookingSaga,
	getSagaStatus *application.GetSagaStatus,
	getSagaLogs *application.GetSagaLogs,
) *BookingHandlers {
	return &BookingHandlers{
		startBooking:  startBooking,
		getSagaStatus: getSagaStatus,
		getSagaLogs:   getSagaLogs,
	}
}

// StartBooking runs a booking saga to completion. Any saga outcome, including a rolled back
// or failed one, is a 200 carrying the result.
func (h *BookingHandlers) StartBooking(w http.ResponseWriter, r *http.Request) {
	var cmd application.StartBookingCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", ErrorCode: saga.CodeValidation})
		return
	}

	result, err := h.startBooking.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetSagaStatus returns the stored transaction
func (h *BookingHandlers) GetSagaStatus(w http.ResponseWriter, r *http.Request) {
	query := &application.GetSagaStatusQuery{
		CorrelationID: chi.URLParam(r, "correlation_id"),
	}

	response, err := h.getSagaStatus.Execute(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// GetSagaLogs returns the audit trail. Compensation entries are left out unless
// include_compensation is true.
func (h *BookingHandlers) GetSagaLogs(w http.ResponseWriter, r *http.Request) {
	query := &application.GetSagaLogsQuery{
		CorrelationID: chi.URLParam(r, "correlation_id"),
	}
	if raw := r.URL.Query().Get("include_compensation"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "include_compensation must be a boolean", ErrorCode: saga.CodeValidation})
			return
		}
		query.IncludeCompensation = include
	}

	response, err := h.getSagaLogs.Execute(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers saga routes
func (h *BookingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/saga", func(r chi.Router) {
		r.Post("/start-booking", h.StartBooking)
		r.Get("/status/{correlation_id}", h.GetSagaStatus)
		r.Get("/logs/{correlation_id}", h.GetSagaLogs)
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := saga.CodeOf(err)

	switch {
	case errors.Is(err, saga.ErrNotFound):
		status = http.StatusNotFound
		code = ""
	case code == saga.CodeValidation:
		status = http.StatusBadRequest
	case code == saga.CodeStateStore:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), ErrorCode: code})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
