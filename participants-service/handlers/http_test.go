package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/participants-service/application"
	"github.com/draftea/flight-booking/participants-service/domain"
	sharedinfra "github.com/draftea/flight-booking/shared/infrastructure"
	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	steps := application.NewSagaSteps(domain.NewInventory(), domain.NewPayments(), domain.NewLoyalty(), domain.NewTicketing(), zerolog.Nop())
	r := chi.NewRouter()
	NewStepHandlers(steps).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func booking() saga.BookingPayload {
	return saga.BookingPayload{
		FlightID:    42,
		UserID:      "user-1",
		Passengers:  []saga.Passenger{{FirstName: "Ada", LastName: "Lovelace"}},
		ContactInfo: saga.ContactInfo{Email: "ada@example.com"},
		SeatClass:   saga.SeatClassEconomy,
		Fare:        models.NewMoney(25000, "USD"),
	}
}

func post(t *testing.T, srv *httptest.Server, path string, req saga.StepRequest) (int, map[string]interface{}) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestStepHandlers_Forward(t *testing.T) {
	srv := newServer(t)
	req := saga.StepRequest{CorrelationID: "0123456789abcdef", BookingData: booking()}

	status, body := post(t, srv, "/api/saga/reserve-seat", req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{"E1"}, body["seat_numbers"])

	_, body = post(t, srv, "/api/saga/authorize-payment", req)
	assert.Equal(t, "AUTH-01234567", body["authorization_id"])
	assert.Equal(t, map[string]interface{}{"amount": float64(30000), "currency": "USD"}, body["amount"])

	_, body = post(t, srv, "/api/saga/award-miles", req)
	assert.Equal(t, float64(250), body["miles_awarded"])

	_, body = post(t, srv, "/api/saga/confirm-booking", req)
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, `^[0-9A-F]{6}$`, body["booking_reference"])

	_, again := post(t, srv, "/api/saga/confirm-booking", req)
	assert.Equal(t, body["booking_reference"], again["booking_reference"])
}

func TestStepHandlers_Rejections(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		req            saga.StepRequest
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "simulate flag",
			path:           "/api/saga/reserve-seat",
			req:            saga.StepRequest{CorrelationID: "c1", BookingData: booking(), SimulateFailure: true},
			expectedStatus: http.StatusOK,
			expectedError:  "ReserveSeat: simulated failure",
		},
		{
			name: "simulate list in booking data",
			path: "/api/saga/authorize-payment",
			req: func() saga.StepRequest {
				b := booking()
				b.SimulateFailure = []string{saga.StepAuthorizePayment}
				return saga.StepRequest{CorrelationID: "c1", BookingData: b}
			}(),
			expectedStatus: http.StatusOK,
			expectedError:  "AuthorizePayment: simulated failure",
		},
		{
			name:           "confirm without seats",
			path:           "/api/saga/confirm-booking",
			req:            saga.StepRequest{CorrelationID: "c1", BookingData: booking()},
			expectedStatus: http.StatusOK,
			expectedError:  domain.ErrNoSeatHold.Error(),
		},
		{
			name:           "missing correlation id",
			path:           "/api/saga/award-miles",
			req:            saga.StepRequest{BookingData: booking()},
			expectedStatus: http.StatusBadRequest,
			expectedError:  application.ErrMissingCorrelationID.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			status, body := post(t, srv, tt.path, tt.req)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.expectedError, body["error"])
		})
	}
}

func TestStepHandlers_CompensationsIgnoreSimulation(t *testing.T) {
	srv := newServer(t)
	b := booking()
	b.SimulateFailure = []string{saga.StepReserveSeat}

	for _, path := range []string{"/api/saga/cancel-seat", "/api/saga/cancel-payment", "/api/saga/reverse-miles", "/api/saga/cancel-booking"} {
		status, body := post(t, srv, path, saga.StepRequest{CorrelationID: "c1", BookingData: b})
		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, true, body["success"], path)
	}
}

func TestStepHandlers_BadBody(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Post(srv.URL+"/api/saga/reserve-seat", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The booking service step client against the real participant routes
func TestStepHandlers_WithHTTPStepClient(t *testing.T) {
	srv := newServer(t)
	endpoints := saga.BookingEndpointsFromBase(srv.URL, srv.URL, srv.URL)
	def := saga.BookingDefinition(endpoints)
	client := sharedinfra.NewHTTPStepClient(nil)

	call := func(step saga.StepDescriptor, forward bool) saga.StepResponse {
		c := saga.StepCall{StepName: step.Name, CorrelationID: "corr-e2e", Payload: booking()}
		if forward {
			c.Endpoint = step.Forward
			return client.Forward(context.Background(), c)
		}
		c.Endpoint = step.Compensate
		return client.Compensate(context.Background(), c)
	}

	for _, step := range def.Steps {
		resp := call(step, true)
		require.True(t, resp.Success, step.Name)
	}

	confirm, _ := def.Step(saga.StepConfirmBooking)
	var reply struct {
		BookingReference string `json:"booking_reference"`
	}
	require.NoError(t, json.Unmarshal(call(confirm, true).Raw, &reply))
	assert.Len(t, reply.BookingReference, 6)

	for i := len(def.Steps) - 1; i >= 0; i-- {
		resp := call(def.Steps[i], false)
		assert.True(t, resp.Success, def.Steps[i].Name)
	}
}
