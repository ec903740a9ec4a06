package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/draftea/flight-booking/shared/saga"
)

func stepCall(url string) saga.StepCall {
	return saga.StepCall{
		StepName:      saga.StepReserveSeat,
		StepNumber:    1,
		Endpoint:      saga.Endpoint{Action: url, Timeout: time.Second},
		CorrelationID: "corr-1",
		Payload:       testPayload(),
	}
}

func TestHTTPStepClient_Forward(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedSuccess bool
		expectedFailure saga.FailureKind
		expectedDetail  string
		expectRaw       bool
	}{
		{
			name:            "success",
			status:          http.StatusOK,
			body:            `{"success":true,"message":"seats reserved","seat_numbers":["1A"]}`,
			expectedSuccess: true,
			expectedDetail:  "seats reserved",
			expectRaw:       true,
		},
		{
			name:            "rejected by participant",
			status:          http.StatusOK,
			body:            `{"success":false,"error":"no seats left"}`,
			expectedFailure: saga.FailureRejected,
			expectedDetail:  "no seats left",
			expectRaw:       true,
		},
		{
			name:            "non 2xx with reply",
			status:          http.StatusConflict,
			body:            `{"success":false,"error":"flight closed"}`,
			expectedFailure: saga.FailureRejected,
			expectedDetail:  "flight closed",
			expectRaw:       true,
		},
		{
			name:            "non 2xx without reply",
			status:          http.StatusInternalServerError,
			body:            `boom`,
			expectedFailure: saga.FailureRejected,
			expectedDetail:  "ReserveSeat answered with status 500",
		},
		{
			name:            "unparseable body",
			status:          http.StatusOK,
			body:            `<html>`,
			expectedFailure: saga.FailureRejected,
			expectedDetail:  "ReserveSeat answered with an unreadable body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received saga.StepRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "corr-1", r.Header.Get("X-Correlation-ID"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp := NewHTTPStepClient(server.Client()).Forward(context.Background(), stepCall(server.URL))

			assert.Equal(t, tt.expectedSuccess, resp.Success)
			assert.Equal(t, tt.expectedFailure, resp.Failure)
			assert.Equal(t, tt.expectedDetail, resp.Detail)
			assert.Equal(t, tt.expectRaw, resp.Raw != nil)
			assert.Equal(t, "corr-1", received.CorrelationID)
			assert.Equal(t, saga.StepReserveSeat, received.StepName)
			assert.Equal(t, 1, received.StepNumber)
			assert.Equal(t, int64(7), received.BookingData.FlightID)
		})
	}
}

func TestHTTPStepClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	call := stepCall(server.URL)
	call.Endpoint.Timeout = 50 * time.Millisecond

	resp := NewHTTPStepClient(server.Client()).Compensate(context.Background(), call)

	assert.False(t, resp.Success)
	assert.Equal(t, saga.FailureTimeout, resp.Failure)
}

func TestHTTPStepClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	resp := NewHTTPStepClient(nil).Forward(context.Background(), stepCall(url))

	assert.False(t, resp.Success)
	assert.Equal(t, saga.FailureTransport, resp.Failure)
	assert.NotEmpty(t, resp.Detail)
}

func TestHTTPStepClient_SimulateFailureFlag(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"success":false,"error":"simulated failure"}`))
	}))
	defer server.Close()

	call := stepCall(server.URL)
	call.SimulateFailure = true
	resp := NewHTTPStepClient(server.Client()).Forward(context.Background(), call)

	assert.Equal(t, saga.FailureRejected, resp.Failure)
	assert.Equal(t, true, received["simulate_failure"])
}
