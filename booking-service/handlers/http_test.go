package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/draftea/flight-booking/booking-service/application"
	"github.com/draftea/flight-booking/booking-service/mocks"
	"github.com/draftea/flight-booking/shared/saga"
	sagamocks "github.com/draftea/flight-booking/shared/saga/mocks"
)

func newRouter(runner *mocks.MockSagaRunner, audit *sagamocks.MockAuditLog) http.Handler {
	h := NewBookingHandlers(
		application.NewStartBookingSaga(runner),
		application.NewGetSagaStatus(runner),
		application.NewGetSagaLogs(runner, audit),
	)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

const startBody = `{
	"flight_id": 42,
	"user_id": "user-1",
	"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
	"contact_info": {"email": "ada@example.com"},
	"fare": {"amount": 25000, "currency": "USD"}
}`

func TestBookingHandlers_StartBooking(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockSagaRunner)
		expectedStatus int
		expectedBody   map[string]interface{}
	}{
		{
			name: "completed saga",
			body: startBody,
			setupMocks: func(runner *mocks.MockSagaRunner) {
				runner.EXPECT().Start(mock.Anything, mock.Anything, "").Return(&saga.Result{
					Success:          true,
					Status:           saga.StatusCompleted,
					CorrelationID:    "corr-1",
					BookingReference: "A1B2C3",
					Message:          saga.MessageConfirmed,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"success": true, "status": "COMPLETED", "booking_reference": "A1B2C3"},
		},
		{
			name: "rolled back saga is still a 200",
			body: startBody,
			setupMocks: func(runner *mocks.MockSagaRunner) {
				runner.EXPECT().Start(mock.Anything, mock.Anything, "").Return(&saga.Result{
					Status:     saga.StatusRolledBack,
					FailedStep: saga.StepAuthorizePayment,
					ErrorCode:  saga.CodeStepRejected,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"success": false, "status": "ROLLED_BACK", "error_code": "STEP_REJECTED"},
		},
		{
			name:           "malformed body",
			body:           `{"flight_id":`,
			setupMocks:     func(runner *mocks.MockSagaRunner) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error_code": "VALIDATION_ERROR"},
		},
		{
			name: "validation error",
			body: `{}`,
			setupMocks: func(runner *mocks.MockSagaRunner) {
				runner.EXPECT().Start(mock.Anything, mock.Anything, "").
					Return(nil, saga.NewError(saga.CodeValidation, "", assert.AnError)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error_code": "VALIDATION_ERROR"},
		},
		{
			name: "state store unavailable",
			body: startBody,
			setupMocks: func(runner *mocks.MockSagaRunner) {
				runner.EXPECT().Start(mock.Anything, mock.Anything, "").
					Return(nil, saga.NewError(saga.CodeStateStore, "", assert.AnError)).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   map[string]interface{}{"error_code": "STATE_STORE_ERROR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewMockSagaRunner(t)
			tt.setupMocks(runner)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/saga/start-booking", strings.NewReader(tt.body))
			newRouter(runner, sagamocks.NewMockAuditLog(t)).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for k, v := range tt.expectedBody {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestBookingHandlers_GetSagaStatus(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		runner := mocks.NewMockSagaRunner(t)
		runner.EXPECT().Status(mock.Anything, "corr-1").Return(&saga.Transaction{
			CorrelationID:  "corr-1",
			Status:         saga.StatusInProgress,
			StepsCompleted: []string{saga.StepReserveSeat},
		}, nil).Once()

		rec := httptest.NewRecorder()
		newRouter(runner, sagamocks.NewMockAuditLog(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/saga/status/corr-1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body application.GetSagaStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, saga.StatusInProgress, body.Status)
		assert.Equal(t, saga.MessageInProgress, body.Result.Message)
	})

	t.Run("not found", func(t *testing.T) {
		runner := mocks.NewMockSagaRunner(t)
		runner.EXPECT().Status(mock.Anything, "missing").Return(nil, saga.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		newRouter(runner, sagamocks.NewMockAuditLog(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/saga/status/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBookingHandlers_GetSagaLogs(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		include        bool
		expectedStatus int
	}{
		{name: "default", url: "/api/saga/logs/corr-1", expectedStatus: http.StatusOK},
		{name: "with compensation", url: "/api/saga/logs/corr-1?include_compensation=true", include: true, expectedStatus: http.StatusOK},
		{name: "bad flag", url: "/api/saga/logs/corr-1?include_compensation=maybe", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewMockSagaRunner(t)
			audit := sagamocks.NewMockAuditLog(t)
			if tt.expectedStatus == http.StatusOK {
				runner.EXPECT().Status(mock.Anything, "corr-1").
					Return(&saga.Transaction{CorrelationID: "corr-1", Status: saga.StatusRolledBack}, nil).Once()
				audit.EXPECT().Query(mock.Anything, "corr-1", saga.AuditFilter{IncludeCompensation: tt.include}).
					Return([]saga.AuditEntry{{ID: "e1", Kind: saga.AuditLifecycle}}, nil).Once()
			}

			rec := httptest.NewRecorder()
			newRouter(runner, audit).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
