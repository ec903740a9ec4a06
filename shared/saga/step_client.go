package saga

import (
	"context"
	"encoding/json"
)

// FailureKind classifies why a step call did not succeed
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransport FailureKind = "TRANSPORT_ERROR"
	FailureTimeout   FailureKind = "TIMEOUT"
	FailureRejected  FailureKind = "REMOTE_REJECTED"
)

// StepCall is everything a participant needs to run one action
type StepCall struct {
	StepName        string
	StepNumber      int
	Endpoint        Endpoint
	CorrelationID   string
	Payload         BookingPayload
	SimulateFailure bool
}

// StepResponse is the normalized outcome of one remote call
type StepResponse struct {
	Success bool
	Failure FailureKind
	Detail  string
	Raw     json.RawMessage
}

// Succeeded builds a successful response
func Succeeded(detail string, raw json.RawMessage) StepResponse {
	return StepResponse{Success: true, Detail: detail, Raw: raw}
}

// Failed builds a failed response of the given kind
func Failed(kind FailureKind, detail string, raw json.RawMessage) StepResponse {
	return StepResponse{Success: false, Failure: kind, Detail: detail, Raw: raw}
}

// StepClient invokes forward and compensating actions. Implementations never return raw
// errors; every failure is folded into the StepResponse. The client does not deduplicate.
//
//go:generate mockery --name=StepClient --output=mocks --outpkg=mocks --with-expecter
type StepClient interface {
	Forward(ctx context.Context, call StepCall) StepResponse
	Compensate(ctx context.Context, call StepCall) StepResponse
}

// StepRequest is the JSON envelope POSTed to participant endpoints
type StepRequest struct {
	CorrelationID   string         `json:"correlation_id"`
	StepName        string         `json:"step_name"`
	StepNumber      int            `json:"step_number"`
	BookingData     BookingPayload `json:"booking_data"`
	SimulateFailure bool           `json:"simulate_failure,omitempty"`
}

// NewStepRequest builds the wire envelope of a call
func NewStepRequest(call StepCall) StepRequest {
	return StepRequest{
		CorrelationID:   call.CorrelationID,
		StepName:        call.StepName,
		StepNumber:      call.StepNumber,
		BookingData:     call.Payload,
		SimulateFailure: call.SimulateFailure,
	}
}

// StepReply is the common part of every participant answer
type StepReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Detail returns the human readable part of the reply
func (r StepReply) Detail() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}
