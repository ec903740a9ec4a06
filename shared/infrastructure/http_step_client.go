package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/saga"
)

var _ saga.StepClient = (*HTTPStepClient)(nil)

const maxReplyBytes = 1 << 20

// HTTPStepClient calls participant endpoints with the JSON step envelope
type HTTPStepClient struct {
	client *http.Client
}

// NewHTTPStepClient creates a client. Timeouts come from each call's endpoint, so the
// underlying http.Client should not set its own.
func NewHTTPStepClient(client *http.Client) *HTTPStepClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPStepClient{client: client}
}

func (c *HTTPStepClient) Forward(ctx context.Context, call saga.StepCall) saga.StepResponse {
	return c.post(ctx, call)
}

func (c *HTTPStepClient) Compensate(ctx context.Context, call saga.StepCall) saga.StepResponse {
	return c.post(ctx, call)
}

func (c *HTTPStepClient) post(ctx context.Context, call saga.StepCall) saga.StepResponse {
	if _, ok := ctx.Deadline(); !ok && call.Endpoint.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Endpoint.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(saga.NewStepRequest(call))
	if err != nil {
		return saga.Failed(saga.FailureTransport, errors.Wrap(err, "failed to marshal step request").Error(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint.Action, bytes.NewReader(body))
	if err != nil {
		return saga.Failed(saga.FailureTransport, errors.Wrap(err, "failed to create step request").Error(), nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", call.CorrelationID)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return saga.Failed(saga.FailureTimeout, fmt.Sprintf("%s timed out", call.StepName), nil)
		}
		return saga.Failed(saga.FailureTransport, errors.Wrap(err, "step request failed").Error(), nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return saga.Failed(saga.FailureTimeout, fmt.Sprintf("%s timed out", call.StepName), nil)
		}
		return saga.Failed(saga.FailureTransport, errors.Wrap(err, "failed to read step reply").Error(), nil)
	}

	var raw json.RawMessage
	if json.Valid(data) {
		raw = data
	}

	var reply saga.StepReply
	parseErr := json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fmt.Sprintf("%s answered with status %d", call.StepName, resp.StatusCode)
		if parseErr == nil && reply.Detail() != "" {
			detail = reply.Detail()
		}
		return saga.Failed(saga.FailureRejected, detail, raw)
	}
	if parseErr != nil {
		return saga.Failed(saga.FailureRejected, fmt.Sprintf("%s answered with an unreadable body", call.StepName), raw)
	}
	if !reply.Success {
		detail := reply.Detail()
		if detail == "" {
			detail = fmt.Sprintf("%s was rejected", call.StepName)
		}
		return saga.Failed(saga.FailureRejected, detail, raw)
	}

	return saga.Succeeded(reply.Detail(), raw)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
