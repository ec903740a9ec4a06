package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type output struct {
	w io.Writer
}

func stdout() *output {
	return &output{w: os.Stdout}
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(g *Globals) *client {
	return &client{
		baseURL: strings.TrimRight(g.URL, "/"),
		http:    &http.Client{Timeout: g.Timeout},
	}
}

// readBookingFile loads a start-booking body and optionally pins its correlation id
func readBookingFile(path, correlationID string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read booking file")
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.Wrap(err, "booking file is not a JSON object")
	}
	if correlationID != "" {
		id, _ := json.Marshal(correlationID)
		body["correlation_id"] = id
	}
	return json.Marshal(body)
}

// do sends the request and pretty prints the JSON answer. Non-2xx answers are printed
// and returned as an error.
func (c *client) do(method, path string, body []byte, out *output) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, payload, "", "  ") == nil {
		payload = pretty.Bytes()
	}
	fmt.Fprintln(out.w, string(payload))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("booking service answered %d", resp.StatusCode)
	}
	return nil
}
