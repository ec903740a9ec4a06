// Package events defines the messages the booking service exchanges over SNS/SQS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/draftea/flight-booking/shared/models"
)

// EventVersion is stamped on every event this module produces
const EventVersion = "1.0"

// Topic identifies the kind of event on the bus
type Topic string

const (
	// BookingRequestedEvent carries a start-booking body into the booking service
	BookingRequestedEvent Topic = "booking.requested"

	SagaStartedEvent     Topic = "saga.started"
	SagaCompletedEvent   Topic = "saga.completed"
	SagaCompensatedEvent Topic = "saga.compensated"
	SagaFailedEvent      Topic = "saga.failed"
)

var (
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// ParseTopic reads a topic from a message attribute or body
func ParseTopic(topic string) (Topic, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrInvalidTopic
	}
	return Topic(topic), nil
}

func (t Topic) String() string {
	return string(t)
}

// IsSagaLifecycle reports whether the topic is one the orchestrator publishes
func (t Topic) IsSagaLifecycle() bool {
	return strings.HasPrefix(string(t), "saga.")
}

// Metadata travels as message attributes
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	m[key] = value
}

// Event is one message on the bus. AggregateID and CorrelationID both carry the saga
// correlation id; Data is the payload, kept raw when it was read off the wire.
type Event struct {
	ID            models.ID   `json:"id"`
	AggregateID   models.ID   `json:"aggregate_id"`
	Topic         Topic       `json:"topic"`
	Version       string      `json:"version"`
	Data          interface{} `json:"data"`
	Metadata      Metadata    `json:"metadata"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID models.ID   `json:"correlation_id"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// EventHandler handles one delivered event. Returning an error leaves the message on the
// queue for redelivery.
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

func NewEvent(correlationID models.ID, topic Topic, data interface{}) *Event {
	return &Event{
		ID:            models.GenerateUUID(),
		AggregateID:   correlationID,
		Topic:         topic,
		Version:       EventVersion,
		Data:          data,
		Metadata:      make(Metadata),
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// MarshalPayload returns Data as JSON without re-encoding raw payloads
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	switch data := e.Data.(type) {
	case json.RawMessage:
		return data, nil
	case []byte:
		return data, nil
	default:
		return json.Marshal(data)
	}
}

// UnmarshalPayload decodes Data into v, which must be a pointer. A payload that already has
// v's type is copied directly.
func (e *Event) UnmarshalPayload(v interface{}) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return ErrInvalidReceiver
	}

	if payload := reflect.ValueOf(e.Data); payload.IsValid() && payload.Type() == target.Elem().Type() {
		target.Elem().Set(payload)
		return nil
	}

	raw, err := e.MarshalPayload()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
