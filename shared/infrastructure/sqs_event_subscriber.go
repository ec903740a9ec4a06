package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/draftea/flight-booking/shared/events"
	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/telemetry"
)

const (
	SQSMessageIDKey     = "sqs_message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
)

// sqsAPI is the part of the SQS client the subscriber needs
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type sqsMessage struct {
	Message types.Message
	Event   *events.Event
	Err     error
}

// snsEnvelope is what SQS receives from an SNS subscription without raw delivery
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// SQSEventSubscriber pulls events from an SQS queue and hands them to a handler. Readers
// long-poll the queue, workers run the handler and cleaners delete handled messages or push
// back the visibility of failed ones so SQS redelivers them later.
type SQSEventSubscriber struct {
	mux              sync.Mutex
	inboundMessages  chan *sqsMessage
	outboundMessages chan *sqsMessage
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	running          atomic.Bool
	options          *sqsSubscriberOptions

	client   sqsAPI
	queueURL string
	handler  events.EventHandler
	logger   zerolog.Logger
}

type sqsSubscriberOptions struct {
	workers                        int32
	readers                        int32
	cleaners                       int32
	maxNumberOfMessages            int32
	waitTimeSeconds                int32
	visibilityTimeout              int32
	sleepTimeAfterEmptyReceive     time.Duration
	sleepTimeAfterError            time.Duration
	extendVisibilityTimeoutOnError bool
	receiveCountRange              int32
	visibilityTimeoutOffset        int32
	maxVisibilityTimeout           int32
	logger                         zerolog.Logger
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

func WithWorkers(workers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.workers = workers
	}
}

func WithReaders(readers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.readers = readers
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.visibilityTimeout = timeout
	}
}

func WithWaitTimeSeconds(seconds int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
	}
}

func WithIdleSleep(empty, onError time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.sleepTimeAfterEmptyReceive = empty
		o.sleepTimeAfterError = onError
	}
}

func WithSubscriberLogger(logger zerolog.Logger) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.logger = logger
	}
}

func NewSQSEventSubscriber(client sqsAPI, queueURL string, handler events.EventHandler, opts ...SQSSubscriberOption) *SQSEventSubscriber {
	options := &sqsSubscriberOptions{
		workers:                        10,
		readers:                        1,
		cleaners:                       2,
		maxNumberOfMessages:            5,
		waitTimeSeconds:                15,
		visibilityTimeout:              150,
		sleepTimeAfterEmptyReceive:     time.Second,
		sleepTimeAfterError:            20 * time.Second,
		extendVisibilityTimeoutOnError: true,
		receiveCountRange:              3,
		visibilityTimeoutOffset:        30,
		maxVisibilityTimeout:           900,
		logger:                         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &SQSEventSubscriber{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		options:  options,
		logger:   options.logger,
	}
}

// Start launches the readers, workers and cleaners. It returns immediately.
func (s *SQSEventSubscriber) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.running.Load() {
		return nil
	}
	if s.handler == nil {
		return errors.New("no handler configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.inboundMessages = make(chan *sqsMessage, s.options.maxNumberOfMessages*2)
	s.outboundMessages = make(chan *sqsMessage, s.options.maxNumberOfMessages*2)

	s.spawn(ctx, s.options.workers, s.startWorker)
	s.spawn(ctx, s.options.readers, s.startReader)
	s.spawn(ctx, s.options.cleaners, s.startCleaner)

	s.running.Store(true)
	s.logger.Info().Str("queue_url", s.queueURL).Msg("sqs subscriber started")
	return nil
}

// Stop cancels every goroutine and waits for them to return
func (s *SQSEventSubscriber) Stop(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.running.Load() {
		return nil
	}

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	s.running.Store(false)
	select {
	case <-done:
		s.logger.Info().Str("queue_url", s.queueURL).Msg("sqs subscriber stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sqs subscriber did not stop in time")
	}
}

func (s *SQSEventSubscriber) spawn(ctx context.Context, n int32, fn func(ctx context.Context)) {
	for i := int32(0); i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fn(ctx)
		}()
	}
}

func (s *SQSEventSubscriber) startWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.inboundMessages:
			s.handle(ctx, message)
		}
	}
}

func (s *SQSEventSubscriber) startReader(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		received, err := s.read(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Error().Err(err).Str("queue_url", s.queueURL).Msg("failed to read from sqs")
			sleep(ctx, s.options.sleepTimeAfterError)
		case err == nil && received == 0:
			sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		}
	}
}

func (s *SQSEventSubscriber) startCleaner(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.outboundMessages:
			if err := s.clean(ctx, message); err != nil {
				s.logger.Error().Err(err).Str("message_id", aws.ToString(message.Message.MessageId)).Msg("failed to settle sqs message")
			}
		}
	}
}

func (s *SQSEventSubscriber) read(ctx context.Context) (int, error) {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.options.maxNumberOfMessages,
		WaitTimeSeconds:     s.options.waitTimeSeconds,
		VisibilityTimeout:   s.options.visibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to receive message from SQS")
	}

	for _, message := range output.Messages {
		event, err := decodeSQSMessage(message)
		if err != nil {
			// Left on the queue; the redrive policy moves it to the DLQ
			s.logger.Warn().Err(err).Str("message_id", aws.ToString(message.MessageId)).Msg("skipping malformed sqs message")
			continue
		}

		select {
		case s.inboundMessages <- &sqsMessage{Message: message, Event: event}:
		case <-ctx.Done():
			return len(output.Messages), ctx.Err()
		}
	}

	return len(output.Messages), nil
}

func (s *SQSEventSubscriber) handle(ctx context.Context, message *sqsMessage) {
	message.Err = s.handler.Handle(ctx, message.Event)

	result := "success"
	if message.Err != nil {
		result = "error"
		s.logger.Error().Err(message.Err).
			Str("topic", message.Event.Topic.String()).
			Str("correlation_id", message.Event.CorrelationID.String()).
			Msg("event handler failed")
	}
	telemetry.RecordCounter(ctx, "events_consumed_total", "Events consumed from SQS", 1,
		attribute.String("topic", message.Event.Topic.String()),
		attribute.String("result", result))

	select {
	case s.outboundMessages <- message:
	case <-ctx.Done():
	}
}

func (s *SQSEventSubscriber) clean(ctx context.Context, message *sqsMessage) error {
	if message.Err != nil {
		if !s.options.extendVisibilityTimeoutOnError {
			return nil
		}

		receiveCount, err := strconv.Atoi(message.Message.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
		if err != nil {
			receiveCount = 1
		}

		_, err = s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(s.queueURL),
			ReceiptHandle:     message.Message.ReceiptHandle,
			VisibilityTimeout: s.backoffVisibility(receiveCount),
		})
		return errors.Wrap(err, "failed to extend visibility timeout")
	}

	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: message.Message.ReceiptHandle,
	})
	return errors.Wrap(err, "failed to delete message from SQS")
}

// backoffVisibility grows the visibility timeout every receiveCountRange deliveries
func (s *SQSEventSubscriber) backoffVisibility(receiveCount int) int32 {
	visibilityTimeout := s.options.visibilityTimeout
	visibilityTimeout += (int32(receiveCount) / s.options.receiveCountRange) * s.options.visibilityTimeoutOffset
	if visibilityTimeout > s.options.maxVisibilityTimeout {
		visibilityTimeout = s.options.maxVisibilityTimeout
	}
	return visibilityTimeout
}

// decodeSQSMessage accepts both raw events and SNS notifications wrapping one
func decodeSQSMessage(message types.Message) (*events.Event, error) {
	body := []byte(aws.ToString(message.Body))

	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Type == "Notification" {
		body = []byte(envelope.Message)
	}

	var msg snsMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.Wrap(err, "failed to decode event")
	}
	topic, err := events.ParseTopic(msg.Topic)
	if err != nil {
		return nil, err
	}

	event := &events.Event{
		ID:            models.ID(msg.ID),
		AggregateID:   models.ID(msg.AggregateID),
		Topic:         topic,
		Version:       msg.Version,
		Data:          msg.Payload,
		Metadata:      msg.Metadata,
		Timestamp:     msg.Timestamp,
		CorrelationID: models.ID(msg.CorrelationID),
	}
	if event.Metadata == nil {
		event.Metadata = make(events.Metadata)
	}

	event.Metadata.Set(SQSMessageIDKey, aws.ToString(message.MessageId))
	if message.ReceiptHandle != nil {
		event.Metadata.Set(SQSReceiptHandleKey, *message.ReceiptHandle)
	}
	for k, v := range message.MessageAttributes {
		if v.StringValue != nil {
			event.Metadata.Set(k, *v.StringValue)
		}
	}
	if event.CorrelationID == "" {
		if id, ok := event.Metadata.Get("correlation_id"); ok {
			event.CorrelationID = models.ID(id)
		}
	}

	return event, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
