package infrastructure

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/draftea/flight-booking/shared/events"
	"github.com/draftea/flight-booking/shared/telemetry"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const maxBatchSize = 10

// snsAPI is the part of the SNS client the publisher needs
type snsAPI interface {
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// snsMessage is the body delivered to subscribers. SQS consumers decode it back into an events.Event.
type snsMessage struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id"`
	Metadata      events.Metadata `json:"metadata"`
	Topic         string          `json:"topic"`
	Version       string          `json:"version"`
	Payload       json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SNSEventPublisher publishes saga lifecycle events to an SNS topic
type SNSEventPublisher struct {
	client   snsAPI
	topicArn string
}

func NewSNSEventPublisher(client snsAPI, topicArn string) *SNSEventPublisher {
	return &SNSEventPublisher{
		client:   client,
		topicArn: topicArn,
	}
}

// Publish sends events in batches of ten, concurrently
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	gr, ctx := errgroup.WithContext(ctx)
	for _, eventBatch := range splitToChunks(evts, maxBatchSize) {
		eventBatch := eventBatch
		gr.Go(func() error {
			return p.batchPublish(ctx, eventBatch)
		})
	}

	return gr.Wait()
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, batch []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(batch))

	for i, event := range batch {
		payload, err := event.MarshalPayload()
		if err != nil {
			return errors.Wrap(err, "failed to marshal payload")
		}

		msgJSON, err := json.Marshal(&snsMessage{
			ID:            event.ID.String(),
			AggregateID:   event.AggregateID.String(),
			CorrelationID: event.CorrelationID.String(),
			Metadata:      event.Metadata,
			Topic:         event.Topic.String(),
			Version:       event.Version,
			Payload:       payload,
			Timestamp:     event.Timestamp,
		})
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}

		attrs := map[string]types.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Topic.String()),
			},
			"correlation_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.CorrelationID.String()),
			},
		}
		for k, v := range event.Metadata {
			if k == SQSMessageIDKey || k == SQSReceiptHandleKey || v == "" {
				continue
			}
			attrs[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}

		requests[i] = types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(msgJSON)),
			MessageAttributes: attrs,
		}
	}

	res, err := p.client.PublishBatch(ctx, &sns.PublishBatchInput{
		TopicArn:                   aws.String(p.topicArn),
		PublishBatchRequestEntries: requests,
	})
	if err != nil {
		telemetry.RecordCounter(ctx, "events_published_total", "Events published to SNS", int64(len(batch)),
			attribute.String("result", "error"))
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	failed := map[string]string{}
	for _, entry := range res.Failed {
		failed[aws.ToString(entry.Id)] = aws.ToString(entry.Message)
	}

	var failures []string
	for _, event := range batch {
		result := "success"
		if msg, ok := failed[event.ID.String()]; ok {
			result = "failed"
			failures = append(failures, event.Topic.String()+" "+event.ID.String()+": "+msg)
		}
		telemetry.RecordCounter(ctx, "events_published_total", "Events published to SNS", 1,
			attribute.String("topic", event.Topic.String()),
			attribute.String("result", result))
	}

	if len(failures) > 0 {
		return errors.Errorf("failed to publish %d events: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := i + chunkSize
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
