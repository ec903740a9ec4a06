package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/events"
)

// SQSSubscriberAdapter owns the SQS client and starts a subscriber on the first Subscribe
type SQSSubscriberAdapter struct {
	mux        sync.Mutex
	client     *sqs.Client
	queueURL   string
	options    []SQSSubscriberOption
	subscriber *SQSEventSubscriber
}

func NewSQSSubscriberAdapter(ctx context.Context, settings AWSSettings, queueURL string, opts ...SQSSubscriberOption) (*SQSSubscriberAdapter, error) {
	if queueURL == "" {
		return nil, errors.New("sqs queue url is required")
	}

	cfg, err := LoadAWSConfig(ctx, settings)
	if err != nil {
		return nil, err
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if settings.EndpointSQS != "" {
			o.BaseEndpoint = aws.String(settings.EndpointSQS)
		}
	})

	return &SQSSubscriberAdapter{
		client:   client,
		queueURL: queueURL,
		options:  opts,
	}, nil
}

// Subscribe starts delivering queue events to handler until ctx is cancelled or Close is called
func (s *SQSSubscriberAdapter) Subscribe(ctx context.Context, handler events.EventHandler) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.subscriber != nil {
		return errors.New("subscriber is already running")
	}

	subscriber := NewSQSEventSubscriber(s.client, s.queueURL, handler, s.options...)
	if err := subscriber.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start SQS subscriber")
	}

	s.subscriber = subscriber
	return nil
}

// Close stops the subscriber, waiting up to 30 seconds for in-flight handlers
func (s *SQSSubscriberAdapter) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.subscriber == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.subscriber.Stop(ctx); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}

	s.subscriber = nil
	return nil
}
