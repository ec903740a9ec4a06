package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/pkg/errors"

	"github.com/draftea/flight-booking/shared/events"
)

// AWSSettings selects region, credentials and endpoint overrides. Endpoints point at
// LocalStack in local environments and stay empty in AWS.
type AWSSettings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointSNS     string
	EndpointSQS     string
}

// LoadAWSConfig builds an aws.Config from the default chain, pinned to the given region
// and static credentials when both keys are set
func LoadAWSConfig(ctx context.Context, settings AWSSettings) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, config.WithRegion(settings.Region))
	}
	if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS config")
	}
	return cfg, nil
}

// SNSPublisherAdapter owns the SNS client behind an SNSEventPublisher
type SNSPublisherAdapter struct {
	snsPublisher *SNSEventPublisher
}

func NewSNSPublisherAdapter(ctx context.Context, settings AWSSettings, topicArn string) (*SNSPublisherAdapter, error) {
	if topicArn == "" {
		return nil, errors.New("sns topic arn is required")
	}

	cfg, err := LoadAWSConfig(ctx, settings)
	if err != nil {
		return nil, err
	}

	snsClient := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if settings.EndpointSNS != "" {
			o.BaseEndpoint = aws.String(settings.EndpointSNS)
		}
	})

	return &SNSPublisherAdapter{
		snsPublisher: NewSNSEventPublisher(snsClient, topicArn),
	}, nil
}

// Publish implements events.Publisher
func (p *SNSPublisherAdapter) Publish(ctx context.Context, evts ...*events.Event) error {
	return p.snsPublisher.Publish(ctx, evts...)
}

// Close is a no-op, SNS clients hold no connections of their own
func (p *SNSPublisherAdapter) Close() error {
	return nil
}
