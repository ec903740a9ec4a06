package config

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/draftea/flight-booking/booking-service/application"
	"github.com/draftea/flight-booking/booking-service/handlers"
	"github.com/draftea/flight-booking/booking-service/infrastructure"
	sharedinfra "github.com/draftea/flight-booking/shared/infrastructure"
	"github.com/draftea/flight-booking/shared/saga"
	"github.com/draftea/flight-booking/shared/telemetry"
)

type Dependencies struct {
	// Storage
	DB    *sqlx.DB
	Redis *redis.Client
	Store saga.StateStore
	Audit saga.AuditLog

	Orchestrator *saga.Orchestrator

	// Use Cases
	StartBooking  *application.StartBookingSaga
	GetSagaStatus *application.GetSagaStatus
	GetSagaLogs   *application.GetSagaLogs
	RecoverSagas  *application.RecoverSagas

	// Handlers
	BookingHandlers      *handlers.BookingHandlers
	BookingEventHandlers *handlers.BookingEventHandlers

	// Infrastructure
	Telemetry         *telemetry.Telemetry
	shutdownTelemetry func()
	EventPublisher    *sharedinfra.SNSPublisherAdapter
	EventSubscriber   *sharedinfra.SQSSubscriberAdapter
	RecoveryScheduler *infrastructure.RecoveryScheduler
}

func BuildDependencies(ctx context.Context, config *Config, log zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	if err := deps.buildTelemetry(ctx, config); err != nil {
		return nil, err
	}

	if err := deps.buildStorage(ctx, config, log); err != nil {
		deps.Close()
		return nil, err
	}

	opts := []saga.Option{
		saga.WithAuditLog(deps.Audit),
		saga.WithLogger(log),
		saga.WithCompensationRetry(saga.CompensationRetry{
			MaxTries:        config.Saga.Compensation.MaxTries,
			InitialInterval: config.Saga.Compensation.InitialInterval,
			MaxInterval:     config.Saga.Compensation.MaxInterval,
		}),
	}

	if config.AWS.EventsEnabled {
		publisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, config.AWSSettings(), config.AWS.SNSTopicArn)
		if err != nil {
			deps.Close()
			return nil, errors.Wrap(err, "failed to create SNS publisher")
		}
		deps.EventPublisher = publisher
		opts = append(opts, saga.WithPublisher(publisher))

		subscriber, err := sharedinfra.NewSQSSubscriberAdapter(ctx, config.AWSSettings(), config.AWS.SQSQueueURL,
			sharedinfra.WithSubscriberLogger(log))
		if err != nil {
			deps.Close()
			return nil, errors.Wrap(err, "failed to create SQS subscriber")
		}
		deps.EventSubscriber = subscriber
	}

	orchestrator, err := saga.NewOrchestrator(
		bookingDefinition(config),
		deps.Store,
		sharedinfra.NewHTTPStepClient(nil),
		opts...,
	)
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to create saga orchestrator")
	}
	deps.Orchestrator = orchestrator

	// Initialize use cases
	deps.StartBooking = application.NewStartBookingSaga(orchestrator)
	deps.GetSagaStatus = application.NewGetSagaStatus(orchestrator)
	deps.GetSagaLogs = application.NewGetSagaLogs(orchestrator, deps.Audit)
	deps.RecoverSagas = application.NewRecoverSagas(orchestrator, deps.Store, application.RecoveryOptions{
		StaleAfter:  config.Recovery.StaleAfter,
		BatchSize:   config.Recovery.BatchSize,
		Parallelism: config.Recovery.Parallelism,
	}, log)

	// Initialize handlers
	deps.BookingHandlers = handlers.NewBookingHandlers(deps.StartBooking, deps.GetSagaStatus, deps.GetSagaLogs)
	deps.BookingEventHandlers = handlers.NewBookingEventHandlers(deps.StartBooking, log)

	if config.Recovery.Enabled {
		scheduler, err := infrastructure.NewRecoveryScheduler(deps.RecoverSagas, config.Recovery.Schedule, log)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.RecoveryScheduler = scheduler
	}

	return deps, nil
}

func (d *Dependencies) buildTelemetry(ctx context.Context, config *Config) error {
	telConfig := telemetry.BookingServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
	if !config.Telemetry.Enabled {
		d.Telemetry = telemetry.NewTelemetry(telConfig)
		return nil
	}

	tel, shutdown, err := telemetry.InitTelemetry(ctx, telConfig)
	if err != nil {
		return errors.Wrap(err, "failed to initialize telemetry")
	}
	d.Telemetry = tel
	d.shutdownTelemetry = shutdown
	return nil
}

func (d *Dependencies) buildStorage(ctx context.Context, config *Config, log zerolog.Logger) error {
	switch config.Store.Driver {
	case StorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", config.GetDatabaseURL())
		if err != nil {
			return errors.Wrap(err, "failed to connect to database")
		}
		d.DB = db
		d.Store = sharedinfra.NewPostgresSagaStore(db)
		d.Audit = sharedinfra.NewPostgresAuditLog(db)

	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return errors.Wrap(err, "failed to ping redis")
		}
		d.Redis = client
		d.Store = sharedinfra.NewRedisSagaStore(client).
			WithLeaseTTL(config.Redis.LeaseTTL).
			WithLogger(log)
		d.Audit = sharedinfra.NewRedisAuditLog(client)

	default:
		d.Store = saga.NewMemoryStateStore()
		d.Audit = saga.NewMemoryAuditLog()
	}
	return nil
}

func bookingDefinition(config *Config) saga.Definition {
	endpoints := saga.BookingEndpointsFromBase(
		config.Participants.InventoryURL,
		config.Participants.PaymentURL,
		config.Participants.LoyaltyURL,
	)
	if config.Participants.StepTimeout > 0 {
		endpoints.StepTimeout = config.Participants.StepTimeout
	}
	if config.Participants.ConfirmTimeout > 0 {
		endpoints.ConfirmTimeout = config.Participants.ConfirmTimeout
	}

	def := saga.BookingDefinition(endpoints)
	for i := range def.Steps {
		def.Steps[i].MaxAttempts = config.Saga.MaxAttempts
	}
	return def
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.RecoveryScheduler != nil {
		<-d.RecoveryScheduler.Stop().Done()
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.shutdownTelemetry != nil {
		d.shutdownTelemetry()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
