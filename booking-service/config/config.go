package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	sharedinfra "github.com/draftea/flight-booking/shared/infrastructure"
	"github.com/draftea/flight-booking/shared/saga"
)

// State store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	ServiceName  string       `mapstructure:"service_name"`
	Env          string       `mapstructure:"env"`
	Port         string       `mapstructure:"port"`
	LogLevel     string       `mapstructure:"log_level"`
	Store        Store        `mapstructure:"store"`
	Database     Database     `mapstructure:"database"`
	Redis        Redis        `mapstructure:"redis"`
	Participants Participants `mapstructure:"participants"`
	Saga         Saga         `mapstructure:"saga"`
	Recovery     Recovery     `mapstructure:"recovery"`
	AWS          AWS          `mapstructure:"aws"`
	Telemetry    Telemetry    `mapstructure:"telemetry"`
}

type Store struct {
	Driver string `mapstructure:"driver"`
}

type Database struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// LeaseTTL is how long a saga lease outlives a crashed replica
	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
}

// Participants locates the services that own each step
type Participants struct {
	InventoryURL   string        `mapstructure:"inventory_url"`
	PaymentURL     string        `mapstructure:"payment_url"`
	LoyaltyURL     string        `mapstructure:"loyalty_url"`
	StepTimeout    time.Duration `mapstructure:"step_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

type Saga struct {
	MaxAttempts  int          `mapstructure:"max_attempts"`
	Compensation Compensation `mapstructure:"compensation"`
}

type Compensation struct {
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type Recovery struct {
	Enabled     bool          `mapstructure:"enabled"`
	Schedule    string        `mapstructure:"schedule"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	BatchSize   int           `mapstructure:"batch_size"`
	Parallelism int           `mapstructure:"parallelism"`
}

type AWS struct {
	EventsEnabled   bool   `mapstructure:"events_enabled"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	EndpointSNS     string `mapstructure:"endpoint_sns"`
	EndpointSQS     string `mapstructure:"endpoint_sqs"`
	SNSTopicArn     string `mapstructure:"sns_topic_arn"`
	SQSQueueURL     string `mapstructure:"sqs_queue_url"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// ReadConfig loads <ENVIRONMENT>.json from this package directory. BOOKING_* environment
// variables override file values, e.g. BOOKING_STORE_DRIVER=redis.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("unable to get current file")
	}
	return readConfig(filepath.Dir(filename), getConfigName())
}

func readConfig(configDir, name string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "booking-service")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8001"))
	v.SetDefault("log_level", "info")

	v.SetDefault("store.driver", StoreMemory)

	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "flight_booking")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.addr", getEnv("REDIS_ADDR", "localhost:6379"))
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lease_ttl", "30s")

	v.SetDefault("participants.inventory_url", "http://localhost:8002")
	v.SetDefault("participants.payment_url", "http://localhost:8002")
	v.SetDefault("participants.loyalty_url", "http://localhost:8002")
	v.SetDefault("participants.step_timeout", "30s")
	v.SetDefault("participants.confirm_timeout", "60s")

	v.SetDefault("saga.max_attempts", 1)
	v.SetDefault("saga.compensation.max_tries", 3)
	v.SetDefault("saga.compensation.initial_interval", "200ms")
	v.SetDefault("saga.compensation.max_interval", "2s")

	v.SetDefault("recovery.enabled", true)
	v.SetDefault("recovery.schedule", "@every 1m")
	v.SetDefault("recovery.stale_after", "5m")
	v.SetDefault("recovery.batch_size", 100)
	v.SetDefault("recovery.parallelism", 4)

	v.SetDefault("aws.events_enabled", false)
	v.SetDefault("aws.access_key_id", getEnv("AWS_ACCESS_KEY_ID", "test"))
	v.SetDefault("aws.secret_access_key", getEnv("AWS_SECRET_ACCESS_KEY", "test"))
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", "http://localhost:4566"))
	v.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", "http://localhost:4566"))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:saga-events"))
	v.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/booking-requests"))

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Participants.InventoryURL == "" || c.Participants.PaymentURL == "" || c.Participants.LoyaltyURL == "" {
		return errors.New("participant urls are required")
	}
	if c.Saga.MaxAttempts < 1 {
		return errors.New("saga.max_attempts must be at least 1")
	}
	if worst := c.WorstCaseStepDuration(); c.Recovery.Enabled && c.Recovery.StaleAfter <= worst {
		return errors.Errorf("recovery.stale_after %s must exceed the longest step %s", c.Recovery.StaleAfter, worst)
	}
	return nil
}

// WorstCaseStepDuration bounds how long a live saga can go without a store write: every
// attempt of the slowest step timing out, with the longest backoff between compensation tries.
func (c *Config) WorstCaseStepDuration() time.Duration {
	timeout := max(c.Participants.StepTimeout, c.Participants.ConfirmTimeout)
	if timeout <= 0 {
		timeout = max(saga.DefaultStepTimeout, saga.DefaultConfirmTimeout)
	}
	tries := max(c.Saga.MaxAttempts, int(c.Saga.Compensation.MaxTries), 1)
	return timeout*time.Duration(tries) + c.Saga.Compensation.MaxInterval*time.Duration(tries-1)
}

// GetDatabaseURL returns database.url when set, else builds one from its parts
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// AWSSettings returns the AWS client settings
func (c *Config) AWSSettings() sharedinfra.AWSSettings {
	return sharedinfra.AWSSettings{
		Region:          c.AWS.Region,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		EndpointSNS:     c.AWS.EndpointSNS,
		EndpointSQS:     c.AWS.EndpointSQS,
	}
}
