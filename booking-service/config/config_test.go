package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Local(t *testing.T) {
	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "booking-service", cfg.ServiceName)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Participants.StepTimeout)
	assert.Equal(t, 60*time.Second, cfg.Participants.ConfirmTimeout)
	assert.Equal(t, uint(3), cfg.Saga.Compensation.MaxTries)
	assert.Equal(t, 200*time.Millisecond, cfg.Saga.Compensation.InitialInterval)
	assert.Equal(t, "@every 1m", cfg.Recovery.Schedule)
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_STORE_DRIVER", "redis")
	t.Setenv("BOOKING_REDIS_ADDR", "redis:6379")
	t.Setenv("BOOKING_SAGA_MAX_ATTEMPTS", "3")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Saga.MaxAttempts)
}

func TestReadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := readConfig(t.TempDir(), "nope")
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.Recovery.StaleAfter)
	assert.Equal(t, 30*time.Second, cfg.Redis.LeaseTTL)
}

func TestReadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"store":{"driver":"mongo"}}`), 0o600))

	_, err := readConfig(dir, "broken")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestConfig_GetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: Database{User: "u", Password: "p", Host: "db", Port: 5432, Database: "flights", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@db:5432/flights?sslmode=disable", cfg.GetDatabaseURL())

	cfg.Database.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.GetDatabaseURL())
}

func TestConfig_ValidateStaleAfter(t *testing.T) {
	base := func() Config {
		return Config{
			Store: Store{Driver: StorePostgres},
			Participants: Participants{
				InventoryURL:   "http://inventory",
				PaymentURL:     "http://payment",
				LoyaltyURL:     "http://loyalty",
				StepTimeout:    30 * time.Second,
				ConfirmTimeout: 60 * time.Second,
			},
			Saga: Saga{
				MaxAttempts:  1,
				Compensation: Compensation{MaxTries: 3, MaxInterval: 2 * time.Second},
			},
			Recovery: Recovery{Enabled: true, StaleAfter: 5 * time.Minute},
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		worst       time.Duration
		expectedErr string
	}{
		{
			name:  "defaults",
			worst: 184 * time.Second,
		},
		{
			name: "forward retries outlast stale_after",
			mutate: func(c *Config) {
				c.Saga.MaxAttempts = 3
				c.Recovery.StaleAfter = 2 * time.Minute
			},
			worst:       184 * time.Second,
			expectedErr: "recovery.stale_after 2m0s must exceed the longest step 3m4s",
		},
		{
			name: "more forward attempts than compensation tries",
			mutate: func(c *Config) {
				c.Saga.MaxAttempts = 5
			},
			worst:       308 * time.Second,
			expectedErr: "must exceed the longest step",
		},
		{
			name: "recovery disabled",
			mutate: func(c *Config) {
				c.Recovery.Enabled = false
				c.Recovery.StaleAfter = time.Second
			},
			worst: 184 * time.Second,
		},
		{
			name: "default timeouts",
			mutate: func(c *Config) {
				c.Participants.StepTimeout = 0
				c.Participants.ConfirmTimeout = 0
			},
			worst: 184 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			assert.Equal(t, tt.worst, cfg.WorstCaseStepDuration())
			err := cfg.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.expectedErr)
		})
	}
}
