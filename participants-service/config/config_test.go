package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	t.Setenv("PARTICIPANTS_PORT", "9100")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "participants-service", cfg.ServiceName)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Telemetry.Enabled)
}
