package observability

import (
	"testing"

	"judgequiz/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupObservability_AppliesLogLevel(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName:   "judgequiz-test",
		EnableLogging: true,
	}

	tp, logger, err := SetupObservability(cfg, "", ParseLevel("debug"))
	require.NoError(t, err)
	assert.Nil(t, tp)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, logger, err = SetupObservability(cfg, "", ParseLevel("warn"))
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestSetupObservability_LoggingDisabledIsNop(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{ServiceName: "judgequiz-test"}

	tp, logger, err := SetupObservability(cfg, "", ParseLevel("debug"))
	require.NoError(t, err)
	assert.Nil(t, tp)
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
