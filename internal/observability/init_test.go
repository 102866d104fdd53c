package observability_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tensorfang/internal/observability"
)

func TestInitWithoutEndpointUsesNoopProviders(t *testing.T) {
	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Shutdown)

	// Spans and instruments from noop providers cost nothing and never fail.
	_, span := providers.Tracer.Start(context.Background(), "test")
	span.End()

	_, err = providers.Meter.Int64Counter("test.counter")
	require.NoError(t, err)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "tensorfang", cfg.ServiceName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Positive(t, cfg.ShutdownTimeoutSec)
}
