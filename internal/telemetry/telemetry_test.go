package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "order-pipeline", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitWithEndpoint(t *testing.T) {
	// the exporter connects lazily, so no collector is needed to build it
	shutdown, err := Init(context.Background(), "order-pipeline", "localhost:4318")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
}
