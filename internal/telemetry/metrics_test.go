package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.ProvisionTotal)
	require.NotNil(t, m.ProvisionDuration)
	require.NotNil(t, m.ProvisionStepFailures)
	require.NotNil(t, m.CompensationsTotal)
	require.NotNil(t, m.KeysIssuedTotal)
	require.NotNil(t, m.KeysDeletedTotal)
	require.NotNil(t, m.KeyVerificationsTotal)

	// recording against the default no-op provider must not panic
	m.ProvisionTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", "success")))
}
