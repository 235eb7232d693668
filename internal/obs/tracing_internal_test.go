package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExporterOptions(t *testing.T) {
	require.Nil(t, exporterOptions(" "))
	require.Len(t, exporterOptions("https://collector:4318/v1/traces"), 1)
	require.Len(t, exporterOptions("collector:4318"), 2)
}

func TestSamplerFor(t *testing.T) {
	require.Contains(t, samplerFor(0).Description(), "AlwaysOnSampler")
	require.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestInitTracerNone(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), TracingConfig{Exporter: "jaeger"})
	require.Error(t, err)
}
