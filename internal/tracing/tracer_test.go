package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bekapono/shopping-cart/internal/pkg/config"
)

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", Sampler(1).Description())
	assert.Equal(t, "AlwaysOnSampler", Sampler(2).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, Sampler(0).Description(), "AlwaysOffSampler")
}

func TestInitTracerProvider_RegistersGlobal(t *testing.T) {
	tp, err := InitTracerProvider(
		config.ServiceConfig{Name: "checkout-test", Port: 8080},
		config.JaegerConfig{Endpoint: "http://127.0.0.1:14268/api/traces", SampleRatio: 1},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.Same(t, tp, otel.GetTracerProvider())
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}

func TestResource_DescribesServiceInstance(t *testing.T) {
	res := Resource(config.ServiceConfig{Name: "payment-service", Port: 8090})

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "payment-service", name.AsString())

	instance, ok := res.Set().Value(semconv.ServiceInstanceIDKey)
	require.True(t, ok)
	assert.Regexp(t, `:8090$`, instance.AsString())
}
