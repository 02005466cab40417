// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func restoreNoop(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Exporter: "bogus"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)
	assert.Empty(t, provider.InstanceID())

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "disabled telemetry must install a noop tracer")
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin", Endpoint: "x"})
	require.EqualError(t, err, `unsupported exporter "zipkin" (supported: grpc, http)`)
}

func TestNewProvider_EnabledGeneratesInstanceID(t *testing.T) {
	restoreNoop(t)
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		Exporter:     ExporterHTTP,
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 1,
		Version:      "test",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, provider.InstanceID())

	_, span := Tracer("test").Start(context.Background(), "sampled")
	assert.True(t, span.IsRecording())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = provider.Shutdown(ctx)
}

func TestParseExporter(t *testing.T) {
	tests := []struct {
		in      string
		want    Exporter
		wantErr bool
	}{
		{in: "grpc", want: ExporterGRPC},
		{in: " HTTP ", want: ExporterHTTP},
		{in: "", wantErr: true},
		{in: "jaeger", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExporter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), Config{Version: "1.2.3", InstanceID: "run-1", Environment: "lab"})
	require.NoError(t, err)

	set := res.Set()
	for key, want := range map[string]string{
		"service.name":           ServiceName,
		"service.version":        "1.2.3",
		"service.instance.id":    "run-1",
		"deployment.environment": "lab",
	} {
		v, ok := set.Value(attribute.Key(key))
		require.True(t, ok, key)
		assert.Equal(t, want, v.AsString(), key)
	}
	_, ok := set.Value(attribute.Key("process.pid"))
	assert.True(t, ok)

	res, err = newResource(context.Background(), Config{InstanceID: "run-2"})
	require.NoError(t, err)
	_, ok = res.Set().Value(attribute.Key("deployment.environment"))
	assert.False(t, ok, "empty environment must not be reported")
}

func TestProvider_ShutdownDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestTracer(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)

	tracer := Tracer("test-tracer")
	require.NotNil(t, tracer)
	ctx, span := tracer.Start(context.Background(), "test-span")
	require.NotNil(t, span)
	span.End()
	assert.NotNil(t, trace.SpanFromContext(ctx))
}
