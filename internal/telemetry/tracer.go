// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry installs the OpenTelemetry tracer provider of streampushd
// and the span helpers used by the supervisor and the control API.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is the service.name every span is reported under.
const ServiceName = "streampushd"

// Exporter selects the OTLP transport.
type Exporter string

const (
	ExporterGRPC Exporter = "grpc"
	ExporterHTTP Exporter = "http"
)

// ParseExporter parses an exporter name; matching is case-insensitive.
func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(strings.TrimSpace(s))); e {
	case ExporterGRPC, ExporterHTTP:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported exporter %q (supported: grpc, http)", s)
	}
}

// Config describes the tracer provider of one daemon run.
type Config struct {
	Enabled      bool
	Exporter     Exporter
	Endpoint     string // host:port of the OTLP collector
	SamplingRate float64
	Environment  string
	Version      string
	// InstanceID tells restarted daemons apart; generated when empty.
	InstanceID string
}

// Provider owns the installed tracer provider. The zero value is the
// disabled provider.
type Provider struct {
	tp         *sdktrace.TracerProvider
	instanceID string
}

// NewProvider installs the global tracer provider for cfg. A disabled
// config installs a noop provider so that spans cost nothing.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	exporter, err := newExporter(ctx, cfg.Exporter, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	// Remote parents from API clients keep their sampling decision.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{tp: tp, instanceID: cfg.InstanceID}, nil
}

func newExporter(ctx context.Context, kind Exporter, endpoint string) (sdktrace.SpanExporter, error) {
	// The collector is expected next to the daemon; transport is plaintext.
	switch kind {
	case ExporterGRPC:
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp grpc exporter: %w", err)
		}
		return exp, nil
	case ExporterHTTP:
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp http exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unsupported exporter %q (supported: grpc, http)", kind)
	}
}

// newResource describes this daemon run: version, run instance, host and pid.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			semconv.ServiceInstanceIDKey.String(cfg.InstanceID),
		),
		resource.WithHost(),
		resource.WithProcessPID(),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironmentKey.String(cfg.Environment)))
	}
	return resource.New(ctx, attrs...)
}

// InstanceID returns the service.instance.id of this run, empty when
// tracing is disabled.
func (p *Provider) InstanceID() string { return p.instanceID }

// Shutdown flushes pending spans. The caller bounds it through ctx.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Tracer returns a tracer from the installed provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
