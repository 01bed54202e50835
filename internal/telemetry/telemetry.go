// Package telemetry exposes the metrics recorded by resize runs.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/giobyte8/picturefill/internal/telemetry/metrics"
)

type TelemetrySvc struct {
	metrics metrics.MetricsSvc
}

// NewTelemetrySvc exports run metrics over OTLP when OTEL_ENABLED is
// true, and discards them otherwise.
func NewTelemetrySvc(ctx context.Context) (*TelemetrySvc, error) {
	if !otelEnabled() {
		slog.Debug("OpenTelemetry disabled, run metrics are discarded")
		return NewNoopTelemetrySvc(), nil
	}

	metricsSvc, err := metrics.NewOtelMetricsSvc(ctx)
	if err != nil {
		return nil, err
	}
	return NewTelemetrySvcWith(metricsSvc), nil
}

func otelEnabled() bool {
	raw := os.Getenv("OTEL_ENABLED")
	if raw == "" {
		return false
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring invalid OTEL_ENABLED", "value", raw)
		return false
	}
	return enabled
}

// NewNoopTelemetrySvc returns a TelemetrySvc that discards every metric.
func NewNoopTelemetrySvc() *TelemetrySvc {
	return NewTelemetrySvcWith(metrics.NewNoopMetricsSvc())
}

// NewTelemetrySvcWith wraps an existing metrics service.
func NewTelemetrySvcWith(metricsSvc metrics.MetricsSvc) *TelemetrySvc {
	return &TelemetrySvc{metrics: metricsSvc}
}

func (t *TelemetrySvc) Metrics() metrics.MetricsSvc {
	return t.metrics
}

// Shutdown flushes pending exports.
func (t *TelemetrySvc) Shutdown(ctx context.Context) error {
	return t.metrics.Shutdown(ctx)
}
