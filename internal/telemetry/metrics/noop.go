package metrics

import (
	"context"
)

// NoopMetricsSvc drops every run and variant counter. Used when
// OTEL_ENABLED is off and in tests.
type NoopMetricsSvc struct{}

var _ MetricsSvc = (*NoopMetricsSvc)(nil)

func NewNoopMetricsSvc() *NoopMetricsSvc {
	return &NoopMetricsSvc{}
}

func (*NoopMetricsSvc) Increment(MetricName, map[string]string) {}

func (*NoopMetricsSvc) Shutdown(context.Context) error {
	return nil
}
