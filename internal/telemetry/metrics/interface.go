package metrics

import (
	"context"
)

// Custom type to represent a metric name,
// providing a type-safe way to handle metric names.
type MetricName string

const (
	RunStarted       MetricName = "picturefill.run.started"
	RunFinished      MetricName = "picturefill.run.finished"
	VariantCreated   MetricName = "picturefill.variant.created"
	VariantNativeDim MetricName = "picturefill.variant.native_size"
)

type MetricsSvc interface {
	Increment(metric MetricName, attrs map[string]string)
	Shutdown(ctx context.Context) error
}
