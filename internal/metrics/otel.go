package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	otelMetricsOnce       sync.Once
	otelRegistrationError error
)

// InitOTelMetrics registers observable gauges that report cumulative cycle
// statistics from SQLite.
// This should be called after observability.Init() has been called.
func InitOTelMetrics() error {
	otelMetricsOnce.Do(func() {
		meter := otel.Meter("indexd/metrics")

		_, err := meter.Int64ObservableGauge(
			"indexd.cycles.total",
			metric.WithDescription("Number of completed indexing cycles"),
			metric.WithUnit("{cycles}"),
			metric.WithInt64Callback(cycleCountCallback),
		)
		if err != nil {
			log.Printf("metrics: failed to create cycle gauge: %v", err)
			otelRegistrationError = err
			return
		}

		_, err = meter.Int64ObservableGauge(
			"indexd.files.processed.total",
			metric.WithDescription("Cumulative files processed by outcome (indexed, failed)"),
			metric.WithUnit("{files}"),
			metric.WithInt64Callback(fileOutcomeCallback),
		)
		if err != nil {
			log.Printf("metrics: failed to create file outcome gauge: %v", err)
			otelRegistrationError = err
			return
		}
	})
	return otelRegistrationError
}

func cycleCountCallback(_ context.Context, observer metric.Int64Observer) error {
	observer.Observe(GetCycleCount())
	return nil
}

func fileOutcomeCallback(_ context.Context, observer metric.Int64Observer) error {
	indexed, failed := GetTotals()
	observer.Observe(indexed, metric.WithAttributes(attribute.String("outcome", "indexed")))
	observer.Observe(failed, metric.WithAttributes(attribute.String("outcome", "failed")))
	return nil
}

// ResetOTelForTesting resets the OTel initialization state for testing purposes.
// This should only be used in tests.
func ResetOTelForTesting() {
	otelMetricsOnce = sync.Once{}
	otelRegistrationError = nil
}
