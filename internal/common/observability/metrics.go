// Package observability records run-level measurements through an
// OpenTelemetry meter exported in Prometheus format.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"starter/internal/common/logger"
)

type Observability struct {
	registry      *prometheus.Registry
	meterProvider *metric.MeterProvider
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	logger        logger.Logger
}

// New builds a meter provider backed by its own Prometheus registry. On
// failure it logs a warning and returns an Observability that records nothing.
func New(serviceName string, log logger.Logger) *Observability {
	o := &Observability{registry: prometheus.NewRegistry(), logger: log}

	exporter, err := otelprom.New(otelprom.WithRegisterer(o.registry))
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)

	meter := o.meterProvider.Meter(serviceName)

	o.runCounter, _ = meter.Int64Counter(
		"app.runs",
		otelmetric.WithDescription("Number of application runs"),
	)

	o.runDuration, _ = meter.Float64Histogram(
		"app.run.duration",
		otelmetric.WithDescription("Application run duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// RecordRun counts one run of mode ("sync" or "async") and its duration.
func (o *Observability) RecordRun(ctx context.Context, mode, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// Gatherer exposes the exporter's registry.
func (o *Observability) Gatherer() prometheus.Gatherer {
	return o.registry
}

func (o *Observability) Shutdown() {
	if o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		o.logger.Warn("failed to shut down meter provider", map[string]interface{}{"error": err.Error()})
	}
}
