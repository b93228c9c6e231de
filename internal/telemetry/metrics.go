// Package telemetry wires OpenTelemetry metrics to a Prometheus endpoint.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the meter provider and the instruments used across the app
type Metrics struct {
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider

	JobsProcessed    metric.Int64Counter
	JobsFailed       metric.Int64Counter
	LLMCalls         metric.Int64Counter
	LLMTokens        metric.Int64Counter
	SubmissionsTotal metric.Int64Counter
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
}

// NewMetrics creates the meter provider backed by a Prometheus exporter and
// registers Go runtime instrumentation.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	meter := meterProvider.Meter("github.com/mcpserverslist/registry")

	m := &Metrics{
		registry:      registry,
		meterProvider: meterProvider,
	}
	if m.JobsProcessed, err = meter.Int64Counter("registry_jobs_processed_total",
		metric.WithDescription("Background jobs completed successfully")); err != nil {
		return nil, err
	}
	if m.JobsFailed, err = meter.Int64Counter("registry_jobs_failed_total",
		metric.WithDescription("Background jobs that exhausted their retries")); err != nil {
		return nil, err
	}
	if m.LLMCalls, err = meter.Int64Counter("registry_llm_calls_total",
		metric.WithDescription("Language model calls issued")); err != nil {
		return nil, err
	}
	if m.LLMTokens, err = meter.Int64Counter("registry_llm_tokens_total",
		metric.WithDescription("Language model tokens consumed")); err != nil {
		return nil, err
	}
	if m.SubmissionsTotal, err = meter.Int64Counter("registry_submissions_total",
		metric.WithDescription("Submission attempts received")); err != nil {
		return nil, err
	}
	if m.CacheHits, err = meter.Int64Counter("registry_cache_hits_total",
		metric.WithDescription("Listing cache hits")); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("registry_cache_misses_total",
		metric.WithDescription("Listing cache misses")); err != nil {
		return nil, err
	}

	return m, nil
}

// Handler serves the Prometheus scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.meterProvider.Shutdown(ctx)
}
