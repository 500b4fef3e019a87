// Package observe sets up OpenTelemetry metrics for sharemeow and defines
// the instruments recorded by the generation engine.
package observe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "sharemeow"

// Metrics holds the generation instruments.
type Metrics struct {
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	Renders        metric.Int64Counter
	Uploads        metric.Int64Counter
	Failures       metric.Int64Counter
	RenderDuration metric.Float64Histogram
	ImageBytes     metric.Int64Histogram
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.CacheHits, err = meter.Int64Counter("sharemeow.cache.hits",
		metric.WithDescription("Image requests served from cache")); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("sharemeow.cache.misses",
		metric.WithDescription("Image requests that required generation")); err != nil {
		return nil, err
	}
	if m.Renders, err = meter.Int64Counter("sharemeow.renders",
		metric.WithDescription("Images rendered")); err != nil {
		return nil, err
	}
	if m.Uploads, err = meter.Int64Counter("sharemeow.uploads",
		metric.WithDescription("Images uploaded to object storage")); err != nil {
		return nil, err
	}
	if m.Failures, err = meter.Int64Counter("sharemeow.failures",
		metric.WithDescription("Failed generations by stage")); err != nil {
		return nil, err
	}
	if m.RenderDuration, err = meter.Float64Histogram("sharemeow.render.duration_seconds",
		metric.WithDescription("Render duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ImageBytes, err = meter.Int64Histogram("sharemeow.image.size_bytes",
		metric.WithDescription("Rendered image size in bytes"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}

	return m, nil
}

// NopMetrics returns instruments that record nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// Provider owns the SDK meter provider and, for the prometheus exporter,
// the scrape handler.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler // nil unless the exporter is "prometheus"
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}

// Setup creates a meter provider for the named exporter.
// Supported exporters: prometheus, stdout, none.
func Setup(exporter string) (*Provider, error) {
	switch exporter {
	case "prometheus":
		reg := prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		return &Provider{
			MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)),
			Handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}, nil

	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("create stdout metrics exporter: %w", err)
		}
		return &Provider{
			MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp))),
		}, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return &Provider{
			MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp))),
		}, nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", exporter)
	}
}
