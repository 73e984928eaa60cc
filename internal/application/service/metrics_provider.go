package service

import (
	"context"
	"fmt"

	"eventtracker/internal/application/common/slogger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

const serviceName = "eventtracker"

// MetricsProvider is the meter provider of one command run. Readings are
// pulled with a manual reader and logged when the provider shuts down.
type MetricsProvider struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewMetricsProvider creates a provider tagged with the service name and
// version.
func NewMetricsProvider(ctx context.Context, serviceVersion string) (*MetricsProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics resource: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	return &MetricsProvider{
		provider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		),
		reader: reader,
	}, nil
}

// MeterProvider returns the provider instruments are created on.
func (p *MetricsProvider) MeterProvider() metric.MeterProvider {
	return p.provider
}

// Snapshot collects the current readings. Counters map to their total and
// histograms to their count and sum, keyed by metric name plus encoded
// attributes, e.g. "eventtracker_bindings_found_total{state=valid}".
func (p *MetricsProvider) Snapshot(ctx context.Context) (map[string]float64, error) {
	var data metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &data); err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range d.DataPoints {
					out[seriesKey(m.Name, dp.Attributes)] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range d.DataPoints {
					out[seriesKey(m.Name, dp.Attributes)] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range d.DataPoints {
					out[seriesKey(m.Name+"_count", dp.Attributes)] += float64(dp.Count)
					out[seriesKey(m.Name+"_sum", dp.Attributes)] += dp.Sum
				}
			}
		}
	}
	return out, nil
}

// Shutdown logs a final snapshot at debug level and stops the provider.
func (p *MetricsProvider) Shutdown(ctx context.Context) error {
	snapshot, err := p.Snapshot(ctx)
	if err != nil {
		slogger.Warn(ctx, "Failed to collect metrics", slogger.Fields{"error": err.Error()})
	} else if len(snapshot) > 0 {
		fields := make(slogger.Fields, len(snapshot))
		for k, v := range snapshot {
			fields[k] = v
		}
		slogger.Debug(ctx, "Command metrics", fields)
	}
	return p.provider.Shutdown(ctx)
}

func seriesKey(name string, attrs attribute.Set) string {
	// correlation ids are per run and only make the key noisy
	filtered, _ := attrs.Filter(func(kv attribute.KeyValue) bool {
		return string(kv.Key) != AttrCorrelationID
	})
	if filtered.Len() == 0 {
		return name
	}
	return name + "{" + filtered.Encoded(attribute.DefaultEncoder()) + "}"
}
