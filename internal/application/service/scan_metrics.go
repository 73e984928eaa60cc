package service

import (
	"context"
	"time"

	"eventtracker/internal/domain/entity"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	AssetsScannedCounterName  = "eventtracker_assets_scanned_total"
	BindingsFoundCounterName  = "eventtracker_bindings_found_total"
	ParseFailuresCounterName  = "eventtracker_parse_failures_total"
	RewritesCounterName       = "eventtracker_rewrites_total"
	ScanDurationHistogramName = "eventtracker_scan_duration_seconds"
	meterName                 = "eventtracker/service"
	instrumentationVersion    = "1.0.0"
)

// Attribute keys.
const (
	AttrAssetKind     = "asset_kind"
	AttrCallState     = "state"
	AttrRewriteResult = "result"
	AttrScanResult    = "scan_result"
	AttrCorrelationID = "correlation_id"
)

// Attribute values.
const (
	RewriteApplied = "applied"
	RewriteRefused = "refused"
	ScanCompleted  = "completed"
	ScanCancelled  = "cancelled"
)

// getScanDurationBuckets returns bucket boundaries for scan durations,
// from a single prefab (10ms) to a large project (10min).
func getScanDurationBuckets() []float64 {
	return []float64{
		0.01,  // 10ms
		0.05,  // 50ms
		0.25,  // 250ms
		1.0,   // 1s
		5.0,   // 5s
		15.0,  // 15s
		60.0,  // 1min
		180.0, // 3min
		600.0, // 10min
	}
}

// ScanMetrics records OpenTelemetry metrics for scans and rewrites. A nil
// *ScanMetrics records nothing.
type ScanMetrics struct {
	assetsScanned metric.Int64Counter
	bindingsFound metric.Int64Counter
	parseFailures metric.Int64Counter
	rewrites      metric.Int64Counter
	scanDuration  metric.Float64Histogram
}

// NewScanMetricsWithProvider creates the instruments on the given provider.
func NewScanMetricsWithProvider(provider metric.MeterProvider) (*ScanMetrics, error) {
	meter := provider.Meter(meterName, metric.WithInstrumentationVersion(instrumentationVersion))

	assetsScanned, err := meter.Int64Counter(AssetsScannedCounterName,
		metric.WithDescription("Total number of assets scanned for persistent calls"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	bindingsFound, err := meter.Int64Counter(BindingsFoundCounterName,
		metric.WithDescription("Total number of persistent calls found, by state"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	parseFailures, err := meter.Int64Counter(ParseFailuresCounterName,
		metric.WithDescription("Total number of object blocks that could not be parsed"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	rewrites, err := meter.Int64Counter(RewritesCounterName,
		metric.WithDescription("Total number of method name edits, by result"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	scanDuration, err := meter.Float64Histogram(ScanDurationHistogramName,
		metric.WithDescription("Duration of project scans in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getScanDurationBuckets()...))
	if err != nil {
		return nil, err
	}

	return &ScanMetrics{
		assetsScanned: assetsScanned,
		bindingsFound: bindingsFound,
		parseFailures: parseFailures,
		rewrites:      rewrites,
		scanDuration:  scanDuration,
	}, nil
}

// RecordAssetScanned counts one scanned asset and the calls found in it.
func (m *ScanMetrics) RecordAssetScanned(ctx context.Context, kind string, calls []*entity.PersistentCall, failures int) {
	if m == nil {
		return
	}
	m.assetsScanned.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAssetKind, kind)))

	byState := make(map[string]int64)
	for _, c := range calls {
		byState[c.State().String()]++
	}
	for state, n := range byState {
		m.bindingsFound.Add(ctx, n, metric.WithAttributes(attribute.String(AttrCallState, state)))
	}
	if failures > 0 {
		m.parseFailures.Add(ctx, int64(failures))
	}
}

// RecordRewrite counts applied and refused method edits.
func (m *ScanMetrics) RecordRewrite(ctx context.Context, applied, refused int) {
	if m == nil {
		return
	}
	if applied > 0 {
		m.rewrites.Add(ctx, int64(applied), metric.WithAttributes(attribute.String(AttrRewriteResult, RewriteApplied)))
	}
	if refused > 0 {
		m.rewrites.Add(ctx, int64(refused), metric.WithAttributes(attribute.String(AttrRewriteResult, RewriteRefused)))
	}
}

// RecordScanDuration records how long a full scan took.
func (m *ScanMetrics) RecordScanDuration(ctx context.Context, d time.Duration, result, correlationID string) {
	if m == nil {
		return
	}
	m.scanDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrScanResult, result),
		attribute.String(AttrCorrelationID, correlationID),
	))
}
