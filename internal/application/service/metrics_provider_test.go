package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"eventtracker/internal/application/common/logging"
	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_Snapshot(t *testing.T) {
	ctx := context.Background()
	provider, err := NewMetricsProvider(ctx, "v1.2.3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics, err := NewScanMetricsWithProvider(provider.MeterProvider())
	require.NoError(t, err)

	call := func(s valueobject.CallState) *entity.PersistentCall {
		return entity.NewPersistentCall(entity.PersistentCallParams{MethodName: "Jump", Mode: valueobject.ArgumentModeVoid, State: s})
	}
	metrics.RecordAssetScanned(ctx, "prefab", []*entity.PersistentCall{
		call(valueobject.CallStateValid),
		call(valueobject.CallStateInvalidMethod),
		call(valueobject.CallStateValid),
	}, 1)
	metrics.RecordAssetScanned(ctx, "scene", nil, 0)
	metrics.RecordRewrite(ctx, 2, 1)
	metrics.RecordScanDuration(ctx, 1500*time.Millisecond, ScanCompleted, "run-1")

	got, err := provider.Snapshot(ctx)
	require.NoError(t, err)

	valid := BindingsFoundCounterName + "{" + AttrCallState + "=" + valueobject.CallStateValid.String() + "}"
	invalid := BindingsFoundCounterName + "{" + AttrCallState + "=" + valueobject.CallStateInvalidMethod.String() + "}"
	assert.InDelta(t, 1.0, got[AssetsScannedCounterName+"{asset_kind=prefab}"], 0)
	assert.InDelta(t, 1.0, got[AssetsScannedCounterName+"{asset_kind=scene}"], 0)
	assert.InDelta(t, 2.0, got[valid], 0)
	assert.InDelta(t, 1.0, got[invalid], 0)
	assert.InDelta(t, 1.0, got[ParseFailuresCounterName], 0)
	assert.InDelta(t, 2.0, got[RewritesCounterName+"{result=applied}"], 0)
	assert.InDelta(t, 1.0, got[RewritesCounterName+"{result=refused}"], 0)

	// correlation ids are dropped from series keys
	assert.InDelta(t, 1.0, got[ScanDurationHistogramName+"_count{scan_result=completed}"], 0)
	assert.InDelta(t, 1.5, got[ScanDurationHistogramName+"_sum{scan_result=completed}"], 1e-9)
}

func TestMetricsProvider_ShutdownLogsSnapshot(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.NewApplicationLogger(logging.Config{Level: "debug", Format: "text", Writer: buf})
	require.NoError(t, err)
	t.Cleanup(slogger.Set(logger))

	ctx := context.Background()
	provider, err := NewMetricsProvider(ctx, "dev")
	require.NoError(t, err)
	metrics, err := NewScanMetricsWithProvider(provider.MeterProvider())
	require.NoError(t, err)
	metrics.RecordRewrite(ctx, 3, 0)

	require.NoError(t, provider.Shutdown(ctx))

	assert.Contains(t, buf.String(), "Command metrics")
	assert.Contains(t, buf.String(), RewritesCounterName+"{result=applied}=3")
}

func TestMetricsProvider_ShutdownWithoutReadings(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.NewApplicationLogger(logging.Config{Level: "debug", Format: "text", Writer: buf})
	require.NoError(t, err)
	t.Cleanup(slogger.Set(logger))

	provider, err := NewMetricsProvider(context.Background(), "dev")
	require.NoError(t, err)

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.NotContains(t, buf.String(), "Command metrics")
}
