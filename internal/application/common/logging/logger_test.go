package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func newBufferLogger(t *testing.T, level, format string) (ApplicationLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewApplicationLogger(Config{Level: level, Format: format, Writer: buf})
	require.NoError(t, err)
	l.(*logger).out.now = func() time.Time { return fixedNow }
	return l, buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestNewApplicationLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "defaults", config: Config{}},
		{name: "json to stdout", config: Config{Level: "INFO", Format: "json", Output: "stdout"}},
		{name: "text to stderr", config: Config{Level: "debug", Format: "text", Output: "stderr"}},
		{name: "warning alias", config: Config{Level: "warning", Format: "text"}},
		{name: "writer ignores output", config: Config{Level: "error", Output: "file", Writer: &bytes.Buffer{}}},
		{name: "invalid level", config: Config{Level: "LOUD"}, wantErr: "invalid log level"},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: "invalid log format"},
		{name: "invalid output", config: Config{Output: "file"}, wantErr: "invalid log output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewApplicationLogger(tt.config)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{" Info ", LevelInfo},
		{"WARNING", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "LEVEL(9)", Level(9).String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn", "text")
	ctx := context.Background()

	logger.Debug(ctx, "hidden debug", nil)
	logger.Info(ctx, "hidden info", nil)
	logger.Warn(ctx, "shown warn", nil)
	logger.Error(ctx, "shown error", nil)

	got := lines(buf)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "WARN  shown warn")
	assert.Contains(t, got[1], "ERROR shown error")
}

func TestLogger_TextFormat(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug", "text")
	ctx := WithAsset(WithCorrelationID(context.Background(), "scan-1"), "Assets/Main.unity")

	logger.WithComponent("tracker").Info(ctx, "Calls found", Fields{
		"count":  3,
		"method": "Jump",
		"reason": "method missing",
	})

	assert.Equal(t,
		`2026-03-01T12:30:00Z INFO  [tracker] Calls found asset=Assets/Main.unity count=3 method=Jump reason="method missing" correlation_id=scan-1`+"\n",
		buf.String())
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")
	ctx := WithAsset(WithCorrelationID(context.Background(), "import-7"), "Assets/Prefabs/Door.prefab")

	logger.Warn(ctx, "Object could not be parsed", Fields{"error": "bad yaml"})

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, Entry{
		Timestamp:     "2026-03-01T12:30:00Z",
		Level:         "WARN",
		Message:       "Object could not be parsed",
		CorrelationID: "import-7",
		Asset:         "Assets/Prefabs/Door.prefab",
		Fields:        map[string]interface{}{"error": "bad yaml"},
	}, entry)
}

func TestLogger_JSONOmitsEmptyScope(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")

	logger.Info(context.Background(), "Store loaded", nil)

	out := buf.String()
	assert.NotContains(t, out, "correlation_id")
	assert.NotContains(t, out, "asset")
	assert.NotContains(t, out, "fields")
}

func TestLogger_LogPerformance(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "json")

	logger.LogPerformance(context.Background(), "scan_project", 1500*time.Millisecond, Fields{"assets": 12})

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scan_project finished", entry.Message)
	assert.Equal(t, "scan_project", entry.Fields["operation"])
	assert.EqualValues(t, 1500, entry.Fields["duration_ms"])
	assert.EqualValues(t, 12, entry.Fields["assets"])
}

func TestLogger_LogPerformanceRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn", "text")

	logger.LogPerformance(context.Background(), "scan_project", time.Second, nil)

	assert.Empty(t, buf.String())
}

func TestLogger_WithComponentSharesOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", "text")

	logger.Info(context.Background(), "root", nil)
	logger.WithComponent("watch").Info(context.Background(), "child", nil)

	got := lines(buf)
	require.Len(t, got, 2)
	assert.NotContains(t, got[0], "[")
	assert.Contains(t, got[1], "[watch] child")
}

func TestCorrelationContext(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil context is tolerated
	assert.Empty(t, AssetFromContext(nil))         //nolint:staticcheck // nil context is tolerated

	ctx := WithNewCorrelationID(context.Background())
	first := CorrelationIDFromContext(ctx)
	assert.Len(t, first, 36)

	ctx = WithNewCorrelationID(ctx)
	assert.NotEqual(t, first, CorrelationIDFromContext(ctx))

	ctx = WithAsset(ctx, "Assets/A.prefab")
	assert.Equal(t, "Assets/A.prefab", AssetFromContext(ctx))
}
