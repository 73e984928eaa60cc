package version

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name            string
		ver, com, bt    string
		want            VersionInfo
		wantDevelopment bool
	}{
		{
			name:            "defaults",
			want:            VersionInfo{Version: DefaultVersion, Commit: DefaultCommit, BuildTime: DefaultBuildTime},
			wantDevelopment: true,
		},
		{
			name: "injected",
			ver:  "v1.2.0", com: "abc123", bt: "2025-06-15T10:30:00Z",
			want: VersionInfo{Version: "v1.2.0", Commit: "abc123", BuildTime: "2025-06-15T10:30:00Z"},
		},
		{
			name: "partial",
			ver:  "v1.2.0",
			want: VersionInfo{Version: "v1.2.0", Commit: DefaultCommit, BuildTime: DefaultBuildTime},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetBuildVars(tt.ver, tt.com, tt.bt)
			t.Cleanup(ResetBuildVars)

			got := GetVersion()
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.wantDevelopment, got.IsDevelopment())
		})
	}
}

func TestVersionInfo_Write(t *testing.T) {
	info := &VersionInfo{Version: "v1.2.0", Commit: "abc123", BuildTime: "2025-06-15T10:30:00Z"}

	var short bytes.Buffer
	require.NoError(t, info.Write(&short, true))
	assert.Equal(t, "v1.2.0\n", short.String())

	var full bytes.Buffer
	require.NoError(t, info.Write(&full, false))
	assert.Equal(t, "EventTracker\nVersion: v1.2.0\nCommit: abc123\nBuilt: 2025-06-15T10:30:00Z\n", full.String())
}

func TestVersionInfo_GetBuildTime(t *testing.T) {
	tests := []struct {
		buildTime string
		want      time.Time
	}{
		{"2025-06-15T10:30:00Z", time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-06-15 10:30:00", time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-06-15", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{DefaultBuildTime, time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.buildTime, func(t *testing.T) {
			got := (&VersionInfo{BuildTime: tt.buildTime}).GetBuildTime()
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
