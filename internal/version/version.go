// Package version holds build information injected at link time:
//
//	-ldflags "-X eventtracker/internal/version.version=v1.0.0 -X eventtracker/internal/version.commit=abc123 -X eventtracker/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
	"strings"
	"time"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name displayed in version output.
const ApplicationName = "EventTracker"

// Defaults used when build information was not injected.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Output labels.
const (
	LabelVersion = "Version"
	LabelCommit  = "Commit"
	LabelBuilt   = "Built"
)

// VersionInfo is the build information of the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// GetVersion returns the build information with defaults for missing values.
func GetVersion() *VersionInfo {
	return &VersionInfo{
		Version:   withDefault(version, DefaultVersion),
		Commit:    withDefault(commit, DefaultCommit),
		BuildTime: withDefault(buildTime, DefaultBuildTime),
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatShort returns only the version number.
func (vi *VersionInfo) FormatShort() string {
	return vi.Version
}

// FormatFull returns the application name followed by one line per field.
func (vi *VersionInfo) FormatFull() string {
	var b strings.Builder
	b.WriteString(ApplicationName + "\n")
	fmt.Fprintf(&b, "%s: %s\n", LabelVersion, vi.Version)
	fmt.Fprintf(&b, "%s: %s\n", LabelCommit, vi.Commit)
	fmt.Fprintf(&b, "%s: %s\n", LabelBuilt, vi.BuildTime)
	return b.String()
}

// Write writes the short or the full format.
func (vi *VersionInfo) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, vi.FormatShort())
		return err
	}
	_, err := fmt.Fprint(w, vi.FormatFull())
	return err
}

// IsDevelopment reports whether no version was injected.
func (vi *VersionInfo) IsDevelopment() bool {
	return vi.Version == DefaultVersion
}

// GetBuildTime parses the build time, returning the zero time when it is
// missing or malformed.
func (vi *VersionInfo) GetBuildTime() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, vi.BuildTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SetBuildVars overrides the injected values. Used by tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}

// ResetBuildVars clears the injected values. Used by tests.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}
