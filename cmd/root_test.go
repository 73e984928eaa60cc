package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eventtracker/internal/config"
	"eventtracker/internal/version"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	cfgFile = ""
	t.Cleanup(func() { cfgFile = "" })
	root := newRootCmd()
	addCommands(root)
	return root
}

// probeConfig runs a command that only loads the configuration.
func probeConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	root := newTestRoot(t)
	var (
		cfg     *config.Config
		loadErr error
	)
	root.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loadErr = loadConfig(cmd)
			return nil
		},
	})
	root.SetArgs(append([]string{"probe"}, args...))
	root.SetOut(&bytes.Buffer{})
	require.NoError(t, root.Execute())
	return cfg, loadErr
}

func TestRootCommand_RegistersCommands(t *testing.T) {
	root := newTestRoot(t)
	for _, name := range []string{"scan", "refresh", "import", "delete", "list", "groups", "replace", "watch", "version"} {
		t.Run(name, func(t *testing.T) {
			found, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, found.Name())
		})
	}
}

func TestRootCommand_ShowsHelp(t *testing.T) {
	root := newTestRoot(t)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "persistent event")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := probeConfig(t)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	cfg, err := probeConfig(t, "--project", "/work/game", "--log-level", "debug", "--log-format", "json")
	require.NoError(t, err)

	assert.Equal(t, "/work/game", cfg.Project.Root)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("EVENTTRACKER_TRACKING_ENABLED", "false")
	t.Setenv("EVENTTRACKER_PROJECT_ROOT", "/from/env")

	cfg, err := probeConfig(t)
	require.NoError(t, err)
	assert.False(t, cfg.Tracking.Enabled)
	assert.Equal(t, "/from/env", cfg.Project.Root)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  include_all_scenes: true\nwatch:\n  debounce: 2s\n"), 0o644))

	cfg, err := probeConfig(t, "--config", path)
	require.NoError(t, err)
	assert.True(t, cfg.Project.IncludeAllScenes)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing explicit file", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"invalid level", []string{"--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := probeConfig(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	version.SetBuildVars("v1.4.0", "abc123", "2025-06-15T10:30:00Z")
	t.Cleanup(version.ResetBuildVars)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"full", []string{"version"}, "EventTracker\nVersion: v1.4.0\nCommit: abc123\nBuilt: 2025-06-15T10:30:00Z\n"},
		{"short", []string{"version", "--short"}, "v1.4.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t)
			var buf bytes.Buffer
			root.SetOut(&buf)
			root.SetArgs(tt.args)

			require.NoError(t, root.Execute())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
