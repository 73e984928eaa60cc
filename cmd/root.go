// Package cmd implements the eventtracker command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"eventtracker/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventtracker",
		Short: "Track persistent event bindings of a Unity project",
		Long: `EventTracker scans the scenes, prefabs and assets of a Unity project for
persistent event listeners configured in the editor and checks each binding
against the project's scripts.

A binding is reported as invalid when its target object is gone, when the
method it calls was removed or renamed, or when its argument no longer
matches. Groups of bindings to the same method can be repointed to another
method in place.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (json, text)")
	cmd.PersistentFlags().StringP("project", "p", "", "Unity project root (default: current directory)")
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	addCommands(rootCmd)
}

func addCommands(root *cobra.Command) {
	root.AddCommand(
		newScanCmd(),
		newRefreshCmd(),
		newImportCmd(),
		newDeleteCmd(),
		newListCmd(),
		newGroupsCmd(),
		newReplaceCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"project":    "project.root",
}

// loadConfig builds the configuration of a command from defaults, the config
// file, the environment and the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EVENTTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found; use defaults and environment
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", name, err)
		}
	}

	cfg, err := config.New(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	return cfg, nil
}
