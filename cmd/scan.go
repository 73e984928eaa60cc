package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newScanCmd implements: eventtracker scan [--quiet].
func newScanCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Rescan every tracked asset of the project",
		Long: `Rebuild the script catalog and rescan every scene, prefab and asset of the
project, replacing the stored bindings. Progress is written to stderr.
Interrupting the scan keeps the assets scanned so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not report progress")
	return cmd
}

func runScan(cmd *cobra.Command, quiet bool) error {
	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return fail(cmd, err)
	}
	defer a.close(ctx)

	progress := func(done, total int, assetPath string) {
		if quiet || assetPath == "" {
			return
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", done+1, total, assetPath)
	}

	summary, err := a.tracker.ScanProject(ctx, progress)
	if err != nil {
		return fail(cmd, err)
	}
	return writeResult(cmd, summary)
}

// interruptContext cancels on Ctrl-C or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
