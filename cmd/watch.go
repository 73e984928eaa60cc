package cmd

import (
	"eventtracker/internal/adapter/inbound/watch"
	domainerrors "eventtracker/internal/domain/errors/domain"

	"github.com/spf13/cobra"
)

// newWatchCmd implements: eventtracker watch.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep bindings in sync while files change",
		Long: `Watch the Assets folder and apply asset imports, deletions and script
changes as they happen, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return fail(cmd, err)
			}
			defer a.close(ctx)
			if !a.cfg.Tracking.Enabled {
				return fail(cmd, domainerrors.ErrTrackingDisabled)
			}
			if err := a.tracker.RefreshCatalog(ctx); err != nil {
				return fail(cmd, err)
			}

			w, err := watch.NewWatcher(a.project.Root(), a.tracker, watch.Options{
				Debounce: a.cfg.Watch.Debounce,
				Ignore:   a.project.IsIgnored,
			})
			if err != nil {
				return fail(cmd, err)
			}
			if err := w.Run(ctx); err != nil {
				return fail(cmd, err)
			}
			return writeResult(cmd, w.Stats())
		},
	}
}
