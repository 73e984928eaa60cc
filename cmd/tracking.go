package cmd

import (
	"context"

	domainerrors "eventtracker/internal/domain/errors/domain"

	"github.com/spf13/cobra"
)

// newRefreshCmd implements: eventtracker refresh.
func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Revalidate bindings after scripts changed",
		Long: `Reload the scripts of the project, update which scripts declare events and
re-derive the state of every stored binding. Run it after editing scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTracking(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				return a.tracker.OnScriptsChanged(ctx)
			})
		},
	}
}

// newImportCmd implements: eventtracker import <paths...>.
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <paths...>",
		Short: "Rescan assets that changed on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracking(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				paths, err := projectPaths(a.project.Root(), args)
				if err != nil {
					return nil, err
				}
				if err := a.tracker.RefreshCatalog(ctx); err != nil {
					return nil, err
				}
				return a.tracker.OnAssetsImported(ctx, paths)
			})
		},
	}
}

type deleteResult struct {
	Paths []string `json:"paths"`
	Calls int      `json:"calls"`
}

// newDeleteCmd implements: eventtracker delete <paths...>.
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <paths...>",
		Short: "Drop the bindings of assets or scripts about to be deleted",
		Long: `Forget the bindings stored for assets, and the bindings targeting scripts,
before the files are deleted. The files themselves are left untouched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracking(cmd, func(ctx context.Context, a *app) (interface{}, error) {
				paths, err := projectPaths(a.project.Root(), args)
				if err != nil {
					return nil, err
				}
				for _, path := range paths {
					if err := a.tracker.OnBeforeDelete(ctx, path); err != nil {
						return nil, err
					}
				}
				return deleteResult{Paths: paths, Calls: len(a.tracker.Calls(nil))}, nil
			})
		},
	}
}

// withTracking runs an incremental handler, refusing when tracking is off.
func withTracking(cmd *cobra.Command, run func(context.Context, *app) (interface{}, error)) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return fail(cmd, err)
	}
	defer a.close(ctx)
	if !a.cfg.Tracking.Enabled {
		return fail(cmd, domainerrors.ErrTrackingDisabled)
	}
	result, err := run(ctx, a)
	if err != nil {
		return fail(cmd, err)
	}
	return writeResult(cmd, result)
}
