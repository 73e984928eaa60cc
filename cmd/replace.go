package cmd

import (
	"errors"
	"fmt"

	domainerrors "eventtracker/internal/domain/errors/domain"
	"eventtracker/internal/domain/valueobject"

	"github.com/spf13/cobra"
)

type refusedView struct {
	Asset  string `json:"asset"`
	Line   int    `json:"line"`
	Method string `json:"method"`
	Reason string `json:"reason"`
}

type replaceView struct {
	Group        int           `json:"group"`
	Method       string        `json:"method"`
	Applied      int           `json:"applied"`
	Refused      []refusedView `json:"refused"`
	TouchedFiles []string      `json:"touched_files"`
}

// newReplaceCmd implements: eventtracker replace --group N --method Name [--state S].
func newReplaceCmd() *cobra.Command {
	var (
		state  string
		group  int
		method string
	)

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Repoint a group of bindings to another method",
		Long: `Rewrite the method name of every binding in a group, as listed by the groups
command with the same --state. Bindings the new method cannot serve are
refused and left untouched; the rest are written in one pass and their
assets rescanned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := stateFlag(state)
			if err != nil {
				return fail(cmd, err)
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return fail(cmd, err)
			}
			defer a.close(ctx)

			groups := a.tracker.Groups(filter)
			if group < 0 || group >= len(groups) {
				return fail(cmd, fmt.Errorf("%w: group %d does not exist (%d groups)", domainerrors.ErrInvalidInput, group, len(groups)))
			}
			if err := a.tracker.RefreshCatalog(ctx); err != nil {
				return fail(cmd, err)
			}

			summary, err := a.tracker.ReplaceMethod(ctx, groups[group].Calls, method)
			if err != nil {
				return fail(cmd, err)
			}

			view := replaceView{
				Group:        group,
				Method:       method,
				Applied:      summary.Applied,
				Refused:      make([]refusedView, 0, len(summary.Refused)),
				TouchedFiles: summary.TouchedFiles,
			}
			for _, r := range summary.Refused {
				view.Refused = append(view.Refused, refusedView{
					Asset:  a.assetPath(r.Call),
					Line:   r.Call.MethodLine(),
					Method: r.Call.MethodName(),
					Reason: r.Reason.Error(),
				})
			}
			if summary.Applied == 0 && len(summary.Refused) > 0 {
				return fail(cmd, errors.Join(domainerrors.ErrInvalidReplacement, fmt.Errorf("all %d bindings refused", len(summary.Refused))))
			}
			return writeResult(cmd, view)
		},
	}

	cmd.Flags().StringVar(&state, "state", valueobject.CallStateInvalidMethod.String(), "State the groups were listed with")
	cmd.Flags().IntVar(&group, "group", -1, "Index of the group to rewrite (required)")
	cmd.Flags().StringVar(&method, "method", "", "New method name (required)")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}
