package cmd

import (
	"context"

	"eventtracker/internal/domain/entity"
	domainservice "eventtracker/internal/domain/service"
	"eventtracker/internal/domain/valueobject"

	"github.com/spf13/cobra"
)

type callView struct {
	Asset string                 `json:"asset"`
	Call  *entity.PersistentCall `json:"call"`
}

type candidateView struct {
	Method        string   `json:"method"`
	Params        []string `json:"params"`
	Mode          string   `json:"mode"`
	DeclaringType string   `json:"declaring_type"`
}

type groupView struct {
	Index      int             `json:"index"`
	Method     string          `json:"method"`
	Target     string          `json:"target"`
	Mode       string          `json:"mode"`
	Event      string          `json:"event"`
	State      string          `json:"state"`
	Count      int             `json:"count"`
	Calls      []callView      `json:"calls"`
	Candidates []candidateView `json:"candidates,omitempty"`
}

// stateFlag parses an optional --state value.
func stateFlag(value string) (*valueobject.CallState, error) {
	if value == "" {
		return nil, nil
	}
	state, err := valueobject.ParseCallState(value)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// newListCmd implements: eventtracker list [--state S].
func newListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := stateFlag(state)
			if err != nil {
				return fail(cmd, err)
			}
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return fail(cmd, err)
			}
			defer a.close(cmd.Context())
			return writeResult(cmd, a.callViews(a.tracker.Calls(filter)))
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Only bindings in this state (valid, invalid-target, invalid-argument, invalid-method)")
	return cmd
}

// newGroupsCmd implements: eventtracker groups [--state S] [--candidates] [--all-members].
func newGroupsCmd() *cobra.Command {
	var (
		state      string
		candidates bool
		allMembers bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List bindings grouped by the method they call",
		Long: `List stored bindings grouped by target type, method, argument mode and
event. With --candidates each group lists the methods it could be
repointed to; group indexes are what replace --group expects.`,
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
			if candidates {
				if err := a.tracker.RefreshCatalog(ctx); err != nil {
					return fail(cmd, err)
				}
			}
			opts := domainservice.CandidateOptions{IncludeEngineMembers: allMembers}
			return writeResult(cmd, a.groupViews(ctx, a.tracker.Groups(filter), candidates, opts))
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Only bindings in this state")
	cmd.Flags().BoolVar(&candidates, "candidates", false, "Include replacement candidates")
	cmd.Flags().BoolVar(&allMembers, "all-members", false, "Include candidates declared on engine base types")
	return cmd
}

func (a *app) callViews(calls []*entity.PersistentCall) []callView {
	out := make([]callView, 0, len(calls))
	for _, call := range calls {
		out = append(out, callView{Asset: a.assetPath(call), Call: call})
	}
	return out
}

func (a *app) assetPath(call *entity.PersistentCall) string {
	if asset, ok := a.project.AssetByGUID(call.Address().AssetGUID()); ok {
		return asset.Path
	}
	return call.Address().AssetGUID()
}

func (a *app) groupViews(ctx context.Context, groups []domainservice.CallGroup, withCandidates bool, opts domainservice.CandidateOptions) []groupView {
	out := make([]groupView, 0, len(groups))
	for i, group := range groups {
		first := group.Representative()
		if first == nil {
			continue
		}
		view := groupView{
			Index:  i,
			Method: first.MethodName(),
			Target: first.Target().AssemblyTypeName(),
			Mode:   first.Mode().String(),
			Event:  first.EventName(),
			State:  first.State().String(),
			Count:  len(group.Calls),
			Calls:  a.callViews(group.Calls),
		}
		if withCandidates {
			for _, c := range a.tracker.Candidates(ctx, first, opts) {
				view.Candidates = append(view.Candidates, candidateView{
					Method:        c.Method.Name,
					Params:        c.Method.Params,
					Mode:          c.Mode.String(),
					DeclaringType: c.Method.DeclaringType,
				})
			}
		}
		out = append(out, view)
	}
	return out
}
