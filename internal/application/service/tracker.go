// Package service orchestrates scans of a Unity project: it keeps the binding
// store in sync with the project's assets and scripts and applies method
// replacements.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"eventtracker/internal/application/common/logging"
	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/domain/entity"
	domainerrors "eventtracker/internal/domain/errors/domain"
	domainservice "eventtracker/internal/domain/service"
	"eventtracker/internal/domain/valueobject"
	"eventtracker/internal/port/outbound"
)

const (
	scriptExt = ".cs"
	metaExt   = ".meta"
)

// ProgressFunc is called before each asset of a scan.
type ProgressFunc func(done, total int, assetPath string)

// TrackerDeps are the collaborators of a Tracker.
type TrackerDeps struct {
	Project           outbound.Project
	Catalog           outbound.ScriptCatalog
	Extractor         outbound.BindingExtractor
	Validator         *domainservice.CompatibilityValidator
	Calls             outbound.CallRepository
	ScriptsWithEvents outbound.StringSetRepository
	ScriptsToCheck    outbound.StringSetRepository
	State             outbound.TrackerStateRepository
	Diagnostics       outbound.DiagnosticSink
	Rewriter          outbound.MethodRewriter
	Metrics           *ScanMetrics
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// Enabled turns the incremental handlers on.
	Enabled bool
	// ReportInvalid logs a summary of invalid calls after data changes.
	ReportInvalid bool
}

// Tracker owns the binding store of one project for the lifetime of a
// command.
type Tracker struct {
	deps TrackerDeps
	opts TrackerOptions

	scanning atomic.Bool
	now      func() time.Time
}

// NewTracker creates a tracker.
func NewTracker(deps TrackerDeps, opts TrackerOptions) *Tracker {
	return &Tracker{deps: deps, opts: opts, now: time.Now}
}

// Load reads the persisted store and script sets.
func (t *Tracker) Load(ctx context.Context) error {
	if err := t.deps.Calls.Load(ctx); err != nil {
		return err
	}
	if err := t.deps.ScriptsWithEvents.Load(ctx); err != nil {
		return err
	}
	return t.deps.ScriptsToCheck.Load(ctx)
}

// TrackerState returns the persisted tracker progress.
func (t *Tracker) TrackerState(ctx context.Context) (outbound.TrackerState, error) {
	return t.deps.State.Load(ctx)
}

// ScanSummary reports the outcome of a full scan.
type ScanSummary struct {
	Assets    int           `json:"assets"`
	Scanned   int           `json:"scanned"`
	Calls     int           `json:"calls"`
	Invalid   int           `json:"invalid"`
	Failures  int           `json:"failures"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// ScanProject rebuilds the script catalog and rescans every asset of the
// project. Cancelling ctx stops the scan between assets; calls found so far
// are kept and saved.
func (t *Tracker) ScanProject(ctx context.Context, progress ProgressFunc) (ScanSummary, error) {
	if !t.scanning.CompareAndSwap(false, true) {
		return ScanSummary{}, domainerrors.ErrScanInProgress
	}
	defer t.scanning.Store(false)

	ctx = logging.WithNewCorrelationID(ctx)
	start := t.now()
	var summary ScanSummary

	if err := t.reloadCatalog(ctx); err != nil {
		return summary, err
	}
	t.deps.ScriptsWithEvents.Clear()
	for _, guid := range t.deps.Catalog.ScriptGUIDs() {
		if t.scriptHasEvents(guid) {
			t.deps.ScriptsWithEvents.Add(guid)
		}
	}

	assets, err := t.deps.Project.Assets(ctx)
	if err != nil {
		return summary, fmt.Errorf("enumerate assets: %w", err)
	}
	summary.Assets = len(assets)

	slogger.Info(ctx, "Project scan started", slogger.Fields{
		"assets":              len(assets),
		"scripts_with_events": t.deps.ScriptsWithEvents.Len(),
	})

	for i, asset := range assets {
		if progress != nil {
			progress(i, len(assets), asset.Path)
		}
		found, failures, err := t.scanAsset(ctx, asset)
		if err != nil {
			slogger.Warn(ctx, "Asset skipped", slogger.Fields{"path": asset.Path, "error": err.Error()})
		} else {
			summary.Scanned++
			summary.Failures += failures
			summary.Calls += found
		}
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
	}
	if progress != nil && !summary.Cancelled {
		progress(len(assets), len(assets), "")
	}

	// a cancelled scan still saves what it found
	saveCtx := context.WithoutCancel(ctx)
	if err := t.saveAll(saveCtx); err != nil {
		return summary, err
	}

	state, err := t.deps.State.Load(saveCtx)
	if err != nil {
		return summary, err
	}
	state.LastScan = start
	state.LastScriptCheck = start
	state.ScannedAssets = summary.Scanned
	if !summary.Cancelled {
		state.InitialScanComplete = true
	}
	if err := t.deps.State.Save(saveCtx, state); err != nil {
		return summary, err
	}

	summary.Invalid = t.deps.Calls.Len() - len(t.deps.Calls.Filter(valueobject.CallStateValid))
	summary.Duration = time.Since(start)

	result := ScanCompleted
	if summary.Cancelled {
		result = ScanCancelled
	}
	t.deps.Metrics.RecordScanDuration(saveCtx, summary.Duration, result, logging.CorrelationIDFromContext(ctx))
	slogger.LogPerformance(saveCtx, "scan_project", summary.Duration, slogger.Fields{
		"assets":    summary.Scanned,
		"calls":     summary.Calls,
		"invalid":   summary.Invalid,
		"failures":  summary.Failures,
		"cancelled": summary.Cancelled,
	})
	t.reportInvalid(saveCtx)
	return summary, nil
}

// scanAsset replaces the stored calls of one asset with freshly extracted ones.
func (t *Tracker) scanAsset(ctx context.Context, asset outbound.AssetInfo) (int, int, error) {
	ctx = logging.WithAsset(ctx, asset.Path)
	content, err := t.deps.Project.ReadAsset(ctx, asset.Path)
	if err != nil {
		return 0, 0, err
	}

	t.deps.Calls.RemoveAllInAsset(asset.GUID)
	res := t.deps.Extractor.Extract(ctx, outbound.AssetSource{GUID: asset.GUID, Path: asset.Path, Content: content}, t.deps.ScriptsWithEvents.Contains)
	t.deps.Calls.AddRange(res.Calls)

	for _, failure := range res.Failures {
		slogger.Error(ctx, "Object could not be parsed", slogger.Fields{"error": failure.Error()})
		if t.deps.Diagnostics != nil && !t.deps.Diagnostics.Report(asset.Path, content, failure) && t.deps.Diagnostics.IsFull() {
			slogger.Debug(ctx, "Bug report dropped", slogger.Fields{"dir": t.deps.Diagnostics.Dir()})
		}
	}
	t.deps.Metrics.RecordAssetScanned(ctx, string(asset.Kind), res.Calls, len(res.Failures))
	return len(res.Calls), len(res.Failures), nil
}

// ImportSummary reports the outcome of an import batch.
type ImportSummary struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped"`
	Calls    int      `json:"calls"`
	Failures int      `json:"failures"`
}

// OnAssetsImported rescans the given assets after they changed on disk.
// Paths that are not tracked assets are skipped.
func (t *Tracker) OnAssetsImported(ctx context.Context, paths []string) (ImportSummary, error) {
	if !t.opts.Enabled {
		return ImportSummary{}, nil
	}
	return t.importAssets(logging.WithNewCorrelationID(ctx), paths)
}

func (t *Tracker) importAssets(ctx context.Context, paths []string) (ImportSummary, error) {
	var summary ImportSummary
	for _, path := range paths {
		if !t.deps.Project.IsControlledAsset(path) {
			summary.Skipped = append(summary.Skipped, path)
			continue
		}
		asset, err := t.deps.Project.Asset(ctx, path)
		if err != nil {
			slogger.Warn(ctx, "Imported asset skipped", slogger.Fields{"path": path, "error": err.Error()})
			summary.Skipped = append(summary.Skipped, path)
			continue
		}
		found, failures, err := t.scanAsset(ctx, asset)
		if err != nil {
			slogger.Warn(ctx, "Imported asset skipped", slogger.Fields{"path": path, "error": err.Error()})
			summary.Skipped = append(summary.Skipped, path)
			continue
		}
		summary.Imported = append(summary.Imported, asset.Path)
		summary.Calls += found
		summary.Failures += failures
	}

	if len(summary.Imported) > 0 {
		if err := t.deps.Calls.Save(ctx); err != nil {
			return summary, err
		}
		t.reportInvalid(ctx)
	}
	slogger.Info(ctx, "Assets imported", slogger.Fields{
		"imported": len(summary.Imported),
		"skipped":  len(summary.Skipped),
		"calls":    summary.Calls,
	})
	return summary, nil
}

// OnBeforeDelete drops what the store knows about a path about to be deleted.
// Deleting a script drops the calls targeting it; deleting an asset drops the
// calls found in it.
func (t *Tracker) OnBeforeDelete(ctx context.Context, path string) error {
	if !t.opts.Enabled {
		return nil
	}
	ctx = logging.WithNewCorrelationID(ctx)
	path = strings.TrimSuffix(path, metaExt)

	guid, ok := t.deps.Project.GUIDForPath(path)
	if !ok {
		slogger.Debug(ctx, "Deleted path has no guid", slogger.Fields{"path": path})
		return nil
	}

	switch {
	case strings.HasSuffix(path, scriptExt):
		t.deps.ScriptsWithEvents.Remove(guid)
		t.deps.ScriptsToCheck.Remove(guid)
		removed := t.deps.Calls.RemoveAllMethodsFrom(guid)
		t.deps.Project.Forget(path)
		slogger.Info(ctx, "Script deleted", slogger.Fields{"path": path, "calls_removed": removed})
		if err := t.deps.ScriptsWithEvents.Save(ctx); err != nil {
			return err
		}
		if err := t.deps.ScriptsToCheck.Save(ctx); err != nil {
			return err
		}
	case t.deps.Project.IsControlledAsset(path):
		removed := t.deps.Calls.RemoveAllInAsset(guid)
		t.deps.Project.Forget(path)
		slogger.Info(ctx, "Asset deleted", slogger.Fields{"path": path, "calls_removed": removed})
	default:
		return nil
	}
	return t.deps.Calls.Save(ctx)
}

// OnBeforeCreate remembers a new script so that the next recompile checks
// whether it declares events.
func (t *Tracker) OnBeforeCreate(ctx context.Context, path string) error {
	if !t.opts.Enabled {
		return nil
	}
	path = strings.TrimSuffix(path, metaExt)
	if !strings.HasSuffix(path, scriptExt) {
		return nil
	}
	guid, ok := t.deps.Project.GUIDForPath(path)
	if !ok {
		slogger.Debug(ctx, "Created script has no guid yet", slogger.Fields{"path": path})
		return nil
	}
	if t.deps.ScriptsToCheck.Add(guid) {
		return t.deps.ScriptsToCheck.Save(ctx)
	}
	return nil
}

// RecompileSummary reports the outcome of a script change check.
type RecompileSummary struct {
	ChangedScripts  int `json:"changed_scripts"`
	NewEventScripts int `json:"new_event_scripts"`
	StateChanges    int `json:"state_changes"`
}

// OnScriptsChanged rebuilds the catalog after scripts changed, updates which
// scripts declare events and re-derives the state of every stored call.
func (t *Tracker) OnScriptsChanged(ctx context.Context) (RecompileSummary, error) {
	var summary RecompileSummary
	if !t.opts.Enabled {
		return summary, nil
	}
	ctx = logging.WithNewCorrelationID(ctx)
	checkedAt := t.now()

	state, err := t.deps.State.Load(ctx)
	if err != nil {
		return summary, err
	}
	changed, err := t.deps.Project.ChangedScripts(ctx, state.LastScriptCheck)
	if err != nil {
		return summary, err
	}
	if err := t.reloadCatalog(ctx); err != nil {
		return summary, err
	}

	guids := t.deps.ScriptsToCheck.Values()
	for _, s := range changed {
		guids = append(guids, s.GUID)
	}
	summary.ChangedScripts = len(changed)
	for _, guid := range guids {
		if t.scriptHasEvents(guid) {
			if t.deps.ScriptsWithEvents.Add(guid) {
				summary.NewEventScripts++
			}
		} else {
			t.deps.ScriptsWithEvents.Remove(guid)
		}
	}

	for _, call := range t.deps.Calls.All() {
		updated := t.deps.Validator.Revalidate(ctx, call)
		if updated != call.State() && t.deps.Calls.Replace(call, call.WithState(updated)) {
			summary.StateChanges++
		}
	}

	t.deps.ScriptsToCheck.Clear()
	if err := t.saveAll(ctx); err != nil {
		return summary, err
	}
	state.LastScriptCheck = checkedAt
	if err := t.deps.State.Save(ctx, state); err != nil {
		return summary, err
	}

	if summary.NewEventScripts > 0 {
		slogger.Warn(ctx, "Scripts gained events; rescan the project to find their calls", slogger.Fields{
			"scripts": summary.NewEventScripts,
		})
	}
	slogger.Info(ctx, "Scripts checked", slogger.Fields{
		"changed_scripts": summary.ChangedScripts,
		"state_changes":   summary.StateChanges,
	})
	t.reportInvalid(ctx)
	return summary, nil
}

// RefusedReplacement is a call whose method was not replaced.
type RefusedReplacement struct {
	Call   *entity.PersistentCall
	Reason error
}

// ReplaceSummary reports the outcome of ReplaceMethod.
type ReplaceSummary struct {
	Applied      int
	Refused      []RefusedReplacement
	TouchedFiles []string
}

// ReplaceMethod points the given calls at another method of their target.
// Calls the new method cannot serve are refused before any file is written;
// the remaining calls are rewritten in one batch and their assets rescanned.
func (t *Tracker) ReplaceMethod(ctx context.Context, calls []*entity.PersistentCall, newName string) (ReplaceSummary, error) {
	ctx = logging.WithNewCorrelationID(ctx)
	var summary ReplaceSummary

	type editKey struct {
		path string
		line int
	}
	pending := make(map[editKey]*entity.PersistentCall)
	var edits []outbound.MethodEdit

	for _, call := range calls {
		if err := t.checkReplacement(ctx, call, newName); err != nil {
			summary.Refused = append(summary.Refused, RefusedReplacement{Call: call, Reason: err})
			continue
		}
		asset, ok := t.deps.Project.AssetByGUID(call.Address().AssetGUID())
		if !ok {
			summary.Refused = append(summary.Refused, RefusedReplacement{
				Call:   call,
				Reason: fmt.Errorf("%w: %s", domainerrors.ErrAssetNotFound, call.Address().AssetGUID()),
			})
			continue
		}
		edit := outbound.MethodEdit{
			AssetPath: asset.Path,
			Line:      call.MethodLine(),
			OldName:   call.MethodName(),
			NewName:   newName,
		}
		pending[editKey{edit.AssetPath, edit.Line}] = call
		edits = append(edits, edit)
	}

	if len(edits) > 0 {
		res, err := t.deps.Rewriter.Rewrite(ctx, edits)
		if err != nil {
			return summary, err
		}
		summary.Applied = res.Applied
		summary.TouchedFiles = res.TouchedFiles
		for _, r := range res.Refused {
			summary.Refused = append(summary.Refused, RefusedReplacement{
				Call:   pending[editKey{r.Edit.AssetPath, r.Edit.Line}],
				Reason: r.Reason,
			})
		}
	}
	t.deps.Metrics.RecordRewrite(ctx, summary.Applied, len(summary.Refused))

	for _, r := range summary.Refused {
		slogger.Warn(ctx, "Method replacement refused", slogger.Fields{
			"call":   r.Call.String(),
			"method": newName,
			"reason": r.Reason.Error(),
		})
	}

	if len(summary.TouchedFiles) > 0 {
		if _, err := t.importAssets(ctx, summary.TouchedFiles); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (t *Tracker) checkReplacement(ctx context.Context, call *entity.PersistentCall, newName string) error {
	if call == nil {
		return fmt.Errorf("%w: no call", domainerrors.ErrInvalidInput)
	}
	if call.State() == valueobject.CallStateInvalidTarget {
		return fmt.Errorf("%w: target of %s is missing", domainerrors.ErrInvalidReplacement, call)
	}
	q := domainservice.QueryFor(call.WithMethodName(newName))
	if !t.deps.Validator.ValidateMethod(ctx, q) {
		return fmt.Errorf("%w: %s cannot be called as %s", domainerrors.ErrInvalidReplacement, newName, call.Mode())
	}
	return nil
}

// Calls returns the stored calls, optionally only those in one state.
func (t *Tracker) Calls(state *valueobject.CallState) []*entity.PersistentCall {
	if state == nil {
		return t.deps.Calls.All()
	}
	return t.deps.Calls.Filter(*state)
}

// Groups groups the stored calls by the method they invoke, optionally only
// those in one state.
func (t *Tracker) Groups(state *valueobject.CallState) []domainservice.CallGroup {
	var filter func(*entity.PersistentCall) bool
	if state != nil {
		filter = func(c *entity.PersistentCall) bool { return c.State() == *state }
	}
	return domainservice.GroupCalls(t.deps.Calls.All(), filter)
}

// Candidates lists the methods a call could be pointed at instead.
func (t *Tracker) Candidates(ctx context.Context, call *entity.PersistentCall, opts domainservice.CandidateOptions) []domainservice.Candidate {
	return t.deps.Validator.CandidatesFor(ctx, call, opts)
}

// RefreshCatalog rebuilds the script catalog without touching the store.
// Handlers other than ScanProject and OnScriptsChanged expect a loaded
// catalog.
func (t *Tracker) RefreshCatalog(ctx context.Context) error {
	return t.reloadCatalog(ctx)
}

func (t *Tracker) reloadCatalog(ctx context.Context) error {
	scripts, err := t.deps.Project.Scripts(ctx)
	if err != nil {
		return fmt.Errorf("enumerate scripts: %w", err)
	}
	if err := t.deps.Catalog.Reload(ctx, scripts); err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	return nil
}

func (t *Tracker) scriptHasEvents(guid string) bool {
	class, ok := t.deps.Catalog.ClassForScript(guid)
	return ok && t.deps.Catalog.Types().HasEvents(class)
}

func (t *Tracker) saveAll(ctx context.Context) error {
	return errors.Join(
		t.deps.Calls.Save(ctx),
		t.deps.ScriptsWithEvents.Save(ctx),
		t.deps.ScriptsToCheck.Save(ctx),
	)
}

// reportInvalid logs one warning per invalid call.
func (t *Tracker) reportInvalid(ctx context.Context) {
	if !t.opts.ReportInvalid {
		return
	}
	for _, state := range valueobject.AllCallStates() {
		if state == valueobject.CallStateValid {
			continue
		}
		for _, c := range t.deps.Calls.Filter(state) {
			slogger.Warn(ctx, "Invalid persistent call", slogger.Fields{
				"state":       state.String(),
				"asset_guid":  c.Address().AssetGUID(),
				"game_object": c.Address().GameObjectID(),
				"event":       c.EventName(),
				"method":      c.MethodName(),
				"line":        c.MethodLine(),
			})
		}
	}
}
