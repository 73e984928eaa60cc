package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventtracker/internal/adapter/outbound/cache"
	"eventtracker/internal/adapter/outbound/persistence"
	"eventtracker/internal/adapter/outbound/rewriter"
	"eventtracker/internal/adapter/outbound/unityproject"
	"eventtracker/internal/adapter/outbound/unityyaml"
	domainerrors "eventtracker/internal/domain/errors/domain"
	domainservice "eventtracker/internal/domain/service"
	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/domain/valueobject"
	"eventtracker/internal/port/inbound"
	"eventtracker/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	sceneGUID  = "60831707daabd35409bb5314d1598b93"
	prefabGUID = "2b7c7f0e8e4a4d14b8a3c5e7f9a1b2c3"
	playerGUID = "da5e393edfcb7eb4bb681092b41dc693"
	buttonGUID = "97437966622eda74a91d29ac6d3f5563"
	enemyGUID  = "5f1e2d3c4b5a69788796a5b4c3d2e1f0"
	gameObject = "4454570787811659263"
	playerID   = "1586289142248650638"
	scenePath  = "Assets/Scenes/Main.unity"
	prefabPath = "Assets/Prefabs/Door.prefab"
)

// trackerCatalog swaps in the next registry on Reload, as a recompile would.
type trackerCatalog struct {
	registry *typesystem.Registry
	next     *typesystem.Registry
	scripts  map[string]string
}

func (c *trackerCatalog) Types() *typesystem.Registry { return c.registry }

func (c *trackerCatalog) ClassForScript(guid string) (string, bool) {
	name, ok := c.scripts[guid]
	return name, ok
}

func (c *trackerCatalog) ScriptForClass(fullName string) (string, bool) {
	for guid, name := range c.scripts {
		if name == fullName {
			return guid, true
		}
	}
	return "", false
}

func (c *trackerCatalog) ScriptGUIDs() []string {
	return []string{playerGUID, buttonGUID}
}

func (c *trackerCatalog) Reload(context.Context, []outbound.ScriptFile) error {
	if c.next != nil {
		c.registry, c.next = c.next, nil
	}
	return nil
}

func gameRegistry(t *testing.T, playerMethods ...string) *typesystem.Registry {
	t.Helper()
	r, err := typesystem.NewRegistryWithBuiltins()
	require.NoError(t, err)

	var methods []typesystem.MethodDescriptor
	for _, m := range playerMethods {
		methods = append(methods, typesystem.MethodDescriptor{Name: m, Return: "void", Public: true})
	}
	scope := &typesystem.Scope{Namespace: "Game", Usings: []string{"UnityEngine", "UnityEngine.Events"}}
	for _, td := range []*typesystem.TypeDescriptor{
		{FullName: "Game.Player", BaseList: []string{"MonoBehaviour"}, Methods: methods},
		{
			FullName: "Game.Button",
			BaseList: []string{"MonoBehaviour"},
			Fields:   []typesystem.FieldDescriptor{{Name: "onClick", Type: "UnityEvent", Public: true}},
		},
	} {
		td.Kind = typesystem.KindClass
		td.Scope = scope
		td.Assembly = "Assembly-CSharp"
		r.Register(td)
	}
	r.Link()
	return r
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Report(assetName string, content []byte, err error) bool {
	return m.Called(assetName, content, err).Bool(0)
}

func (m *mockSink) IsFull() bool { return m.Called().Bool(0) }
func (m *mockSink) Dir() string  { return "Logs" }

func behaviour(fileID, scriptGUID string, fields ...string) []string {
	return append([]string{
		"--- !u!114 &" + fileID,
		"MonoBehaviour:",
		"  m_ObjectHideFlags: 0",
		"  m_CorrespondingSourceObject: {fileID: 0}",
		"  m_PrefabInstance: {fileID: 0}",
		"  m_PrefabAsset: {fileID: 0}",
		"  m_GameObject: {fileID: " + gameObject + "}",
		"  m_Enabled: 1",
		"  m_EditorHideFlags: 0",
		"  m_Script: {fileID: 11500000, guid: " + scriptGUID + ", type: 3}",
		"  m_Name: ",
		"  m_EditorClassIdentifier: ",
	}, fields...)
}

func onClick(calls ...[2]string) []string {
	lines := []string{"  onClick:", "    m_PersistentCalls:", "      m_Calls:"}
	for _, c := range calls {
		lines = append(lines,
			"      - m_Target: {fileID: "+playerID+"}",
			"        m_TargetAssemblyTypeName: Game.Player, Assembly-CSharp",
			"        m_MethodName: "+c[0],
			"        m_Mode: "+c[1],
			"        m_Arguments:",
			"          m_ObjectArgument: {fileID: 0}",
			"          m_ObjectArgumentAssemblyTypeName: UnityEngine.Object, UnityEngine",
			"          m_IntArgument: 0",
			"          m_FloatArgument: 0",
			"          m_StringArgument: ",
			"          m_BoolArgument: 0",
			"        m_CallState: 2",
		)
	}
	return lines
}

func assetText(buttonFields []string) string {
	lines := []string{
		"%YAML 1.1",
		"%TAG !u! tag:unity3d.com,2011:",
		"--- !u!1 &" + gameObject,
		"GameObject:",
		"  m_ObjectHideFlags: 0",
		"  m_Name: Player",
	}
	lines = append(lines, behaviour(playerID, playerGUID, "  speed: 4")...)
	lines = append(lines, behaviour("2000", buttonGUID, buttonFields...)...)
	return strings.Join(lines, "\n") + "\n"
}

type trackerFixture struct {
	root    string
	tracker *Tracker
	catalog *trackerCatalog
	calls   *persistence.CallStore
	sink    *mockSink
	reader  *sdkmetric.ManualReader
}

func writeFile(t *testing.T, root, rel, body, guid string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(body), 0o644))
	if guid != "" {
		require.NoError(t, os.WriteFile(abs+".meta", []byte("fileFormatVersion: 2\nguid: "+guid+"\n"), 0o644))
	}
}

func newTrackerFixture(t *testing.T, opts TrackerOptions) *trackerFixture {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, root, scenePath, assetText(onClick([2]string{"Jump", "1"}, [2]string{"Fly", "1"})), sceneGUID)
	writeFile(t, root, prefabPath, assetText(nil), prefabGUID)
	writeFile(t, root, "Assets/Scripts/Player.cs", "class Player {}", playerGUID)
	writeFile(t, root, "Assets/Scripts/Button.cs", "class Button {}", buttonGUID)

	project, err := unityproject.Open(ctx, root, unityproject.Options{IncludeAllScenes: true})
	require.NoError(t, err)

	catalog := &trackerCatalog{
		registry: gameRegistry(t, "Jump"),
		scripts:  map[string]string{playerGUID: "Game.Player", buttonGUID: "Game.Button"},
	}
	validator := domainservice.NewCompatibilityValidator(catalog)
	assets, err := cache.NewAssetObjectCache(project, 16)
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(resource.NewWithAttributes("test")))
	metrics, err := NewScanMetricsWithProvider(provider)
	require.NoError(t, err)

	storeDir := filepath.Join(root, "Library", "EventTracker")
	calls := persistence.NewCallStore(storeDir)
	sink := &mockSink{}

	tracker := NewTracker(TrackerDeps{
		Project:           project,
		Catalog:           catalog,
		Extractor:         unityyaml.NewExtractor(validator, assets),
		Validator:         validator,
		Calls:             calls,
		ScriptsWithEvents: persistence.NewStringSet(storeDir, persistence.ScriptsWithEventsFileName),
		ScriptsToCheck:    persistence.NewStringSet(storeDir, persistence.ScriptsToCheckFileName),
		State:             persistence.NewTrackerStateFile(storeDir),
		Diagnostics:       sink,
		Rewriter:          rewriter.NewMethodRewriter(root),
		Metrics:           metrics,
	}, opts)
	require.NoError(t, tracker.Load(ctx))

	return &trackerFixture{root: root, tracker: tracker, catalog: catalog, calls: calls, sink: sink, reader: reader}
}

func enabled() TrackerOptions { return TrackerOptions{Enabled: true, ReportInvalid: true} }

func methodNames(f *trackerFixture) []string {
	var out []string
	for _, c := range f.calls.All() {
		out = append(out, c.MethodName()+":"+c.State().String())
	}
	return out
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))
	var total int64
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected Sum[int64] for %s", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestTracker_ScanProject(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())

	var progressed []string
	summary, err := f.tracker.ScanProject(ctx, func(done, total int, path string) {
		assert.Equal(t, 2, total)
		progressed = append(progressed, path)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Assets)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Calls)
	assert.Equal(t, 1, summary.Invalid)
	assert.False(t, summary.Cancelled)
	assert.Equal(t, []string{prefabPath, scenePath, ""}, progressed)
	assert.Equal(t, []string{"Jump:valid", "Fly:invalid-method"}, methodNames(f))

	state, err := f.tracker.TrackerState(ctx)
	require.NoError(t, err)
	assert.True(t, state.InitialScanComplete)
	assert.Equal(t, 2, state.ScannedAssets)

	reloaded := persistence.NewCallStore(filepath.Join(f.root, "Library", "EventTracker"))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2, reloaded.Len())

	assert.Equal(t, int64(2), counterTotal(t, f.reader, AssetsScannedCounterName))
	assert.Equal(t, int64(2), counterTotal(t, f.reader, BindingsFoundCounterName))
}

func TestTracker_ScanProject_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())

	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)
	first := f.calls.All()

	_, err = f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)
	second := f.calls.All()

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestTracker_ScanProject_InProgress(t *testing.T) {
	f := newTrackerFixture(t, enabled())
	f.tracker.scanning.Store(true)

	_, err := f.tracker.ScanProject(context.Background(), nil)
	assert.ErrorIs(t, err, domainerrors.ErrScanInProgress)
}

func TestTracker_ScanProject_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newTrackerFixture(t, enabled())

	summary, err := f.tracker.ScanProject(ctx, func(done, _ int, _ string) {
		if done == 0 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Scanned)

	state, err := f.tracker.TrackerState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.InitialScanComplete)
	_, err = os.Stat(f.calls.Path())
	assert.NoError(t, err, "partial results are saved")
}

func TestTracker_ScanProject_ReportsParseFailures(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	writeFile(t, f.root, scenePath, assetText(onClick([2]string{"Jump", "x"})), "")

	f.sink.On("Report", scenePath, mock.Anything, mock.MatchedBy(unityyaml.IsParseFailure)).Return(true).Once()

	summary, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
	assert.Zero(t, summary.Calls)
	f.sink.AssertExpectations(t)
	assert.Equal(t, int64(1), counterTotal(t, f.reader, ParseFailuresCounterName))
}

func TestTracker_OnAssetsImported(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)

	writeFile(t, f.root, prefabPath, assetText(onClick([2]string{"Jump", "1"})), "")
	summary, err := f.tracker.OnAssetsImported(ctx, []string{prefabPath, "Assets/Scripts/Player.cs", "Assets/Missing.prefab"})
	require.NoError(t, err)

	assert.Equal(t, []string{prefabPath}, summary.Imported)
	assert.Equal(t, []string{"Assets/Scripts/Player.cs", "Assets/Missing.prefab"}, summary.Skipped)
	assert.Equal(t, 1, summary.Calls)
	assert.Equal(t, 3, f.calls.Len())
}

func TestTracker_DisabledHandlersAreNoOps(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, TrackerOptions{})
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)

	summary, err := f.tracker.OnAssetsImported(ctx, []string{scenePath})
	require.NoError(t, err)
	assert.Empty(t, summary.Imported)
	require.NoError(t, f.tracker.OnBeforeDelete(ctx, scenePath))
	assert.Equal(t, 2, f.calls.Len())
}

func TestTracker_OnBeforeDelete(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantCalls int
	}{
		{name: "scene", path: scenePath, wantCalls: 0},
		{name: "scene meta", path: scenePath + ".meta", wantCalls: 0},
		{name: "target script", path: "Assets/Scripts/Player.cs", wantCalls: 0},
		{name: "event script", path: "Assets/Scripts/Button.cs.meta", wantCalls: 2},
		{name: "unrelated prefab", path: prefabPath, wantCalls: 2},
		{name: "unknown file", path: "Assets/Nothing.txt", wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newTrackerFixture(t, enabled())
			_, err := f.tracker.ScanProject(ctx, nil)
			require.NoError(t, err)

			require.NoError(t, f.tracker.OnBeforeDelete(ctx, tt.path))
			assert.Equal(t, tt.wantCalls, f.calls.Len())
		})
	}
}

func TestTracker_OnBeforeDelete_ForgetsEventScript(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)
	require.True(t, f.tracker.deps.ScriptsWithEvents.Contains(buttonGUID))

	require.NoError(t, f.tracker.OnBeforeDelete(ctx, "Assets/Scripts/Button.cs"))
	assert.False(t, f.tracker.deps.ScriptsWithEvents.Contains(buttonGUID))
}

func TestTracker_OnBeforeCreate(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	writeFile(t, f.root, "Assets/Scripts/Enemy.cs", "class Enemy {}", enemyGUID)

	require.NoError(t, f.tracker.OnBeforeCreate(ctx, "Assets/Scripts/Enemy.cs.meta"))
	require.NoError(t, f.tracker.OnBeforeCreate(ctx, "Assets/Prefabs/Other.prefab"))
	assert.Equal(t, []string{enemyGUID}, f.tracker.deps.ScriptsToCheck.Values())
}

func TestTracker_OnScriptsChanged(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)
	f.tracker.deps.ScriptsToCheck.Add(playerGUID)

	f.catalog.next = gameRegistry(t, "Jump", "Fly")
	summary, err := f.tracker.OnScriptsChanged(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.StateChanges)
	assert.Equal(t, []string{"Jump:valid", "Fly:valid"}, methodNames(f))
	assert.Zero(t, f.tracker.deps.ScriptsToCheck.Len())

	f.catalog.next = gameRegistry(t)
	summary, err = f.tracker.OnScriptsChanged(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.StateChanges)
	assert.Equal(t, []string{"Jump:invalid-method", "Fly:invalid-method"}, methodNames(f))
}

func TestTracker_HandleChanges(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.tracker.HandleChanges(ctx, inbound.ChangeBatch{Deleted: []string{scenePath}}))
	assert.Zero(t, f.calls.Len())

	f.catalog.next = gameRegistry(t, "Jump", "Fly")
	require.NoError(t, f.tracker.HandleChanges(ctx, inbound.ChangeBatch{
		Modified: []string{"Assets/Scripts/Player.cs", scenePath},
	}))
	assert.Equal(t, []string{"Jump:valid", "Fly:valid"}, methodNames(f))

	require.NoError(t, f.tracker.HandleChanges(ctx, inbound.ChangeBatch{}))
}

func TestTracker_HandleChanges_Disabled(t *testing.T) {
	f := newTrackerFixture(t, TrackerOptions{})
	require.NoError(t, f.tracker.HandleChanges(context.Background(), inbound.ChangeBatch{
		Modified: []string{scenePath},
	}))
	assert.Zero(t, f.calls.Len())
}

func TestTracker_RefreshCatalog(t *testing.T) {
	f := newTrackerFixture(t, enabled())
	f.catalog.next = gameRegistry(t, "Jump", "Fly")

	require.NoError(t, f.tracker.RefreshCatalog(context.Background()))
	assert.Nil(t, f.catalog.next)
	assert.Zero(t, f.calls.Len())
}

func TestTracker_ReplaceMethod(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)

	state := valueobject.CallStateInvalidMethod
	groups := f.tracker.Groups(&state)
	require.Len(t, groups, 1)

	refused, err := f.tracker.ReplaceMethod(ctx, groups[0].Calls, "Teleport")
	require.NoError(t, err)
	assert.Zero(t, refused.Applied)
	require.Len(t, refused.Refused, 1)
	assert.ErrorIs(t, refused.Refused[0].Reason, domainerrors.ErrInvalidReplacement)

	summary, err := f.tracker.ReplaceMethod(ctx, groups[0].Calls, "Jump")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
	assert.Empty(t, summary.Refused)
	assert.Equal(t, []string{scenePath}, summary.TouchedFiles)

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(scenePath)))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "m_MethodName: Fly")
	assert.Equal(t, []string{"Jump:valid", "Jump:valid"}, methodNames(f))
	assert.Len(t, f.tracker.Groups(nil), 1)
	assert.Equal(t, int64(2), counterTotal(t, f.reader, RewritesCounterName), "one refused and one applied edit")
}

func TestTracker_CallsAndCandidates(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t, enabled())
	_, err := f.tracker.ScanProject(ctx, nil)
	require.NoError(t, err)

	assert.Len(t, f.tracker.Calls(nil), 2)
	valid := valueobject.CallStateValid
	require.Len(t, f.tracker.Calls(&valid), 1)

	candidates := f.tracker.Candidates(ctx, f.tracker.Calls(&valid)[0], domainservice.CandidateOptions{})
	var names []string
	for _, c := range candidates {
		names = append(names, c.Method.Name)
	}
	assert.Contains(t, names, "Jump")
}
