package outbound

import (
	"context"
	"time"

	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/valueobject"
)

// CallRepository defines the outbound port for the persisted binding store.
// The in-memory copy is authoritative between saves.
type CallRepository interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error

	Add(call *entity.PersistentCall)
	AddRange(calls []*entity.PersistentCall)
	Remove(call *entity.PersistentCall) bool
	Replace(old, updated *entity.PersistentCall) bool
	// RemoveAllMethodsFrom drops calls targeting the given script. Calls on
	// engine types are kept.
	RemoveAllMethodsFrom(scriptGUID string) int
	RemoveAllInAsset(assetGUID string) int
	IsScriptUsedInEvents(scriptGUID string) bool
	CallsForScript(scriptGUID string) []*entity.PersistentCall
	All() []*entity.PersistentCall
	Filter(state valueobject.CallState) []*entity.PersistentCall
	Len() int
}

// StringSetRepository defines a persisted set of strings, used for script guid sets.
type StringSetRepository interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Add(value string) bool
	Remove(value string) bool
	Contains(value string) bool
	Values() []string
	Clear()
	Len() int
}

// TrackerState is the persisted progress of the tracker.
type TrackerState struct {
	InitialScanComplete bool      `toml:"initial_scan_complete"`
	LastScriptCheck     time.Time `toml:"last_script_check"`
	LastScan            time.Time `toml:"last_scan"`
	ScannedAssets       int       `toml:"scanned_assets"`
}

// TrackerStateRepository loads and saves TrackerState.
type TrackerStateRepository interface {
	Load(ctx context.Context) (TrackerState, error)
	Save(ctx context.Context, state TrackerState) error
}
