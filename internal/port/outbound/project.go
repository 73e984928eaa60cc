package outbound

import (
	"context"
	"time"
)

// AssetKind classifies the serialized assets the tracker scans.
type AssetKind string

// Asset kinds.
const (
	AssetKindScene            AssetKind = "scene"
	AssetKindPrefab           AssetKind = "prefab"
	AssetKindScriptableObject AssetKind = "asset"
)

// AssetInfo describes a serialized asset of the project.
type AssetInfo struct {
	GUID string
	// Path is relative to the project root using forward slashes, e.g. "Assets/Scenes/Main.unity".
	Path    string
	Kind    AssetKind
	ModTime time.Time
}

// ScriptFile describes a C# script of the project.
type ScriptFile struct {
	GUID     string
	Path     string
	Assembly string
	ModTime  time.Time
}

// Project enumerates and reads the files of a Unity project.
type Project interface {
	Root() string
	// Assets returns the assets to scan, honoring folder exclusions.
	Assets(ctx context.Context) ([]AssetInfo, error)
	// Asset describes a single project-relative path.
	Asset(ctx context.Context, path string) (AssetInfo, error)
	IsControlledAsset(path string) bool
	IsIgnored(path string) bool
	AssetByGUID(guid string) (AssetInfo, bool)
	GUIDForPath(path string) (string, bool)
	// Forget drops cached knowledge of a deleted path.
	Forget(path string)
	ReadAsset(ctx context.Context, path string) ([]byte, error)
	Scripts(ctx context.Context) ([]ScriptFile, error)
	// ChangedScripts returns the scripts modified after since.
	ChangedScripts(ctx context.Context, since time.Time) ([]ScriptFile, error)
}
