// Package unityproject reads the files of a Unity project directory: asset
// guids from .meta files, the scenes in the build and the C# scripts.
package unityproject

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"eventtracker/internal/adapter/outbound/filefilter"
	"eventtracker/internal/application/common/slogger"
	domainerrors "eventtracker/internal/domain/errors/domain"
	"eventtracker/internal/port/outbound"
)

const (
	assetsDir         = "Assets"
	buildSettingsPath = "ProjectSettings/EditorBuildSettings.asset"
	metaExt           = ".meta"
	scriptExt         = ".cs"
)

var assetKinds = map[string]outbound.AssetKind{
	".unity":  outbound.AssetKindScene,
	".prefab": outbound.AssetKindPrefab,
	".asset":  outbound.AssetKindScriptableObject,
}

// Options configures a Project.
type Options struct {
	// IgnoreFolders are folder names under Assets/ that are not tracked.
	IgnoreFolders []string
	// IncludeAllScenes scans every scene instead of the scenes in the build.
	IncludeAllScenes bool
}

// Project is a Unity project on the local filesystem.
type Project struct {
	root             string
	ignore           *filefilter.FolderMatcher
	includeAllScenes bool
	assemblies       *assemblyResolver

	mu         sync.RWMutex
	byGUID     map[string]string
	guidByPath map[string]string
}

var _ outbound.Project = (*Project)(nil)

// Open opens the project at root and indexes the guids of its assets.
func Open(ctx context.Context, root string, opts Options) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.Join(abs, assetsDir))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s has no %s folder", domainerrors.ErrNotUnityProject, abs, assetsDir)
	}

	patterns, err := filefilter.LoadPatterns(filepath.Join(abs, filefilter.IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filefilter.IgnoreFileName, err)
	}

	p := &Project{
		root:             abs,
		ignore:           filefilter.NewFolderMatcher(opts.IgnoreFolders, patterns),
		includeAllScenes: opts.IncludeAllScenes,
		assemblies:       newAssemblyResolver(abs),
	}
	if err := p.Reindex(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Root returns the absolute project directory.
func (p *Project) Root() string { return p.root }

// Reindex rebuilds the guid index from every .meta file under Assets/.
func (p *Project) Reindex(ctx context.Context) error {
	start := time.Now()
	byGUID := make(map[string]string)
	guidByPath := make(map[string]string)

	err := p.walk(ctx, func(rel string, d fs.DirEntry) error {
		if d.IsDir() || !strings.HasSuffix(rel, metaExt) {
			return nil
		}
		guid, err := readMetaGUID(filepath.Join(p.root, filepath.FromSlash(rel)))
		if err != nil {
			slogger.Debug(ctx, "Skipping unreadable meta file", slogger.Fields{"path": rel, "error": err.Error()})
			return nil
		}
		assetPath := strings.TrimSuffix(rel, metaExt)
		byGUID[guid] = assetPath
		guidByPath[assetPath] = guid
		return nil
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.byGUID = byGUID
	p.guidByPath = guidByPath
	p.mu.Unlock()

	slogger.Debug(ctx, "Asset guid index built", slogger.Fields{
		"guids":       len(byGUID),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Assets returns the prefabs, scriptable objects and scenes to scan.
func (p *Project) Assets(ctx context.Context) ([]outbound.AssetInfo, error) {
	var out []outbound.AssetInfo
	seen := make(map[string]bool)

	err := p.walk(ctx, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			if p.IsIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := assetKinds[path.Ext(rel)]
		if !ok || (kind == outbound.AssetKindScene && !p.includeAllScenes) {
			return nil
		}
		info, err := p.describe(rel, kind)
		if err != nil {
			return nil
		}
		seen[rel] = true
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.includeAllScenes {
		return out, nil
	}

	// scenes in the build are scanned even inside ignored folders
	scenes, err := p.buildScenes()
	if err != nil {
		return nil, err
	}
	for _, scene := range scenes {
		if seen[scene] {
			continue
		}
		info, err := p.describe(scene, outbound.AssetKindScene)
		if err != nil {
			slogger.Warn(ctx, "Scene in build settings not found", slogger.Fields{"path": scene})
			continue
		}
		seen[scene] = true
		out = append(out, info)
	}
	return out, nil
}

// Asset describes a single asset by its project-relative path.
func (p *Project) Asset(_ context.Context, rel string) (outbound.AssetInfo, error) {
	rel = normalize(rel)
	kind, ok := assetKinds[path.Ext(rel)]
	if !ok {
		return outbound.AssetInfo{}, fmt.Errorf("%w: %s is not a scene, prefab or asset", domainerrors.ErrAssetNotFound, rel)
	}
	return p.describe(rel, kind)
}

func (p *Project) describe(rel string, kind outbound.AssetKind) (outbound.AssetInfo, error) {
	stat, err := os.Stat(p.abs(rel))
	if err != nil {
		return outbound.AssetInfo{}, fmt.Errorf("%w: %s", domainerrors.ErrAssetNotFound, rel)
	}
	guid, ok := p.GUIDForPath(rel)
	if !ok {
		return outbound.AssetInfo{}, fmt.Errorf("%w: %s has no meta file", domainerrors.ErrAssetNotFound, rel)
	}
	return outbound.AssetInfo{GUID: guid, Path: rel, Kind: kind, ModTime: stat.ModTime()}, nil
}

// IsControlledAsset reports whether a path is a scene, prefab or asset file
// under Assets/ outside the ignored folders.
func (p *Project) IsControlledAsset(rel string) bool {
	rel = normalize(rel)
	if _, ok := assetKinds[path.Ext(rel)]; !ok {
		return false
	}
	return strings.HasPrefix(rel, assetsDir+"/") && !p.IsIgnored(rel)
}

// IsIgnored reports whether a path lies in an ignored folder.
func (p *Project) IsIgnored(rel string) bool {
	return p.ignore.IsIgnored(normalize(rel))
}

// AssetByGUID returns the file with the given guid. Any file with a .meta
// file is known, including textures and scripts.
func (p *Project) AssetByGUID(guid string) (outbound.AssetInfo, bool) {
	p.mu.RLock()
	rel, ok := p.byGUID[guid]
	p.mu.RUnlock()
	if !ok {
		return outbound.AssetInfo{}, false
	}
	stat, err := os.Stat(p.abs(rel))
	if err != nil {
		return outbound.AssetInfo{}, false
	}
	return outbound.AssetInfo{GUID: guid, Path: rel, Kind: assetKinds[path.Ext(rel)], ModTime: stat.ModTime()}, true
}

// GUIDForPath returns the guid of a file, reading its .meta file when the
// file was created after the index was built.
func (p *Project) GUIDForPath(rel string) (string, bool) {
	rel = normalize(rel)
	p.mu.RLock()
	guid, ok := p.guidByPath[rel]
	p.mu.RUnlock()
	if ok {
		return guid, true
	}

	guid, err := readMetaGUID(p.abs(rel) + metaExt)
	if err != nil {
		return "", false
	}
	p.mu.Lock()
	p.byGUID[guid] = rel
	p.guidByPath[rel] = guid
	p.mu.Unlock()
	return guid, true
}

// Forget drops a deleted file from the index.
func (p *Project) Forget(rel string) {
	rel = strings.TrimSuffix(normalize(rel), metaExt)
	p.mu.Lock()
	defer p.mu.Unlock()
	if guid, ok := p.guidByPath[rel]; ok {
		delete(p.byGUID, guid)
		delete(p.guidByPath, rel)
	}
}

// ReadAsset returns the content of a project file.
func (p *Project) ReadAsset(_ context.Context, rel string) ([]byte, error) {
	data, err := os.ReadFile(p.abs(normalize(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrAssetNotFound, rel)
	}
	return data, err
}

// Scripts returns the C# scripts outside the ignored folders.
func (p *Project) Scripts(ctx context.Context) ([]outbound.ScriptFile, error) {
	var out []outbound.ScriptFile
	err := p.walk(ctx, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			if p.IsIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if path.Ext(rel) != scriptExt {
			return nil
		}
		guid, ok := p.GUIDForPath(rel)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, outbound.ScriptFile{
			GUID:     guid,
			Path:     rel,
			Assembly: p.assemblies.assemblyFor(rel),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	return out, err
}

// ChangedScripts returns the scripts modified after since.
func (p *Project) ChangedScripts(ctx context.Context, since time.Time) ([]outbound.ScriptFile, error) {
	scripts, err := p.Scripts(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(scripts, func(s outbound.ScriptFile) bool {
		return !s.ModTime.After(since)
	}), nil
}

// walk visits every entry under Assets/ with its project-relative path.
func (p *Project) walk(ctx context.Context, fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(filepath.Join(p.root, assetsDir), func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(p.root, abs)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), d)
	})
}

func (p *Project) abs(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func normalize(rel string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(rel)), "./")
}
