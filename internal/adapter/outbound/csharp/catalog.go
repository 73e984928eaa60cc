package csharp

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/port/outbound"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Catalog is the script catalog of a project. Reload rebuilds it from the
// project's scripts; lookups between reloads see a consistent snapshot.
type Catalog struct {
	root     string
	workers  int
	scanners sync.Pool

	mu       sync.RWMutex
	registry *typesystem.Registry
	byScript map[string]string
	byClass  map[string]string
}

// NewCatalog creates an empty catalog reading scripts relative to root.
// workers bounds the number of files parsed concurrently.
func NewCatalog(root string, workers int) (*Catalog, error) {
	registry, err := typesystem.NewRegistryWithBuiltins()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Catalog{
		root:     root,
		workers:  workers,
		registry: registry,
		byScript: map[string]string{},
		byClass:  map[string]string{},
	}, nil
}

var _ outbound.ScriptCatalog = (*Catalog)(nil)

// Types returns the registry of the last reload.
func (c *Catalog) Types() *typesystem.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

// ClassForScript returns the full name of the class a script declares.
func (c *Catalog) ClassForScript(scriptGUID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byScript[scriptGUID]
	return name, ok
}

// ScriptForClass returns the guid of the script declaring a class.
func (c *Catalog) ScriptForClass(fullName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	guid, ok := c.byClass[fullName]
	return guid, ok
}

// ScriptGUIDs returns the guids of all scripts that declare a class.
func (c *Catalog) ScriptGUIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byScript))
	for guid := range c.byScript {
		out = append(out, guid)
	}
	return out
}

// ScriptHasEvents reports whether the class of a script can hold persistent
// calls.
func (c *Catalog) ScriptHasEvents(scriptGUID string) bool {
	class, ok := c.ClassForScript(scriptGUID)
	return ok && c.Types().HasEvents(class)
}

// Reload parses every script and replaces the catalog contents. Files that
// cannot be read or parsed are logged and skipped.
func (c *Catalog) Reload(ctx context.Context, scripts []outbound.ScriptFile) error {
	start := time.Now()
	results := make([][]*typesystem.TypeDescriptor, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, script := range scripts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			types, err := c.scanFile(gctx, script)
			if err != nil {
				slogger.Warn(gctx, "Failed to read script", slogger.Fields{
					"path":  script.Path,
					"error": err.Error(),
				})
				return nil
			}
			results[i] = types
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("scan scripts: %w", err)
	}

	registry, err := typesystem.NewRegistryWithBuiltins()
	if err != nil {
		return err
	}
	for _, types := range results {
		for _, td := range types {
			registry.Register(td)
		}
	}
	registry.Link()

	byScript := make(map[string]string, len(scripts))
	byClass := make(map[string]string, len(scripts))
	for i, script := range scripts {
		if class, ok := scriptClass(registry, results[i], script.Path); ok {
			byScript[script.GUID] = class
			byClass[class] = script.GUID
		}
	}

	c.mu.Lock()
	c.registry = registry
	c.byScript = byScript
	c.byClass = byClass
	c.mu.Unlock()

	slogger.Info(ctx, "Script catalog reloaded", slogger.Fields{
		"scripts":     len(scripts),
		"classes":     len(byScript),
		"types":       registry.Len(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (c *Catalog) scanFile(ctx context.Context, script outbound.ScriptFile) ([]*typesystem.TypeDescriptor, error) {
	src, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(script.Path)))
	if err != nil {
		return nil, err
	}

	scanner, ok := c.scanners.Get().(*Scanner)
	if !ok {
		scanner, err = NewScanner()
		if err != nil {
			return nil, err
		}
	}
	defer c.scanners.Put(scanner)

	return scanner.Scan(ctx, src, script.Path, script.Assembly)
}

// scriptClass picks the class a script file provides: the top-level type
// named after the file, preferring one that can be attached to objects.
func scriptClass(registry *typesystem.Registry, types []*typesystem.TypeDescriptor, scriptPath string) (string, bool) {
	base := strings.TrimSuffix(path.Base(filepath.ToSlash(scriptPath)), ".cs")

	var fallback string
	for _, td := range types {
		if td.Name() != base || strings.Contains(td.FullName, "+") || td.IsGenericDefinition() {
			continue
		}
		if registry.IsAttachableScript(td.FullName) {
			return td.FullName, true
		}
		if fallback == "" {
			fallback = td.FullName
		}
	}
	return fallback, fallback != ""
}
