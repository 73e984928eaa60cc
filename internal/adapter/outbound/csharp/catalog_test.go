package csharp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spawnerGUID = "31e356a211abce146a18acbbaf34bacc"
	menuGUID    = "97437966622eda74a91d29ac6d3f5563"
	missingGUID = "da5e393edfcb7eb4bb681092b41dc693"
)

func copyFixture(t *testing.T, root, name, dest string) {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	full := filepath.Join(root, filepath.FromSlash(dest))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, src, 0o644))
}

func TestCatalog_Reload(t *testing.T) {
	root := t.TempDir()
	copyFixture(t, root, "EnemySpawner.cs", "Assets/Scripts/EnemySpawner.cs")
	copyFixture(t, root, "FileScoped.cs", "Assets/Scripts/UI/Menu.cs")

	catalog, err := NewCatalog(root, 2)
	require.NoError(t, err)

	err = catalog.Reload(context.Background(), []outbound.ScriptFile{
		{GUID: spawnerGUID, Path: "Assets/Scripts/EnemySpawner.cs", Assembly: "Assembly-CSharp"},
		{GUID: menuGUID, Path: "Assets/Scripts/UI/Menu.cs", Assembly: "Game.UI"},
		{GUID: missingGUID, Path: "Assets/Scripts/Gone.cs", Assembly: "Assembly-CSharp"},
	})
	require.NoError(t, err)

	class, ok := catalog.ClassForScript(spawnerGUID)
	require.True(t, ok)
	assert.Equal(t, "Game.Spawning.EnemySpawner", class)

	class, ok = catalog.ClassForScript(menuGUID)
	require.True(t, ok)
	assert.Equal(t, "Game.Ui.Menu", class)

	_, ok = catalog.ClassForScript(missingGUID)
	assert.False(t, ok)

	guid, ok := catalog.ScriptForClass("Game.Spawning.EnemySpawner")
	require.True(t, ok)
	assert.Equal(t, spawnerGUID, guid)
	assert.ElementsMatch(t, []string{spawnerGUID, menuGUID}, catalog.ScriptGUIDs())

	types := catalog.Types()
	assert.True(t, types.IsAttachableScript("Game.Spawning.EnemySpawner"))
	args, ok := types.EventArgumentTypes("Game.Spawning.SpawnEvent")
	require.True(t, ok)
	assert.Equal(t, []string{"UnityEngine.GameObject", typesystem.TypeInt}, args)

	field, ok := types.FindSerializedField("Game.Spawning.EnemySpawner", "done")
	require.True(t, ok)
	assert.Equal(t, "onFinished", field.Path)

	menu, ok := types.Lookup("Game.Ui.Menu")
	require.True(t, ok)
	assert.Equal(t, "Game.UI", menu.Assembly)

	assert.True(t, catalog.ScriptHasEvents(spawnerGUID))
	assert.False(t, catalog.ScriptHasEvents(menuGUID))
}

func TestCatalog_ReloadReplacesPreviousContents(t *testing.T) {
	root := t.TempDir()
	copyFixture(t, root, "FileScoped.cs", "Assets/Menu.cs")

	catalog, err := NewCatalog(root, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, catalog.Reload(ctx, []outbound.ScriptFile{{GUID: menuGUID, Path: "Assets/Menu.cs"}}))
	_, ok := catalog.ClassForScript(menuGUID)
	require.True(t, ok)

	require.NoError(t, catalog.Reload(ctx, nil))
	_, ok = catalog.ClassForScript(menuGUID)
	assert.False(t, ok)
	_, ok = catalog.Types().Lookup("Game.Ui.Menu")
	assert.False(t, ok)
}

func TestCatalog_ReloadHonorsCancellation(t *testing.T) {
	catalog, err := NewCatalog(t.TempDir(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = catalog.Reload(ctx, []outbound.ScriptFile{{GUID: menuGUID, Path: "Assets/Menu.cs"}})
	require.ErrorIs(t, err, context.Canceled)
}
