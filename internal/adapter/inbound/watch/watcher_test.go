package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"eventtracker/internal/port/inbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	batches []inbound.ChangeBatch
}

func (h *recordingHandler) HandleChanges(_ context.Context, batch inbound.ChangeBatch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, batch)
	return nil
}

// seen merges every batch received so far.
func (h *recordingHandler) seen() inbound.ChangeBatch {
	h.mu.Lock()
	defer h.mu.Unlock()
	var all inbound.ChangeBatch
	for _, b := range h.batches {
		all.Created = append(all.Created, b.Created...)
		all.Modified = append(all.Modified, b.Modified...)
		all.Deleted = append(all.Deleted, b.Deleted...)
	}
	return all
}

func startWatcher(t *testing.T, root string, opts Options) (*Watcher, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	w, err := NewWatcher(root, handler, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	require.Eventually(t, w.IsRunning, time.Second, 5*time.Millisecond)
	// Run adds the watches right after flagging itself as running.
	time.Sleep(50 * time.Millisecond)
	return w, handler
}

func newProjectDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Assets", "Scenes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Assets", "Scenes", "Old.unity"), []byte("old"), 0o644))
	return root
}

func TestNewWatcher_RequiresHandler(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), nil, Options{})
	require.Error(t, err)
}

func TestWatcher_DispatchesChanges(t *testing.T) {
	root := newProjectDir(t)
	w, handler := startWatcher(t, root, Options{})

	require.NoError(t, os.WriteFile(filepath.Join(root, "Assets", "Scenes", "New.unity"), []byte("new"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "Assets", "Scenes", "Old.unity")))

	require.Eventually(t, func() bool {
		seen := handler.seen()
		return slices.Contains(seen.Created, "Assets/Scenes/New.unity") &&
			slices.Contains(seen.Deleted, "Assets/Scenes/Old.unity")
	}, 2*time.Second, 10*time.Millisecond)

	stats := w.Stats()
	assert.Positive(t, stats.Batches)
	assert.Positive(t, stats.Events)
	assert.Zero(t, stats.HandlerErrors)
}

func TestWatcher_WatchesNewFolders(t *testing.T) {
	root := newProjectDir(t)
	_, handler := startWatcher(t, root, Options{})

	dir := filepath.Join(root, "Assets", "Prefabs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "Door.prefab"), []byte("door"), 0o644)
		seen := handler.seen()
		return slices.Contains(seen.Created, "Assets/Prefabs/Door.prefab") ||
			slices.Contains(seen.Modified, "Assets/Prefabs/Door.prefab")
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWatcher_SkipsIgnoredAndTemporaryFiles(t *testing.T) {
	root := newProjectDir(t)
	_, handler := startWatcher(t, root, Options{
		Ignore: func(path string) bool { return strings.HasPrefix(path, "Assets/Scenes/Ignored") },
	})

	scenes := filepath.Join(root, "Assets", "Scenes")
	require.NoError(t, os.WriteFile(filepath.Join(scenes, "Ignored.unity"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scenes, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scenes, "Backup.unity~"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scenes, "Kept.unity"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return slices.Contains(handler.seen().Created, "Assets/Scenes/Kept.unity")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Assets/Scenes/Kept.unity"}, handler.seen().Created)
}

func TestWatcher_RejectsSecondRun(t *testing.T) {
	root := newProjectDir(t)
	w, _ := startWatcher(t, root, Options{})

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestWatcher_MissingAssetsFolder(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), &recordingHandler{}, Options{})
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background()))
	assert.False(t, w.IsRunning())
}
