package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eventtracker/internal/port/outbound"

	"github.com/pelletier/go-toml/v2"
)

// StateFileName is the file holding the tracker's progress.
const StateFileName = "tracker.toml"

// TrackerStateFile stores TrackerState as TOML.
type TrackerStateFile struct {
	path string
}

var _ outbound.TrackerStateRepository = (*TrackerStateFile)(nil)

// NewTrackerStateFile creates a state file kept in dir.
func NewTrackerStateFile(dir string) *TrackerStateFile {
	return &TrackerStateFile{path: filepath.Join(dir, StateFileName)}
}

// Load reads the state. A missing file yields the zero state.
func (f *TrackerStateFile) Load(_ context.Context) (outbound.TrackerState, error) {
	var state outbound.TrackerState
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	if err := toml.Unmarshal(data, &state); err != nil {
		return outbound.TrackerState{}, fmt.Errorf("decode %s: %w", StateFileName, err)
	}
	return state, nil
}

// Save writes the state.
func (f *TrackerStateFile) Save(ctx context.Context, state outbound.TrackerState) error {
	data, err := toml.Marshal(state)
	if err != nil {
		return err
	}
	return writeFileAtomic(ctx, f.path, data)
}
