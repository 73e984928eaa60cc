// Package persistence stores the tracker's data as files inside the project:
// the bindings and script sets as JSON, the tracker state as TOML.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eventtracker/internal/application/common/retry"
)

// envelope is the layout of every JSON file: one object wrapping a list.
type envelope[T any] struct {
	Data []T `json:"Data"`
}

// readEnvelope decodes the list stored at path. A missing file is empty.
func readEnvelope[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return env.Data, nil
}

func writeEnvelope[T any](ctx context.Context, path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(envelope[T]{Data: items}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(ctx, path, data)
}

// writeFileAtomic replaces path through a temporary file in the same
// directory. The final rename is retried while another process holds path.
func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return retry.WithRetry(ctx, func(context.Context) error {
		return os.Rename(tmp.Name(), path)
	})
}
