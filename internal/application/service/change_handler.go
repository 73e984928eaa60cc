package service

import (
	"context"
	"errors"
	"strings"

	"eventtracker/internal/port/inbound"
)

var _ inbound.ChangeHandler = (*Tracker)(nil)

// HandleChanges applies a batch of file changes: deletions first, then new
// scripts, a script check when any script changed and finally the
// rescan of changed assets.
func (t *Tracker) HandleChanges(ctx context.Context, batch inbound.ChangeBatch) error {
	if !t.opts.Enabled || batch.IsEmpty() {
		return nil
	}

	var errs []error
	scriptsChanged := false
	for _, path := range batch.Deleted {
		scriptsChanged = scriptsChanged || isScript(path)
		errs = append(errs, t.OnBeforeDelete(ctx, path))
	}
	for _, path := range batch.Created {
		if isScript(path) {
			scriptsChanged = true
			errs = append(errs, t.OnBeforeCreate(ctx, path))
		}
	}
	for _, path := range batch.Modified {
		scriptsChanged = scriptsChanged || isScript(path)
	}

	if scriptsChanged {
		_, err := t.OnScriptsChanged(ctx)
		errs = append(errs, err)
	}

	var assets []string
	for _, path := range append(batch.Created, batch.Modified...) {
		if t.deps.Project.IsControlledAsset(path) {
			assets = append(assets, path)
		}
	}
	if len(assets) > 0 {
		_, err := t.OnAssetsImported(ctx, assets)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func isScript(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(path, metaExt), scriptExt)
}
