// Package inbound defines the interfaces the application exposes to drivers
// such as the CLI and the file watcher.
package inbound

import "context"

// ChangeBatch holds project-relative paths that changed on disk since the
// previous batch.
type ChangeBatch struct {
	Created  []string
	Modified []string
	Deleted  []string
}

// IsEmpty reports whether the batch holds no paths.
func (b ChangeBatch) IsEmpty() bool {
	return len(b.Created) == 0 && len(b.Modified) == 0 && len(b.Deleted) == 0
}

// ChangeHandler keeps derived data in sync with file changes.
type ChangeHandler interface {
	HandleChanges(ctx context.Context, batch ChangeBatch) error
}
