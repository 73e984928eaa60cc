package outbound

import (
	"context"

	"eventtracker/internal/domain/typesystem"
)

// ScriptCatalog maps script guids to the classes they declare and owns the
// type registry built from the project's scripts.
type ScriptCatalog interface {
	Types() *typesystem.Registry
	ClassForScript(scriptGUID string) (string, bool)
	ScriptForClass(fullName string) (string, bool)
	ScriptGUIDs() []string
	// Reload rebuilds the registry from the given scripts.
	Reload(ctx context.Context, scripts []ScriptFile) error
}
