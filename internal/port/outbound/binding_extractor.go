package outbound

import (
	"context"

	"eventtracker/internal/domain/entity"
)

// AssetSource is the raw text of one asset.
type AssetSource struct {
	GUID    string
	Path    string
	Content []byte
}

// ExtractResult holds the calls found in an asset and the object blocks that
// could not be parsed.
type ExtractResult struct {
	Calls    []*entity.PersistentCall
	Failures []error
}

// BindingExtractor recovers persistent calls from serialized assets.
type BindingExtractor interface {
	Extract(ctx context.Context, asset AssetSource, hasEvents func(scriptGUID string) bool) ExtractResult
}
