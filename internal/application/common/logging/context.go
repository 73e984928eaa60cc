package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	correlationKey contextKey = iota
	assetKey
)

// WithCorrelationID returns a context whose log lines carry id. A scan, an
// import batch or a watcher flush each get their own id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// WithNewCorrelationID attaches a freshly generated correlation id.
func WithNewCorrelationID(ctx context.Context) context.Context {
	return WithCorrelationID(ctx, uuid.NewString())
}

// CorrelationIDFromContext returns the correlation id of ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// WithAsset scopes log lines to the asset being processed.
func WithAsset(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, assetKey, path)
}

// AssetFromContext returns the asset path of ctx, or "".
func AssetFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	path, _ := ctx.Value(assetKey).(string)
	return path
}
