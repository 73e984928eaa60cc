package outbound

import "context"

// MethodEdit replaces the method name written on one line of an asset.
type MethodEdit struct {
	AssetPath string
	Line      int
	OldName   string
	NewName   string
}

// RefusedEdit is an edit that was not applied.
type RefusedEdit struct {
	Edit   MethodEdit
	Reason error
}

// RewriteResult reports the outcome of a batch of edits.
type RewriteResult struct {
	Applied      int
	Refused      []RefusedEdit
	TouchedFiles []string
}

// MethodRewriter applies method edits, reading and writing each file once.
type MethodRewriter interface {
	Rewrite(ctx context.Context, edits []MethodEdit) (RewriteResult, error)
}
