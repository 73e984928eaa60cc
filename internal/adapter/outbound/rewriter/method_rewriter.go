// Package rewriter edits the method names of persistent calls in asset files.
package rewriter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"eventtracker/internal/application/common/retry"
	"eventtracker/internal/application/common/slogger"
	domainerrors "eventtracker/internal/domain/errors/domain"
	"eventtracker/internal/port/outbound"
)

const methodKey = "m_MethodName:"

// MethodRewriter applies method edits to files under a project root.
type MethodRewriter struct {
	root string
}

var _ outbound.MethodRewriter = (*MethodRewriter)(nil)

// NewMethodRewriter creates a rewriter for the project at root.
func NewMethodRewriter(root string) *MethodRewriter {
	return &MethodRewriter{root: root}
}

// Rewrite applies the edits file by file: each file is read once, every
// applicable edit is made in memory and the file is written once. Edits
// whose line no longer names the expected method are refused.
func (r *MethodRewriter) Rewrite(ctx context.Context, edits []outbound.MethodEdit) (outbound.RewriteResult, error) {
	var result outbound.RewriteResult

	var order []string
	byFile := make(map[string][]outbound.MethodEdit)
	for _, e := range edits {
		if err := validName(e.NewName); err != nil {
			result.Refused = append(result.Refused, outbound.RefusedEdit{Edit: e, Reason: err})
			continue
		}
		if _, ok := byFile[e.AssetPath]; !ok {
			order = append(order, e.AssetPath)
		}
		byFile[e.AssetPath] = append(byFile[e.AssetPath], e)
	}

	for _, file := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		applied, refused, err := r.rewriteFile(ctx, file, byFile[file])
		if err != nil {
			for _, e := range byFile[file] {
				result.Refused = append(result.Refused, outbound.RefusedEdit{Edit: e, Reason: err})
			}
			slogger.Error(ctx, "Cannot rewrite asset", slogger.Fields{"path": file, "error": err.Error()})
			continue
		}
		result.Refused = append(result.Refused, refused...)
		if applied > 0 {
			result.Applied += applied
			result.TouchedFiles = append(result.TouchedFiles, file)
		}
	}

	slogger.Info(ctx, "Method names rewritten", slogger.Fields{
		"applied": result.Applied,
		"refused": len(result.Refused),
		"files":   len(result.TouchedFiles),
	})
	return result, nil
}

func (r *MethodRewriter) rewriteFile(ctx context.Context, file string, edits []outbound.MethodEdit) (int, []outbound.RefusedEdit, error) {
	abs := filepath.Join(r.root, filepath.FromSlash(file))
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil, fmt.Errorf("%w: %s", domainerrors.ErrAssetNotFound, file)
	}
	if err != nil {
		return 0, nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return 0, nil, err
	}

	lines := strings.Split(string(data), "\n")
	var refused []outbound.RefusedEdit
	applied := 0
	for _, e := range edits {
		replaced, ok := replaceMethod(lines, e)
		if !ok {
			refused = append(refused, outbound.RefusedEdit{
				Edit:   e,
				Reason: fmt.Errorf("%w: %s line %d", domainerrors.ErrStaleMethodLine, file, e.Line),
			})
			continue
		}
		lines[e.Line] = replaced
		applied++
	}

	if applied > 0 {
		out := []byte(strings.Join(lines, "\n"))
		err := retry.WithRetry(ctx, func(context.Context) error {
			return os.WriteFile(abs, out, info.Mode().Perm())
		})
		if err != nil {
			return 0, nil, err
		}
	}
	return applied, refused, nil
}

// replaceMethod returns the edited line, keeping its indentation and line ending.
func replaceMethod(lines []string, e outbound.MethodEdit) (string, bool) {
	if e.Line < 0 || e.Line >= len(lines) {
		return "", false
	}
	line := lines[e.Line]
	body, cr := strings.CutSuffix(line, "\r")
	indent := body[:len(body)-len(strings.TrimLeft(body, " "))]

	value, ok := strings.CutPrefix(body[len(indent):], methodKey)
	if !ok || strings.TrimSpace(value) != e.OldName {
		return "", false
	}

	out := indent + methodKey + " " + e.NewName
	if cr {
		out += "\r"
	}
	return out, true
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n:#{}[],") {
		return fmt.Errorf("%w: %q is not a method name", domainerrors.ErrInvalidReplacement, name)
	}
	return nil
}
