package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"eventtracker/internal/client"
	domainerrors "eventtracker/internal/domain/errors/domain"

	"github.com/spf13/cobra"
)

// errInvalidConfig marks configuration failures for the error envelope.
var errInvalidConfig = errors.New("invalid configuration")

func writeResult(cmd *cobra.Command, data interface{}) error {
	return client.WriteSuccess(cmd.OutOrStdout(), data)
}

// fail writes the error envelope and returns err so the process exits non-zero.
func fail(cmd *cobra.Command, err error) error {
	if writeErr := client.WriteError(cmd.OutOrStdout(), errorCode(err), err.Error(), nil); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	return err
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errInvalidConfig):
		return client.CodeInvalidConfig
	case errors.Is(err, domainerrors.ErrNotUnityProject):
		return client.CodeNotUnityProject
	case errors.Is(err, domainerrors.ErrScanInProgress):
		return client.CodeScanInProgress
	case errors.Is(err, domainerrors.ErrTrackingDisabled):
		return client.CodeTrackingOff
	case errors.Is(err, domainerrors.ErrAssetNotFound):
		return client.CodeNotFound
	case errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrUnknownCallState),
		errors.Is(err, domainerrors.ErrInvalidReplacement):
		return client.CodeInvalidArgument
	default:
		return client.CodeInternal
	}
}

// projectPaths converts command arguments to project-relative slash paths.
// Relative arguments are taken relative to the working directory.
func projectPaths(root string, args []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		abs := arg
		if !filepath.IsAbs(abs) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			abs = filepath.Join(wd, arg)
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, errors.Join(domainerrors.ErrInvalidInput, errors.New(arg+" is outside the project"))
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}
