// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Project-related errors.
var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrNotUnityProject = errors.New("directory is not a unity project")
)

// Parsing errors.
var (
	ErrMalformedBlock     = errors.New("malformed object block")
	ErrUnexpectedLine     = errors.New("unexpected line in listener entry")
	ErrUnknownCallState   = errors.New("unknown call state")
	ErrUnknownListenMode  = errors.New("unknown listener mode")
	ErrMalformedReference = errors.New("malformed object reference")
)

// Tracker errors.
var (
	ErrScanInProgress     = errors.New("a project scan is already running")
	ErrTrackingDisabled   = errors.New("event tracking is disabled")
	ErrInvalidReplacement = errors.New("replacement method does not match the listener signature")
	ErrStaleMethodLine    = errors.New("method line no longer holds the expected method name")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
