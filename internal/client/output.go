// Package client formats command output as a JSON envelope with a success
// flag, a data payload or an error, and a timestamp.
package client

import (
	"encoding/json"
	"io"
	"time"
)

// Error codes reported in the envelope.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotUnityProject = "NOT_UNITY_PROJECT"
	CodeScanInProgress  = "SCAN_IN_PROGRESS"
	CodeTrackingOff     = "TRACKING_DISABLED"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// Response is the envelope of every command output. Data and Error are
// mutually exclusive.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error is the machine-readable failure of a command.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// now is replaced in tests.
var now = time.Now

// WriteSuccess writes a success response carrying data.
func WriteSuccess(w io.Writer, data interface{}) error {
	return write(w, Response{Success: true, Data: data, Timestamp: now().UTC()})
}

// WriteError writes a failure response. details may be nil.
func WriteError(w io.Writer, code, message string, details interface{}) error {
	return write(w, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: now().UTC(),
	})
}

func write(w io.Writer, response Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response)
}
