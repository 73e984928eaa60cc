package valueobject

import (
	"fmt"
	"strings"

	domainerrors "eventtracker/internal/domain/errors/domain"
)

// CallState is the validity classification of a persistent call.
type CallState int

// Call states.
const (
	CallStateValid CallState = iota
	CallStateInvalidTarget
	CallStateInvalidArgument
	CallStateInvalidMethod
)

var callStateNames = map[CallState]string{
	CallStateValid:           "valid",
	CallStateInvalidTarget:   "invalid-target",
	CallStateInvalidArgument: "invalid-argument",
	CallStateInvalidMethod:   "invalid-method",
}

// NewCallState validates a raw persisted state value.
func NewCallState(raw int) (CallState, error) {
	s := CallState(raw)
	if _, ok := callStateNames[s]; !ok {
		return 0, fmt.Errorf("%w: %d", domainerrors.ErrUnknownCallState, raw)
	}
	return s, nil
}

// ParseCallState parses the textual name of a state.
func ParseCallState(s string) (CallState, error) {
	for state, name := range callStateNames {
		if strings.EqualFold(name, s) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domainerrors.ErrUnknownCallState, s)
}

// IsValid reports whether the call resolves and type-checks.
func (s CallState) IsValid() bool {
	return s == CallStateValid
}

// String returns the textual name of the state.
func (s CallState) String() string {
	if name, ok := callStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CallState(%d)", int(s))
}

// AllCallStates returns every state in declaration order.
func AllCallStates() []CallState {
	return []CallState{
		CallStateValid,
		CallStateInvalidTarget,
		CallStateInvalidArgument,
		CallStateInvalidMethod,
	}
}
