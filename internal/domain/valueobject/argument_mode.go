package valueobject

import (
	"fmt"
	"strings"
)

// ArgumentMode is the shape of argument a persistent listener passes when invoked.
// Values follow the engine's serialized numbering.
type ArgumentMode int

// Argument modes.
const (
	ArgumentModeEventDefined ArgumentMode = iota
	ArgumentModeVoid
	ArgumentModeObject
	ArgumentModeInt
	ArgumentModeFloat
	ArgumentModeString
	ArgumentModeBool
)

var argumentModeNames = map[ArgumentMode]string{
	ArgumentModeEventDefined: "event-defined",
	ArgumentModeVoid:         "void",
	ArgumentModeObject:       "object",
	ArgumentModeInt:          "int",
	ArgumentModeFloat:        "float",
	ArgumentModeString:       "string",
	ArgumentModeBool:         "bool",
}

// NewArgumentMode validates a raw serialized mode value.
func NewArgumentMode(raw int) (ArgumentMode, error) {
	m := ArgumentMode(raw)
	if !m.IsValid() {
		return 0, fmt.Errorf("invalid argument mode: %d", raw)
	}
	return m, nil
}

// ParseArgumentMode parses the textual name of a mode.
func ParseArgumentMode(s string) (ArgumentMode, error) {
	for m, name := range argumentModeNames {
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid argument mode: %s", s)
}

// IsValid reports whether the mode is one of the known values.
func (m ArgumentMode) IsValid() bool {
	_, ok := argumentModeNames[m]
	return ok
}

// IsFixed reports whether the listener passes a fixed primitive argument or none.
func (m ArgumentMode) IsFixed() bool {
	switch m {
	case ArgumentModeVoid, ArgumentModeInt, ArgumentModeFloat, ArgumentModeString, ArgumentModeBool:
		return true
	default:
		return false
	}
}

// String returns the textual name of the mode.
func (m ArgumentMode) String() string {
	if name, ok := argumentModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ArgumentMode(%d)", int(m))
}
