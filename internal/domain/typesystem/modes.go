package typesystem

import "eventtracker/internal/domain/valueobject"

// ModeToType returns the parameter type a fixed argument mode passes.
// Modes without a primitive type map to System.Object.
func ModeToType(mode valueobject.ArgumentMode) string {
	switch mode {
	case valueobject.ArgumentModeVoid:
		return TypeVoid
	case valueobject.ArgumentModeInt:
		return TypeInt
	case valueobject.ArgumentModeFloat:
		return TypeFloat
	case valueobject.ArgumentModeString:
		return TypeString
	case valueobject.ArgumentModeBool:
		return TypeBool
	default:
		return TypeObject
	}
}

// TypeToMode returns the argument mode for a parameter type.
// Types without a fixed mode map to object mode.
func TypeToMode(typeName string) valueobject.ArgumentMode {
	switch typeName {
	case TypeVoid:
		return valueobject.ArgumentModeVoid
	case TypeInt:
		return valueobject.ArgumentModeInt
	case TypeFloat:
		return valueobject.ArgumentModeFloat
	case TypeString:
		return valueobject.ArgumentModeString
	case TypeBool:
		return valueobject.ArgumentModeBool
	default:
		return valueobject.ArgumentModeObject
	}
}

// ModeMatchesType reports whether a parameter type is exactly the one a mode passes.
func ModeMatchesType(mode valueobject.ArgumentMode, typeName string) bool {
	if mode == valueobject.ArgumentModeEventDefined {
		return false
	}
	return ModeToType(mode) == typeName
}
